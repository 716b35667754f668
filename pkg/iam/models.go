package iam

import (
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/tendant/simple-rbac/pkg/role"
)

// User is an account holder. Email is stored lower-cased and unique.
type User struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	FirstName    string    `json:"firstName"`
	LastName     string    `json:"lastName"`

	// RoleIDs are the stored references; Roles is filled by the service
	RoleIDs []uuid.UUID `json:"-"`
	Roles   []role.Role `json:"roles"`

	IsActive  bool       `json:"isActive"`
	LastLogin *time.Time `json:"lastLogin,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// AssignedRoles implements role.RoleHolder
func (u *User) AssignedRoles() []role.Role {
	if u == nil {
		return nil
	}
	return u.Roles
}

// Sort fields accepted by ListUsers
const (
	SortByCreatedAt = "createdAt"
	SortByEmail     = "email"
	SortByFirstName = "firstName"
	SortByLastName  = "lastName"
)

const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100

	// MaxPage keeps Offset within a 32-bit int at MaxLimit
	MaxPage = math.MaxInt32 / MaxLimit
)

// ListUsersParams controls filtering, ordering and paging of ListUsers
type ListUsersParams struct {
	Page      int
	Limit     int
	Search    string
	SortBy    string
	SortOrder string
	RoleID    *uuid.UUID
}

// Normalize fills defaults and clamps out-of-range values
func (p ListUsersParams) Normalize() ListUsersParams {
	if p.Page < 1 {
		p.Page = DefaultPage
	}
	if p.Page > MaxPage {
		p.Page = MaxPage
	}
	if p.Limit < 1 {
		p.Limit = DefaultLimit
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
	switch p.SortBy {
	case SortByCreatedAt, SortByEmail, SortByFirstName, SortByLastName:
	default:
		p.SortBy = SortByCreatedAt
	}
	if p.SortOrder != "asc" {
		p.SortOrder = "desc"
	}
	return p
}

// Offset is the number of rows skipped before the current page
func (p ListUsersParams) Offset() int {
	return (p.Page - 1) * p.Limit
}

type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

type ListUsersResult struct {
	Users      []User     `json:"users"`
	Pagination Pagination `json:"pagination"`
}

// CreateUserParams holds the fields of a new user
type CreateUserParams struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	RoleIDs   []uuid.UUID
	// IsActive defaults to true
	IsActive *bool
}

// UpdateUserParams holds optional replacements; nil fields are left unchanged.
// A non-nil Password is hashed once and replaces the stored hash.
type UpdateUserParams struct {
	Email     *string
	Password  *string
	FirstName *string
	LastName  *string
	RoleIDs   *[]uuid.UUID
	IsActive  *bool
}
