package iam

import (
	"context"
	"time"

	"github.com/google/uuid"
	apperrors "github.com/tendant/simple-rbac/pkg/errors"
)

var (
	ErrUserNotFound = apperrors.NotFound("User")
	ErrEmailTaken   = apperrors.Conflict("User with this email already exists")
)

// UserRepository defines the storage operations for users. Repositories
// return users with RoleIDs set and Roles left nil.
type UserRepository interface {
	GetUserByID(ctx context.Context, id uuid.UUID) (User, error)
	// GetUserByEmail matches the email case-insensitively
	GetUserByEmail(ctx context.Context, email string) (User, error)
	// ListUsers returns one page of users and the total number of matches.
	// params must be normalized.
	ListUsers(ctx context.Context, params ListUsersParams) ([]User, int, error)
	CreateUser(ctx context.Context, u User) (User, error)
	// UpdateUser replaces the stored fields of u, including its role references
	UpdateUser(ctx context.Context, u User) (User, error)
	UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
	SetUserRoles(ctx context.Context, id uuid.UUID, roleIDs []uuid.UUID) error
	DeleteUser(ctx context.Context, id uuid.UUID) error
}

func dedupe(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
