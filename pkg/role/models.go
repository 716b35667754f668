package role

import (
	"time"

	"github.com/google/uuid"
	"github.com/tendant/simple-rbac/pkg/permission"
)

// Role is a named bundle of permissions assignable to users
type Role struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	IsDefault   bool      `json:"isDefault"`

	// PermissionIDs are the stored references. Permissions holds the loaded
	// records and stays nil until the references are resolved.
	PermissionIDs []uuid.UUID               `json:"-"`
	Permissions   []permission.Permission `json:"permissions"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// PermissionsResolved reports whether the role's permission references have
// been loaded. A role without references counts as resolved.
func (r Role) PermissionsResolved() bool {
	return r.Permissions != nil || len(r.PermissionIDs) == 0
}

// CreateRoleParams holds the fields of a new role
type CreateRoleParams struct {
	Name          string
	Description   string
	PermissionIDs []uuid.UUID
	IsDefault     bool
}

// UpdateRoleParams holds optional replacements; nil fields are left unchanged
type UpdateRoleParams struct {
	Name          *string
	Description   *string
	PermissionIDs *[]uuid.UUID
	IsDefault     *bool
}
