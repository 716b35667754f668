package permission

import (
	"context"
	"sort"

	"github.com/google/uuid"
	apperrors "github.com/tendant/simple-rbac/pkg/errors"
)

var (
	ErrPermissionNotFound = apperrors.NotFound("Permission")
	ErrPermissionExists   = apperrors.Conflict("Permission already exists")
)

// PermissionRepository defines the storage operations for permissions
type PermissionRepository interface {
	// ListPermissions returns every permission ordered by category, then name
	ListPermissions(ctx context.Context) ([]Permission, error)
	GetPermission(ctx context.Context, id uuid.UUID) (Permission, error)
	GetPermissionByName(ctx context.Context, name string) (Permission, error)
	// GetPermissionsByIDs returns the permissions that exist among ids; unknown ids are skipped
	GetPermissionsByIDs(ctx context.Context, ids []uuid.UUID) ([]Permission, error)
	CreatePermission(ctx context.Context, p Permission) (Permission, error)
	UpdatePermission(ctx context.Context, p Permission) (Permission, error)
	DeletePermission(ctx context.Context, id uuid.UUID) error
}

// SortPermissions orders permissions by category, then name
func SortPermissions(perms []Permission) {
	sort.SliceStable(perms, func(i, j int) bool {
		if perms[i].Category != perms[j].Category {
			return perms[i].Category < perms[j].Category
		}
		return perms[i].Name < perms[j].Name
	})
}
