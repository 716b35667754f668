package role

import (
	"context"
	"sort"

	"github.com/google/uuid"
	apperrors "github.com/tendant/simple-rbac/pkg/errors"
)

var (
	ErrRoleNotFound = apperrors.NotFound("Role")
	ErrRoleExists   = apperrors.Conflict("Role already exists")
)

// RoleRepository defines the storage operations for roles. Every read
// returns roles with their permissions resolved.
type RoleRepository interface {
	// ListRoles returns all roles ordered by name
	ListRoles(ctx context.Context) ([]Role, error)
	GetRole(ctx context.Context, id uuid.UUID) (Role, error)
	GetRoleByName(ctx context.Context, name string) (Role, error)
	// GetRolesByIDs returns the roles that exist among ids; unknown ids are skipped
	GetRolesByIDs(ctx context.Context, ids []uuid.UUID) ([]Role, error)
	CreateRole(ctx context.Context, r Role) (Role, error)
	// UpdateRole replaces the role's fields and permission references
	UpdateRole(ctx context.Context, r Role) (Role, error)
	DeleteRole(ctx context.Context, id uuid.UUID) error
}

func sortRoles(roles []Role) {
	sort.SliceStable(roles, func(i, j int) bool { return roles[i].Name < roles[j].Name })
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
