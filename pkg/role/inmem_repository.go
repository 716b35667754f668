package role

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tendant/simple-rbac/pkg/permission"
)

// InMemoryRoleRepository implements RoleRepository using in-memory storage.
// Permission references are resolved against the given permission repository
// on every read, so a deleted permission simply drops out of its roles.
type InMemoryRoleRepository struct {
	mu          sync.RWMutex
	roles       map[uuid.UUID]Role
	permissions permission.PermissionRepository
}

// NewInMemoryRoleRepository creates a new in-memory role repository
func NewInMemoryRoleRepository(permissions permission.PermissionRepository) *InMemoryRoleRepository {
	return &InMemoryRoleRepository{
		roles:       make(map[uuid.UUID]Role),
		permissions: permissions,
	}
}

func (r *InMemoryRoleRepository) resolve(ctx context.Context, role Role) (Role, error) {
	perms, err := r.permissions.GetPermissionsByIDs(ctx, role.PermissionIDs)
	if err != nil {
		return Role{}, err
	}
	permission.SortPermissions(perms)
	role.PermissionIDs = append([]uuid.UUID(nil), role.PermissionIDs...)
	role.Permissions = perms
	return role, nil
}

func (r *InMemoryRoleRepository) snapshot(ids ...uuid.UUID) []Role {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if ids == nil {
		roles := make([]Role, 0, len(r.roles))
		for _, role := range r.roles {
			roles = append(roles, role)
		}
		return roles
	}
	roles := make([]Role, 0, len(ids))
	for _, id := range ids {
		if role, ok := r.roles[id]; ok {
			roles = append(roles, role)
		}
	}
	return roles
}

func (r *InMemoryRoleRepository) resolveAll(ctx context.Context, roles []Role) ([]Role, error) {
	out := make([]Role, 0, len(roles))
	for _, role := range roles {
		resolved, err := r.resolve(ctx, role)
		if err != nil {
			return nil, err
		}
		out = append(out, resolved)
	}
	sortRoles(out)
	return out, nil
}

func (r *InMemoryRoleRepository) ListRoles(ctx context.Context) ([]Role, error) {
	return r.resolveAll(ctx, r.snapshot())
}

func (r *InMemoryRoleRepository) GetRolesByIDs(ctx context.Context, ids []uuid.UUID) ([]Role, error) {
	if len(ids) == 0 {
		return []Role{}, nil
	}
	return r.resolveAll(ctx, r.snapshot(dedupe(ids)...))
}

func (r *InMemoryRoleRepository) GetRole(ctx context.Context, id uuid.UUID) (Role, error) {
	roles := r.snapshot(id)
	if len(roles) == 0 {
		return Role{}, ErrRoleNotFound
	}
	return r.resolve(ctx, roles[0])
}

func (r *InMemoryRoleRepository) GetRoleByName(ctx context.Context, name string) (Role, error) {
	for _, role := range r.snapshot() {
		if role.Name == name {
			return r.resolve(ctx, role)
		}
	}
	return Role{}, ErrRoleNotFound
}

func (r *InMemoryRoleRepository) CreateRole(ctx context.Context, role Role) (Role, error) {
	r.mu.Lock()
	if r.nameTaken(role.Name, uuid.Nil) {
		r.mu.Unlock()
		return Role{}, ErrRoleExists
	}
	if role.ID == uuid.Nil {
		role.ID = uuid.New()
	}
	now := time.Now().UTC()
	role.CreatedAt, role.UpdatedAt = now, now
	role.PermissionIDs = dedupe(role.PermissionIDs)
	role.Permissions = nil
	r.roles[role.ID] = role
	r.mu.Unlock()

	return r.resolve(ctx, role)
}

func (r *InMemoryRoleRepository) UpdateRole(ctx context.Context, role Role) (Role, error) {
	r.mu.Lock()
	existing, ok := r.roles[role.ID]
	if !ok {
		r.mu.Unlock()
		return Role{}, ErrRoleNotFound
	}
	if r.nameTaken(role.Name, role.ID) {
		r.mu.Unlock()
		return Role{}, ErrRoleExists
	}
	role.CreatedAt = existing.CreatedAt
	role.UpdatedAt = time.Now().UTC()
	role.PermissionIDs = dedupe(role.PermissionIDs)
	role.Permissions = nil
	r.roles[role.ID] = role
	r.mu.Unlock()

	return r.resolve(ctx, role)
}

func (r *InMemoryRoleRepository) DeleteRole(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.roles[id]; !ok {
		return ErrRoleNotFound
	}
	delete(r.roles, id)
	return nil
}

// nameTaken must be called with the lock held
func (r *InMemoryRoleRepository) nameTaken(name string, except uuid.UUID) bool {
	for id, role := range r.roles {
		if id != except && role.Name == name {
			return true
		}
	}
	return false
}
