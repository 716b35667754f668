package permission

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryPermissionRepository implements PermissionRepository using in-memory storage
type InMemoryPermissionRepository struct {
	mu          sync.RWMutex
	permissions map[uuid.UUID]Permission
}

// NewInMemoryPermissionRepository creates a new in-memory permission repository
func NewInMemoryPermissionRepository() *InMemoryPermissionRepository {
	return &InMemoryPermissionRepository{
		permissions: make(map[uuid.UUID]Permission),
	}
}

func (r *InMemoryPermissionRepository) ListPermissions(ctx context.Context) ([]Permission, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	perms := make([]Permission, 0, len(r.permissions))
	for _, p := range r.permissions {
		perms = append(perms, p)
	}
	SortPermissions(perms)
	return perms, nil
}

func (r *InMemoryPermissionRepository) GetPermission(ctx context.Context, id uuid.UUID) (Permission, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.permissions[id]
	if !ok {
		return Permission{}, ErrPermissionNotFound
	}
	return p, nil
}

func (r *InMemoryPermissionRepository) GetPermissionByName(ctx context.Context, name string) (Permission, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.permissions {
		if p.Name == name {
			return p, nil
		}
	}
	return Permission{}, ErrPermissionNotFound
}

func (r *InMemoryPermissionRepository) GetPermissionsByIDs(ctx context.Context, ids []uuid.UUID) ([]Permission, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	perms := make([]Permission, 0, len(ids))
	for _, id := range ids {
		if p, ok := r.permissions[id]; ok {
			perms = append(perms, p)
		}
	}
	return perms, nil
}

func (r *InMemoryPermissionRepository) CreatePermission(ctx context.Context, p Permission) (Permission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.nameTaken(p.Name, uuid.Nil) {
		return Permission{}, ErrPermissionExists
	}
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	now := time.Now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now
	r.permissions[p.ID] = p
	return p, nil
}

func (r *InMemoryPermissionRepository) UpdatePermission(ctx context.Context, p Permission) (Permission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.permissions[p.ID]
	if !ok {
		return Permission{}, ErrPermissionNotFound
	}
	if r.nameTaken(p.Name, p.ID) {
		return Permission{}, ErrPermissionExists
	}
	p.CreatedAt = existing.CreatedAt
	p.UpdatedAt = time.Now().UTC()
	r.permissions[p.ID] = p
	return p, nil
}

func (r *InMemoryPermissionRepository) DeletePermission(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.permissions[id]; !ok {
		return ErrPermissionNotFound
	}
	delete(r.permissions, id)
	return nil
}

// nameTaken must be called with the lock held
func (r *InMemoryPermissionRepository) nameTaken(name string, except uuid.UUID) bool {
	for id, p := range r.permissions {
		if id != except && p.Name == name {
			return true
		}
	}
	return false
}
