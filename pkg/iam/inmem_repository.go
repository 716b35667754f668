package iam

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryUserRepository implements UserRepository using in-memory storage
type InMemoryUserRepository struct {
	mu    sync.RWMutex
	users map[uuid.UUID]User
}

// NewInMemoryUserRepository creates a new in-memory user repository
func NewInMemoryUserRepository() *InMemoryUserRepository {
	return &InMemoryUserRepository{
		users: make(map[uuid.UUID]User),
	}
}

func clone(u User) User {
	u.RoleIDs = append([]uuid.UUID{}, u.RoleIDs...)
	u.Roles = nil
	if u.LastLogin != nil {
		t := *u.LastLogin
		u.LastLogin = &t
	}
	return u
}

func (r *InMemoryUserRepository) GetUserByID(ctx context.Context, id uuid.UUID) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[id]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return clone(u), nil
}

func (r *InMemoryUserRepository) GetUserByEmail(ctx context.Context, email string) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.users {
		if strings.EqualFold(u.Email, email) {
			return clone(u), nil
		}
	}
	return User{}, ErrUserNotFound
}

func (r *InMemoryUserRepository) ListUsers(ctx context.Context, params ListUsersParams) ([]User, int, error) {
	r.mu.RLock()
	matches := make([]User, 0, len(r.users))
	for _, u := range r.users {
		if matchesFilter(u, params) {
			matches = append(matches, clone(u))
		}
	}
	r.mu.RUnlock()

	sortUsers(matches, params.SortBy, params.SortOrder == "desc")

	total := len(matches)
	start := params.Offset()
	if start < 0 || start >= total || params.Limit < 1 {
		return []User{}, total, nil
	}
	end := total
	if params.Limit < total-start {
		end = start + params.Limit
	}
	return matches[start:end], total, nil
}

func (r *InMemoryUserRepository) CreateUser(ctx context.Context, u User) (User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.emailTaken(u.Email, uuid.Nil) {
		return User{}, ErrEmailTaken
	}
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	now := time.Now().UTC()
	u.CreatedAt, u.UpdatedAt = now, now
	u.RoleIDs = dedupe(u.RoleIDs)
	u = clone(u)
	r.users[u.ID] = u
	return clone(u), nil
}

func (r *InMemoryUserRepository) UpdateUser(ctx context.Context, u User) (User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.users[u.ID]
	if !ok {
		return User{}, ErrUserNotFound
	}
	if r.emailTaken(u.Email, u.ID) {
		return User{}, ErrEmailTaken
	}
	u.CreatedAt = existing.CreatedAt
	u.UpdatedAt = time.Now().UTC()
	u.RoleIDs = dedupe(u.RoleIDs)
	u = clone(u)
	r.users[u.ID] = u
	return clone(u), nil
}

func (r *InMemoryUserRepository) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return ErrUserNotFound
	}
	at = at.UTC()
	u.LastLogin = &at
	r.users[id] = u
	return nil
}

func (r *InMemoryUserRepository) SetUserRoles(ctx context.Context, id uuid.UUID, roleIDs []uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return ErrUserNotFound
	}
	u.RoleIDs = dedupe(roleIDs)
	u.UpdatedAt = time.Now().UTC()
	r.users[id] = u
	return nil
}

func (r *InMemoryUserRepository) DeleteUser(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[id]; !ok {
		return ErrUserNotFound
	}
	delete(r.users, id)
	return nil
}

// emailTaken must be called with the lock held
func (r *InMemoryUserRepository) emailTaken(email string, except uuid.UUID) bool {
	for id, u := range r.users {
		if id != except && strings.EqualFold(u.Email, email) {
			return true
		}
	}
	return false
}

func matchesFilter(u User, params ListUsersParams) bool {
	if params.RoleID != nil {
		found := false
		for _, id := range u.RoleIDs {
			if id == *params.RoleID {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if params.Search == "" {
		return true
	}
	term := strings.ToLower(params.Search)
	return strings.Contains(strings.ToLower(u.FirstName), term) ||
		strings.Contains(strings.ToLower(u.LastName), term) ||
		strings.Contains(strings.ToLower(u.Email), term)
}

func sortUsers(users []User, sortBy string, desc bool) {
	compare := func(a, b User) int {
		switch sortBy {
		case SortByEmail:
			return strings.Compare(a.Email, b.Email)
		case SortByFirstName:
			return strings.Compare(a.FirstName, b.FirstName)
		case SortByLastName:
			return strings.Compare(a.LastName, b.LastName)
		default:
			return a.CreatedAt.Compare(b.CreatedAt)
		}
	}
	sort.Slice(users, func(i, j int) bool {
		c := compare(users[i], users[j])
		if c == 0 {
			// ties resolve by id so pages are stable
			return users[i].ID.String() < users[j].ID.String()
		}
		if desc {
			return c > 0
		}
		return c < 0
	})
}
