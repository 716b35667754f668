package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/tendant/simple-rbac/pkg/iam"
	"github.com/tendant/simple-rbac/pkg/permission"
	"github.com/tendant/simple-rbac/pkg/role"
)

type PermissionSeed struct {
	Name        string
	Description string
	Category    string
}

type RoleSeed struct {
	Name        string
	Description string
	Permissions []string
	IsDefault   bool
}

type UserSeed struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Role      string
}

// SeedData is the full set of entities to ensure
type SeedData struct {
	Permissions []PermissionSeed
	Roles       []RoleSeed
	Users       []UserSeed
}

// DefaultSeedData returns the stock permissions, roles and demo accounts
func DefaultSeedData() SeedData {
	return SeedData{
		Permissions: []PermissionSeed{
			{"user.read", "View users", "Users"},
			{"user.create", "Create users", "Users"},
			{"user.update", "Update users", "Users"},
			{"user.delete", "Delete users", "Users"},
			{"role.read", "View roles", "Roles"},
			{"role.create", "Create roles", "Roles"},
			{"role.update", "Update roles", "Roles"},
			{"role.delete", "Delete roles", "Roles"},
			{"permission.read", "View permissions", "Permissions"},
			{role.AdminPermission, "Full administrative access", "System"},
		},
		Roles: []RoleSeed{
			{
				Name:        "Super Admin",
				Description: "Full access to every resource",
				Permissions: []string{
					"user.read", "user.create", "user.update", "user.delete",
					"role.read", "role.create", "role.update", "role.delete",
					"permission.read", role.AdminPermission,
				},
			},
			{
				Name:        "User Manager",
				Description: "Manages user accounts",
				Permissions: []string{"user.read", "user.create", "user.update", "user.delete"},
			},
			{
				Name:        "Viewer",
				Description: "Read-only access",
				Permissions: []string{"user.read", "role.read", "permission.read"},
				IsDefault:   true,
			},
		},
		Users: []UserSeed{
			{"admin@example.com", "admin123", "Admin", "User", "Super Admin"},
			{"manager@example.com", "manager123", "Manager", "User", "User Manager"},
			{"viewer@example.com", "viewer123", "Viewer", "User", "Viewer"},
		},
	}
}

// SeededItem is one ensured entity
type SeededItem struct {
	ID      uuid.UUID
	Name    string
	Created bool // false when it already existed
}

type SeedResult struct {
	Permissions []SeededItem
	Roles       []SeededItem
	Users       []SeededItem
}

// Seeder ensures seed entities exist. Entities are matched by their unique
// name or email and reused as they are, so running it again changes nothing.
type Seeder struct {
	permissions *permission.PermissionService
	roles       *role.RoleService
	users       *iam.IamService
}

func NewSeeder(permissions *permission.PermissionService, roles *role.RoleService, users *iam.IamService) *Seeder {
	return &Seeder{
		permissions: permissions,
		roles:       roles,
		users:       users,
	}
}

func (s *Seeder) Seed(ctx context.Context, data SeedData) (*SeedResult, error) {
	result := &SeedResult{}

	permIDs := make(map[string]uuid.UUID, len(data.Permissions))
	for _, p := range data.Permissions {
		item, err := s.ensurePermission(ctx, p)
		if err != nil {
			return nil, fmt.Errorf("failed to seed permission %s: %w", p.Name, err)
		}
		permIDs[p.Name] = item.ID
		result.Permissions = append(result.Permissions, item)
	}

	roleIDs := make(map[string]uuid.UUID, len(data.Roles))
	for _, r := range data.Roles {
		ids := make([]uuid.UUID, 0, len(r.Permissions))
		for _, name := range r.Permissions {
			id, ok := permIDs[name]
			if !ok {
				return nil, fmt.Errorf("role %s references unknown permission %s", r.Name, name)
			}
			ids = append(ids, id)
		}
		item, err := s.ensureRole(ctx, r, ids)
		if err != nil {
			return nil, fmt.Errorf("failed to seed role %s: %w", r.Name, err)
		}
		roleIDs[r.Name] = item.ID
		result.Roles = append(result.Roles, item)
	}

	for _, u := range data.Users {
		var ids []uuid.UUID
		if u.Role != "" {
			id, ok := roleIDs[u.Role]
			if !ok {
				return nil, fmt.Errorf("user %s references unknown role %s", u.Email, u.Role)
			}
			ids = append(ids, id)
		}
		item, err := s.ensureUser(ctx, u, ids)
		if err != nil {
			return nil, fmt.Errorf("failed to seed user %s: %w", u.Email, err)
		}
		result.Users = append(result.Users, item)
	}

	slog.Info("Seed completed",
		"permissions_created", countCreated(result.Permissions),
		"roles_created", countCreated(result.Roles),
		"users_created", countCreated(result.Users))
	return result, nil
}

func (s *Seeder) ensurePermission(ctx context.Context, p PermissionSeed) (SeededItem, error) {
	existing, err := s.permissions.GetPermissionByName(ctx, p.Name)
	if err == nil {
		return SeededItem{ID: existing.ID, Name: existing.Name}, nil
	}
	if !errors.Is(err, permission.ErrPermissionNotFound) {
		return SeededItem{}, err
	}

	created, err := s.permissions.CreatePermission(ctx, permission.CreatePermissionParams{
		Name:        p.Name,
		Description: p.Description,
		Category:    p.Category,
	})
	if err != nil {
		return SeededItem{}, err
	}
	return SeededItem{ID: created.ID, Name: created.Name, Created: true}, nil
}

func (s *Seeder) ensureRole(ctx context.Context, r RoleSeed, permissionIDs []uuid.UUID) (SeededItem, error) {
	existing, err := s.roles.GetRoleByName(ctx, r.Name)
	if err == nil {
		return SeededItem{ID: existing.ID, Name: existing.Name}, nil
	}
	if !errors.Is(err, role.ErrRoleNotFound) {
		return SeededItem{}, err
	}

	created, err := s.roles.CreateRole(ctx, role.CreateRoleParams{
		Name:          r.Name,
		Description:   r.Description,
		PermissionIDs: permissionIDs,
		IsDefault:     r.IsDefault,
	})
	if err != nil {
		return SeededItem{}, err
	}
	return SeededItem{ID: created.ID, Name: created.Name, Created: true}, nil
}

func (s *Seeder) ensureUser(ctx context.Context, u UserSeed, roleIDs []uuid.UUID) (SeededItem, error) {
	existing, err := s.users.GetUserByEmail(ctx, u.Email)
	if err == nil {
		return SeededItem{ID: existing.ID, Name: existing.Email}, nil
	}
	if !errors.Is(err, iam.ErrUserNotFound) {
		return SeededItem{}, err
	}

	created, err := s.users.CreateUser(ctx, iam.CreateUserParams{
		Email:     u.Email,
		Password:  u.Password,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		RoleIDs:   roleIDs,
	})
	if err != nil {
		return SeededItem{}, err
	}
	return SeededItem{ID: created.ID, Name: created.Email, Created: true}, nil
}

func countCreated(items []SeededItem) int {
	count := 0
	for _, item := range items {
		if item.Created {
			count++
		}
	}
	return count
}
