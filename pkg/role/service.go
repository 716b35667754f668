package role

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	apperrors "github.com/tendant/simple-rbac/pkg/errors"
	"github.com/tendant/simple-rbac/pkg/permission"
)

// RoleService provides methods for role management
type RoleService struct {
	repo        RoleRepository
	permissions permission.PermissionRepository
}

// NewRoleService creates a new RoleService
func NewRoleService(repo RoleRepository, permissions permission.PermissionRepository) *RoleService {
	return &RoleService{
		repo:        repo,
		permissions: permissions,
	}
}

// ListRoles returns all roles ordered by name with permissions resolved
func (s *RoleService) ListRoles(ctx context.Context) ([]Role, error) {
	return s.repo.ListRoles(ctx)
}

// GetRole retrieves a role by ID
func (s *RoleService) GetRole(ctx context.Context, id uuid.UUID) (Role, error) {
	return s.repo.GetRole(ctx, id)
}

// GetRoleByName retrieves a role by its unique name
func (s *RoleService) GetRoleByName(ctx context.Context, name string) (Role, error) {
	return s.repo.GetRoleByName(ctx, name)
}

// GetRolesByIDs returns the existing roles among ids with permissions resolved
func (s *RoleService) GetRolesByIDs(ctx context.Context, ids []uuid.UUID) ([]Role, error) {
	return s.repo.GetRolesByIDs(ctx, ids)
}

// CreateRole adds a new role
func (s *RoleService) CreateRole(ctx context.Context, params CreateRoleParams) (Role, error) {
	role := Role{
		Name:          strings.TrimSpace(params.Name),
		Description:   strings.TrimSpace(params.Description),
		IsDefault:     params.IsDefault,
		PermissionIDs: dedupe(params.PermissionIDs),
	}
	if role.Name == "" {
		return Role{}, apperrors.InvalidInput("name", "name is required")
	}
	if role.Description == "" {
		return Role{}, apperrors.InvalidInput("description", "description is required")
	}
	if err := s.checkPermissions(ctx, role.PermissionIDs); err != nil {
		return Role{}, err
	}

	created, err := s.repo.CreateRole(ctx, role)
	if err != nil {
		return Role{}, err
	}
	slog.Info("Role created", "id", created.ID, "name", created.Name, "permissions", len(created.PermissionIDs))
	return created, nil
}

// UpdateRole applies the non-empty fields of params
func (s *RoleService) UpdateRole(ctx context.Context, id uuid.UUID, params UpdateRoleParams) (Role, error) {
	role, err := s.repo.GetRole(ctx, id)
	if err != nil {
		return Role{}, err
	}

	if params.Name != nil && strings.TrimSpace(*params.Name) != "" {
		role.Name = strings.TrimSpace(*params.Name)
	}
	if params.Description != nil && strings.TrimSpace(*params.Description) != "" {
		role.Description = strings.TrimSpace(*params.Description)
	}
	if params.IsDefault != nil {
		role.IsDefault = *params.IsDefault
	}
	if params.PermissionIDs != nil {
		ids := dedupe(*params.PermissionIDs)
		if err := s.checkPermissions(ctx, ids); err != nil {
			return Role{}, err
		}
		role.PermissionIDs = ids
	}
	return s.repo.UpdateRole(ctx, role)
}

// AssignPermissions replaces the role's permission set
func (s *RoleService) AssignPermissions(ctx context.Context, id uuid.UUID, permissionIDs []uuid.UUID) (Role, error) {
	ids := dedupe(permissionIDs)
	return s.UpdateRole(ctx, id, UpdateRoleParams{PermissionIDs: &ids})
}

// DeleteRole removes a role. Users holding it simply lose it.
func (s *RoleService) DeleteRole(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.DeleteRole(ctx, id); err != nil {
		return err
	}
	slog.Info("Role deleted", "id", id)
	return nil
}

func (s *RoleService) checkPermissions(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	found, err := s.permissions.GetPermissionsByIDs(ctx, ids)
	if err != nil {
		return err
	}
	if len(found) != len(ids) {
		return apperrors.InvalidInput("permissionIds", "unknown permission")
	}
	return nil
}
