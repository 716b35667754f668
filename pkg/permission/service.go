package permission

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	apperrors "github.com/tendant/simple-rbac/pkg/errors"
)

// PermissionService provides methods for permission management
type PermissionService struct {
	repo PermissionRepository
}

// NewPermissionService creates a new PermissionService
func NewPermissionService(repo PermissionRepository) *PermissionService {
	return &PermissionService{repo: repo}
}

// ListPermissions returns all permissions ordered by category, then name
func (s *PermissionService) ListPermissions(ctx context.Context) ([]Permission, error) {
	return s.repo.ListPermissions(ctx)
}

// GetPermission retrieves a permission by ID
func (s *PermissionService) GetPermission(ctx context.Context, id uuid.UUID) (Permission, error) {
	return s.repo.GetPermission(ctx, id)
}

// GetPermissionByName retrieves a permission by its unique name
func (s *PermissionService) GetPermissionByName(ctx context.Context, name string) (Permission, error) {
	return s.repo.GetPermissionByName(ctx, name)
}

// CreatePermission adds a new permission. Name, description and category are required.
func (s *PermissionService) CreatePermission(ctx context.Context, params CreatePermissionParams) (Permission, error) {
	p := Permission{
		Name:        strings.TrimSpace(params.Name),
		Description: strings.TrimSpace(params.Description),
		Category:    strings.TrimSpace(params.Category),
	}
	if err := validate(p); err != nil {
		return Permission{}, err
	}

	created, err := s.repo.CreatePermission(ctx, p)
	if err != nil {
		return Permission{}, err
	}
	slog.Info("Permission created", "id", created.ID, "name", created.Name)
	return created, nil
}

// UpdatePermission applies the non-empty fields of params
func (s *PermissionService) UpdatePermission(ctx context.Context, id uuid.UUID, params UpdatePermissionParams) (Permission, error) {
	p, err := s.repo.GetPermission(ctx, id)
	if err != nil {
		return Permission{}, err
	}

	if v := trimmed(params.Name); v != "" {
		p.Name = v
	}
	if v := trimmed(params.Description); v != "" {
		p.Description = v
	}
	if v := trimmed(params.Category); v != "" {
		p.Category = v
	}
	return s.repo.UpdatePermission(ctx, p)
}

// DeletePermission removes a permission. Roles referencing it are kept.
func (s *PermissionService) DeletePermission(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.DeletePermission(ctx, id); err != nil {
		return err
	}
	slog.Info("Permission deleted", "id", id)
	return nil
}

func validate(p Permission) error {
	switch {
	case p.Name == "":
		return apperrors.InvalidInput("name", "name is required")
	case p.Description == "":
		return apperrors.InvalidInput("description", "description is required")
	case p.Category == "":
		return apperrors.InvalidInput("category", "category is required")
	}
	return nil
}

func trimmed(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}
