package iam

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tendant/simple-rbac/pkg/credential"
	apperrors "github.com/tendant/simple-rbac/pkg/errors"
	"github.com/tendant/simple-rbac/pkg/role"
	"github.com/tendant/simple-rbac/pkg/utils"
)

// IamService provides user management on top of a UserRepository. Users it
// returns have their roles loaded, and those roles have their permissions loaded.
type IamService struct {
	repo      UserRepository
	roles     role.RoleRepository
	passwords *credential.Manager
	now       func() time.Time
}

type Option func(*IamService)

// WithClock overrides the time source used for last-login stamps
func WithClock(now func() time.Time) Option {
	return func(s *IamService) {
		s.now = now
	}
}

// NewIamService creates a new IAM service
func NewIamService(repo UserRepository, roles role.RoleRepository, passwords *credential.Manager, opts ...Option) *IamService {
	s := &IamService{
		repo:      repo,
		roles:     roles,
		passwords: passwords,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// populate loads the roles of u, each with its permissions resolved.
// References to deleted roles are dropped.
func (s *IamService) populate(ctx context.Context, u User) (User, error) {
	roles, err := s.roles.GetRolesByIDs(ctx, u.RoleIDs)
	if err != nil {
		return User{}, err
	}
	u.Roles = roles
	return u, nil
}

// GetUser returns the user with roles and permissions populated
func (s *IamService) GetUser(ctx context.Context, id uuid.UUID) (User, error) {
	u, err := s.repo.GetUserByID(ctx, id)
	if err != nil {
		return User{}, err
	}
	return s.populate(ctx, u)
}

// GetUserByEmail returns the user with roles and permissions populated
func (s *IamService) GetUserByEmail(ctx context.Context, email string) (User, error) {
	u, err := s.repo.GetUserByEmail(ctx, utils.NormalizeEmail(email))
	if err != nil {
		return User{}, err
	}
	return s.populate(ctx, u)
}

// VerifyPassword reports whether password matches the stored hash of u
func (s *IamService) VerifyPassword(u User, password string) bool {
	return s.passwords.Verify(password, u.PasswordHash)
}

// VerifyPasswordWithoutUser spends the cost of a password check when no user
// was found. It always returns false.
func (s *IamService) VerifyPasswordWithoutUser(password string) bool {
	return s.passwords.VerifyDummy(password)
}

// ListUsers returns one page of users matching params
func (s *IamService) ListUsers(ctx context.Context, params ListUsersParams) (ListUsersResult, error) {
	params = params.Normalize()
	params.Search = strings.TrimSpace(params.Search)

	users, total, err := s.repo.ListUsers(ctx, params)
	if err != nil {
		return ListUsersResult{}, err
	}
	for i := range users {
		if users[i], err = s.populate(ctx, users[i]); err != nil {
			return ListUsersResult{}, err
		}
	}
	return ListUsersResult{
		Users: users,
		Pagination: Pagination{
			Page:  params.Page,
			Limit: params.Limit,
			Total: total,
			Pages: (total + params.Limit - 1) / params.Limit,
		},
	}, nil
}

// CreateUser validates params, hashes the password and stores the user
func (s *IamService) CreateUser(ctx context.Context, params CreateUserParams) (User, error) {
	email := utils.NormalizeEmail(params.Email)
	if email == "" {
		return User{}, apperrors.InvalidInput("email", "email is required")
	}
	if params.Password == "" {
		return User{}, apperrors.InvalidInput("password", "password is required")
	}
	roleIDs := dedupe(params.RoleIDs)
	if err := s.checkRoles(ctx, roleIDs); err != nil {
		return User{}, err
	}

	hash, err := s.passwords.Hash(params.Password)
	if err != nil {
		return User{}, apperrors.InternalWrap(err, "failed to hash password")
	}

	active := true
	if params.IsActive != nil {
		active = *params.IsActive
	}
	created, err := s.repo.CreateUser(ctx, User{
		Email:        email,
		PasswordHash: hash,
		FirstName:    strings.TrimSpace(params.FirstName),
		LastName:     strings.TrimSpace(params.LastName),
		RoleIDs:      roleIDs,
		IsActive:     active,
	})
	if err != nil {
		return User{}, err
	}
	slog.Info("User created", "id", created.ID, "email", created.Email, "roles", len(created.RoleIDs))
	return s.populate(ctx, created)
}

// UpdateUser applies the non-nil fields of params. The password is re-hashed
// only when params carries a new one.
func (s *IamService) UpdateUser(ctx context.Context, id uuid.UUID, params UpdateUserParams) (User, error) {
	u, err := s.repo.GetUserByID(ctx, id)
	if err != nil {
		return User{}, err
	}

	if params.Email != nil {
		email := utils.NormalizeEmail(*params.Email)
		if email == "" {
			return User{}, apperrors.InvalidInput("email", "email must not be empty")
		}
		u.Email = email
	}
	if params.FirstName != nil {
		u.FirstName = strings.TrimSpace(*params.FirstName)
	}
	if params.LastName != nil {
		u.LastName = strings.TrimSpace(*params.LastName)
	}
	if params.IsActive != nil {
		u.IsActive = *params.IsActive
	}
	if params.RoleIDs != nil {
		ids := dedupe(*params.RoleIDs)
		if err := s.checkRoles(ctx, ids); err != nil {
			return User{}, err
		}
		u.RoleIDs = ids
	}
	if params.Password != nil && *params.Password == "" {
		return User{}, apperrors.InvalidInput("password", "password must not be empty")
	}

	hash, changed, err := s.passwords.HashIfChanged(u.PasswordHash, params.Password)
	if err != nil {
		return User{}, apperrors.InternalWrap(err, "failed to hash password")
	}
	u.PasswordHash = hash

	updated, err := s.repo.UpdateUser(ctx, u)
	if err != nil {
		return User{}, err
	}
	if changed {
		slog.Info("User password changed", "id", id)
	}
	return s.populate(ctx, updated)
}

// SetUserRoles replaces the role list of a user
func (s *IamService) SetUserRoles(ctx context.Context, id uuid.UUID, roleIDs []uuid.UUID) (User, error) {
	ids := dedupe(roleIDs)
	if err := s.checkRoles(ctx, ids); err != nil {
		return User{}, err
	}
	if err := s.repo.SetUserRoles(ctx, id, ids); err != nil {
		return User{}, err
	}
	slog.Info("User roles assigned", "id", id, "roles", len(ids))
	return s.GetUser(ctx, id)
}

// ToggleStatus flips the active flag of a user
func (s *IamService) ToggleStatus(ctx context.Context, id uuid.UUID) (User, error) {
	u, err := s.repo.GetUserByID(ctx, id)
	if err != nil {
		return User{}, err
	}
	u.IsActive = !u.IsActive
	updated, err := s.repo.UpdateUser(ctx, u)
	if err != nil {
		return User{}, err
	}
	slog.Info("User status toggled", "id", id, "active", updated.IsActive)
	return s.populate(ctx, updated)
}

// RecordLogin stamps the last-login time of a user
func (s *IamService) RecordLogin(ctx context.Context, id uuid.UUID) (time.Time, error) {
	at := s.now().UTC()
	if err := s.repo.UpdateLastLogin(ctx, id, at); err != nil {
		return time.Time{}, err
	}
	return at, nil
}

func (s *IamService) DeleteUser(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.DeleteUser(ctx, id); err != nil {
		return err
	}
	slog.Info("User deleted", "id", id)
	return nil
}

func (s *IamService) checkRoles(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	found, err := s.roles.GetRolesByIDs(ctx, ids)
	if err != nil {
		return err
	}
	if len(found) != len(ids) {
		return apperrors.InvalidInput("roleIds", "unknown role")
	}
	return nil
}
