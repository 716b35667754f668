package role

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/tendant/simple-rbac/pkg/permission"
)

// DBTX is an interface that allows us to use either a database connection or a transaction
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

type txBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

const roleColumns = `id, name, description, is_default, created_at, updated_at`

// PostgresRoleRepository implements RoleRepository using PostgreSQL
type PostgresRoleRepository struct {
	db DBTX
}

// NewPostgresRoleRepository creates a new PostgreSQL role repository
func NewPostgresRoleRepository(db DBTX) *PostgresRoleRepository {
	return &PostgresRoleRepository{db: db}
}

func (r *PostgresRoleRepository) withTx(ctx context.Context, fn func(DBTX) error) error {
	b, ok := r.db.(txBeginner)
	if !ok {
		return fn(r.db)
	}
	tx, err := b.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *PostgresRoleRepository) queryRoles(ctx context.Context, query string, args ...interface{}) ([]Role, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	roles := []Role{}
	for rows.Next() {
		var role Role
		if err := rows.Scan(&role.ID, &role.Name, &role.Description, &role.IsDefault, &role.CreatedAt, &role.UpdatedAt); err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return r.loadPermissions(ctx, roles)
}

// loadPermissions fills PermissionIDs and Permissions of every role with one query
func (r *PostgresRoleRepository) loadPermissions(ctx context.Context, roles []Role) ([]Role, error) {
	if len(roles) == 0 {
		return roles, nil
	}
	ids := make([]uuid.UUID, len(roles))
	index := make(map[uuid.UUID]int, len(roles))
	for i := range roles {
		ids[i] = roles[i].ID
		index[roles[i].ID] = i
		roles[i].PermissionIDs = []uuid.UUID{}
		roles[i].Permissions = []permission.Permission{}
	}

	rows, err := r.db.Query(ctx, `
		SELECT rp.role_id, p.id, p.name, p.description, p.category, p.created_at, p.updated_at
		FROM role_permissions rp
		JOIN permissions p ON p.id = rp.permission_id
		WHERE rp.role_id = ANY($1::uuid[])
		ORDER BY p.category, p.name`, uuidStrings(ids))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var roleID uuid.UUID
		var p permission.Permission
		if err := rows.Scan(&roleID, &p.ID, &p.Name, &p.Description, &p.Category, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		i := index[roleID]
		roles[i].PermissionIDs = append(roles[i].PermissionIDs, p.ID)
		roles[i].Permissions = append(roles[i].Permissions, p)
	}
	return roles, rows.Err()
}

func (r *PostgresRoleRepository) getOne(ctx context.Context, where string, arg interface{}) (Role, error) {
	roles, err := r.queryRoles(ctx, `SELECT `+roleColumns+` FROM roles WHERE `+where, arg)
	if err != nil {
		return Role{}, fmt.Errorf("failed to get role: %w", err)
	}
	if len(roles) == 0 {
		return Role{}, ErrRoleNotFound
	}
	return roles[0], nil
}

func (r *PostgresRoleRepository) ListRoles(ctx context.Context) ([]Role, error) {
	roles, err := r.queryRoles(ctx, `SELECT `+roleColumns+` FROM roles ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list roles: %w", err)
	}
	return roles, nil
}

func (r *PostgresRoleRepository) GetRole(ctx context.Context, id uuid.UUID) (Role, error) {
	return r.getOne(ctx, `id = $1`, id)
}

func (r *PostgresRoleRepository) GetRoleByName(ctx context.Context, name string) (Role, error) {
	return r.getOne(ctx, `name = $1`, name)
}

func (r *PostgresRoleRepository) GetRolesByIDs(ctx context.Context, ids []uuid.UUID) ([]Role, error) {
	if len(ids) == 0 {
		return []Role{}, nil
	}
	roles, err := r.queryRoles(ctx, `SELECT `+roleColumns+` FROM roles WHERE id = ANY($1::uuid[]) ORDER BY name`, uuidStrings(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to get roles: %w", err)
	}
	return roles, nil
}

func (r *PostgresRoleRepository) CreateRole(ctx context.Context, role Role) (Role, error) {
	if role.ID == uuid.Nil {
		role.ID = uuid.New()
	}
	err := r.withTx(ctx, func(db DBTX) error {
		_, err := db.Exec(ctx, `INSERT INTO roles (id, name, description, is_default) VALUES ($1, $2, $3, $4)`,
			role.ID, role.Name, role.Description, role.IsDefault)
		if err != nil {
			return err
		}
		return replacePermissions(ctx, db, role.ID, role.PermissionIDs)
	})
	if err != nil {
		if isUniqueViolation(err) {
			return Role{}, ErrRoleExists
		}
		return Role{}, fmt.Errorf("failed to create role: %w", err)
	}
	return r.GetRole(ctx, role.ID)
}

func (r *PostgresRoleRepository) UpdateRole(ctx context.Context, role Role) (Role, error) {
	err := r.withTx(ctx, func(db DBTX) error {
		tag, err := db.Exec(ctx, `
			UPDATE roles SET name = $2, description = $3, is_default = $4, updated_at = now()
			WHERE id = $1`, role.ID, role.Name, role.Description, role.IsDefault)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrRoleNotFound
		}
		return replacePermissions(ctx, db, role.ID, role.PermissionIDs)
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrRoleNotFound):
			return Role{}, ErrRoleNotFound
		case isUniqueViolation(err):
			return Role{}, ErrRoleExists
		}
		return Role{}, fmt.Errorf("failed to update role: %w", err)
	}
	return r.GetRole(ctx, role.ID)
}

// DeleteRole removes the role. User links are removed by the user_roles foreign key.
func (r *PostgresRoleRepository) DeleteRole(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM roles WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete role: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrRoleNotFound
	}
	return nil
}

func replacePermissions(ctx context.Context, db DBTX, roleID uuid.UUID, permissionIDs []uuid.UUID) error {
	if _, err := db.Exec(ctx, `DELETE FROM role_permissions WHERE role_id = $1`, roleID); err != nil {
		return err
	}
	ids := dedupe(permissionIDs)
	if len(ids) == 0 {
		return nil
	}
	_, err := db.Exec(ctx, `
		INSERT INTO role_permissions (role_id, permission_id)
		SELECT $1, unnest($2::uuid[])`, roleID, uuidStrings(ids))
	return err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func uuidStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}
