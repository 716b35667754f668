package permission

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is an interface that allows us to use either a database connection or a transaction
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

const uniqueViolation = "23505"

const permissionColumns = `id, name, description, category, created_at, updated_at`

// PostgresPermissionRepository implements PermissionRepository using PostgreSQL
type PostgresPermissionRepository struct {
	db DBTX
}

// NewPostgresPermissionRepository creates a new PostgreSQL permission repository
func NewPostgresPermissionRepository(db DBTX) *PostgresPermissionRepository {
	return &PostgresPermissionRepository{db: db}
}

func scanPermission(row pgx.Row) (Permission, error) {
	var p Permission
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Category, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func (r *PostgresPermissionRepository) queryPermissions(ctx context.Context, query string, args ...interface{}) ([]Permission, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	perms := []Permission{}
	for rows.Next() {
		p, err := scanPermission(rows)
		if err != nil {
			return nil, err
		}
		perms = append(perms, p)
	}
	return perms, rows.Err()
}

func (r *PostgresPermissionRepository) ListPermissions(ctx context.Context) ([]Permission, error) {
	perms, err := r.queryPermissions(ctx, `SELECT `+permissionColumns+` FROM permissions ORDER BY category, name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list permissions: %w", err)
	}
	return perms, nil
}

func (r *PostgresPermissionRepository) GetPermission(ctx context.Context, id uuid.UUID) (Permission, error) {
	p, err := scanPermission(r.db.QueryRow(ctx, `SELECT `+permissionColumns+` FROM permissions WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Permission{}, ErrPermissionNotFound
		}
		return Permission{}, fmt.Errorf("failed to get permission: %w", err)
	}
	return p, nil
}

func (r *PostgresPermissionRepository) GetPermissionByName(ctx context.Context, name string) (Permission, error) {
	p, err := scanPermission(r.db.QueryRow(ctx, `SELECT `+permissionColumns+` FROM permissions WHERE name = $1`, name))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Permission{}, ErrPermissionNotFound
		}
		return Permission{}, fmt.Errorf("failed to get permission by name: %w", err)
	}
	return p, nil
}

func (r *PostgresPermissionRepository) GetPermissionsByIDs(ctx context.Context, ids []uuid.UUID) ([]Permission, error) {
	if len(ids) == 0 {
		return []Permission{}, nil
	}
	perms, err := r.queryPermissions(ctx,
		`SELECT `+permissionColumns+` FROM permissions WHERE id = ANY($1::uuid[]) ORDER BY category, name`,
		uuidStrings(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to get permissions: %w", err)
	}
	return perms, nil
}

func (r *PostgresPermissionRepository) CreatePermission(ctx context.Context, p Permission) (Permission, error) {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	created, err := scanPermission(r.db.QueryRow(ctx, `
		INSERT INTO permissions (id, name, description, category)
		VALUES ($1, $2, $3, $4)
		RETURNING `+permissionColumns,
		p.ID, p.Name, p.Description, p.Category))
	if err != nil {
		if isUniqueViolation(err) {
			return Permission{}, ErrPermissionExists
		}
		return Permission{}, fmt.Errorf("failed to create permission: %w", err)
	}
	return created, nil
}

func (r *PostgresPermissionRepository) UpdatePermission(ctx context.Context, p Permission) (Permission, error) {
	updated, err := scanPermission(r.db.QueryRow(ctx, `
		UPDATE permissions
		SET name = $2, description = $3, category = $4, updated_at = now()
		WHERE id = $1
		RETURNING `+permissionColumns,
		p.ID, p.Name, p.Description, p.Category))
	if err != nil {
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			return Permission{}, ErrPermissionNotFound
		case isUniqueViolation(err):
			return Permission{}, ErrPermissionExists
		}
		return Permission{}, fmt.Errorf("failed to update permission: %w", err)
	}
	return updated, nil
}

// DeletePermission removes the permission. Role links are removed by the
// role_permissions foreign key; the roles themselves are kept.
func (r *PostgresPermissionRepository) DeletePermission(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM permissions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete permission: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrPermissionNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

func uuidStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}
