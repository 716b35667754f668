package iam

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

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

type txBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

const selectUsers = `
	SELECT u.id, u.email, u.password_hash, u.first_name, u.last_name, u.is_active,
	       u.last_login, u.created_at, u.updated_at,
	       COALESCE(array_agg(ur.role_id::text) FILTER (WHERE ur.role_id IS NOT NULL), '{}')
	FROM users u
	LEFT JOIN user_roles ur ON ur.user_id = u.id`

var sortColumns = map[string]string{
	SortByCreatedAt: "u.created_at",
	SortByEmail:     "u.email",
	SortByFirstName: "u.first_name",
	SortByLastName:  "u.last_name",
}

// PostgresUserRepository implements UserRepository using PostgreSQL
type PostgresUserRepository struct {
	db DBTX
}

// NewPostgresUserRepository creates a new PostgreSQL user repository
func NewPostgresUserRepository(db DBTX) *PostgresUserRepository {
	return &PostgresUserRepository{db: db}
}

func (r *PostgresUserRepository) withTx(ctx context.Context, fn func(DBTX) error) error {
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

func (r *PostgresUserRepository) queryUsers(ctx context.Context, query string, args ...interface{}) ([]User, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := []User{}
	for rows.Next() {
		var u User
		var roleIDs []string
		if err := rows.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName, &u.IsActive,
			&u.LastLogin, &u.CreatedAt, &u.UpdatedAt, &roleIDs); err != nil {
			return nil, err
		}
		u.RoleIDs = make([]uuid.UUID, 0, len(roleIDs))
		for _, s := range roleIDs {
			id, err := uuid.Parse(s)
			if err != nil {
				return nil, fmt.Errorf("invalid role id %q: %w", s, err)
			}
			u.RoleIDs = append(u.RoleIDs, id)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (r *PostgresUserRepository) getOne(ctx context.Context, where string, arg interface{}) (User, error) {
	users, err := r.queryUsers(ctx, selectUsers+` WHERE `+where+` GROUP BY u.id`, arg)
	if err != nil {
		return User{}, fmt.Errorf("failed to get user: %w", err)
	}
	if len(users) == 0 {
		return User{}, ErrUserNotFound
	}
	return users[0], nil
}

func (r *PostgresUserRepository) GetUserByID(ctx context.Context, id uuid.UUID) (User, error) {
	return r.getOne(ctx, `u.id = $1`, id)
}

func (r *PostgresUserRepository) GetUserByEmail(ctx context.Context, email string) (User, error) {
	return r.getOne(ctx, `lower(u.email) = lower($1)`, email)
}

func (r *PostgresUserRepository) ListUsers(ctx context.Context, params ListUsersParams) ([]User, int, error) {
	var conds []string
	var args []interface{}
	if params.Search != "" {
		args = append(args, "%"+escapeLike(params.Search)+"%")
		n := len(args)
		conds = append(conds, fmt.Sprintf(`(u.first_name ILIKE $%d OR u.last_name ILIKE $%d OR u.email ILIKE $%d)`, n, n, n))
	}
	if params.RoleID != nil {
		args = append(args, *params.RoleID)
		conds = append(conds, fmt.Sprintf(`EXISTS (SELECT 1 FROM user_roles f WHERE f.user_id = u.id AND f.role_id = $%d)`, len(args)))
	}
	where := ""
	if len(conds) > 0 {
		where = ` WHERE ` + strings.Join(conds, ` AND `)
	}

	var total int
	if err := r.db.QueryRow(ctx, `SELECT count(*) FROM users u`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count users: %w", err)
	}

	column, ok := sortColumns[params.SortBy]
	if !ok {
		column = sortColumns[SortByCreatedAt]
	}
	direction := "DESC"
	if params.SortOrder == "asc" {
		direction = "ASC"
	}
	args = append(args, params.Limit, params.Offset())
	query := fmt.Sprintf(`%s%s GROUP BY u.id ORDER BY %s %s, u.id LIMIT $%d OFFSET $%d`,
		selectUsers, where, column, direction, len(args)-1, len(args))

	users, err := r.queryUsers(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}
	return users, total, nil
}

func (r *PostgresUserRepository) CreateUser(ctx context.Context, u User) (User, error) {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	err := r.withTx(ctx, func(db DBTX) error {
		_, err := db.Exec(ctx, `
			INSERT INTO users (id, email, password_hash, first_name, last_name, is_active, last_login)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			u.ID, u.Email, u.PasswordHash, u.FirstName, u.LastName, u.IsActive, u.LastLogin)
		if err != nil {
			return err
		}
		return replaceRoles(ctx, db, u.ID, u.RoleIDs)
	})
	if err != nil {
		if isUniqueViolation(err) {
			return User{}, ErrEmailTaken
		}
		return User{}, fmt.Errorf("failed to create user: %w", err)
	}
	return r.GetUserByID(ctx, u.ID)
}

func (r *PostgresUserRepository) UpdateUser(ctx context.Context, u User) (User, error) {
	err := r.withTx(ctx, func(db DBTX) error {
		tag, err := db.Exec(ctx, `
			UPDATE users SET email = $2, password_hash = $3, first_name = $4, last_name = $5,
				is_active = $6, last_login = $7, updated_at = now()
			WHERE id = $1`,
			u.ID, u.Email, u.PasswordHash, u.FirstName, u.LastName, u.IsActive, u.LastLogin)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrUserNotFound
		}
		return replaceRoles(ctx, db, u.ID, u.RoleIDs)
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrUserNotFound):
			return User{}, ErrUserNotFound
		case isUniqueViolation(err):
			return User{}, ErrEmailTaken
		}
		return User{}, fmt.Errorf("failed to update user: %w", err)
	}
	return r.GetUserByID(ctx, u.ID)
}

func (r *PostgresUserRepository) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	tag, err := r.db.Exec(ctx, `UPDATE users SET last_login = $2 WHERE id = $1`, id, at.UTC())
	if err != nil {
		return fmt.Errorf("failed to update last login: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *PostgresUserRepository) SetUserRoles(ctx context.Context, id uuid.UUID, roleIDs []uuid.UUID) error {
	err := r.withTx(ctx, func(db DBTX) error {
		tag, err := db.Exec(ctx, `UPDATE users SET updated_at = now() WHERE id = $1`, id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrUserNotFound
		}
		return replaceRoles(ctx, db, id, roleIDs)
	})
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to set user roles: %w", err)
	}
	return nil
}

func (r *PostgresUserRepository) DeleteUser(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func replaceRoles(ctx context.Context, db DBTX, userID uuid.UUID, roleIDs []uuid.UUID) error {
	if _, err := db.Exec(ctx, `DELETE FROM user_roles WHERE user_id = $1`, userID); err != nil {
		return err
	}
	ids := dedupe(roleIDs)
	if len(ids) == 0 {
		return nil
	}
	strs := make([]string, len(ids))
	for i, id := range ids {
		strs[i] = id.String()
	}
	_, err := db.Exec(ctx, `
		INSERT INTO user_roles (user_id, role_id)
		SELECT $1, unnest($2::uuid[])`, userID, strs)
	return err
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
