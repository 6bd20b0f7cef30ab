package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the subset of pgxpool.Pool the repository needs. Narrow so tests
// can substitute pgxmock.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresRepository stores users in the relational database.
type PostgresRepository struct {
	db DB
}

// NewPostgresRepository initializes a repo backed by pgx.
func NewPostgresRepository(db DB) *PostgresRepository {
	if db == nil {
		panic("users: db required")
	}
	return &PostgresRepository{db: db}
}

const userColumns = `id, cedula, email, password_hash, first_name, last_name, phone, role, is_active, created_at, updated_at`

func scanUser(row pgx.Row) (*User, error) {
	var u User
	err := row.Scan(
		&u.ID,
		&u.Cedula,
		&u.Email,
		&u.PasswordHash,
		&u.FirstName,
		&u.LastName,
		&u.Phone,
		&u.Role,
		&u.IsActive,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("users: scan failed: %w", err)
	}
	return &u, nil
}

// Create inserts a new row, translating unique violations to domain errors.
func (r *PostgresRepository) Create(ctx context.Context, req *CreateUserRequest, passwordHash string) (*User, error) {
	query := `
		INSERT INTO users (cedula, email, password_hash, first_name, last_name, phone, role, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, TRUE)
		RETURNING ` + userColumns

	u, err := scanUser(r.db.QueryRow(ctx, query,
		req.Cedula,
		req.Email,
		passwordHash,
		req.FirstName,
		req.LastName,
		req.Phone,
		req.Role,
	))
	if err != nil {
		if dup := duplicateError(err); dup != nil {
			return nil, dup
		}
		return nil, fmt.Errorf("users: insert failed: %w", err)
	}
	return u, nil
}

func duplicateError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != "23505" {
		return nil
	}
	if strings.Contains(pgErr.ConstraintName, "cedula") {
		return ErrDuplicateCedula
	}
	return ErrDuplicateEmail
}

// GetByID fetches a user by primary key.
func (r *PostgresRepository) GetByID(ctx context.Context, id int) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.db.QueryRow(ctx, query, id))
}

// GetByEmail fetches a user by email.
func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return scanUser(r.db.QueryRow(ctx, query, strings.ToLower(email)))
}

// GetByCedula fetches a user by the national ID number.
func (r *PostgresRepository) GetByCedula(ctx context.Context, cedula string) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE cedula = $1`
	return scanUser(r.db.QueryRow(ctx, query, cedula))
}

// Update persists the mutable profile fields.
func (r *PostgresRepository) Update(ctx context.Context, u *User) error {
	query := `
		UPDATE users
		SET email = $2, first_name = $3, last_name = $4, phone = $5, is_active = $6, updated_at = NOW()
		WHERE id = $1
	`
	tag, err := r.db.Exec(ctx, query, u.ID, u.Email, u.FirstName, u.LastName, u.Phone, u.IsActive)
	if err != nil {
		if dup := duplicateError(err); dup != nil {
			return dup
		}
		return fmt.Errorf("users: update failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// UpdatePassword replaces the stored hash.
func (r *PostgresRepository) UpdatePassword(ctx context.Context, id int, passwordHash string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE users SET password_hash = $2, updated_at = NOW() WHERE id = $1`,
		id, passwordHash,
	)
	if err != nil {
		return fmt.Errorf("users: update password failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// List returns users matching the filter, newest first.
func (r *PostgresRepository) List(ctx context.Context, filter ListFilter) ([]*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE 1=1`
	args := []any{}

	if filter.Role != 0 {
		args = append(args, filter.Role)
		query += fmt.Sprintf(" AND role = $%d", len(args))
	}
	if filter.Active != nil {
		args = append(args, *filter.Active)
		query += fmt.Sprintf(" AND is_active = $%d", len(args))
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		n := len(args)
		query += fmt.Sprintf(" AND (cedula ILIKE $%d OR email ILIKE $%d OR first_name ILIKE $%d OR last_name ILIKE $%d)", n, n, n, n)
	}

	query += " ORDER BY created_at DESC"
	limit := filter.Limit
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	args = append(args, limit)
	query += fmt.Sprintf(" LIMIT $%d", len(args))
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("users: list failed: %w", err)
	}
	defer rows.Close()

	var out []*User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}
