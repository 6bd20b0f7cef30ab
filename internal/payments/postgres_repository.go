package payments

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the subset of pgxpool.Pool the repository needs.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresRepository stores payments in the relational database.
type PostgresRepository struct {
	db DB
}

// NewPostgresRepository initializes a repo backed by pgx.
func NewPostgresRepository(db DB) *PostgresRepository {
	if db == nil {
		panic("payments: db required")
	}
	return &PostgresRepository{db: db}
}

const paymentColumns = `id, appointment_id, method, amount_cents, receipt_key, status, recorded_by, created_at, updated_at`

func scanPayment(row pgx.Row) (*Payment, error) {
	var p Payment
	err := row.Scan(
		&p.ID, &p.AppointmentID, &p.Method, &p.AmountCents,
		&p.ReceiptKey, &p.Status, &p.RecordedBy, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPaymentNotFound
		}
		return nil, fmt.Errorf("payments: scan failed: %w", err)
	}
	return &p, nil
}

// Create inserts a payment; the unique constraint on appointment_id
// enforces the one-payment rule.
func (r *PostgresRepository) Create(ctx context.Context, p *Payment) (*Payment, error) {
	query := `
		INSERT INTO payments (appointment_id, method, amount_cents, receipt_key, status, recorded_by)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + paymentColumns

	created, err := scanPayment(r.db.QueryRow(ctx, query,
		p.AppointmentID, p.Method, p.AmountCents, p.ReceiptKey, p.Status, p.RecordedBy,
	))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrAlreadyPaid
		}
		return nil, err
	}
	return created, nil
}

// GetByAppointment fetches the payment of one appointment.
func (r *PostgresRepository) GetByAppointment(ctx context.Context, appointmentID int) (*Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE appointment_id = $1`
	return scanPayment(r.db.QueryRow(ctx, query, appointmentID))
}

// MarkRefunded flips a paid payment to refunded.
func (r *PostgresRepository) MarkRefunded(ctx context.Context, paymentID int) (*Payment, error) {
	query := `
		UPDATE payments SET status = 'refunded', updated_at = NOW()
		WHERE id = $1 AND status = 'paid'
		RETURNING ` + paymentColumns

	p, err := scanPayment(r.db.QueryRow(ctx, query, paymentID))
	if err != nil {
		if errors.Is(err, ErrPaymentNotFound) {
			return nil, ErrNotRefundable
		}
		return nil, err
	}
	return p, nil
}

// List returns payments matching the filter, newest first.
func (r *PostgresRepository) List(ctx context.Context, filter ListFilter) ([]*Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE 1=1`
	args := []any{}

	if filter.Status != "" {
		args = append(args, filter.Status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if filter.Method != "" {
		args = append(args, filter.Method)
		query += fmt.Sprintf(" AND method = $%d", len(args))
	}

	query += " ORDER BY created_at DESC"
	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 100
	}
	args = append(args, limit)
	query += fmt.Sprintf(" LIMIT $%d", len(args))
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("payments: list failed: %w", err)
	}
	defer rows.Close()

	var out []*Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
