package appointments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the subset of pgxpool.Pool the repository needs.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresRepository stores appointments in the relational database.
type PostgresRepository struct {
	db DB
}

// NewPostgresRepository initializes a repo backed by pgx.
func NewPostgresRepository(db DB) *PostgresRepository {
	if db == nil {
		panic("appointments: db required")
	}
	return &PostgresRepository{db: db}
}

// CreateOperatory inserts a treatment room.
func (r *PostgresRepository) CreateOperatory(ctx context.Context, o *Operatory) (*Operatory, error) {
	err := r.db.QueryRow(ctx,
		`INSERT INTO operatories (name, is_active) VALUES ($1, TRUE) RETURNING id, is_active`,
		o.Name,
	).Scan(&o.ID, &o.IsActive)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrDuplicateOperatory
		}
		return nil, fmt.Errorf("appointments: insert operatory failed: %w", err)
	}
	return o, nil
}

// GetOperatory fetches a treatment room.
func (r *PostgresRepository) GetOperatory(ctx context.Context, id int) (*Operatory, error) {
	var o Operatory
	err := r.db.QueryRow(ctx,
		`SELECT id, name, is_active FROM operatories WHERE id = $1`, id,
	).Scan(&o.ID, &o.Name, &o.IsActive)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOperatoryNotFound
		}
		return nil, fmt.Errorf("appointments: select operatory failed: %w", err)
	}
	return &o, nil
}

// ListOperatories returns rooms ordered by name.
func (r *PostgresRepository) ListOperatories(ctx context.Context, activeOnly bool) ([]*Operatory, error) {
	query := `SELECT id, name, is_active FROM operatories`
	if activeOnly {
		query += ` WHERE is_active`
	}
	query += ` ORDER BY name`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("appointments: list operatories failed: %w", err)
	}
	defer rows.Close()

	var out []*Operatory
	for rows.Next() {
		var o Operatory
		if err := rows.Scan(&o.ID, &o.Name, &o.IsActive); err != nil {
			return nil, fmt.Errorf("appointments: scan operatory failed: %w", err)
		}
		out = append(out, &o)
	}
	return out, rows.Err()
}

const apptColumns = `
	a.id, a.patient_id, a.dentist_id, a.operatory_id, a.appt_date, a.start_minute,
	a.status, a.reason, a.notes, a.cancelled_by_role, a.reschedule_count, a.reminder_sent,
	a.created_at, a.updated_at,
	COALESCE(pu.first_name || ' ' || pu.last_name, ''),
	du.first_name || ' ' || du.last_name,
	o.name`

const apptJoins = `
	FROM appointments a
	LEFT JOIN patients p ON p.id = a.patient_id
	LEFT JOIN users pu ON pu.id = p.user_id
	JOIN dentists d ON d.id = a.dentist_id
	JOIN users du ON du.id = d.user_id
	JOIN operatories o ON o.id = a.operatory_id`

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	err := row.Scan(
		&a.ID, &a.PatientID, &a.DentistID, &a.OperatoryID, &a.Date, &a.StartMinute,
		&a.Status, &a.Reason, &a.Notes, &a.CancelledByRole, &a.RescheduleCount, &a.ReminderSent,
		&a.CreatedAt, &a.UpdatedAt,
		&a.PatientName, &a.DentistName, &a.OperatoryName,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("appointments: scan failed: %w", err)
	}
	a.FillDisplay()
	return &a, nil
}

// Create inserts a new slot.
func (r *PostgresRepository) Create(ctx context.Context, a *Appointment) (*Appointment, error) {
	err := r.db.QueryRow(ctx, `
		INSERT INTO appointments (patient_id, dentist_id, operatory_id, appt_date, start_minute, status, reason, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at`,
		a.PatientID, a.DentistID, a.OperatoryID, a.Date, a.StartMinute, a.Status, a.Reason, a.Notes,
	).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrSlotTaken
		}
		return nil, fmt.Errorf("appointments: insert failed: %w", err)
	}
	a.FillDisplay()
	return a, nil
}

// GetByID fetches a slot with display names joined.
func (r *PostgresRepository) GetByID(ctx context.Context, id int) (*Appointment, error) {
	query := `SELECT` + apptColumns + apptJoins + ` WHERE a.id = $1`
	return scanAppointment(r.db.QueryRow(ctx, query, id))
}

// UpdateStatus persists a lifecycle transition and its bookkeeping fields.
func (r *PostgresRepository) UpdateStatus(ctx context.Context, a *Appointment) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE appointments
		SET status = $2, appt_date = $3, start_minute = $4, cancelled_by_role = $5,
		    reschedule_count = $6, notes = $7, updated_at = NOW()
		WHERE id = $1`,
		a.ID, a.Status, a.Date, a.StartMinute, a.CancelledByRole, a.RescheduleCount, a.Notes,
	)
	if err != nil {
		return fmt.Errorf("appointments: update failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns slots matching the filter, soonest first.
func (r *PostgresRepository) List(ctx context.Context, filter ListFilter) ([]*Appointment, error) {
	query := `SELECT` + apptColumns + apptJoins + ` WHERE 1=1`
	args := []any{}

	if filter.PatientID > 0 {
		args = append(args, filter.PatientID)
		query += fmt.Sprintf(" AND a.patient_id = $%d", len(args))
	}
	if filter.DentistID > 0 {
		args = append(args, filter.DentistID)
		query += fmt.Sprintf(" AND a.dentist_id = $%d", len(args))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		query += fmt.Sprintf(" AND a.status = $%d", len(args))
	}
	if !filter.From.IsZero() {
		args = append(args, filter.From)
		query += fmt.Sprintf(" AND a.appt_date >= $%d", len(args))
	}
	if !filter.To.IsZero() {
		args = append(args, filter.To)
		query += fmt.Sprintf(" AND a.appt_date < $%d", len(args))
	}

	query += " ORDER BY a.appt_date, a.start_minute"
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
		return nil, fmt.Errorf("appointments: list failed: %w", err)
	}
	defer rows.Close()

	var out []*Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// SlotTaken checks the three uniqueness axes in one query.
func (r *PostgresRepository) SlotTaken(ctx context.Context, dentistID, operatoryID int, patientID *int, date time.Time, minute int) (bool, error) {
	var taken bool
	err := r.db.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM appointments
			WHERE appt_date = $1 AND start_minute = $2
			  AND status NOT IN ('cancelled')
			  AND (dentist_id = $3 OR operatory_id = $4 OR ($5::int IS NOT NULL AND patient_id = $5))
		)`,
		date, minute, dentistID, operatoryID, patientID,
	).Scan(&taken)
	if err != nil {
		return false, fmt.Errorf("appointments: slot check failed: %w", err)
	}
	return taken, nil
}

// TakenMinutes returns the live start minutes of a dentist's day.
func (r *PostgresRepository) TakenMinutes(ctx context.Context, dentistID int, date time.Time) ([]int, error) {
	rows, err := r.db.Query(ctx, `
		SELECT start_minute FROM appointments
		WHERE dentist_id = $1 AND appt_date = $2 AND status NOT IN ('cancelled')
		ORDER BY start_minute`,
		dentistID, date)
	if err != nil {
		return nil, fmt.Errorf("appointments: taken minutes failed: %w", err)
	}
	defer rows.Close()

	var out []int
	for rows.Next() {
		var m int
		if err := rows.Scan(&m); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// CountForPatientOnDate counts the patient's live slots on one date.
func (r *PostgresRepository) CountForPatientOnDate(ctx context.Context, patientID int, date time.Time) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `
		SELECT COUNT(*) FROM appointments
		WHERE patient_id = $1 AND appt_date = $2 AND status NOT IN ('cancelled')`,
		patientID, date,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("appointments: daily count failed: %w", err)
	}
	return n, nil
}

// CountForPatientBetween counts the patient's live slots in [from, to).
func (r *PostgresRepository) CountForPatientBetween(ctx context.Context, patientID int, from, to time.Time) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `
		SELECT COUNT(*) FROM appointments
		WHERE patient_id = $1 AND appt_date >= $2 AND appt_date < $3
		  AND status NOT IN ('cancelled')`,
		patientID, from, to,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("appointments: weekly count failed: %w", err)
	}
	return n, nil
}

// HasActiveWithDentist reports an open pending or confirmed slot between
// the pair.
func (r *PostgresRepository) HasActiveWithDentist(ctx context.Context, patientID, dentistID int) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM appointments
			WHERE patient_id = $1 AND dentist_id = $2 AND status IN ('pending', 'confirmed')
		)`,
		patientID, dentistID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("appointments: active check failed: %w", err)
	}
	return exists, nil
}

// PatientIsDentist reports whether both profiles hang off the same user
// account. Dentists cannot book themselves as their own patient.
func (r *PostgresRepository) PatientIsDentist(ctx context.Context, patientID, dentistID int) (bool, error) {
	var same bool
	err := r.db.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM patients p
			JOIN dentists d ON d.user_id = p.user_id
			WHERE p.id = $1 AND d.id = $2
		)`,
		patientID, dentistID,
	).Scan(&same)
	if err != nil {
		return false, fmt.Errorf("appointments: self-booking check failed: %w", err)
	}
	return same, nil
}

// LastPatientCancellation returns when the patient last cancelled an
// appointment with this dentist themselves.
func (r *PostgresRepository) LastPatientCancellation(ctx context.Context, patientID, dentistID int) (time.Time, error) {
	var last *time.Time
	err := r.db.QueryRow(ctx, `
		SELECT MAX(updated_at) FROM appointments
		WHERE patient_id = $1 AND dentist_id = $2
		  AND status = 'cancelled' AND cancelled_by_role = 2`,
		patientID, dentistID,
	).Scan(&last)
	if err != nil {
		return time.Time{}, fmt.Errorf("appointments: cancellation lookup failed: %w", err)
	}
	if last == nil {
		return time.Time{}, nil
	}
	return *last, nil
}

// ListPendingStartingBetween returns pending slots whose start instant
// falls in [from, to). Times are compared in clinic-local terms.
func (r *PostgresRepository) ListPendingStartingBetween(ctx context.Context, from, to time.Time) ([]*Appointment, error) {
	query := `SELECT` + apptColumns + apptJoins + `
		WHERE a.status = 'pending'
		  AND a.appt_date + make_interval(mins => a.start_minute) >= $1
		  AND a.appt_date + make_interval(mins => a.start_minute) < $2
		ORDER BY a.appt_date, a.start_minute`

	rows, err := r.db.Query(ctx, query, from.In(clinicZone), to.In(clinicZone))
	if err != nil {
		return nil, fmt.Errorf("appointments: pending scan failed: %w", err)
	}
	defer rows.Close()

	var out []*Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// MarkReminderSent flags a slot so the reminder loop does not repeat it.
func (r *PostgresRepository) MarkReminderSent(ctx context.Context, id int) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE appointments SET reminder_sent = TRUE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("appointments: mark reminder failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
