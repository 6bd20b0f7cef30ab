package dentists

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/oralflow/oralflow-api/internal/schedule"
	"github.com/oralflow/oralflow-api/internal/users"
)

// DB is the subset of pgxpool.Pool the repository needs.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresRepository stores dentists in the relational database.
type PostgresRepository struct {
	db DB
}

// NewPostgresRepository initializes a repo backed by pgx.
func NewPostgresRepository(db DB) *PostgresRepository {
	if db == nil {
		panic("dentists: db required")
	}
	return &PostgresRepository{db: db}
}

// CreateSpecialty inserts a new discipline.
func (r *PostgresRepository) CreateSpecialty(ctx context.Context, s *Specialty) (*Specialty, error) {
	err := r.db.QueryRow(ctx,
		`INSERT INTO specialties (name, description) VALUES ($1, $2) RETURNING id`,
		s.Name, s.Description,
	).Scan(&s.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrDuplicateSpecialty
		}
		return nil, fmt.Errorf("dentists: insert specialty failed: %w", err)
	}
	return s, nil
}

// ListSpecialties returns all disciplines ordered by name.
func (r *PostgresRepository) ListSpecialties(ctx context.Context) ([]*Specialty, error) {
	rows, err := r.db.Query(ctx, `SELECT id, name, description FROM specialties ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("dentists: list specialties failed: %w", err)
	}
	defer rows.Close()

	var out []*Specialty
	for rows.Next() {
		var s Specialty
		if err := rows.Scan(&s.ID, &s.Name, &s.Description); err != nil {
			return nil, fmt.Errorf("dentists: scan specialty failed: %w", err)
		}
		out = append(out, &s)
	}
	return out, rows.Err()
}

const dentistJoinColumns = `
	d.id, d.user_id, d.specialty_id, d.license_number, d.bio, d.created_at, d.updated_at,
	u.id, u.cedula, u.email, u.first_name, u.last_name, u.phone, u.role, u.is_active, u.created_at, u.updated_at,
	s.id, s.name, s.description`

func scanDentist(row pgx.Row) (*Dentist, error) {
	var d Dentist
	var u users.User
	var s Specialty
	err := row.Scan(
		&d.ID, &d.UserID, &d.SpecialtyID, &d.LicenseNumber, &d.Bio, &d.CreatedAt, &d.UpdatedAt,
		&u.ID, &u.Cedula, &u.Email, &u.FirstName, &u.LastName, &u.Phone, &u.Role, &u.IsActive, &u.CreatedAt, &u.UpdatedAt,
		&s.ID, &s.Name, &s.Description,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDentistNotFound
		}
		return nil, fmt.Errorf("dentists: scan failed: %w", err)
	}
	d.User = &u
	d.Specialty = &s
	return &d, nil
}

// Create inserts a new profile row.
func (r *PostgresRepository) Create(ctx context.Context, d *Dentist) (*Dentist, error) {
	query := `
		INSERT INTO dentists (user_id, specialty_id, license_number, bio)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query, d.UserID, d.SpecialtyID, d.LicenseNumber, d.Bio).
		Scan(&d.ID, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch {
			case pgErr.Code == "23505" && strings.Contains(pgErr.ConstraintName, "license"):
				return nil, ErrDuplicateLicense
			case pgErr.Code == "23503" && strings.Contains(pgErr.ConstraintName, "specialty"):
				return nil, ErrSpecialtyNotFound
			}
		}
		return nil, fmt.Errorf("dentists: insert failed: %w", err)
	}
	return d, nil
}

// GetByID fetches a profile with account and specialty joined.
func (r *PostgresRepository) GetByID(ctx context.Context, id int) (*Dentist, error) {
	query := `SELECT` + dentistJoinColumns + `
		FROM dentists d
		JOIN users u ON u.id = d.user_id
		JOIN specialties s ON s.id = d.specialty_id
		WHERE d.id = $1`
	return scanDentist(r.db.QueryRow(ctx, query, id))
}

// GetByUserID fetches a profile by the owning account.
func (r *PostgresRepository) GetByUserID(ctx context.Context, userID int) (*Dentist, error) {
	query := `SELECT` + dentistJoinColumns + `
		FROM dentists d
		JOIN users u ON u.id = d.user_id
		JOIN specialties s ON s.id = d.specialty_id
		WHERE d.user_id = $1`
	return scanDentist(r.db.QueryRow(ctx, query, userID))
}

// List returns active dentists, optionally filtered by specialty.
func (r *PostgresRepository) List(ctx context.Context, specialtyID int) ([]*Dentist, error) {
	query := `SELECT` + dentistJoinColumns + `
		FROM dentists d
		JOIN users u ON u.id = d.user_id
		JOIN specialties s ON s.id = d.specialty_id
		WHERE u.is_active`
	args := []any{}
	if specialtyID > 0 {
		args = append(args, specialtyID)
		query += " AND d.specialty_id = $1"
	}
	query += " ORDER BY u.last_name, u.first_name"

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("dentists: list failed: %w", err)
	}
	defer rows.Close()

	var out []*Dentist
	for rows.Next() {
		d, err := scanDentist(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// CreateSchedule inserts a working window.
func (r *PostgresRepository) CreateSchedule(ctx context.Context, e *ScheduleEntry) (*ScheduleEntry, error) {
	err := r.db.QueryRow(ctx,
		`INSERT INTO dentist_schedules (dentist_id, weekday, start_minute, end_minute, is_active)
		 VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		e.DentistID, int(e.Weekday), e.StartMinute, e.EndMinute, e.IsActive,
	).Scan(&e.ID)
	if err != nil {
		return nil, fmt.Errorf("dentists: insert schedule failed: %w", err)
	}
	e.FillClocks()
	return e, nil
}

func (r *PostgresRepository) scheduleRows(ctx context.Context, query string, args ...any) ([]*ScheduleEntry, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("dentists: list schedules failed: %w", err)
	}
	defer rows.Close()

	var out []*ScheduleEntry
	for rows.Next() {
		var e ScheduleEntry
		if err := rows.Scan(&e.ID, &e.DentistID, &e.Weekday, &e.StartMinute, &e.EndMinute, &e.IsActive); err != nil {
			return nil, fmt.Errorf("dentists: scan schedule failed: %w", err)
		}
		e.FillClocks()
		out = append(out, &e)
	}
	return out, rows.Err()
}

// ListSchedules returns every window of a dentist, ordered for display.
func (r *PostgresRepository) ListSchedules(ctx context.Context, dentistID int) ([]*ScheduleEntry, error) {
	return r.scheduleRows(ctx,
		`SELECT id, dentist_id, weekday, start_minute, end_minute, is_active
		 FROM dentist_schedules WHERE dentist_id = $1
		 ORDER BY weekday, start_minute`,
		dentistID)
}

// ListSchedulesForWeekday returns the active windows for one weekday.
func (r *PostgresRepository) ListSchedulesForWeekday(ctx context.Context, dentistID int, weekday schedule.Weekday) ([]*ScheduleEntry, error) {
	return r.scheduleRows(ctx,
		`SELECT id, dentist_id, weekday, start_minute, end_minute, is_active
		 FROM dentist_schedules
		 WHERE dentist_id = $1 AND weekday = $2 AND is_active
		 ORDER BY start_minute`,
		dentistID, int(weekday))
}

// SetScheduleActive toggles a window without deleting its history.
func (r *PostgresRepository) SetScheduleActive(ctx context.Context, dentistID, scheduleID int, active bool) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE dentist_schedules SET is_active = $3 WHERE id = $2 AND dentist_id = $1`,
		dentistID, scheduleID, active)
	if err != nil {
		return fmt.Errorf("dentists: toggle schedule failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrScheduleNotFound
	}
	return nil
}

// DeleteSchedule removes a window.
func (r *PostgresRepository) DeleteSchedule(ctx context.Context, dentistID, scheduleID int) error {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM dentist_schedules WHERE id = $2 AND dentist_id = $1`,
		dentistID, scheduleID)
	if err != nil {
		return fmt.Errorf("dentists: delete schedule failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrScheduleNotFound
	}
	return nil
}

// CreateBlocks inserts a group of day blocks.
func (r *PostgresRepository) CreateBlocks(ctx context.Context, blocks []*DayBlock) error {
	for _, b := range blocks {
		err := r.db.QueryRow(ctx,
			`INSERT INTO day_blocks (group_id, dentist_id, block_date, reason, annual, created_by)
			 VALUES ($1, $2, $3, $4, $5, $6) RETURNING id, created_at`,
			b.GroupID, b.DentistID, b.Date, b.Reason, b.Annual, b.CreatedBy,
		).Scan(&b.ID, &b.CreatedAt)
		if err != nil {
			return fmt.Errorf("dentists: insert day block failed: %w", err)
		}
	}
	return nil
}

func (r *PostgresRepository) blockRows(ctx context.Context, query string, args ...any) ([]*DayBlock, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("dentists: list day blocks failed: %w", err)
	}
	defer rows.Close()

	var out []*DayBlock
	for rows.Next() {
		var b DayBlock
		if err := rows.Scan(&b.ID, &b.GroupID, &b.DentistID, &b.Date, &b.Reason, &b.Annual, &b.CreatedBy, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("dentists: scan day block failed: %w", err)
		}
		out = append(out, &b)
	}
	return out, rows.Err()
}

// ListBlocks returns blocks, optionally only those affecting one dentist
// (their own plus clinic-wide ones).
func (r *PostgresRepository) ListBlocks(ctx context.Context, dentistID *int) ([]*DayBlock, error) {
	if dentistID == nil {
		return r.blockRows(ctx,
			`SELECT id, group_id, dentist_id, block_date, reason, annual, created_by, created_at
			 FROM day_blocks ORDER BY block_date`)
	}
	return r.blockRows(ctx,
		`SELECT id, group_id, dentist_id, block_date, reason, annual, created_by, created_at
		 FROM day_blocks WHERE dentist_id IS NULL OR dentist_id = $1
		 ORDER BY block_date`,
		*dentistID)
}

// BlocksForDate returns the blocks closing a specific date for a dentist,
// including annual blocks from earlier years.
func (r *PostgresRepository) BlocksForDate(ctx context.Context, date time.Time, dentistID int) ([]*DayBlock, error) {
	return r.blockRows(ctx,
		`SELECT id, group_id, dentist_id, block_date, reason, annual, created_by, created_at
		 FROM day_blocks
		 WHERE (dentist_id IS NULL OR dentist_id = $1)
		   AND (block_date = $2
		        OR (annual AND EXTRACT(MONTH FROM block_date) = $3 AND EXTRACT(DAY FROM block_date) = $4))`,
		dentistID, date, int(date.Month()), date.Day())
}

// DeleteBlockGroup removes every block created together and reports how
// many rows went away.
func (r *PostgresRepository) DeleteBlockGroup(ctx context.Context, groupID uuid.UUID) (int, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM day_blocks WHERE group_id = $1`, groupID)
	if err != nil {
		return 0, fmt.Errorf("dentists: delete block group failed: %w", err)
	}
	n := int(tag.RowsAffected())
	if n == 0 {
		return 0, ErrBlockNotFound
	}
	return n, nil
}
