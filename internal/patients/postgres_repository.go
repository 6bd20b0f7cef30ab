package patients

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/oralflow/oralflow-api/internal/users"
)

// DB is the subset of pgxpool.Pool the repository needs.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresRepository stores patients in the relational database.
type PostgresRepository struct {
	db DB
}

// NewPostgresRepository initializes a repo backed by pgx.
func NewPostgresRepository(db DB) *PostgresRepository {
	if db == nil {
		panic("patients: db required")
	}
	return &PostgresRepository{db: db}
}

const patientJoinColumns = `
	p.id, p.user_id, p.birth_date, p.occupation,
	p.emergency_contact_name, p.emergency_contact_phone,
	p.representative_user_id, p.created_at, p.updated_at,
	u.id, u.cedula, u.email, u.first_name, u.last_name, u.phone, u.role, u.is_active, u.created_at, u.updated_at`

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	var u users.User
	err := row.Scan(
		&p.ID, &p.UserID, &p.BirthDate, &p.Occupation,
		&p.EmergencyContactName, &p.EmergencyContactPhone,
		&p.RepresentativeUserID, &p.CreatedAt, &p.UpdatedAt,
		&u.ID, &u.Cedula, &u.Email, &u.FirstName, &u.LastName, &u.Phone, &u.Role, &u.IsActive, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPatientNotFound
		}
		return nil, fmt.Errorf("patients: scan failed: %w", err)
	}
	p.User = &u
	return &p, nil
}

// Create inserts a new profile row.
func (r *PostgresRepository) Create(ctx context.Context, p *Patient) (*Patient, error) {
	query := `
		INSERT INTO patients (user_id, birth_date, occupation, emergency_contact_name, emergency_contact_phone, representative_user_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query,
		p.UserID, p.BirthDate, p.Occupation,
		p.EmergencyContactName, p.EmergencyContactPhone, p.RepresentativeUserID,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("patients: insert failed: %w", err)
	}
	return p, nil
}

// GetByID fetches a profile with its account joined.
func (r *PostgresRepository) GetByID(ctx context.Context, id int) (*Patient, error) {
	query := `SELECT` + patientJoinColumns + `
		FROM patients p JOIN users u ON u.id = p.user_id
		WHERE p.id = $1`
	return scanPatient(r.db.QueryRow(ctx, query, id))
}

// GetByUserID fetches a profile by the owning account.
func (r *PostgresRepository) GetByUserID(ctx context.Context, userID int) (*Patient, error) {
	query := `SELECT` + patientJoinColumns + `
		FROM patients p JOIN users u ON u.id = p.user_id
		WHERE p.user_id = $1`
	return scanPatient(r.db.QueryRow(ctx, query, userID))
}

// Update persists the mutable profile fields.
func (r *PostgresRepository) Update(ctx context.Context, p *Patient) error {
	query := `
		UPDATE patients
		SET occupation = $2, emergency_contact_name = $3, emergency_contact_phone = $4, updated_at = NOW()
		WHERE id = $1
	`
	tag, err := r.db.Exec(ctx, query, p.ID, p.Occupation, p.EmergencyContactName, p.EmergencyContactPhone)
	if err != nil {
		return fmt.Errorf("patients: update failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrPatientNotFound
	}
	return nil
}

// List returns profiles matching the filter, newest first.
func (r *PostgresRepository) List(ctx context.Context, filter ListFilter) ([]*Patient, error) {
	query := `SELECT` + patientJoinColumns + `
		FROM patients p JOIN users u ON u.id = p.user_id
		WHERE 1=1`
	args := []any{}

	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		n := len(args)
		query += fmt.Sprintf(" AND (u.cedula ILIKE $%d OR u.email ILIKE $%d OR u.first_name ILIKE $%d OR u.last_name ILIKE $%d)", n, n, n, n)
	}

	query += " ORDER BY p.created_at DESC"
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
		return nil, fmt.Errorf("patients: list failed: %w", err)
	}
	defer rows.Close()

	var out []*Patient
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// GetBackground fetches the medical questionnaire for a patient.
func (r *PostgresRepository) GetBackground(ctx context.Context, patientID int) (*Background, error) {
	query := `
		SELECT patient_id, allergies, medical_conditions, medications, surgeries, notes, updated_at
		FROM patient_backgrounds
		WHERE patient_id = $1
	`
	var b Background
	err := r.db.QueryRow(ctx, query, patientID).Scan(
		&b.PatientID, &b.Allergies, &b.MedicalConditions,
		&b.Medications, &b.Surgeries, &b.Notes, &b.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBackgroundNotFound
		}
		return nil, fmt.Errorf("patients: select background failed: %w", err)
	}
	return &b, nil
}

// UpsertBackground writes the questionnaire, replacing any previous one.
func (r *PostgresRepository) UpsertBackground(ctx context.Context, b *Background) error {
	query := `
		INSERT INTO patient_backgrounds (patient_id, allergies, medical_conditions, medications, surgeries, notes, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		ON CONFLICT (patient_id) DO UPDATE SET
			allergies = EXCLUDED.allergies,
			medical_conditions = EXCLUDED.medical_conditions,
			medications = EXCLUDED.medications,
			surgeries = EXCLUDED.surgeries,
			notes = EXCLUDED.notes,
			updated_at = NOW()
	`
	if _, err := r.db.Exec(ctx, query,
		b.PatientID, b.Allergies, b.MedicalConditions, b.Medications, b.Surgeries, b.Notes,
	); err != nil {
		return fmt.Errorf("patients: upsert background failed: %w", err)
	}
	return nil
}
