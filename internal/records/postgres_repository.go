package records

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the subset of pgxpool.Pool the repository needs.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresRepository stores medical records in the relational database.
type PostgresRepository struct {
	db DB
}

// NewPostgresRepository initializes a repo backed by pgx.
func NewPostgresRepository(db DB) *PostgresRepository {
	if db == nil {
		panic("records: db required")
	}
	return &PostgresRepository{db: db}
}

const recordColumns = `id, appointment_id, patient_id, dentist_id, diagnosis, treatment, prescriptions, notes, created_at, updated_at`

func scanRecord(row pgx.Row) (*MedicalRecord, error) {
	var rec MedicalRecord
	err := row.Scan(
		&rec.ID, &rec.AppointmentID, &rec.PatientID, &rec.DentistID,
		&rec.Diagnosis, &rec.Treatment, &rec.Prescriptions, &rec.Notes,
		&rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("records: scan failed: %w", err)
	}
	return &rec, nil
}

// Create inserts a record; the unique constraint on appointment_id keeps
// one record per appointment.
func (r *PostgresRepository) Create(ctx context.Context, rec *MedicalRecord) (*MedicalRecord, error) {
	query := `
		INSERT INTO medical_records (appointment_id, patient_id, dentist_id, diagnosis, treatment, prescriptions, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + recordColumns

	created, err := scanRecord(r.db.QueryRow(ctx, query,
		rec.AppointmentID, rec.PatientID, rec.DentistID,
		rec.Diagnosis, rec.Treatment, rec.Prescriptions, rec.Notes,
	))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrRecordExists
		}
		return nil, err
	}
	return created, nil
}

// GetByID fetches one record.
func (r *PostgresRepository) GetByID(ctx context.Context, id int) (*MedicalRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM medical_records WHERE id = $1`
	return scanRecord(r.db.QueryRow(ctx, query, id))
}

// GetByAppointment fetches the record of one appointment.
func (r *PostgresRepository) GetByAppointment(ctx context.Context, appointmentID int) (*MedicalRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM medical_records WHERE appointment_id = $1`
	return scanRecord(r.db.QueryRow(ctx, query, appointmentID))
}

// Update rewrites the editable fields of a record.
func (r *PostgresRepository) Update(ctx context.Context, rec *MedicalRecord) error {
	query := `
		UPDATE medical_records
		SET diagnosis = $2, treatment = $3, prescriptions = $4, notes = $5, updated_at = NOW()
		WHERE id = $1`

	tag, err := r.db.Exec(ctx, query, rec.ID, rec.Diagnosis, rec.Treatment, rec.Prescriptions, rec.Notes)
	if err != nil {
		return fmt.Errorf("records: update failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrRecordNotFound
	}
	return nil
}

// ListForPatient returns a patient's records, newest first.
func (r *PostgresRepository) ListForPatient(ctx context.Context, patientID int) ([]*MedicalRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM medical_records WHERE patient_id = $1 ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query, patientID)
	if err != nil {
		return nil, fmt.Errorf("records: list failed: %w", err)
	}
	defer rows.Close()

	var out []*MedicalRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

const attachmentColumns = `id, record_id, file_name, content_type, size_bytes, sha256, object_key, uploaded_by, created_at`

func scanAttachment(row pgx.Row) (*Attachment, error) {
	var a Attachment
	err := row.Scan(
		&a.ID, &a.RecordID, &a.FileName, &a.ContentType,
		&a.SizeBytes, &a.SHA256, &a.ObjectKey, &a.UploadedBy, &a.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAttachmentNotFound
		}
		return nil, fmt.Errorf("records: scan attachment failed: %w", err)
	}
	return &a, nil
}

// AddAttachment inserts an attachment row.
func (r *PostgresRepository) AddAttachment(ctx context.Context, a *Attachment) error {
	query := `
		INSERT INTO record_attachments (id, record_id, file_name, content_type, size_bytes, sha256, object_key, uploaded_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at`

	err := r.db.QueryRow(ctx, query,
		a.ID, a.RecordID, a.FileName, a.ContentType, a.SizeBytes, a.SHA256, a.ObjectKey, a.UploadedBy,
	).Scan(&a.CreatedAt)
	if err != nil {
		return fmt.Errorf("records: add attachment failed: %w", err)
	}
	return nil
}

// GetAttachment fetches one attachment.
func (r *PostgresRepository) GetAttachment(ctx context.Context, id uuid.UUID) (*Attachment, error) {
	query := `SELECT ` + attachmentColumns + ` FROM record_attachments WHERE id = $1`
	return scanAttachment(r.db.QueryRow(ctx, query, id))
}

// ListAttachments returns the attachments of a record, oldest first.
func (r *PostgresRepository) ListAttachments(ctx context.Context, recordID int) ([]*Attachment, error) {
	query := `SELECT ` + attachmentColumns + ` FROM record_attachments WHERE record_id = $1 ORDER BY created_at`

	rows, err := r.db.Query(ctx, query, recordID)
	if err != nil {
		return nil, fmt.Errorf("records: list attachments failed: %w", err)
	}
	defer rows.Close()

	var out []*Attachment
	for rows.Next() {
		a, err := scanAttachment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// DeleteAttachment removes an attachment row.
func (r *PostgresRepository) DeleteAttachment(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM record_attachments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("records: delete attachment failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAttachmentNotFound
	}
	return nil
}
