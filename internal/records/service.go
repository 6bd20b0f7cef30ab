package records

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/oralflow/oralflow-api/internal/appointments"
	"github.com/oralflow/oralflow-api/internal/storage"
	"github.com/oralflow/oralflow-api/pkg/logging"
)

// Appointments is the slice of the appointment layer the service needs.
type Appointments interface {
	GetByID(ctx context.Context, id int) (*appointments.Appointment, error)
}

// ObjectStore holds attachment files.
type ObjectStore interface {
	Put(ctx context.Context, key, contentType string, body io.Reader) error
	Delete(ctx context.Context, key string) error
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// Service enforces the clinical record rules.
type Service struct {
	repo   Repository
	appts  Appointments
	store  ObjectStore
	logger *logging.Logger
}

// NewService wires the record rules. store may be nil when no object
// store is configured; attachments are then rejected.
func NewService(repo Repository, appts Appointments, store ObjectStore, logger *logging.Logger) *Service {
	return &Service{repo: repo, appts: appts, store: store, logger: logger}
}

// Create opens the medical record of a completed appointment.
func (s *Service) Create(ctx context.Context, req CreateRecordRequest) (*MedicalRecord, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	a, err := s.appts.GetByID(ctx, req.AppointmentID)
	if err != nil {
		return nil, fmt.Errorf("records: load appointment: %w", err)
	}
	if a.Status != appointments.StatusCompleted || a.PatientID == nil {
		return nil, ErrAppointmentNotRecordable
	}

	return s.repo.Create(ctx, &MedicalRecord{
		AppointmentID: req.AppointmentID,
		PatientID:     *a.PatientID,
		DentistID:     a.DentistID,
		Diagnosis:     req.Diagnosis,
		Treatment:     req.Treatment,
		Prescriptions: req.Prescriptions,
		Notes:         req.Notes,
	})
}

// Get returns one record with its attachments.
func (s *Service) Get(ctx context.Context, id int) (*MedicalRecord, error) {
	rec, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.withAttachments(ctx, rec)
}

// GetForAppointment returns the record of an appointment with its
// attachments.
func (s *Service) GetForAppointment(ctx context.Context, appointmentID int) (*MedicalRecord, error) {
	rec, err := s.repo.GetByAppointment(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	return s.withAttachments(ctx, rec)
}

func (s *Service) withAttachments(ctx context.Context, rec *MedicalRecord) (*MedicalRecord, error) {
	atts, err := s.repo.ListAttachments(ctx, rec.ID)
	if err != nil {
		return nil, err
	}
	rec.Attachments = atts
	return rec, nil
}

// Update edits an existing record.
func (s *Service) Update(ctx context.Context, id int, req UpdateRecordRequest) (*MedicalRecord, error) {
	rec, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := req.Apply(rec); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// ListForPatient returns a patient's clinical history.
func (s *Service) ListForPatient(ctx context.Context, patientID int) ([]*MedicalRecord, error) {
	return s.repo.ListForPatient(ctx, patientID)
}

// AddAttachment validates, hashes and stores an uploaded file against a
// record. The reader is fully buffered to compute the digest before the
// object is written.
func (s *Service) AddAttachment(ctx context.Context, recordID int, fileName string, body io.Reader, uploadedBy int) (*Attachment, error) {
	rec, err := s.repo.GetByID(ctx, recordID)
	if err != nil {
		return nil, err
	}
	if s.store == nil {
		return nil, fmt.Errorf("records: no object store configured")
	}

	ext := strings.ToLower(path.Ext(fileName))
	contentType, ok := AllowedExtension(ext)
	if !ok {
		return nil, ErrAttachmentType
	}

	var buf bytes.Buffer
	n, err := io.Copy(&buf, io.LimitReader(body, MaxAttachmentBytes+1))
	if err != nil {
		return nil, fmt.Errorf("records: read upload: %w", err)
	}
	if n > MaxAttachmentBytes {
		return nil, ErrAttachmentTooLarge
	}

	sum := sha256.Sum256(buf.Bytes())
	att := &Attachment{
		ID:          uuid.New(),
		RecordID:    rec.ID,
		FileName:    path.Base(fileName),
		ContentType: contentType,
		SizeBytes:   n,
		SHA256:      hex.EncodeToString(sum[:]),
		UploadedBy:  uploadedBy,
	}
	att.ObjectKey = storage.AttachmentKey(rec.ID, att.ID, ext)

	if err := s.store.Put(ctx, att.ObjectKey, contentType, &buf); err != nil {
		return nil, err
	}
	if err := s.repo.AddAttachment(ctx, att); err != nil {
		if delErr := s.store.Delete(ctx, att.ObjectKey); delErr != nil {
			s.logger.Warn("orphan attachment object left behind", "key", att.ObjectKey, "error", delErr)
		}
		return nil, err
	}
	return att, nil
}

// AttachmentURL returns a short-lived download link for an attachment.
func (s *Service) AttachmentURL(ctx context.Context, id uuid.UUID, ttl time.Duration) (*Attachment, string, error) {
	att, err := s.repo.GetAttachment(ctx, id)
	if err != nil {
		return nil, "", err
	}
	if s.store == nil {
		return att, "", fmt.Errorf("records: no object store configured")
	}
	url, err := s.store.PresignGet(ctx, att.ObjectKey, ttl)
	if err != nil {
		return nil, "", err
	}
	return att, url, nil
}

// RemoveAttachment deletes the row and then the stored object.
func (s *Service) RemoveAttachment(ctx context.Context, id uuid.UUID) error {
	att, err := s.repo.GetAttachment(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteAttachment(ctx, id); err != nil {
		return err
	}
	if s.store != nil {
		if err := s.store.Delete(ctx, att.ObjectKey); err != nil {
			s.logger.Warn("attachment object delete failed", "key", att.ObjectKey, "error", err)
		}
	}
	return nil
}
