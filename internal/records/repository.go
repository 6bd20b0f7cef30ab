package records

import (
	"context"

	"github.com/google/uuid"
)

// Repository persists medical records and their attachments.
type Repository interface {
	Create(ctx context.Context, rec *MedicalRecord) (*MedicalRecord, error)
	GetByID(ctx context.Context, id int) (*MedicalRecord, error)
	GetByAppointment(ctx context.Context, appointmentID int) (*MedicalRecord, error)
	Update(ctx context.Context, rec *MedicalRecord) error
	ListForPatient(ctx context.Context, patientID int) ([]*MedicalRecord, error)

	AddAttachment(ctx context.Context, a *Attachment) error
	GetAttachment(ctx context.Context, id uuid.UUID) (*Attachment, error)
	ListAttachments(ctx context.Context, recordID int) ([]*Attachment, error)
	DeleteAttachment(ctx context.Context, id uuid.UUID) error
}
