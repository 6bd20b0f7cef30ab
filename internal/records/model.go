// Package records keeps the clinical history of the practice. Each
// completed appointment carries at most one medical record, and records
// can hold file attachments stored in the object store.
package records

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/oralflow/oralflow-api/internal/fielderr"
)

// MaxAttachmentBytes caps attachment uploads at 10 MB.
const MaxAttachmentBytes = 10 << 20

// allowedExtensions lists the attachment file types the clinic accepts.
var allowedExtensions = map[string]string{
	".pdf":  "application/pdf",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
}

// AllowedExtension reports whether ext (with leading dot) is accepted and
// returns its content type.
func AllowedExtension(ext string) (string, bool) {
	ct, ok := allowedExtensions[strings.ToLower(ext)]
	return ct, ok
}

// MedicalRecord is the clinical note of one appointment.
type MedicalRecord struct {
	ID            int       `json:"id"`
	AppointmentID int       `json:"appointment_id"`
	PatientID     int       `json:"patient_id"`
	DentistID     int       `json:"dentist_id"`
	Diagnosis     string    `json:"diagnosis"`
	Treatment     string    `json:"treatment"`
	Prescriptions string    `json:"prescriptions,omitempty"`
	Notes         string    `json:"notes,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`

	Attachments []*Attachment `json:"attachments,omitempty"`
}

// Attachment is a file stored against a medical record.
type Attachment struct {
	ID          uuid.UUID `json:"id"`
	RecordID    int       `json:"record_id"`
	FileName    string    `json:"file_name"`
	ContentType string    `json:"content_type"`
	SizeBytes   int64     `json:"size_bytes"`
	SHA256      string    `json:"sha256"`
	ObjectKey   string    `json:"-"`
	UploadedBy  int       `json:"uploaded_by"`
	CreatedAt   time.Time `json:"created_at"`
}

// CreateRecordRequest opens the medical record of an appointment.
type CreateRecordRequest struct {
	AppointmentID int    `json:"appointment_id"`
	Diagnosis     string `json:"diagnosis"`
	Treatment     string `json:"treatment"`
	Prescriptions string `json:"prescriptions"`
	Notes         string `json:"notes"`
}

// Validate checks the request field by field.
func (r *CreateRecordRequest) Validate() error {
	errs := fielderr.Fields{}

	if r.AppointmentID <= 0 {
		errs.Add("appointment_id", "Appointment is required.")
	}
	r.Diagnosis = strings.TrimSpace(r.Diagnosis)
	if r.Diagnosis == "" {
		errs.Add("diagnosis", "Diagnosis is required.")
	}
	r.Treatment = strings.TrimSpace(r.Treatment)
	if r.Treatment == "" {
		errs.Add("treatment", "Treatment is required.")
	}
	r.Prescriptions = strings.TrimSpace(r.Prescriptions)
	r.Notes = strings.TrimSpace(r.Notes)

	return errs.OrNil()
}

// UpdateRecordRequest edits an existing record. Nil fields are left as
// they are.
type UpdateRecordRequest struct {
	Diagnosis     *string `json:"diagnosis"`
	Treatment     *string `json:"treatment"`
	Prescriptions *string `json:"prescriptions"`
	Notes         *string `json:"notes"`
}

// Apply copies the set fields onto the record.
func (r *UpdateRecordRequest) Apply(rec *MedicalRecord) error {
	errs := fielderr.Fields{}

	if r.Diagnosis != nil {
		v := strings.TrimSpace(*r.Diagnosis)
		if v == "" {
			errs.Add("diagnosis", "Diagnosis cannot be empty.")
		}
		rec.Diagnosis = v
	}
	if r.Treatment != nil {
		v := strings.TrimSpace(*r.Treatment)
		if v == "" {
			errs.Add("treatment", "Treatment cannot be empty.")
		}
		rec.Treatment = v
	}
	if r.Prescriptions != nil {
		rec.Prescriptions = strings.TrimSpace(*r.Prescriptions)
	}
	if r.Notes != nil {
		rec.Notes = strings.TrimSpace(*r.Notes)
	}

	return errs.OrNil()
}
