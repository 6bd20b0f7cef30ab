package records

import "errors"

var (
	// ErrRecordNotFound is returned when no medical record matches.
	ErrRecordNotFound = errors.New("records: record not found")
	// ErrRecordExists is returned when the appointment already has a record.
	ErrRecordExists = errors.New("records: appointment already has a record")
	// ErrAppointmentNotRecordable is returned when the appointment is not
	// completed, or is a maintenance slot with no patient.
	ErrAppointmentNotRecordable = errors.New("records: appointment cannot take a record")
	// ErrAttachmentNotFound is returned when no attachment matches.
	ErrAttachmentNotFound = errors.New("records: attachment not found")
	// ErrAttachmentTooLarge is returned when the upload exceeds the size cap.
	ErrAttachmentTooLarge = errors.New("records: attachment exceeds size limit")
	// ErrAttachmentType is returned when the file type is not accepted.
	ErrAttachmentType = errors.New("records: attachment type not accepted")
)
