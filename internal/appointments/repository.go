package appointments

import (
	"context"
	"time"
)

// Repository persists appointments and operatories.
type Repository interface {
	CreateOperatory(ctx context.Context, o *Operatory) (*Operatory, error)
	GetOperatory(ctx context.Context, id int) (*Operatory, error)
	ListOperatories(ctx context.Context, activeOnly bool) ([]*Operatory, error)

	Create(ctx context.Context, a *Appointment) (*Appointment, error)
	GetByID(ctx context.Context, id int) (*Appointment, error)
	UpdateStatus(ctx context.Context, a *Appointment) error
	List(ctx context.Context, filter ListFilter) ([]*Appointment, error)

	// SlotTaken reports whether a live (non-cancelled) appointment already
	// occupies the hour for the dentist, the operatory or the patient.
	SlotTaken(ctx context.Context, dentistID, operatoryID int, patientID *int, date time.Time, minute int) (bool, error)
	// TakenMinutes returns the occupied start minutes of a dentist's day.
	TakenMinutes(ctx context.Context, dentistID int, date time.Time) ([]int, error)

	CountForPatientOnDate(ctx context.Context, patientID int, date time.Time) (int, error)
	CountForPatientBetween(ctx context.Context, patientID int, from, to time.Time) (int, error)
	HasActiveWithDentist(ctx context.Context, patientID, dentistID int) (bool, error)
	// PatientIsDentist reports whether the patient profile and the dentist
	// profile belong to the same user account.
	PatientIsDentist(ctx context.Context, patientID, dentistID int) (bool, error)
	// LastPatientCancellation returns the time of the patient's most recent
	// self-cancellation with the given dentist, or the zero time when there
	// is none. The cooldown is scoped to the dentist the patient cancelled
	// with, not to the whole clinic.
	LastPatientCancellation(ctx context.Context, patientID, dentistID int) (time.Time, error)

	// ListPendingStartingBetween returns pending appointments whose start
	// instant falls in [from, to), for the reminder and auto-cancel loops.
	ListPendingStartingBetween(ctx context.Context, from, to time.Time) ([]*Appointment, error)
	MarkReminderSent(ctx context.Context, id int) error
}

// ListFilter narrows an appointment listing.
type ListFilter struct {
	PatientID int
	DentistID int
	Status    string
	From      time.Time
	To        time.Time
	Limit     int
	Offset    int
}
