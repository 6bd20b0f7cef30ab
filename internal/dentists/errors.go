package dentists

import "errors"

var (
	// ErrDentistNotFound is returned when no profile matches the lookup.
	ErrDentistNotFound = errors.New("dentists: dentist not found")
	// ErrSpecialtyNotFound is returned when the specialty does not exist.
	ErrSpecialtyNotFound = errors.New("dentists: specialty not found")
	// ErrScheduleNotFound is returned when the schedule entry does not exist.
	ErrScheduleNotFound = errors.New("dentists: schedule entry not found")
	// ErrScheduleOverlap is returned when a new working window overlaps an
	// existing active one on the same weekday.
	ErrScheduleOverlap = errors.New("dentists: schedule overlaps an existing window")
	// ErrBlockNotFound is returned when the day block does not exist.
	ErrBlockNotFound = errors.New("dentists: day block not found")
	// ErrDuplicateLicense is returned when the license number is taken.
	ErrDuplicateLicense = errors.New("dentists: license number already registered")
	// ErrDuplicateSpecialty is returned when the specialty name is taken.
	ErrDuplicateSpecialty = errors.New("dentists: specialty name already exists")
)
