package patients

import "errors"

var (
	// ErrPatientNotFound is returned when no profile matches the lookup.
	ErrPatientNotFound = errors.New("patients: patient not found")
	// ErrBackgroundNotFound is returned when a patient has no questionnaire
	// on file yet.
	ErrBackgroundNotFound = errors.New("patients: medical background not found")
	// ErrRepresentativeNotFound is returned when the referenced
	// representative account does not exist or is not an adult patient.
	ErrRepresentativeNotFound = errors.New("patients: representative not found")
)
