package appointments

import "errors"

var (
	// ErrNotFound is returned when no appointment matches the lookup.
	ErrNotFound = errors.New("appointments: appointment not found")
	// ErrOperatoryNotFound is returned when the operatory does not exist.
	ErrOperatoryNotFound = errors.New("appointments: operatory not found")
	// ErrSlotTaken is returned when the dentist, operatory or patient
	// already has a live appointment at that hour.
	ErrSlotTaken = errors.New("appointments: slot already taken")
	// ErrOutsideSchedule is returned when the slot does not fall inside
	// the dentist's working hours for that weekday.
	ErrOutsideSchedule = errors.New("appointments: slot outside the dentist's schedule")
	// ErrDayBlocked is returned when a day block closes the agenda.
	ErrDayBlocked = errors.New("appointments: day is blocked")
	// ErrDailyLimit is returned when the patient hit the per-day cap.
	ErrDailyLimit = errors.New("appointments: daily booking limit reached")
	// ErrWeeklyLimit is returned when the patient hit the per-week cap.
	ErrWeeklyLimit = errors.New("appointments: weekly booking limit reached")
	// ErrActiveWithDentist is returned when the patient already has a live
	// appointment with this dentist.
	ErrActiveWithDentist = errors.New("appointments: patient already has an active appointment with this dentist")
	// ErrSelfBooking is returned when the patient and the dentist resolve
	// to the same user account.
	ErrSelfBooking = errors.New("appointments: patient and dentist are the same person")
	// ErrCooldown is returned while the post-cancellation waiting period
	// is running.
	ErrCooldown = errors.New("appointments: cancellation cooldown in effect")
	// ErrConfirmWindowClosed is returned when confirmation is attempted
	// outside the allowed window.
	ErrConfirmWindowClosed = errors.New("appointments: confirmation window is not open")
	// ErrRescheduleLimit is returned when the appointment was already
	// rescheduled the maximum number of times.
	ErrRescheduleLimit = errors.New("appointments: reschedule limit reached")
	// ErrImmutableStatus is returned when the transition is not allowed
	// from the current state.
	ErrImmutableStatus = errors.New("appointments: action not allowed in the current state")
	// ErrDuplicateOperatory is returned when the operatory name is taken.
	ErrDuplicateOperatory = errors.New("appointments: operatory name already exists")
)
