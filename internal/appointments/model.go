package appointments

import (
	"strings"
	"time"

	"github.com/oralflow/oralflow-api/internal/fielderr"
	"github.com/oralflow/oralflow-api/internal/schedule"
)

// Appointment lifecycle states.
const (
	StatusPending     = "pending"
	StatusConfirmed   = "confirmed"
	StatusCancelled   = "cancelled"
	StatusCompleted   = "completed"
	StatusMaintenance = "maintenance"
)

// clinicZone is the timezone all clinic dates and hours are expressed in.
var clinicZone = loadZone()

func loadZone() *time.Location {
	loc, err := time.LoadLocation("America/Guayaquil")
	if err != nil {
		return time.UTC
	}
	return loc
}

// Operatory is a treatment room with a dental chair.
type Operatory struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	IsActive bool   `json:"is_active"`
}

// Appointment is a one-hour slot on a dentist's and operatory's agenda.
// Maintenance slots have no patient.
type Appointment struct {
	ID              int       `json:"id"`
	PatientID       *int      `json:"patient_id,omitempty"`
	DentistID       int       `json:"dentist_id"`
	OperatoryID     int       `json:"operatory_id"`
	Date            time.Time `json:"-"`
	StartMinute     int       `json:"-"`
	Status          string    `json:"status"`
	Reason          string    `json:"reason,omitempty"`
	Notes           string    `json:"notes,omitempty"`
	CancelledByRole *int      `json:"cancelled_by_role,omitempty"`
	RescheduleCount int       `json:"reschedule_count"`
	ReminderSent    bool      `json:"reminder_sent"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`

	DateString string `json:"date"`       // YYYY-MM-DD
	StartTime  string `json:"start_time"` // HH:MM

	PatientName   string `json:"patient_name,omitempty"`
	DentistName   string `json:"dentist_name,omitempty"`
	OperatoryName string `json:"operatory_name,omitempty"`
}

// FillDisplay derives the wire fields from the stored date and minute.
func (a *Appointment) FillDisplay() {
	a.DateString = a.Date.Format("2006-01-02")
	a.StartTime = schedule.FormatClock(a.StartMinute)
}

// StartAt returns the exact start instant in the clinic timezone.
func (a *Appointment) StartAt() time.Time {
	return time.Date(a.Date.Year(), a.Date.Month(), a.Date.Day(),
		a.StartMinute/60, a.StartMinute%60, 0, 0, clinicZone)
}

// EndAt returns the end of the one-hour slot.
func (a *Appointment) EndAt() time.Time {
	return a.StartAt().Add(time.Duration(schedule.SlotMinutes) * time.Minute)
}

// IsActive reports whether the slot still occupies the agenda.
func (a *Appointment) IsActive() bool {
	return a.Status == StatusPending || a.Status == StatusConfirmed
}

// BookRequest creates a patient appointment.
type BookRequest struct {
	PatientID   int    `json:"patient_id"`
	DentistID   int    `json:"dentist_id"`
	OperatoryID int    `json:"operatory_id"`
	Date        string `json:"date"`       // YYYY-MM-DD
	StartTime   string `json:"start_time"` // HH:MM, on the hour
	Reason      string `json:"reason"`

	date   time.Time
	minute int
}

// Validate parses the slot fields. now guards against booking in the past.
func (r *BookRequest) Validate(now time.Time) error {
	errs := fielderr.Fields{}

	if r.DentistID <= 0 {
		errs.Add("dentist_id", "Dentist is required.")
	}
	if r.OperatoryID <= 0 {
		errs.Add("operatory_id", "Operatory is required.")
	}

	if r.Date == "" {
		errs.Add("date", "Date is required.")
	} else if d, err := time.ParseInLocation("2006-01-02", r.Date, clinicZone); err != nil {
		errs.Add("date", "Enter a date in YYYY-MM-DD format.")
	} else {
		r.date = d
	}

	if minute, err := schedule.ParseClock(r.StartTime); err != nil {
		errs.Add("start_time", "Enter a time in HH:MM format.")
	} else if minute%60 != 0 {
		errs.Add("start_time", "Appointments must start on the hour.")
	} else {
		r.minute = minute
	}

	if _, bad := errs["start_time"]; !bad && !r.date.IsZero() {
		start := time.Date(r.date.Year(), r.date.Month(), r.date.Day(),
			r.minute/60, 0, 0, 0, clinicZone)
		if start.Before(now) {
			errs.Add("date", "Appointments cannot be booked in the past.")
		}
	}

	r.Reason = strings.TrimSpace(r.Reason)
	return errs.OrNil()
}

// Slot returns the parsed date and minute after a successful Validate.
func (r *BookRequest) Slot() (time.Time, int) {
	return r.date, r.minute
}

// MaintenanceRequest closes an operatory slot for equipment work.
type MaintenanceRequest struct {
	OperatoryID int    `json:"operatory_id"`
	DentistID   int    `json:"dentist_id"` // optional, blocks that agenda too
	Date        string `json:"date"`
	StartTime   string `json:"start_time"`
	Notes       string `json:"notes"`

	date   time.Time
	minute int
}

// Validate parses the slot fields.
func (r *MaintenanceRequest) Validate() error {
	errs := fielderr.Fields{}
	if r.OperatoryID <= 0 {
		errs.Add("operatory_id", "Operatory is required.")
	}
	if d, err := time.ParseInLocation("2006-01-02", r.Date, clinicZone); err != nil {
		errs.Add("date", "Enter a date in YYYY-MM-DD format.")
	} else {
		r.date = d
	}
	if minute, err := schedule.ParseClock(r.StartTime); err != nil {
		errs.Add("start_time", "Enter a time in HH:MM format.")
	} else if minute%60 != 0 {
		errs.Add("start_time", "Maintenance slots start on the hour.")
	} else {
		r.minute = minute
	}
	r.Notes = strings.TrimSpace(r.Notes)
	return errs.OrNil()
}

// Slot returns the parsed date and minute after a successful Validate.
func (r *MaintenanceRequest) Slot() (time.Time, int) {
	return r.date, r.minute
}

// WeekBounds returns the Monday and the following Monday around a date,
// used by the weekly booking limit.
func WeekBounds(date time.Time) (time.Time, time.Time) {
	monday := date.AddDate(0, 0, -int(schedule.WeekdayOf(date)))
	monday = time.Date(monday.Year(), monday.Month(), monday.Day(), 0, 0, 0, 0, date.Location())
	return monday, monday.AddDate(0, 0, 7)
}
