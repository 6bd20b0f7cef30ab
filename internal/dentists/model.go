package dentists

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/oralflow/oralflow-api/internal/fielderr"
	"github.com/oralflow/oralflow-api/internal/schedule"
	"github.com/oralflow/oralflow-api/internal/users"
)

// Specialty is a dental discipline offered by the clinic.
type Specialty struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Dentist is the professional profile attached to a dentist user.
type Dentist struct {
	ID            int       `json:"id"`
	UserID        int       `json:"user_id"`
	SpecialtyID   int       `json:"specialty_id"`
	LicenseNumber string    `json:"license_number"`
	Bio           string    `json:"bio,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`

	User      *users.User `json:"user,omitempty"`
	Specialty *Specialty  `json:"specialty,omitempty"`
}

// CreateDentistRequest creates a dentist account plus its profile.
type CreateDentistRequest struct {
	users.CreateUserRequest
	SpecialtyID   int    `json:"specialty_id"`
	LicenseNumber string `json:"license_number"`
	Bio           string `json:"bio"`
}

// Normalize prepares the account and profile fields.
func (r *CreateDentistRequest) Normalize() {
	r.Role = users.RoleDentist
	r.CreateUserRequest.Normalize()
	r.LicenseNumber = strings.TrimSpace(r.LicenseNumber)
	r.Bio = strings.TrimSpace(r.Bio)
}

// Validate checks profile fields on top of the account validation.
func (r *CreateDentistRequest) Validate() error {
	errs := fielderr.Fields{}
	if err := r.CreateUserRequest.Validate(); err != nil {
		if fields, ok := err.(fielderr.Fields); ok {
			for k, v := range fields {
				errs.Add(k, v)
			}
		}
	}
	if r.SpecialtyID <= 0 {
		errs.Add("specialty_id", "Specialty is required.")
	}
	if r.LicenseNumber == "" {
		errs.Add("license_number", "License number is required.")
	}
	return errs.OrNil()
}

// ScheduleEntry is one recurring working window of a dentist.
type ScheduleEntry struct {
	ID          int              `json:"id"`
	DentistID   int              `json:"dentist_id"`
	Weekday     schedule.Weekday `json:"weekday"`
	StartMinute int              `json:"-"`
	EndMinute   int              `json:"-"`
	IsActive    bool             `json:"is_active"`

	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

// FillClocks derives the display times from the stored minutes.
func (e *ScheduleEntry) FillClocks() {
	e.StartTime = schedule.FormatClock(e.StartMinute)
	e.EndTime = schedule.FormatClock(e.EndMinute)
}

// Window returns the entry as a bookable window.
func (e *ScheduleEntry) Window() schedule.Window {
	return schedule.Window{Start: e.StartMinute, End: e.EndMinute}
}

// CreateScheduleRequest adds a working window to a dentist.
type CreateScheduleRequest struct {
	Weekday   string `json:"weekday"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

// Validate parses and checks the window against clinic rules, returning
// the parsed entry on success.
func (r *CreateScheduleRequest) Validate(dentistID int) (*ScheduleEntry, error) {
	errs := fielderr.Fields{}

	weekday, err := schedule.ParseWeekday(r.Weekday)
	if err != nil {
		errs.Add("weekday", "Enter a weekday between 0 (Monday) and 6 (Sunday).")
	}
	start, err := schedule.ParseClock(r.StartTime)
	if err != nil {
		errs.Add("start_time", "Enter a time in HH:MM format.")
	}
	end, err := schedule.ParseClock(r.EndTime)
	if err != nil {
		errs.Add("end_time", "Enter a time in HH:MM format.")
	}
	if len(errs) > 0 {
		return nil, errs
	}

	if err := schedule.CheckWindowMinutes(start, end); err != nil {
		return nil, fielderr.New("start_time", err.Error())
	}

	entry := &ScheduleEntry{
		DentistID:   dentistID,
		Weekday:     weekday,
		StartMinute: start,
		EndMinute:   end,
		IsActive:    true,
	}
	entry.FillClocks()
	return entry, nil
}

// DayBlock closes the agenda for one date, either clinic-wide or for a
// single dentist. Blocks created together share a group for bulk removal.
type DayBlock struct {
	ID        int       `json:"id"`
	GroupID   uuid.UUID `json:"group_id"`
	DentistID *int      `json:"dentist_id,omitempty"`
	Date      time.Time `json:"date"`
	Reason    string    `json:"reason"`
	Annual    bool      `json:"annual"`
	CreatedBy int       `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
}

// AppliesTo reports whether the block closes the given date for the given
// dentist. Annual blocks recur on the same month and day every year.
func (b *DayBlock) AppliesTo(date time.Time, dentistID int) bool {
	if b.DentistID != nil && *b.DentistID != dentistID {
		return false
	}
	if b.Annual {
		return b.Date.Month() == date.Month() && b.Date.Day() == date.Day()
	}
	return b.Date.Year() == date.Year() && b.Date.YearDay() == date.YearDay()
}

// CreateBlockRequest closes one or more dates at once.
type CreateBlockRequest struct {
	Dates     []string `json:"dates"` // YYYY-MM-DD
	DentistID *int     `json:"dentist_id"`
	Reason    string   `json:"reason"`
	Annual    bool     `json:"annual"`

	parsed []time.Time
}

// Validate parses the dates and requires a reason.
func (r *CreateBlockRequest) Validate() error {
	errs := fielderr.Fields{}
	if len(r.Dates) == 0 {
		errs.Add("dates", "At least one date is required.")
	}
	r.parsed = r.parsed[:0]
	for _, raw := range r.Dates {
		d, err := time.Parse("2006-01-02", raw)
		if err != nil {
			errs.Add("dates", "Enter dates in YYYY-MM-DD format.")
			break
		}
		r.parsed = append(r.parsed, d)
	}
	if strings.TrimSpace(r.Reason) == "" {
		errs.Add("reason", "A reason is required.")
	}
	return errs.OrNil()
}

// ParsedDates returns the dates after a successful Validate.
func (r *CreateBlockRequest) ParsedDates() []time.Time {
	return r.parsed
}
