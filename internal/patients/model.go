package patients

import (
	"strings"
	"time"

	"github.com/oralflow/oralflow-api/internal/fielderr"
	"github.com/oralflow/oralflow-api/internal/identity"
	"github.com/oralflow/oralflow-api/internal/users"
)

// AdultAge is the age at which a patient can hold their own account.
const AdultAge = 18

// Patient is the clinical profile attached to a patient user.
type Patient struct {
	ID                    int       `json:"id"`
	UserID                int       `json:"user_id"`
	BirthDate             time.Time `json:"birth_date"`
	Occupation            string    `json:"occupation,omitempty"`
	EmergencyContactName  string    `json:"emergency_contact_name,omitempty"`
	EmergencyContactPhone string    `json:"emergency_contact_phone,omitempty"`
	RepresentativeUserID  *int      `json:"representative_user_id,omitempty"`
	CreatedAt             time.Time `json:"created_at"`
	UpdatedAt             time.Time `json:"updated_at"`

	// User is populated on reads that join the account.
	User *users.User `json:"user,omitempty"`
}

// Age computes full years at the given reference time.
func (p *Patient) Age(now time.Time) int {
	years := now.Year() - p.BirthDate.Year()
	if now.Month() < p.BirthDate.Month() ||
		(now.Month() == p.BirthDate.Month() && now.Day() < p.BirthDate.Day()) {
		years--
	}
	return years
}

// IsMinor reports whether the patient is under the adult age.
func (p *Patient) IsMinor(now time.Time) bool {
	return p.Age(now) < AdultAge
}

// Background holds the medical history questionnaire, one per patient.
type Background struct {
	PatientID         int       `json:"patient_id"`
	Allergies         string    `json:"allergies"`
	MedicalConditions string    `json:"medical_conditions"`
	Medications       string    `json:"medications"`
	Surgeries         string    `json:"surgeries"`
	Notes             string    `json:"notes"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// RegisterRequest creates a user account plus its patient profile.
type RegisterRequest struct {
	users.CreateUserRequest
	BirthDate             string `json:"birth_date"` // YYYY-MM-DD
	Occupation            string `json:"occupation"`
	EmergencyContactName  string `json:"emergency_contact_name"`
	EmergencyContactPhone string `json:"emergency_contact_phone"`
	RepresentativeUserID  *int   `json:"representative_user_id"`

	birthDate time.Time
}

// Normalize prepares both the account and profile fields.
func (r *RegisterRequest) Normalize() {
	r.Role = users.RolePatient
	r.CreateUserRequest.Normalize()
	r.Occupation = strings.TrimSpace(r.Occupation)
	r.EmergencyContactName = strings.TrimSpace(r.EmergencyContactName)
	if p := identity.NormalizePhone(r.EmergencyContactPhone); p != "" {
		r.EmergencyContactPhone = p
	} else {
		r.EmergencyContactPhone = strings.TrimSpace(r.EmergencyContactPhone)
	}
}

// Validate checks profile fields on top of the account validation.
// selfService restricts registration to adults without a representative.
func (r *RegisterRequest) Validate(now time.Time, selfService bool) error {
	errs := fielderr.Fields{}
	if err := r.CreateUserRequest.Validate(); err != nil {
		if fields, ok := err.(fielderr.Fields); ok {
			for k, v := range fields {
				errs.Add(k, v)
			}
		}
	}

	if r.BirthDate == "" {
		errs.Add("birth_date", "Birth date is required.")
	} else if bd, err := time.Parse("2006-01-02", r.BirthDate); err != nil {
		errs.Add("birth_date", "Enter a valid date in YYYY-MM-DD format.")
	} else if bd.After(now) {
		errs.Add("birth_date", "Birth date cannot be in the future.")
	} else {
		r.birthDate = bd
	}

	if !r.birthDate.IsZero() {
		p := Patient{BirthDate: r.birthDate}
		minor := p.IsMinor(now)
		if selfService && minor {
			errs.Add("birth_date", "Minors must be registered at the clinic with a representative.")
		}
		if !selfService && minor && r.RepresentativeUserID == nil {
			errs.Add("representative_user_id", "A representative is required for minors.")
		}
		if !minor && r.RepresentativeUserID != nil {
			errs.Add("representative_user_id", "Adults cannot have a representative.")
		}
	}

	return errs.OrNil()
}

// BirthDateParsed returns the parsed birth date after a successful Validate.
func (r *RegisterRequest) BirthDateParsed() time.Time {
	return r.birthDate
}

// UpdatePatientRequest carries mutable profile fields. Nil means unchanged.
type UpdatePatientRequest struct {
	Occupation            *string `json:"occupation"`
	EmergencyContactName  *string `json:"emergency_contact_name"`
	EmergencyContactPhone *string `json:"emergency_contact_phone"`
}

// Apply merges the request into an existing profile.
func (r *UpdatePatientRequest) Apply(p *Patient) error {
	errs := fielderr.Fields{}
	if r.Occupation != nil {
		p.Occupation = strings.TrimSpace(*r.Occupation)
	}
	if r.EmergencyContactName != nil {
		p.EmergencyContactName = strings.TrimSpace(*r.EmergencyContactName)
	}
	if r.EmergencyContactPhone != nil {
		raw := strings.TrimSpace(*r.EmergencyContactPhone)
		if raw == "" {
			p.EmergencyContactPhone = ""
		} else if phone := identity.NormalizePhone(raw); phone != "" {
			p.EmergencyContactPhone = phone
		} else {
			errs.Add("emergency_contact_phone", "Enter a valid Ecuadorian phone number.")
		}
	}
	return errs.OrNil()
}
