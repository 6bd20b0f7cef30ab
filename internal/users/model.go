package users

import (
	"net/mail"
	"strings"
	"time"

	"github.com/oralflow/oralflow-api/internal/fielderr"
	"github.com/oralflow/oralflow-api/internal/identity"
)

// Role identifiers. These match the values embedded in JWT claims.
const (
	RoleAdmin       = 1
	RolePatient     = 2
	RoleDentist     = 3
	RoleClinicAdmin = 4
)

// PlaceholderEmailDomain is used for accounts created without an email,
// such as minor patients managed by a representative.
const PlaceholderEmailDomain = "placeholder.oralflow.ec"

// User is an account in the system. The password hash never leaves the
// backend.
type User struct {
	ID           int       `json:"id"`
	Cedula       string    `json:"cedula"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	Phone        string    `json:"phone"`
	Role         int       `json:"role"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// FullName joins first and last name for display and email templates.
func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// HasPlaceholderEmail reports whether the account was created without a
// real email address.
func (u *User) HasPlaceholderEmail() bool {
	return strings.HasSuffix(u.Email, "@"+PlaceholderEmailDomain)
}

// CreateUserRequest carries the fields for registering an account.
type CreateUserRequest struct {
	Cedula    string `json:"cedula"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
	Role      int    `json:"role"`
}

// Normalize trims whitespace and canonicalizes the phone number before
// validation. An empty email on a patient account gets a placeholder so
// the unique constraint still holds.
func (r *CreateUserRequest) Normalize() {
	r.Cedula = strings.TrimSpace(r.Cedula)
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	r.FirstName = strings.TrimSpace(r.FirstName)
	r.LastName = strings.TrimSpace(r.LastName)
	if p := identity.NormalizePhone(r.Phone); p != "" {
		r.Phone = p
	} else {
		r.Phone = strings.TrimSpace(r.Phone)
	}
	if r.Email == "" && r.Role == RolePatient && r.Cedula != "" {
		r.Email = r.Cedula + "@" + PlaceholderEmailDomain
	}
}

// Validate checks the request field by field and returns every failure
// at once.
func (r *CreateUserRequest) Validate() error {
	errs := fielderr.Fields{}

	if err := identity.ValidateCedula(r.Cedula); err != nil {
		errs.Add("cedula", cedulaMessage(err))
	}
	if r.Email == "" {
		errs.Add("email", "Email is required.")
	} else if _, err := mail.ParseAddress(r.Email); err != nil {
		errs.Add("email", "Enter a valid email address.")
	}
	if len(r.Password) < 8 {
		errs.Add("password", "Password must be at least 8 characters long.")
	}
	if r.FirstName == "" {
		errs.Add("first_name", "First name is required.")
	}
	if r.LastName == "" {
		errs.Add("last_name", "Last name is required.")
	}
	if r.Phone != "" && identity.NormalizePhone(r.Phone) == "" {
		errs.Add("phone", "Enter a valid Ecuadorian phone number.")
	}
	if r.Role < RoleAdmin || r.Role > RoleClinicAdmin {
		errs.Add("role", "Unknown role.")
	}

	return errs.OrNil()
}

func cedulaMessage(err error) string {
	switch err {
	case identity.ErrCedulaLength:
		return "The ID number must have exactly 10 digits."
	case identity.ErrCedulaProvince:
		return "The ID number has an invalid province code."
	case identity.ErrCedulaThirdDigit:
		return "The ID number is not a natural person's ID."
	case identity.ErrCedulaChecksum:
		return "The ID number check digit does not match."
	default:
		return "Enter a valid ID number."
	}
}

// UpdateUserRequest carries the mutable profile fields. Nil pointers mean
// "leave unchanged".
type UpdateUserRequest struct {
	Email     *string `json:"email"`
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Phone     *string `json:"phone"`
	IsActive  *bool   `json:"is_active"`
}

// Apply merges the request into an existing user and validates the result.
func (r *UpdateUserRequest) Apply(u *User) error {
	errs := fielderr.Fields{}

	if r.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*r.Email))
		if email == "" {
			errs.Add("email", "Email is required.")
		} else if _, err := mail.ParseAddress(email); err != nil {
			errs.Add("email", "Enter a valid email address.")
		} else {
			u.Email = email
		}
	}
	if r.FirstName != nil {
		if name := strings.TrimSpace(*r.FirstName); name == "" {
			errs.Add("first_name", "First name is required.")
		} else {
			u.FirstName = name
		}
	}
	if r.LastName != nil {
		if name := strings.TrimSpace(*r.LastName); name == "" {
			errs.Add("last_name", "Last name is required.")
		} else {
			u.LastName = name
		}
	}
	if r.Phone != nil {
		phone := identity.NormalizePhone(*r.Phone)
		if phone == "" && strings.TrimSpace(*r.Phone) != "" {
			errs.Add("phone", "Enter a valid Ecuadorian phone number.")
		} else {
			u.Phone = phone
		}
	}
	if r.IsActive != nil {
		u.IsActive = *r.IsActive
	}

	return errs.OrNil()
}
