package users

import (
	"errors"
	"strings"
	"testing"

	"github.com/oralflow/oralflow-api/internal/fielderr"
)

func validCreateRequest() *CreateUserRequest {
	return &CreateUserRequest{
		Cedula:    "1712345675",
		Email:     "ana@example.com",
		Password:  "s3cret-pass",
		FirstName: "Ana",
		LastName:  "Mora",
		Phone:     "0991234567",
		Role:      RolePatient,
	}
}

func fieldsOf(t *testing.T, err error) fielderr.Fields {
	t.Helper()
	var fields fielderr.Fields
	if !errors.As(err, &fields) {
		t.Fatalf("expected fielderr.Fields, got %T: %v", err, err)
	}
	return fields
}

func TestCreateUserRequestValid(t *testing.T) {
	req := validCreateRequest()
	req.Normalize()
	if err := req.Validate(); err != nil {
		t.Fatalf("valid request rejected: %v", err)
	}
	if req.Phone != "+593991234567" {
		t.Errorf("phone not normalized: %q", req.Phone)
	}
}

func TestCreateUserRequestFieldErrors(t *testing.T) {
	req := &CreateUserRequest{
		Cedula:   "1712345676", // bad check digit
		Email:    "not-an-email",
		Password: "short",
		Role:     9,
	}
	req.Normalize()
	fields := fieldsOf(t, req.Validate())

	for _, field := range []string{"cedula", "email", "password", "first_name", "last_name", "role"} {
		if _, ok := fields[field]; !ok {
			t.Errorf("missing error for %q: %v", field, fields)
		}
	}
}

func TestCreateUserRequestCedulaMessages(t *testing.T) {
	cases := []struct {
		cedula string
		want   string
	}{
		{"123", "exactly 10 digits"},
		{"9912345675", "province"},
		{"1762345675", "natural person"},
		{"1712345676", "check digit"},
	}
	for _, tc := range cases {
		req := validCreateRequest()
		req.Cedula = tc.cedula
		fields := fieldsOf(t, req.Validate())
		if msg := fields["cedula"]; !strings.Contains(strings.ToLower(msg), tc.want) {
			t.Errorf("cedula %q: message %q does not mention %q", tc.cedula, msg, tc.want)
		}
	}
}

func TestNormalizePlaceholderEmail(t *testing.T) {
	req := validCreateRequest()
	req.Email = ""
	req.Normalize()

	if req.Email != "1712345675@"+PlaceholderEmailDomain {
		t.Fatalf("placeholder email = %q", req.Email)
	}
	if err := req.Validate(); err != nil {
		t.Fatalf("placeholder email rejected: %v", err)
	}

	u := &User{Email: req.Email}
	if !u.HasPlaceholderEmail() {
		t.Error("HasPlaceholderEmail() = false for placeholder address")
	}
}

func TestNormalizeNoPlaceholderForStaff(t *testing.T) {
	req := validCreateRequest()
	req.Email = ""
	req.Role = RoleDentist
	req.Normalize()

	if req.Email != "" {
		t.Fatalf("staff account got placeholder email %q", req.Email)
	}
	fields := fieldsOf(t, req.Validate())
	if _, ok := fields["email"]; !ok {
		t.Error("staff account without email should fail validation")
	}
}

func TestUpdateUserRequestApply(t *testing.T) {
	u := &User{
		ID:        1,
		Email:     "old@example.com",
		FirstName: "Ana",
		LastName:  "Mora",
		Phone:     "+593991234567",
		IsActive:  true,
	}

	newEmail := "new@example.com"
	newPhone := "099 888 7766"
	inactive := false
	req := &UpdateUserRequest{Email: &newEmail, Phone: &newPhone, IsActive: &inactive}

	if err := req.Apply(u); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if u.Email != "new@example.com" || u.Phone != "+593998887766" || u.IsActive {
		t.Errorf("apply result = %+v", u)
	}
	if u.FirstName != "Ana" {
		t.Error("unset fields must not change")
	}

	bad := "not-an-email"
	if err := (&UpdateUserRequest{Email: &bad}).Apply(u); err == nil {
		t.Error("invalid email accepted")
	}
}

func TestFullName(t *testing.T) {
	u := &User{FirstName: "Ana", LastName: "Mora"}
	if got := u.FullName(); got != "Ana Mora" {
		t.Errorf("FullName() = %q", got)
	}
}
