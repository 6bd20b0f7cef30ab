package users

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/oralflow/oralflow-api/internal/http/middleware"
	"github.com/oralflow/oralflow-api/pkg/logging"
)

func newTestHandler(t *testing.T) (*Handler, *Service, *memRepo) {
	t.Helper()
	svc, repo, _ := newTestService(t)
	return NewHandler(svc, repo, logging.Default()), svc, repo
}

func TestHandlerLogin(t *testing.T) {
	h, svc, _ := newTestHandler(t)
	registerTestUser(t, svc)

	body := `{"email":"ana@example.com","password":"s3cret-pass"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.Login(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var pair TokenPair
	if err := json.NewDecoder(rec.Body).Decode(&pair); err != nil {
		t.Fatal(err)
	}
	if pair.AccessToken == "" || pair.User == nil {
		t.Errorf("incomplete pair: %+v", pair)
	}
	if strings.Contains(rec.Body.String(), "password_hash") {
		t.Error("response leaks password hash")
	}
}

func TestHandlerLoginBadCredentials(t *testing.T) {
	h, svc, _ := newTestHandler(t)
	registerTestUser(t, svc)

	body := `{"email":"ana@example.com","password":"wrong"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.Login(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestHandlerCreateUserValidation(t *testing.T) {
	h, _, _ := newTestHandler(t)

	body := `{"cedula":"1712345676","email":"bad","password":"x","role":2}`
	req := httptest.NewRequest(http.MethodPost, "/users", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.CreateUser(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	var fields map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&fields); err != nil {
		t.Fatal(err)
	}
	for _, field := range []string{"cedula", "email", "password"} {
		if _, ok := fields[field]; !ok {
			t.Errorf("missing field error %q in %v", field, fields)
		}
	}
}

func TestHandlerCreateUserDuplicate(t *testing.T) {
	h, svc, _ := newTestHandler(t)
	registerTestUser(t, svc)

	body := `{"cedula":"1712345675","email":"other@example.com","password":"s3cret-pass","first_name":"Eva","last_name":"Paz","role":2}`
	req := httptest.NewRequest(http.MethodPost, "/users", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.CreateUser(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "cedula") {
		t.Errorf("conflict body should name the cedula field: %s", rec.Body.String())
	}
}

func TestHandlerMe(t *testing.T) {
	h, svc, _ := newTestHandler(t)
	u := registerTestUser(t, svc)

	req := httptest.NewRequest(http.MethodGet, "/users/me", nil)
	req = req.WithContext(middleware.ContextWithClaims(req.Context(),
		&middleware.UserClaims{UserID: u.ID, Role: u.Role}))
	rec := httptest.NewRecorder()
	h.Me(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var got User
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	if got.ID != u.ID || got.Email != u.Email {
		t.Errorf("me = %+v", got)
	}
}

func TestHandlerMeUnauthenticated(t *testing.T) {
	h, _, _ := newTestHandler(t)
	req := httptest.NewRequest(http.MethodGet, "/users/me", nil)
	rec := httptest.NewRecorder()
	h.Me(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}
