package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

const testSecret = "test-secret"

func TestTokenRoundTrip(t *testing.T) {
	token, err := IssueToken(testSecret, 42, RoleDentist, time.Minute)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	claims, err := ParseToken(testSecret, token)
	if err != nil {
		t.Fatalf("ParseToken: %v", err)
	}
	if claims.UserID != 42 || claims.Role != RoleDentist {
		t.Fatalf("claims = %+v, want uid=42 role=%d", claims, RoleDentist)
	}
}

func TestParseTokenRejectsWrongSecret(t *testing.T) {
	token, err := IssueToken(testSecret, 1, RoleAdmin, time.Minute)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	if _, err := ParseToken("another-secret", token); err == nil {
		t.Fatal("expected signature error with wrong secret")
	}
}

func TestParseTokenRejectsExpired(t *testing.T) {
	token, err := IssueToken(testSecret, 1, RolePatient, -time.Minute)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	if _, err := ParseToken(testSecret, token); err == nil {
		t.Fatal("expected expiry error")
	}
}

func TestAuthMiddleware(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := ClaimsFromContext(r.Context())
		if !ok {
			t.Error("claims missing from context inside handler")
		} else if claims.UserID != 7 {
			t.Errorf("claims.UserID = %d, want 7", claims.UserID)
		}
		w.WriteHeader(http.StatusNoContent)
	})
	handler := Auth(testSecret)(next)

	token, err := IssueToken(testSecret, 7, RolePatient, time.Minute)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"valid token", "Bearer " + token, http.StatusNoContent},
		{"missing header", "", http.StatusUnauthorized},
		{"not bearer", "Basic abc", http.StatusUnauthorized},
		{"garbage token", "Bearer not.a.jwt", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestAuthMiddlewareEmptySecret(t *testing.T) {
	handler := Auth("")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not run with auth disabled")
	}))
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestRequireRoles(t *testing.T) {
	handler := RequireRoles(RoleAdmin, RoleClinicAdmin)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name   string
		claims *UserClaims
		want   int
	}{
		{"allowed role", &UserClaims{UserID: 1, Role: RoleAdmin}, http.StatusNoContent},
		{"second allowed role", &UserClaims{UserID: 2, Role: RoleClinicAdmin}, http.StatusNoContent},
		{"forbidden role", &UserClaims{UserID: 3, Role: RolePatient}, http.StatusForbidden},
		{"unauthenticated", nil, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/staff", nil)
			if tt.claims != nil {
				req = req.WithContext(ContextWithClaims(req.Context(), tt.claims))
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestIsStaff(t *testing.T) {
	for role, want := range map[int]bool{
		RoleAdmin:       true,
		RoleDentist:     true,
		RoleClinicAdmin: true,
		RolePatient:     false,
	} {
		if got := IsStaff(role); got != want {
			t.Errorf("IsStaff(%d) = %v, want %v", role, got, want)
		}
	}
}
