package users

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/oralflow/oralflow-api/internal/notify"
	"github.com/oralflow/oralflow-api/pkg/logging"
)

// memRepo is an in-memory Repository for service tests.
type memRepo struct {
	nextID int
	byID   map[int]*User
}

func newMemRepo() *memRepo {
	return &memRepo{nextID: 1, byID: map[int]*User{}}
}

func (m *memRepo) Create(_ context.Context, req *CreateUserRequest, hash string) (*User, error) {
	for _, u := range m.byID {
		if u.Cedula == req.Cedula {
			return nil, ErrDuplicateCedula
		}
		if u.Email == req.Email {
			return nil, ErrDuplicateEmail
		}
	}
	u := &User{
		ID:           m.nextID,
		Cedula:       req.Cedula,
		Email:        req.Email,
		PasswordHash: hash,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Phone:        req.Phone,
		Role:         req.Role,
		IsActive:     true,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	m.byID[u.ID] = u
	m.nextID++
	return u, nil
}

func (m *memRepo) GetByID(_ context.Context, id int) (*User, error) {
	if u, ok := m.byID[id]; ok {
		return u, nil
	}
	return nil, ErrUserNotFound
}

func (m *memRepo) GetByEmail(_ context.Context, email string) (*User, error) {
	for _, u := range m.byID {
		if u.Email == strings.ToLower(email) {
			return u, nil
		}
	}
	return nil, ErrUserNotFound
}

func (m *memRepo) GetByCedula(_ context.Context, cedula string) (*User, error) {
	for _, u := range m.byID {
		if u.Cedula == cedula {
			return u, nil
		}
	}
	return nil, ErrUserNotFound
}

func (m *memRepo) Update(_ context.Context, u *User) error {
	if _, ok := m.byID[u.ID]; !ok {
		return ErrUserNotFound
	}
	m.byID[u.ID] = u
	return nil
}

func (m *memRepo) UpdatePassword(_ context.Context, id int, hash string) error {
	u, ok := m.byID[id]
	if !ok {
		return ErrUserNotFound
	}
	u.PasswordHash = hash
	return nil
}

func (m *memRepo) List(_ context.Context, _ ListFilter) ([]*User, error) {
	out := make([]*User, 0, len(m.byID))
	for _, u := range m.byID {
		out = append(out, u)
	}
	return out, nil
}

// captureMailer records sent emails.
type captureMailer struct {
	sent []notify.EmailMessage
}

func (c *captureMailer) Send(_ context.Context, msg notify.EmailMessage) error {
	c.sent = append(c.sent, msg)
	return nil
}

func newTestService(t *testing.T) (*Service, *memRepo, *captureMailer) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	repo := newMemRepo()
	mailer := &captureMailer{}
	cfg := AuthConfig{
		JWTSecret:       "test-secret",
		AccessTokenTTL:  30 * time.Minute,
		RefreshTokenTTL: 24 * time.Hour,
		ResetTokenTTL:   30 * time.Minute,
		PublicBaseURL:   "https://app.oralflow.ec",
	}
	return NewService(repo, rdb, mailer, cfg, logging.Default()), repo, mailer
}

func registerTestUser(t *testing.T, svc *Service) *User {
	t.Helper()
	u, err := svc.Register(context.Background(), validCreateRequest())
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	return u
}

func TestRegisterHashesPassword(t *testing.T) {
	svc, _, _ := newTestService(t)
	u := registerTestUser(t, svc)

	if u.PasswordHash == "s3cret-pass" || u.PasswordHash == "" {
		t.Fatal("password stored unhashed")
	}
	if !CheckPassword(u.PasswordHash, "s3cret-pass") {
		t.Error("stored hash does not verify")
	}
}

func TestLogin(t *testing.T) {
	svc, _, _ := newTestService(t)
	u := registerTestUser(t, svc)
	ctx := context.Background()

	pair, err := svc.Login(ctx, u.Email, "s3cret-pass")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatal("missing tokens")
	}
	if pair.User.ID != u.ID {
		t.Errorf("pair.User.ID = %d, want %d", pair.User.ID, u.ID)
	}

	if _, err := svc.Login(ctx, u.Email, "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong password: err = %v", err)
	}
	if _, err := svc.Login(ctx, "nobody@example.com", "whatever"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("unknown email: err = %v", err)
	}
}

func TestLoginInactiveAccount(t *testing.T) {
	svc, repo, _ := newTestService(t)
	u := registerTestUser(t, svc)
	repo.byID[u.ID].IsActive = false

	if _, err := svc.Login(context.Background(), u.Email, "s3cret-pass"); !errors.Is(err, ErrInactiveAccount) {
		t.Errorf("err = %v, want ErrInactiveAccount", err)
	}
}

func TestRefresh(t *testing.T) {
	svc, _, _ := newTestService(t)
	u := registerTestUser(t, svc)
	ctx := context.Background()

	pair, err := svc.Login(ctx, u.Email, "s3cret-pass")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	renewed, err := svc.Refresh(ctx, pair.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if renewed.AccessToken == "" || renewed.User.ID != u.ID {
		t.Error("refresh did not issue a usable pair")
	}

	if _, err := svc.Refresh(ctx, "not-a-token"); err == nil {
		t.Error("garbage refresh token accepted")
	}
}

func TestPasswordResetFlow(t *testing.T) {
	svc, _, mailer := newTestService(t)
	u := registerTestUser(t, svc)
	ctx := context.Background()

	if err := svc.RequestPasswordReset(ctx, u.Email); err != nil {
		t.Fatalf("RequestPasswordReset: %v", err)
	}
	if len(mailer.sent) != 1 {
		t.Fatalf("sent %d emails, want 1", len(mailer.sent))
	}

	// Pull the token out of the emailed link.
	body := mailer.sent[0].Body
	idx := strings.Index(body, "token=")
	if idx < 0 {
		t.Fatalf("no token in email body: %q", body)
	}
	token := strings.Fields(body[idx+len("token="):])[0]

	if err := svc.ResetPassword(ctx, token, "new-password-9"); err != nil {
		t.Fatalf("ResetPassword: %v", err)
	}
	if _, err := svc.Login(ctx, u.Email, "new-password-9"); err != nil {
		t.Errorf("login with new password: %v", err)
	}
	if _, err := svc.Login(ctx, u.Email, "s3cret-pass"); err == nil {
		t.Error("old password still accepted")
	}

	// Token is single use.
	if err := svc.ResetPassword(ctx, token, "another-password"); !errors.Is(err, ErrResetTokenInvalid) {
		t.Errorf("reused token: err = %v", err)
	}
}

func TestPasswordResetUnknownEmailSilent(t *testing.T) {
	svc, _, mailer := newTestService(t)

	if err := svc.RequestPasswordReset(context.Background(), "ghost@example.com"); err != nil {
		t.Fatalf("unknown email should not error: %v", err)
	}
	if len(mailer.sent) != 0 {
		t.Error("no email should be sent for unknown addresses")
	}
}

func TestPasswordResetSkipsPlaceholderEmail(t *testing.T) {
	svc, _, mailer := newTestService(t)
	req := validCreateRequest()
	req.Email = ""
	u, err := svc.Register(context.Background(), req)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	if err := svc.RequestPasswordReset(context.Background(), u.Email); err != nil {
		t.Fatalf("RequestPasswordReset: %v", err)
	}
	if len(mailer.sent) != 0 {
		t.Error("placeholder address must never receive email")
	}
}

func TestResetPasswordTooShort(t *testing.T) {
	svc, _, _ := newTestService(t)
	if err := svc.ResetPassword(context.Background(), "sometoken", "short"); err == nil {
		t.Error("short password accepted")
	}
}
