package patients

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/oralflow/oralflow-api/internal/users"
	"github.com/oralflow/oralflow-api/pkg/logging"
)

type fakeUsersRepo struct {
	nextID int
	byID   map[int]*users.User
}

func newFakeUsersRepo() *fakeUsersRepo {
	return &fakeUsersRepo{nextID: 1, byID: map[int]*users.User{}}
}

func (f *fakeUsersRepo) Create(_ context.Context, req *users.CreateUserRequest, hash string) (*users.User, error) {
	for _, u := range f.byID {
		if u.Cedula == req.Cedula {
			return nil, users.ErrDuplicateCedula
		}
	}
	u := &users.User{
		ID: f.nextID, Cedula: req.Cedula, Email: req.Email, PasswordHash: hash,
		FirstName: req.FirstName, LastName: req.LastName, Phone: req.Phone,
		Role: req.Role, IsActive: true,
	}
	f.byID[u.ID] = u
	f.nextID++
	return u, nil
}

func (f *fakeUsersRepo) GetByID(_ context.Context, id int) (*users.User, error) {
	if u, ok := f.byID[id]; ok {
		return u, nil
	}
	return nil, users.ErrUserNotFound
}

func (f *fakeUsersRepo) GetByEmail(_ context.Context, _ string) (*users.User, error) {
	return nil, users.ErrUserNotFound
}

func (f *fakeUsersRepo) GetByCedula(_ context.Context, _ string) (*users.User, error) {
	return nil, users.ErrUserNotFound
}

func (f *fakeUsersRepo) Update(_ context.Context, _ *users.User) error { return nil }

func (f *fakeUsersRepo) UpdatePassword(_ context.Context, _ int, _ string) error { return nil }

func (f *fakeUsersRepo) List(_ context.Context, _ users.ListFilter) ([]*users.User, error) {
	return nil, nil
}

type fakePatientsRepo struct {
	nextID      int
	byID        map[int]*Patient
	backgrounds map[int]*Background
}

func newFakePatientsRepo() *fakePatientsRepo {
	return &fakePatientsRepo{nextID: 1, byID: map[int]*Patient{}, backgrounds: map[int]*Background{}}
}

func (f *fakePatientsRepo) Create(_ context.Context, p *Patient) (*Patient, error) {
	p.ID = f.nextID
	p.CreatedAt = time.Now()
	p.UpdatedAt = p.CreatedAt
	f.byID[p.ID] = p
	f.nextID++
	return p, nil
}

func (f *fakePatientsRepo) GetByID(_ context.Context, id int) (*Patient, error) {
	if p, ok := f.byID[id]; ok {
		return p, nil
	}
	return nil, ErrPatientNotFound
}

func (f *fakePatientsRepo) GetByUserID(_ context.Context, userID int) (*Patient, error) {
	for _, p := range f.byID {
		if p.UserID == userID {
			return p, nil
		}
	}
	return nil, ErrPatientNotFound
}

func (f *fakePatientsRepo) Update(_ context.Context, p *Patient) error {
	if _, ok := f.byID[p.ID]; !ok {
		return ErrPatientNotFound
	}
	f.byID[p.ID] = p
	return nil
}

func (f *fakePatientsRepo) List(_ context.Context, _ ListFilter) ([]*Patient, error) {
	out := make([]*Patient, 0, len(f.byID))
	for _, p := range f.byID {
		out = append(out, p)
	}
	return out, nil
}

func (f *fakePatientsRepo) GetBackground(_ context.Context, patientID int) (*Background, error) {
	if b, ok := f.backgrounds[patientID]; ok {
		return b, nil
	}
	return nil, ErrBackgroundNotFound
}

func (f *fakePatientsRepo) UpsertBackground(_ context.Context, b *Background) error {
	f.backgrounds[b.PatientID] = b
	return nil
}

func newTestPatientsService(t *testing.T) (*Service, *fakeUsersRepo, *fakePatientsRepo) {
	t.Helper()
	usersRepo := newFakeUsersRepo()
	usersSvc := users.NewService(usersRepo, nil, nil, users.AuthConfig{JWTSecret: "test"}, logging.Default())
	repo := newFakePatientsRepo()
	svc := NewService(usersSvc, usersRepo, repo, logging.Default())
	svc.now = func() time.Time { return now }
	return svc, usersRepo, repo
}

func TestServiceRegisterAdult(t *testing.T) {
	svc, _, _ := newTestPatientsService(t)

	p, err := svc.Register(context.Background(), validRegisterRequest(), true)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if p.ID == 0 || p.User == nil || p.User.Role != users.RolePatient {
		t.Errorf("registered patient = %+v", p)
	}
}

func TestServiceRegisterMinorWithRepresentative(t *testing.T) {
	svc, _, _ := newTestPatientsService(t)
	ctx := context.Background()

	// Representative registers first as an adult patient.
	rep, err := svc.Register(ctx, validRegisterRequest(), true)
	if err != nil {
		t.Fatalf("register representative: %v", err)
	}

	req := validRegisterRequest()
	req.Cedula = "0926687856"
	req.Email = ""
	req.FirstName = "Nino"
	req.BirthDate = "2015-03-10"
	req.RepresentativeUserID = &rep.UserID

	minor, err := svc.Register(ctx, req, false)
	if err != nil {
		t.Fatalf("register minor: %v", err)
	}
	if minor.RepresentativeUserID == nil || *minor.RepresentativeUserID != rep.UserID {
		t.Errorf("representative not stored: %+v", minor)
	}
	if minor.User == nil || !minor.User.HasPlaceholderEmail() {
		t.Error("minor without email should get a placeholder address")
	}
}

func TestServiceRegisterUnknownRepresentative(t *testing.T) {
	svc, _, _ := newTestPatientsService(t)

	ghost := 99
	req := validRegisterRequest()
	req.Email = ""
	req.BirthDate = "2015-03-10"
	req.RepresentativeUserID = &ghost

	if _, err := svc.Register(context.Background(), req, false); !errors.Is(err, ErrRepresentativeNotFound) {
		t.Errorf("err = %v, want ErrRepresentativeNotFound", err)
	}
}

func TestNotificationTarget(t *testing.T) {
	svc, _, _ := newTestPatientsService(t)
	ctx := context.Background()

	adult, err := svc.Register(ctx, validRegisterRequest(), true)
	if err != nil {
		t.Fatalf("register adult: %v", err)
	}
	email, name, err := svc.NotificationTarget(ctx, adult.ID)
	if err != nil {
		t.Fatalf("NotificationTarget: %v", err)
	}
	if email != "ana@example.com" || name == "" {
		t.Errorf("adult target = %q %q", email, name)
	}

	req := validRegisterRequest()
	req.Cedula = "0926687856"
	req.Email = ""
	req.BirthDate = "2015-03-10"
	req.RepresentativeUserID = &adult.UserID
	minor, err := svc.Register(ctx, req, false)
	if err != nil {
		t.Fatalf("register minor: %v", err)
	}

	email, _, err = svc.NotificationTarget(ctx, minor.ID)
	if err != nil {
		t.Fatalf("NotificationTarget minor: %v", err)
	}
	if email != "ana@example.com" {
		t.Errorf("minor target should be representative email, got %q", email)
	}
}
