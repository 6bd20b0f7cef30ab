package patients

import (
	"context"
	"errors"
	"time"

	"github.com/oralflow/oralflow-api/internal/users"
	"github.com/oralflow/oralflow-api/pkg/logging"
)

// Service creates patient profiles together with their accounts.
type Service struct {
	users     *users.Service
	usersRepo users.Repository
	repo      Repository
	logger    *logging.Logger
	now       func() time.Time
}

// NewService wires the patients service.
func NewService(usersSvc *users.Service, usersRepo users.Repository, repo Repository, logger *logging.Logger) *Service {
	return &Service{
		users:     usersSvc,
		usersRepo: usersRepo,
		repo:      repo,
		logger:    logger,
		now:       time.Now,
	}
}

// Register creates the account and profile in one step. selfService
// restricts the request to adults, as used by the public signup endpoint.
func (s *Service) Register(ctx context.Context, req *RegisterRequest, selfService bool) (*Patient, error) {
	req.Normalize()
	if err := req.Validate(s.now(), selfService); err != nil {
		return nil, err
	}

	if req.RepresentativeUserID != nil {
		rep, err := s.usersRepo.GetByID(ctx, *req.RepresentativeUserID)
		if err != nil {
			if errors.Is(err, users.ErrUserNotFound) {
				return nil, ErrRepresentativeNotFound
			}
			return nil, err
		}
		if rep.Role != users.RolePatient || !rep.IsActive {
			return nil, ErrRepresentativeNotFound
		}
	}

	account, err := s.users.Register(ctx, &req.CreateUserRequest)
	if err != nil {
		return nil, err
	}

	p := &Patient{
		UserID:                account.ID,
		BirthDate:             req.BirthDateParsed(),
		Occupation:            req.Occupation,
		EmergencyContactName:  req.EmergencyContactName,
		EmergencyContactPhone: req.EmergencyContactPhone,
		RepresentativeUserID:  req.RepresentativeUserID,
	}
	created, err := s.repo.Create(ctx, p)
	if err != nil {
		return nil, err
	}
	created.User = account

	s.logger.Info("patient registered", "patient_id", created.ID, "user_id", account.ID, "self_service", selfService)
	return created, nil
}

// NotificationTarget resolves who receives email about a patient: minors
// with a placeholder address fall back to their representative.
func (s *Service) NotificationTarget(ctx context.Context, patientID int) (email, name string, err error) {
	p, err := s.repo.GetByID(ctx, patientID)
	if err != nil {
		return "", "", err
	}
	if p.User != nil && !p.User.HasPlaceholderEmail() {
		return p.User.Email, p.User.FullName(), nil
	}
	if p.RepresentativeUserID == nil {
		return "", "", nil
	}
	rep, err := s.usersRepo.GetByID(ctx, *p.RepresentativeUserID)
	if err != nil {
		return "", "", err
	}
	if rep.HasPlaceholderEmail() {
		return "", "", nil
	}
	return rep.Email, rep.FullName(), nil
}
