package dentists

import (
	"context"

	"github.com/google/uuid"

	"github.com/oralflow/oralflow-api/internal/schedule"
	"github.com/oralflow/oralflow-api/internal/users"
	"github.com/oralflow/oralflow-api/pkg/logging"
)

// Service creates dentist profiles and manages their agendas.
type Service struct {
	users  *users.Service
	repo   Repository
	logger *logging.Logger
}

// NewService wires the dentists service.
func NewService(usersSvc *users.Service, repo Repository, logger *logging.Logger) *Service {
	return &Service{users: usersSvc, repo: repo, logger: logger}
}

// Create registers the account and profile in one step.
func (s *Service) Create(ctx context.Context, req *CreateDentistRequest) (*Dentist, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	account, err := s.users.Register(ctx, &req.CreateUserRequest)
	if err != nil {
		return nil, err
	}

	d := &Dentist{
		UserID:        account.ID,
		SpecialtyID:   req.SpecialtyID,
		LicenseNumber: req.LicenseNumber,
		Bio:           req.Bio,
	}
	created, err := s.repo.Create(ctx, d)
	if err != nil {
		return nil, err
	}
	created.User = account

	s.logger.Info("dentist created", "dentist_id", created.ID, "user_id", account.ID)
	return created, nil
}

// AddSchedule validates a working window against clinic hours and rejects
// overlaps with the dentist's existing active windows on that weekday.
func (s *Service) AddSchedule(ctx context.Context, dentistID int, req *CreateScheduleRequest) (*ScheduleEntry, error) {
	entry, err := req.Validate(dentistID)
	if err != nil {
		return nil, err
	}

	existing, err := s.repo.ListSchedulesForWeekday(ctx, dentistID, entry.Weekday)
	if err != nil {
		return nil, err
	}
	for _, other := range existing {
		if schedule.Overlaps(entry.StartMinute, entry.EndMinute, other.StartMinute, other.EndMinute) {
			return nil, ErrScheduleOverlap
		}
	}

	return s.repo.CreateSchedule(ctx, entry)
}

// BlockDays closes the requested dates under a shared group id.
func (s *Service) BlockDays(ctx context.Context, req *CreateBlockRequest, createdBy int) ([]*DayBlock, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if req.DentistID != nil {
		if _, err := s.repo.GetByID(ctx, *req.DentistID); err != nil {
			return nil, err
		}
	}

	group := uuid.New()
	blocks := make([]*DayBlock, 0, len(req.ParsedDates()))
	for _, date := range req.ParsedDates() {
		blocks = append(blocks, &DayBlock{
			GroupID:   group,
			DentistID: req.DentistID,
			Date:      date,
			Reason:    req.Reason,
			Annual:    req.Annual,
			CreatedBy: createdBy,
		})
	}
	if err := s.repo.CreateBlocks(ctx, blocks); err != nil {
		return nil, err
	}

	s.logger.Info("days blocked", "group_id", group, "count", len(blocks), "annual", req.Annual)
	return blocks, nil
}
