package dentists

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/oralflow/oralflow-api/internal/schedule"
)

// Repository persists dentists, specialties, schedules and day blocks.
type Repository interface {
	CreateSpecialty(ctx context.Context, s *Specialty) (*Specialty, error)
	ListSpecialties(ctx context.Context) ([]*Specialty, error)

	Create(ctx context.Context, d *Dentist) (*Dentist, error)
	GetByID(ctx context.Context, id int) (*Dentist, error)
	GetByUserID(ctx context.Context, userID int) (*Dentist, error)
	List(ctx context.Context, specialtyID int) ([]*Dentist, error)

	CreateSchedule(ctx context.Context, e *ScheduleEntry) (*ScheduleEntry, error)
	ListSchedules(ctx context.Context, dentistID int) ([]*ScheduleEntry, error)
	ListSchedulesForWeekday(ctx context.Context, dentistID int, weekday schedule.Weekday) ([]*ScheduleEntry, error)
	SetScheduleActive(ctx context.Context, dentistID, scheduleID int, active bool) error
	DeleteSchedule(ctx context.Context, dentistID, scheduleID int) error

	CreateBlocks(ctx context.Context, blocks []*DayBlock) error
	ListBlocks(ctx context.Context, dentistID *int) ([]*DayBlock, error)
	BlocksForDate(ctx context.Context, date time.Time, dentistID int) ([]*DayBlock, error)
	DeleteBlockGroup(ctx context.Context, groupID uuid.UUID) (int, error)
}
