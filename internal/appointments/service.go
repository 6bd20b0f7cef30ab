package appointments

import (
	"context"
	"time"

	"github.com/oralflow/oralflow-api/internal/dentists"
	"github.com/oralflow/oralflow-api/internal/notify"
	"github.com/oralflow/oralflow-api/internal/observability/metrics"
	"github.com/oralflow/oralflow-api/internal/schedule"
	"github.com/oralflow/oralflow-api/internal/settings"
	"github.com/oralflow/oralflow-api/internal/users"
	"github.com/oralflow/oralflow-api/pkg/logging"
)

// Agenda is the slice of the dentists package the booking rules need.
type Agenda interface {
	ListSchedulesForWeekday(ctx context.Context, dentistID int, weekday schedule.Weekday) ([]*dentists.ScheduleEntry, error)
	BlocksForDate(ctx context.Context, date time.Time, dentistID int) ([]*dentists.DayBlock, error)
}

// Recipients resolves who gets emailed about a patient's appointment.
type Recipients interface {
	NotificationTarget(ctx context.Context, patientID int) (email, name string, err error)
}

// Service enforces the booking rules and drives the lifecycle.
type Service struct {
	repo       Repository
	agenda     Agenda
	policy     settings.Provider
	recipients Recipients
	mailer     notify.EmailSender
	metrics    *metrics.ClinicMetrics
	logger     *logging.Logger
	now        func() time.Time
}

// NewService wires the appointments service. recipients and mailer may be
// nil; emails are then skipped.
func NewService(repo Repository, agenda Agenda, policy settings.Provider, recipients Recipients, mailer notify.EmailSender, logger *logging.Logger) *Service {
	return &Service{
		repo:       repo,
		agenda:     agenda,
		policy:     policy,
		recipients: recipients,
		mailer:     mailer,
		logger:     logger,
		now:        func() time.Time { return time.Now().In(clinicZone) },
	}
}

// WithMetrics attaches booking outcome counters.
func (s *Service) WithMetrics(m *metrics.ClinicMetrics) *Service {
	s.metrics = m
	return s
}

// Book creates a patient appointment after running every rule.
// bypassLimits lets staff book past the patient's daily and weekly caps
// and the cancellation cooldown; the agenda rules always apply.
func (s *Service) Book(ctx context.Context, req *BookRequest, bypassLimits bool) (*Appointment, error) {
	if err := req.Validate(s.now()); err != nil {
		return nil, err
	}
	date, minute := req.Slot()

	// Never bookable, bypass or not: a dentist is not their own patient.
	same, err := s.repo.PatientIsDentist(ctx, req.PatientID, req.DentistID)
	if err != nil {
		return nil, err
	}
	if same {
		return nil, ErrSelfBooking
	}

	if err := s.checkAgenda(ctx, req.DentistID, req.OperatoryID, date, minute); err != nil {
		return nil, err
	}

	policy, err := s.policy.Get(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.checkPatientLimits(ctx, req.PatientID, req.DentistID, date, policy, bypassLimits); err != nil {
		return nil, err
	}

	taken, err := s.repo.SlotTaken(ctx, req.DentistID, req.OperatoryID, &req.PatientID, date, minute)
	if err != nil {
		return nil, err
	}
	if taken {
		s.metrics.ObserveBooking("slot_taken")
		return nil, ErrSlotTaken
	}

	a := &Appointment{
		PatientID:   &req.PatientID,
		DentistID:   req.DentistID,
		OperatoryID: req.OperatoryID,
		Date:        date,
		StartMinute: minute,
		Status:      StatusPending,
		Reason:      req.Reason,
	}
	// Slots booked inside the confirmation window skip the pending phase.
	if s.hoursUntil(a.StartAt()) < float64(policy.ConfirmOpenHours) {
		a.Status = StatusConfirmed
	}

	created, err := s.repo.Create(ctx, a)
	if err != nil {
		s.metrics.ObserveBooking("error")
		return nil, err
	}
	s.metrics.ObserveBooking("booked")

	s.logger.Info("appointment booked",
		"appointment_id", created.ID, "patient_id", req.PatientID,
		"dentist_id", req.DentistID, "date", created.DateString,
		"start", created.StartTime, "status", created.Status)
	s.email(ctx, created, func(to, name string, d notify.AppointmentDetails) notify.EmailMessage {
		return notify.AppointmentBookedEmail(to, name, d)
	})
	return created, nil
}

func (s *Service) checkAgenda(ctx context.Context, dentistID, operatoryID int, date time.Time, minute int) error {
	op, err := s.repo.GetOperatory(ctx, operatoryID)
	if err != nil {
		return err
	}
	if !op.IsActive {
		return ErrOperatoryNotFound
	}

	blocks, err := s.agenda.BlocksForDate(ctx, date, dentistID)
	if err != nil {
		return err
	}
	for _, b := range blocks {
		if b.AppliesTo(date, dentistID) {
			return ErrDayBlocked
		}
	}

	entries, err := s.agenda.ListSchedulesForWeekday(ctx, dentistID, schedule.WeekdayOf(date))
	if err != nil {
		return err
	}
	for _, e := range entries {
		for _, slot := range schedule.BuildSlots(e.Window()) {
			if slot == schedule.FormatClock(minute) {
				return nil
			}
		}
	}
	return ErrOutsideSchedule
}

func (s *Service) checkPatientLimits(ctx context.Context, patientID, dentistID int, date time.Time, policy settings.Settings, bypass bool) error {
	if bypass {
		return nil
	}

	active, err := s.repo.HasActiveWithDentist(ctx, patientID, dentistID)
	if err != nil {
		return err
	}
	if active {
		return ErrActiveWithDentist
	}

	if n, err := s.repo.CountForPatientOnDate(ctx, patientID, date); err != nil {
		return err
	} else if n >= policy.MaxPerDay {
		return ErrDailyLimit
	}

	from, to := WeekBounds(date)
	if n, err := s.repo.CountForPatientBetween(ctx, patientID, from, to); err != nil {
		return err
	} else if n >= policy.MaxPerWeek {
		return ErrWeeklyLimit
	}

	if policy.CancelCooldownDays > 0 {
		last, err := s.repo.LastPatientCancellation(ctx, patientID, dentistID)
		if err != nil {
			return err
		}
		if !last.IsZero() && s.now().Before(last.AddDate(0, 0, policy.CancelCooldownDays)) {
			return ErrCooldown
		}
	}
	return nil
}

// Confirm moves a pending slot to confirmed. Patients may only do so
// while the confirmation window is open; staff can confirm any time
// before the start.
func (s *Service) Confirm(ctx context.Context, id int, asStaff bool) (*Appointment, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.Status != StatusPending {
		return nil, ErrImmutableStatus
	}

	hours := s.hoursUntil(a.StartAt())
	if hours < 0 {
		return nil, ErrImmutableStatus
	}
	if !asStaff {
		policy, err := s.policy.Get(ctx)
		if err != nil {
			return nil, err
		}
		if hours > float64(policy.ConfirmOpenHours) || hours < float64(policy.ConfirmCloseHours) {
			return nil, ErrConfirmWindowClosed
		}
	}

	a.Status = StatusConfirmed
	if err := s.repo.UpdateStatus(ctx, a); err != nil {
		return nil, err
	}
	s.logger.Info("appointment confirmed", "appointment_id", a.ID, "as_staff", asStaff)
	s.email(ctx, a, func(to, name string, d notify.AppointmentDetails) notify.EmailMessage {
		return notify.AppointmentConfirmedEmail(to, name, d)
	})
	return a, nil
}

// Cancel releases a slot. Patients can only cancel their still-pending
// slots; staff can cancel pending or confirmed ones. role is recorded for
// the cooldown rule.
func (s *Service) Cancel(ctx context.Context, id, role int, reason string) (*Appointment, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	isPatient := role == users.RolePatient
	switch a.Status {
	case StatusPending:
	case StatusConfirmed, StatusMaintenance:
		if isPatient {
			return nil, ErrImmutableStatus
		}
	default:
		return nil, ErrImmutableStatus
	}

	a.Status = StatusCancelled
	a.CancelledByRole = &role
	if reason != "" {
		a.Notes = reason
	}
	if err := s.repo.UpdateStatus(ctx, a); err != nil {
		return nil, err
	}

	s.logger.Info("appointment cancelled", "appointment_id", a.ID, "by_role", role)
	if !isPatient {
		s.email(ctx, a, func(to, name string, d notify.AppointmentDetails) notify.EmailMessage {
			return notify.AppointmentCancelledEmail(to, name, d, reason)
		})
	}
	return a, nil
}

// Complete closes a confirmed slot after the visit.
func (s *Service) Complete(ctx context.Context, id int) (*Appointment, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.Status != StatusConfirmed {
		return nil, ErrImmutableStatus
	}
	a.Status = StatusCompleted
	if err := s.repo.UpdateStatus(ctx, a); err != nil {
		return nil, err
	}
	s.logger.Info("appointment completed", "appointment_id", a.ID)
	return a, nil
}

// Reschedule moves a pending slot to a new date and hour. Each
// appointment can be moved a limited number of times.
func (s *Service) Reschedule(ctx context.Context, id int, date string, startTime string, asStaff bool) (*Appointment, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.Status != StatusPending {
		return nil, ErrImmutableStatus
	}

	policy, err := s.policy.Get(ctx)
	if err != nil {
		return nil, err
	}
	if !asStaff && a.RescheduleCount >= policy.MaxReschedules {
		return nil, ErrRescheduleLimit
	}

	req := &BookRequest{
		DentistID:   a.DentistID,
		OperatoryID: a.OperatoryID,
		Date:        date,
		StartTime:   startTime,
	}
	if err := req.Validate(s.now()); err != nil {
		return nil, err
	}
	newDate, newMinute := req.Slot()

	if a.PatientID != nil {
		same, err := s.repo.PatientIsDentist(ctx, *a.PatientID, a.DentistID)
		if err != nil {
			return nil, err
		}
		if same {
			return nil, ErrSelfBooking
		}
	}

	if err := s.checkAgenda(ctx, a.DentistID, a.OperatoryID, newDate, newMinute); err != nil {
		return nil, err
	}
	taken, err := s.repo.SlotTaken(ctx, a.DentistID, a.OperatoryID, a.PatientID, newDate, newMinute)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ErrSlotTaken
	}

	a.Date = newDate
	a.StartMinute = newMinute
	a.RescheduleCount++
	if s.hoursUntil(a.StartAt()) < float64(policy.ConfirmOpenHours) {
		a.Status = StatusConfirmed
	}
	if err := s.repo.UpdateStatus(ctx, a); err != nil {
		return nil, err
	}
	a.FillDisplay()

	s.logger.Info("appointment rescheduled",
		"appointment_id", a.ID, "date", a.DateString, "start", a.StartTime,
		"count", a.RescheduleCount)
	return a, nil
}

// CreateMaintenance blocks an operatory slot for equipment work.
func (s *Service) CreateMaintenance(ctx context.Context, req *MaintenanceRequest) (*Appointment, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	date, minute := req.Slot()

	if _, err := s.repo.GetOperatory(ctx, req.OperatoryID); err != nil {
		return nil, err
	}
	taken, err := s.repo.SlotTaken(ctx, req.DentistID, req.OperatoryID, nil, date, minute)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ErrSlotTaken
	}

	a := &Appointment{
		DentistID:   req.DentistID,
		OperatoryID: req.OperatoryID,
		Date:        date,
		StartMinute: minute,
		Status:      StatusMaintenance,
		Notes:       req.Notes,
	}
	created, err := s.repo.Create(ctx, a)
	if err != nil {
		return nil, err
	}
	s.logger.Info("maintenance slot created", "appointment_id", created.ID, "operatory_id", req.OperatoryID)
	return created, nil
}

// Availability describes the bookable state of a dentist's day.
type Availability struct {
	Date    string   `json:"date"`
	Blocked bool     `json:"blocked"`
	Reason  string   `json:"reason,omitempty"`
	Slots   []string `json:"slots"`
}

// DaySlots computes the free "HH:MM" starts of a dentist's date.
func (s *Service) DaySlots(ctx context.Context, dentistID int, date time.Time) (*Availability, error) {
	out := &Availability{Date: date.Format("2006-01-02"), Slots: []string{}}

	blocks, err := s.agenda.BlocksForDate(ctx, date, dentistID)
	if err != nil {
		return nil, err
	}
	for _, b := range blocks {
		if b.AppliesTo(date, dentistID) {
			out.Blocked = true
			out.Reason = b.Reason
			return out, nil
		}
	}

	entries, err := s.agenda.ListSchedulesForWeekday(ctx, dentistID, schedule.WeekdayOf(date))
	if err != nil {
		return nil, err
	}
	windows := make([]schedule.Window, 0, len(entries))
	for _, e := range entries {
		windows = append(windows, e.Window())
	}
	all := schedule.DaySlots(windows)
	if len(all) == 0 {
		return out, nil
	}

	taken, err := s.repo.TakenMinutes(ctx, dentistID, date)
	if err != nil {
		return nil, err
	}
	busy := make(map[string]struct{}, len(taken))
	for _, m := range taken {
		busy[schedule.FormatClock(m)] = struct{}{}
	}
	for _, slot := range all {
		if _, ok := busy[slot]; !ok {
			out.Slots = append(out.Slots, slot)
		}
	}
	return out, nil
}

func (s *Service) hoursUntil(t time.Time) float64 {
	return t.Sub(s.now()).Hours()
}

func (s *Service) email(ctx context.Context, a *Appointment, build func(to, name string, d notify.AppointmentDetails) notify.EmailMessage) {
	if s.recipients == nil || s.mailer == nil || a.PatientID == nil {
		return
	}
	to, name, err := s.recipients.NotificationTarget(ctx, *a.PatientID)
	if err != nil || to == "" {
		if err != nil {
			s.logger.Warn("could not resolve notification target", "error", err, "patient_id", *a.PatientID)
		}
		return
	}
	msg := build(to, name, notify.AppointmentDetails{
		PatientName: a.PatientName,
		DentistName: a.DentistName,
		Date:        a.DateString,
		StartTime:   a.StartTime,
		Operatory:   a.OperatoryName,
	})
	if err := s.mailer.Send(ctx, msg); err != nil {
		s.logger.Warn("failed to send appointment email", "error", err, "appointment_id", a.ID)
	}
}
