package reminders

import (
	"context"
	"encoding/json"
	"time"

	"github.com/oralflow/oralflow-api/internal/appointments"
	"github.com/oralflow/oralflow-api/internal/notify"
	"github.com/oralflow/oralflow-api/internal/observability/metrics"
	"github.com/oralflow/oralflow-api/internal/settings"
	"github.com/oralflow/oralflow-api/pkg/logging"
)

type apptStore interface {
	ListPendingStartingBetween(ctx context.Context, from, to time.Time) ([]*appointments.Appointment, error)
	GetByID(ctx context.Context, id int) (*appointments.Appointment, error)
	MarkReminderSent(ctx context.Context, id int) error
}

type recipients interface {
	NotificationTarget(ctx context.Context, patientID int) (email, name string, err error)
}

// job is the queued payload.
type job struct {
	AppointmentID int `json:"appointment_id"`
}

// Scanner enqueues a reminder for every still-pending appointment whose
// start falls inside the reminder lead window.
type Scanner struct {
	store    apptStore
	policy   settings.Provider
	queue    Queue
	logger   *logging.Logger
	interval time.Duration
	now      func() time.Time
}

// NewScanner wires the reminder scan loop.
func NewScanner(store apptStore, policy settings.Provider, queue Queue, logger *logging.Logger) *Scanner {
	if logger == nil {
		logger = logging.Default()
	}
	return &Scanner{
		store:    store,
		policy:   policy,
		queue:    queue,
		logger:   logger,
		interval: 5 * time.Minute,
		now:      time.Now,
	}
}

// WithInterval overrides the scan cadence.
func (s *Scanner) WithInterval(d time.Duration) *Scanner {
	if d > 0 {
		s.interval = d
	}
	return s
}

// Run blocks until ctx is canceled.
func (s *Scanner) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	s.scan(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.scan(ctx)
		}
	}
}

func (s *Scanner) scan(ctx context.Context) {
	policy, err := s.policy.Get(ctx)
	if err != nil {
		s.logger.Error("reminder scan: load settings failed", "error", err)
		return
	}

	lead := time.Duration(policy.ReminderLeadHours) * time.Hour
	from := s.now().Add(lead)
	to := from.Add(s.interval * 2)

	due, err := s.store.ListPendingStartingBetween(ctx, from, to)
	if err != nil {
		s.logger.Error("reminder scan failed", "error", err)
		return
	}

	for _, a := range due {
		if a.ReminderSent || a.PatientID == nil {
			continue
		}
		body, err := json.Marshal(job{AppointmentID: a.ID})
		if err != nil {
			continue
		}
		if err := s.queue.Send(ctx, string(body)); err != nil {
			s.logger.Error("reminder enqueue failed", "error", err, "appointment_id", a.ID)
			continue
		}
		s.logger.Debug("reminder queued", "appointment_id", a.ID, "start", a.StartTime)
	}
}

// Consumer drains the reminder queue and emails the patients.
type Consumer struct {
	store      apptStore
	recipients recipients
	mailer     notify.EmailSender
	queue      Queue
	metrics    *metrics.ClinicMetrics
	logger     *logging.Logger
	waitSecs   int
}

// NewConsumer wires the reminder delivery loop.
func NewConsumer(store apptStore, recipients recipients, mailer notify.EmailSender, queue Queue, logger *logging.Logger) *Consumer {
	if logger == nil {
		logger = logging.Default()
	}
	return &Consumer{
		store:      store,
		recipients: recipients,
		mailer:     mailer,
		queue:      queue,
		logger:     logger,
		waitSecs:   20,
	}
}

// WithMetrics attaches reminder outcome counters.
func (c *Consumer) WithMetrics(m *metrics.ClinicMetrics) *Consumer {
	c.metrics = m
	return c
}

// Run blocks until ctx is canceled.
func (c *Consumer) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		msgs, err := c.queue.Receive(ctx, 10, c.waitSecs)
		if err != nil {
			c.logger.Error("reminder receive failed", "error", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(5 * time.Second):
			}
			continue
		}
		if len(msgs) == 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}
		for _, msg := range msgs {
			if err := c.process(ctx, msg.Body); err != nil {
				c.logger.Error("reminder delivery failed", "error", err)
				continue
			}
			if err := c.queue.Delete(ctx, msg.ReceiptHandle); err != nil {
				c.logger.Warn("reminder ack failed", "error", err)
			}
		}
	}
}

// Drain processes whatever is queued right now and returns. Used by the
// in-memory setup and tests.
func (c *Consumer) Drain(ctx context.Context) {
	msgs, err := c.queue.Receive(ctx, 10, 0)
	if err != nil {
		c.logger.Error("reminder receive failed", "error", err)
		return
	}
	for _, msg := range msgs {
		if err := c.process(ctx, msg.Body); err != nil {
			c.logger.Error("reminder delivery failed", "error", err)
			continue
		}
		if err := c.queue.Delete(ctx, msg.ReceiptHandle); err != nil {
			c.logger.Warn("reminder ack failed", "error", err)
		}
	}
}

func (c *Consumer) process(ctx context.Context, body string) error {
	var j job
	if err := json.Unmarshal([]byte(body), &j); err != nil {
		return err
	}

	a, err := c.store.GetByID(ctx, j.AppointmentID)
	if err != nil {
		return err
	}
	// The slot may have moved on since it was queued.
	if a.Status != appointments.StatusPending || a.ReminderSent || a.PatientID == nil {
		return nil
	}

	to, name, err := c.recipients.NotificationTarget(ctx, *a.PatientID)
	if err != nil {
		return err
	}
	if to == "" {
		return nil
	}

	msg := notify.AppointmentReminderEmail(to, name, notify.AppointmentDetails{
		PatientName: a.PatientName,
		DentistName: a.DentistName,
		Date:        a.DateString,
		StartTime:   a.StartTime,
		Operatory:   a.OperatoryName,
	})
	if err := c.mailer.Send(ctx, msg); err != nil {
		c.metrics.ObserveReminder("error")
		return err
	}
	if err := c.store.MarkReminderSent(ctx, a.ID); err != nil {
		return err
	}
	c.metrics.ObserveReminder("sent")
	c.logger.Info("reminder sent", "appointment_id", a.ID, "to", to)
	return nil
}
