package reminders

import (
	"context"
	"testing"
	"time"

	"github.com/oralflow/oralflow-api/internal/appointments"
	"github.com/oralflow/oralflow-api/internal/notify"
	"github.com/oralflow/oralflow-api/internal/settings"
	"github.com/oralflow/oralflow-api/pkg/logging"
)

var clinicZone = func() *time.Location {
	loc, err := time.LoadLocation("America/Guayaquil")
	if err != nil {
		return time.UTC
	}
	return loc
}()

// testNow is a Monday morning.
var testNow = time.Date(2026, 8, 24, 9, 0, 0, 0, clinicZone)

type fakeStore struct {
	appts    map[int]*appointments.Appointment
	reminded []int
}

func (f *fakeStore) ListPendingStartingBetween(_ context.Context, from, to time.Time) ([]*appointments.Appointment, error) {
	var out []*appointments.Appointment
	for _, a := range f.appts {
		if a.Status != appointments.StatusPending {
			continue
		}
		start := a.StartAt()
		if !start.Before(from) && start.Before(to) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeStore) GetByID(_ context.Context, id int) (*appointments.Appointment, error) {
	a, ok := f.appts[id]
	if !ok {
		return nil, appointments.ErrNotFound
	}
	return a, nil
}

func (f *fakeStore) MarkReminderSent(_ context.Context, id int) error {
	f.appts[id].ReminderSent = true
	f.reminded = append(f.reminded, id)
	return nil
}

type fixedPolicy struct{ s settings.Settings }

func (f fixedPolicy) Get(context.Context) (settings.Settings, error) { return f.s, nil }

type fakeRecipients struct{}

func (fakeRecipients) NotificationTarget(_ context.Context, patientID int) (string, string, error) {
	return "patient@example.com", "Ana", nil
}

type captureMailer struct {
	sent []notify.EmailMessage
}

func (m *captureMailer) Send(_ context.Context, msg notify.EmailMessage) error {
	m.sent = append(m.sent, msg)
	return nil
}

func pendingAt(id int, start time.Time) *appointments.Appointment {
	patientID := 5
	return &appointments.Appointment{
		ID:          id,
		PatientID:   &patientID,
		DentistID:   2,
		OperatoryID: 1,
		Date:        time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, clinicZone),
		StartMinute: start.Hour()*60 + start.Minute(),
		Status:      appointments.StatusPending,
	}
}

func newFixtures() (*fakeStore, *Scanner, *Consumer, *MemoryQueue, *captureMailer) {
	store := &fakeStore{appts: map[int]*appointments.Appointment{
		// Inside the 24h lead window.
		1: pendingAt(1, testNow.Add(24*time.Hour+2*time.Minute)),
		// Far outside the window.
		2: pendingAt(2, testNow.Add(72*time.Hour)),
	}}
	policy := fixedPolicy{s: settings.Defaults()}
	queue := NewMemoryQueue(16)
	logger := logging.New("error").Component("reminders")

	scanner := NewScanner(store, policy, queue, logger).WithInterval(5 * time.Minute)
	scanner.now = func() time.Time { return testNow }

	mailer := &captureMailer{}
	consumer := NewConsumer(store, fakeRecipients{}, mailer, queue, logger)
	return store, scanner, consumer, queue, mailer
}

func TestScanQueuesDueAppointments(t *testing.T) {
	_, scanner, consumer, _, mailer := newFixtures()

	scanner.scan(context.Background())
	consumer.Drain(context.Background())

	if len(mailer.sent) != 1 {
		t.Fatalf("sent %d reminders, want 1", len(mailer.sent))
	}
	if mailer.sent[0].To != "patient@example.com" {
		t.Errorf("to = %q", mailer.sent[0].To)
	}
}

func TestReminderSentOnlyOnce(t *testing.T) {
	store, scanner, consumer, _, mailer := newFixtures()

	scanner.scan(context.Background())
	consumer.Drain(context.Background())
	scanner.scan(context.Background())
	consumer.Drain(context.Background())

	if len(mailer.sent) != 1 {
		t.Fatalf("sent %d reminders, want 1", len(mailer.sent))
	}
	if len(store.reminded) != 1 || store.reminded[0] != 1 {
		t.Fatalf("reminded = %v", store.reminded)
	}
}

func TestConsumerSkipsMovedOnAppointments(t *testing.T) {
	store, scanner, consumer, _, mailer := newFixtures()

	scanner.scan(context.Background())
	// The slot is cancelled between enqueue and delivery.
	store.appts[1].Status = appointments.StatusCancelled
	consumer.Drain(context.Background())

	if len(mailer.sent) != 0 {
		t.Fatalf("sent %d reminders, want 0", len(mailer.sent))
	}
}
