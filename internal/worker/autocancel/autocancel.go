// Package autocancel releases pending appointments whose confirmation
// window has closed without the patient confirming.
package autocancel

import (
	"context"
	"time"

	"github.com/oralflow/oralflow-api/internal/appointments"
	"github.com/oralflow/oralflow-api/internal/settings"
	"github.com/oralflow/oralflow-api/internal/users"
	"github.com/oralflow/oralflow-api/pkg/logging"
)

// CancelReason is recorded on every auto-released slot.
const CancelReason = "Released: not confirmed in time."

type apptStore interface {
	ListPendingStartingBetween(ctx context.Context, from, to time.Time) ([]*appointments.Appointment, error)
}

type canceller interface {
	Cancel(ctx context.Context, id, role int, reason string) (*appointments.Appointment, error)
}

// Worker runs the auto-release loop.
type Worker struct {
	store    apptStore
	service  canceller
	policy   settings.Provider
	logger   *logging.Logger
	interval time.Duration
	now      func() time.Time
}

// New wires the auto-release loop.
func New(store apptStore, service canceller, policy settings.Provider, logger *logging.Logger) *Worker {
	if logger == nil {
		logger = logging.Default()
	}
	return &Worker{
		store:    store,
		service:  service,
		policy:   policy,
		logger:   logger,
		interval: 5 * time.Minute,
		now:      time.Now,
	}
}

// WithInterval overrides the sweep cadence.
func (w *Worker) WithInterval(d time.Duration) *Worker {
	if d > 0 {
		w.interval = d
	}
	return w
}

// Run blocks until ctx is canceled.
func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	w.sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *Worker) sweep(ctx context.Context) {
	policy, err := w.policy.Get(ctx)
	if err != nil {
		w.logger.Error("auto release: load settings failed", "error", err)
		return
	}

	now := w.now()
	to := now.Add(time.Duration(policy.ConfirmCloseHours) * time.Hour)

	// Open lower bound: pendings whose start already passed are just as
	// unconfirmed, and left alone they hold the patient's per-dentist
	// active slot forever.
	due, err := w.store.ListPendingStartingBetween(ctx, time.Unix(0, 0), to)
	if err != nil {
		w.logger.Error("auto release sweep failed", "error", err)
		return
	}

	for _, a := range due {
		// Maintenance slots never appear here; pending ones past the
		// close mark are attributed to the patient for the cooldown.
		if _, err := w.service.Cancel(ctx, a.ID, users.RolePatient, CancelReason); err != nil {
			w.logger.Error("auto release failed", "error", err, "appointment_id", a.ID)
			continue
		}
		w.logger.Info("appointment auto released",
			"appointment_id", a.ID, "date", a.DateString, "start", a.StartTime)
	}
}
