// Package settings holds the clinic-wide booking policy, stored as a
// single row and cached in Redis.
package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/redis/go-redis/v9"

	"github.com/oralflow/oralflow-api/internal/fielderr"
	"github.com/oralflow/oralflow-api/pkg/logging"
)

const (
	cacheKey = "settings:clinic"
	cacheTTL = 5 * time.Minute
)

// Settings is the clinic booking policy. There is exactly one row.
type Settings struct {
	ConfirmOpenHours   int       `json:"confirm_open_hours"`  // confirmation window opens this many hours before start
	ConfirmCloseHours  int       `json:"confirm_close_hours"` // and closes this many hours before start
	MaxPerDay          int       `json:"max_per_day"`
	MaxPerWeek         int       `json:"max_per_week"`
	CancelCooldownDays int       `json:"cancel_cooldown_days"`
	MaxReschedules     int       `json:"max_reschedules"`
	ReminderLeadHours  int       `json:"reminder_lead_hours"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// Defaults returns the policy used until an admin changes it.
func Defaults() Settings {
	return Settings{
		ConfirmOpenHours:   24,
		ConfirmCloseHours:  12,
		MaxPerDay:          1,
		MaxPerWeek:         5,
		CancelCooldownDays: 7,
		MaxReschedules:     1,
		ReminderLeadHours:  24,
	}
}

// Validate enforces coherence between the policy knobs.
func (s *Settings) Validate() error {
	errs := fielderr.Fields{}
	if s.ConfirmOpenHours <= 0 {
		errs.Add("confirm_open_hours", "Must be a positive number of hours.")
	}
	if s.ConfirmCloseHours < 0 {
		errs.Add("confirm_close_hours", "Cannot be negative.")
	}
	if s.ConfirmCloseHours >= s.ConfirmOpenHours {
		errs.Add("confirm_close_hours", "Must be smaller than the opening of the confirmation window.")
	}
	if s.MaxPerDay < 1 {
		errs.Add("max_per_day", "Must allow at least one appointment per day.")
	}
	if s.MaxPerWeek < s.MaxPerDay {
		errs.Add("max_per_week", "Cannot be smaller than the daily limit.")
	}
	if s.CancelCooldownDays < 0 {
		errs.Add("cancel_cooldown_days", "Cannot be negative.")
	}
	if s.MaxReschedules < 0 {
		errs.Add("max_reschedules", "Cannot be negative.")
	}
	if s.ReminderLeadHours <= s.ConfirmCloseHours {
		errs.Add("reminder_lead_hours", "Reminders must go out before the confirmation window closes.")
	}
	return errs.OrNil()
}

// DB is the subset of pgxpool.Pool the store needs.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Store loads and saves the singleton, with a Redis read-through cache.
type Store struct {
	db     DB
	rdb    *redis.Client
	logger *logging.Logger
}

// NewStore wires the settings store. rdb may be nil; caching is then off.
func NewStore(db DB, rdb *redis.Client, logger *logging.Logger) *Store {
	if db == nil {
		panic("settings: db required")
	}
	return &Store{db: db, rdb: rdb, logger: logger}
}

// Get returns the current policy, falling back to defaults when the row
// has never been written.
func (s *Store) Get(ctx context.Context) (Settings, error) {
	if s.rdb != nil {
		if raw, err := s.rdb.Get(ctx, cacheKey).Bytes(); err == nil {
			var cached Settings
			if json.Unmarshal(raw, &cached) == nil {
				return cached, nil
			}
		}
	}

	var out Settings
	err := s.db.QueryRow(ctx, `
		SELECT confirm_open_hours, confirm_close_hours, max_per_day, max_per_week,
		       cancel_cooldown_days, max_reschedules, reminder_lead_hours, updated_at
		FROM clinic_settings WHERE id = 1`).Scan(
		&out.ConfirmOpenHours, &out.ConfirmCloseHours, &out.MaxPerDay, &out.MaxPerWeek,
		&out.CancelCooldownDays, &out.MaxReschedules, &out.ReminderLeadHours, &out.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Defaults(), nil
		}
		return Settings{}, fmt.Errorf("settings: select failed: %w", err)
	}

	s.cache(ctx, out)
	return out, nil
}

// Save validates and writes the policy, refreshing the cache.
func (s *Store) Save(ctx context.Context, in Settings) (Settings, error) {
	if err := in.Validate(); err != nil {
		return Settings{}, err
	}

	err := s.db.QueryRow(ctx, `
		INSERT INTO clinic_settings (id, confirm_open_hours, confirm_close_hours, max_per_day, max_per_week,
		                             cancel_cooldown_days, max_reschedules, reminder_lead_hours, updated_at)
		VALUES (1, $1, $2, $3, $4, $5, $6, $7, NOW())
		ON CONFLICT (id) DO UPDATE SET
			confirm_open_hours = EXCLUDED.confirm_open_hours,
			confirm_close_hours = EXCLUDED.confirm_close_hours,
			max_per_day = EXCLUDED.max_per_day,
			max_per_week = EXCLUDED.max_per_week,
			cancel_cooldown_days = EXCLUDED.cancel_cooldown_days,
			max_reschedules = EXCLUDED.max_reschedules,
			reminder_lead_hours = EXCLUDED.reminder_lead_hours,
			updated_at = NOW()
		RETURNING updated_at`,
		in.ConfirmOpenHours, in.ConfirmCloseHours, in.MaxPerDay, in.MaxPerWeek,
		in.CancelCooldownDays, in.MaxReschedules, in.ReminderLeadHours,
	).Scan(&in.UpdatedAt)
	if err != nil {
		return Settings{}, fmt.Errorf("settings: save failed: %w", err)
	}

	s.cache(ctx, in)
	return in, nil
}

func (s *Store) cache(ctx context.Context, in Settings) {
	if s.rdb == nil {
		return
	}
	raw, err := json.Marshal(in)
	if err != nil {
		return
	}
	if err := s.rdb.Set(ctx, cacheKey, raw, cacheTTL).Err(); err != nil && s.logger != nil {
		s.logger.Warn("failed to cache settings", "error", err)
	}
}
