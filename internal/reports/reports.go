// Package reports computes the clinic dashboard numbers. Queries run
// over database/sql and results are cached in Redis for a short TTL, so
// the dashboard does not hammer the database on every refresh.
package reports

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/oralflow/oralflow-api/pkg/logging"
)

// Overview contains the dashboard metrics for a date range.
type Overview struct {
	From string `json:"from"`
	To   string `json:"to"`

	Totals      Totals           `json:"totals"`
	PerDay      []DayCount       `json:"per_day"`
	PerWeek     []WeekStatusRow  `json:"per_week"`
	BySpecialty []SpecialtyCount `json:"by_specialty"`
	ByHour      []HourCount      `json:"by_hour"`
	TopPatients []PatientCount   `json:"top_patients"`
}

// Totals holds the headline counters.
type Totals struct {
	Total          int     `json:"total"`
	Pending        int     `json:"pending"`
	Confirmed      int     `json:"confirmed"`
	Completed      int     `json:"completed"`
	Cancelled      int     `json:"cancelled"`
	AttendanceRate float64 `json:"attendance_rate"`
}

// DayCount is the appointment count of one calendar day.
type DayCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// WeekStatusRow is the per-status count of one ISO week.
type WeekStatusRow struct {
	Week   string `json:"week"`
	Status string `json:"status"`
	Count  int    `json:"count"`
}

// SpecialtyCount is the appointment count of one specialty.
type SpecialtyCount struct {
	Specialty string `json:"specialty"`
	Count     int    `json:"count"`
}

// HourCount is the appointment count of one starting hour.
type HourCount struct {
	Hour  int `json:"hour"`
	Count int `json:"count"`
}

// PatientCount is the appointment count of one patient.
type PatientCount struct {
	PatientID int    `json:"patient_id"`
	Name      string `json:"name"`
	Count     int    `json:"count"`
}

// Service computes and caches overview reports.
type Service struct {
	db       *sql.DB
	cache    *redis.Client
	cacheTTL time.Duration
	logger   *logging.Logger
}

// NewService wires the report queries. cache may be nil.
func NewService(db *sql.DB, cache *redis.Client, cacheTTL time.Duration, logger *logging.Logger) *Service {
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &Service{db: db, cache: cache, cacheTTL: cacheTTL, logger: logger}
}

// Overview returns the dashboard metrics for [from, to]. Maintenance
// slots are excluded from every counter.
func (s *Service) Overview(ctx context.Context, from, to time.Time) (*Overview, error) {
	cacheKey := fmt.Sprintf("reports:overview:%s:%s",
		from.Format("2006-01-02"), to.Format("2006-01-02"))

	if s.cache != nil {
		if raw, err := s.cache.Get(ctx, cacheKey).Bytes(); err == nil {
			var cached Overview
			if json.Unmarshal(raw, &cached) == nil {
				return &cached, nil
			}
		}
	}

	out := &Overview{
		From: from.Format("2006-01-02"),
		To:   to.Format("2006-01-02"),
	}

	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE status = 'pending'),
		       COUNT(*) FILTER (WHERE status = 'confirmed'),
		       COUNT(*) FILTER (WHERE status = 'completed'),
		       COUNT(*) FILTER (WHERE status = 'cancelled')
		FROM appointments
		WHERE status <> 'maintenance' AND appt_date BETWEEN $1 AND $2`,
		from, to,
	).Scan(&out.Totals.Total, &out.Totals.Pending, &out.Totals.Confirmed,
		&out.Totals.Completed, &out.Totals.Cancelled)
	if err != nil {
		return nil, fmt.Errorf("reports: totals query: %w", err)
	}
	if settled := out.Totals.Completed + out.Totals.Cancelled; settled > 0 {
		out.Totals.AttendanceRate = float64(out.Totals.Completed) / float64(settled) * 100
	}

	if out.PerDay, err = s.perDay(ctx, from, to); err != nil {
		return nil, err
	}
	if out.PerWeek, err = s.perWeek(ctx, from, to); err != nil {
		return nil, err
	}
	if out.BySpecialty, err = s.bySpecialty(ctx, from, to); err != nil {
		return nil, err
	}
	if out.ByHour, err = s.byHour(ctx, from, to); err != nil {
		return nil, err
	}
	if out.TopPatients, err = s.topPatients(ctx, from, to); err != nil {
		return nil, err
	}

	if s.cache != nil {
		if raw, err := json.Marshal(out); err == nil {
			if err := s.cache.Set(ctx, cacheKey, raw, s.cacheTTL).Err(); err != nil {
				s.logger.Warn("report cache write failed", "key", cacheKey, "error", err)
			}
		}
	}
	return out, nil
}

func (s *Service) perDay(ctx context.Context, from, to time.Time) ([]DayCount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT appt_date, COUNT(*)
		FROM appointments
		WHERE status <> 'maintenance' AND appt_date BETWEEN $1 AND $2
		GROUP BY appt_date ORDER BY appt_date`,
		from, to)
	if err != nil {
		return nil, fmt.Errorf("reports: per-day query: %w", err)
	}
	defer rows.Close()

	var out []DayCount
	for rows.Next() {
		var day time.Time
		var dc DayCount
		if err := rows.Scan(&day, &dc.Count); err != nil {
			return nil, err
		}
		dc.Date = day.Format("2006-01-02")
		out = append(out, dc)
	}
	return out, rows.Err()
}

func (s *Service) perWeek(ctx context.Context, from, to time.Time) ([]WeekStatusRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT TO_CHAR(appt_date, 'IYYY-IW'), status, COUNT(*)
		FROM appointments
		WHERE status <> 'maintenance' AND appt_date BETWEEN $1 AND $2
		GROUP BY 1, 2 ORDER BY 1, 2`,
		from, to)
	if err != nil {
		return nil, fmt.Errorf("reports: per-week query: %w", err)
	}
	defer rows.Close()

	var out []WeekStatusRow
	for rows.Next() {
		var r WeekStatusRow
		if err := rows.Scan(&r.Week, &r.Status, &r.Count); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Service) bySpecialty(ctx context.Context, from, to time.Time) ([]SpecialtyCount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT sp.name, COUNT(*)
		FROM appointments a
		JOIN dentists d ON d.id = a.dentist_id
		JOIN specialties sp ON sp.id = d.specialty_id
		WHERE a.status <> 'maintenance' AND a.appt_date BETWEEN $1 AND $2
		GROUP BY sp.name ORDER BY COUNT(*) DESC`,
		from, to)
	if err != nil {
		return nil, fmt.Errorf("reports: specialty query: %w", err)
	}
	defer rows.Close()

	var out []SpecialtyCount
	for rows.Next() {
		var r SpecialtyCount
		if err := rows.Scan(&r.Specialty, &r.Count); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Service) byHour(ctx context.Context, from, to time.Time) ([]HourCount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT start_minute / 60, COUNT(*)
		FROM appointments
		WHERE status <> 'maintenance' AND appt_date BETWEEN $1 AND $2
		GROUP BY 1 ORDER BY 1`,
		from, to)
	if err != nil {
		return nil, fmt.Errorf("reports: hour query: %w", err)
	}
	defer rows.Close()

	var out []HourCount
	for rows.Next() {
		var r HourCount
		if err := rows.Scan(&r.Hour, &r.Count); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Service) topPatients(ctx context.Context, from, to time.Time) ([]PatientCount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT p.id, u.first_name || ' ' || u.last_name, COUNT(*)
		FROM appointments a
		JOIN patients p ON p.id = a.patient_id
		JOIN users u ON u.id = p.user_id
		WHERE a.status <> 'maintenance' AND a.appt_date BETWEEN $1 AND $2
		GROUP BY p.id, u.first_name, u.last_name
		ORDER BY COUNT(*) DESC, p.id
		LIMIT 10`,
		from, to)
	if err != nil {
		return nil, fmt.Errorf("reports: top patients query: %w", err)
	}
	defer rows.Close()

	var out []PatientCount
	for rows.Next() {
		var r PatientCount
		if err := rows.Scan(&r.PatientID, &r.Name, &r.Count); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
