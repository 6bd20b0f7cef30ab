package reports

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oralflow/oralflow-api/pkg/logging"
)

func expectOverviewQueries(mock sqlmock.Sqlmock) {
	mock.ExpectQuery(`COUNT\(\*\) FILTER`).WillReturnRows(
		sqlmock.NewRows([]string{"total", "pending", "confirmed", "completed", "cancelled"}).
			AddRow(20, 4, 6, 8, 2))

	mock.ExpectQuery(`SELECT appt_date, COUNT`).WillReturnRows(
		sqlmock.NewRows([]string{"appt_date", "count"}).
			AddRow(time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC), 12).
			AddRow(time.Date(2026, 8, 25, 0, 0, 0, 0, time.UTC), 8))

	mock.ExpectQuery(`TO_CHAR`).WillReturnRows(
		sqlmock.NewRows([]string{"week", "status", "count"}).
			AddRow("2026-35", "completed", 8).
			AddRow("2026-35", "cancelled", 2))

	mock.ExpectQuery(`JOIN specialties`).WillReturnRows(
		sqlmock.NewRows([]string{"name", "count"}).
			AddRow("Orthodontics", 11).
			AddRow("Endodontics", 9))

	mock.ExpectQuery(`start_minute / 60`).WillReturnRows(
		sqlmock.NewRows([]string{"hour", "count"}).
			AddRow(9, 7).
			AddRow(15, 13))

	mock.ExpectQuery(`LIMIT 10`).WillReturnRows(
		sqlmock.NewRows([]string{"id", "name", "count"}).
			AddRow(5, "Ana Mora", 4).
			AddRow(9, "Luis Vera", 3))
}

func TestOverview(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	expectOverviewQueries(mock)

	svc := NewService(db, nil, time.Minute, logging.New("error").Component("reports"))
	from := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)

	out, err := svc.Overview(context.Background(), from, to)
	require.NoError(t, err)

	assert.Equal(t, 20, out.Totals.Total)
	assert.Equal(t, 8, out.Totals.Completed)
	assert.InDelta(t, 80.0, out.Totals.AttendanceRate, 0.01)
	assert.Len(t, out.PerDay, 2)
	assert.Equal(t, "2026-08-24", out.PerDay[0].Date)
	assert.Equal(t, "Orthodontics", out.BySpecialty[0].Specialty)
	assert.Equal(t, 9, out.ByHour[0].Hour)
	assert.Equal(t, "Ana Mora", out.TopPatients[0].Name)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOverviewCached(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mr := miniredis.RunT(t)
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	expectOverviewQueries(mock)

	svc := NewService(db, cache, time.Minute, logging.New("error").Component("reports"))
	from := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)

	first, err := svc.Overview(context.Background(), from, to)
	require.NoError(t, err)

	// No further query expectations: the second call must come from Redis.
	second, err := svc.Overview(context.Background(), from, to)
	require.NoError(t, err)
	assert.Equal(t, first.Totals, second.Totals)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOverviewZeroSettled(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`COUNT\(\*\) FILTER`).WillReturnRows(
		sqlmock.NewRows([]string{"total", "pending", "confirmed", "completed", "cancelled"}).
			AddRow(3, 2, 1, 0, 0))
	for _, pattern := range []string{
		`SELECT appt_date, COUNT`, `TO_CHAR`, `JOIN specialties`, `start_minute / 60`, `LIMIT 10`,
	} {
		mock.ExpectQuery(pattern).WillReturnRows(sqlmock.NewRows([]string{"a", "b", "c"}))
	}

	svc := NewService(db, nil, time.Minute, logging.New("error"))
	out, err := svc.Overview(context.Background(),
		time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Zero(t, out.Totals.AttendanceRate)
}
