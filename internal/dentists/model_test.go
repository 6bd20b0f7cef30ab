package dentists

import (
	"errors"
	"testing"
	"time"

	"github.com/oralflow/oralflow-api/internal/fielderr"
	"github.com/oralflow/oralflow-api/internal/schedule"
)

func TestCreateScheduleRequestValid(t *testing.T) {
	req := &CreateScheduleRequest{Weekday: "1", StartTime: "09:00", EndTime: "12:00"}
	entry, err := req.Validate(3)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if entry.DentistID != 3 || entry.Weekday != schedule.Tuesday {
		t.Errorf("entry = %+v", entry)
	}
	if entry.StartMinute != 540 || entry.EndMinute != 720 {
		t.Errorf("minutes = %d-%d", entry.StartMinute, entry.EndMinute)
	}
	if entry.StartTime != "09:00" || entry.EndTime != "12:00" {
		t.Errorf("clocks = %s-%s", entry.StartTime, entry.EndTime)
	}
	if !entry.IsActive {
		t.Error("new entries start active")
	}
}

func TestCreateScheduleRequestRejectsBadWindow(t *testing.T) {
	cases := []struct {
		name string
		req  CreateScheduleRequest
	}{
		{"before opening", CreateScheduleRequest{Weekday: "0", StartTime: "08:00", EndTime: "12:00"}},
		{"into lunch", CreateScheduleRequest{Weekday: "0", StartTime: "12:30", EndTime: "13:30"}},
		{"too short", CreateScheduleRequest{Weekday: "0", StartTime: "09:00", EndTime: "10:00"}},
		{"bad weekday", CreateScheduleRequest{Weekday: "8", StartTime: "09:00", EndTime: "12:00"}},
		{"bad clock", CreateScheduleRequest{Weekday: "0", StartTime: "9am", EndTime: "12:00"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := tc.req.Validate(1); err == nil {
				t.Error("invalid window accepted")
			}
		})
	}
}

func TestDayBlockAppliesTo(t *testing.T) {
	date := func(s string) time.Time {
		d, _ := time.Parse("2006-01-02", s)
		return d
	}
	dentist := 4

	global := &DayBlock{Date: date("2026-12-25")}
	if !global.AppliesTo(date("2026-12-25"), 1) {
		t.Error("global block should apply to every dentist")
	}
	if global.AppliesTo(date("2026-12-26"), 1) {
		t.Error("block must not leak to other dates")
	}

	personal := &DayBlock{Date: date("2026-09-10"), DentistID: &dentist}
	if !personal.AppliesTo(date("2026-09-10"), 4) {
		t.Error("personal block should apply to its dentist")
	}
	if personal.AppliesTo(date("2026-09-10"), 5) {
		t.Error("personal block must not apply to other dentists")
	}

	annual := &DayBlock{Date: date("2020-01-01"), Annual: true}
	if !annual.AppliesTo(date("2026-01-01"), 1) {
		t.Error("annual block should recur every year")
	}
	if annual.AppliesTo(date("2026-01-02"), 1) {
		t.Error("annual block must match month and day exactly")
	}
}

func TestCreateBlockRequestValidate(t *testing.T) {
	req := &CreateBlockRequest{Dates: []string{"2026-12-24", "2026-12-25"}, Reason: "holidays"}
	if err := req.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if len(req.ParsedDates()) != 2 {
		t.Errorf("parsed %d dates", len(req.ParsedDates()))
	}

	var fields fielderr.Fields
	err := (&CreateBlockRequest{Reason: "x"}).Validate()
	if !errors.As(err, &fields) {
		t.Fatalf("expected field errors, got %v", err)
	}
	if _, ok := fields["dates"]; !ok {
		t.Error("empty dates accepted")
	}

	err = (&CreateBlockRequest{Dates: []string{"25/12/2026"}, Reason: "x"}).Validate()
	if err == nil {
		t.Error("malformed date accepted")
	}

	err = (&CreateBlockRequest{Dates: []string{"2026-12-25"}}).Validate()
	if !errors.As(err, &fields) {
		t.Fatalf("expected field errors, got %v", err)
	}
	if _, ok := fields["reason"]; !ok {
		t.Error("missing reason accepted")
	}
}

func TestCreateDentistRequestValidate(t *testing.T) {
	req := &CreateDentistRequest{SpecialtyID: 1, LicenseNumber: "MSP-1234"}
	req.Cedula = "1712345675"
	req.Email = "dr@example.com"
	req.Password = "s3cret-pass"
	req.FirstName = "Paula"
	req.LastName = "Ríos"
	req.Normalize()
	if err := req.Validate(); err != nil {
		t.Fatalf("valid request rejected: %v", err)
	}
	if req.Role != 3 {
		t.Errorf("role = %d, want dentist", req.Role)
	}

	var fields fielderr.Fields
	bad := &CreateDentistRequest{}
	bad.Normalize()
	err := bad.Validate()
	if !errors.As(err, &fields) {
		t.Fatalf("expected field errors, got %v", err)
	}
	for _, field := range []string{"specialty_id", "license_number", "cedula"} {
		if _, ok := fields[field]; !ok {
			t.Errorf("missing error for %q", field)
		}
	}
}
