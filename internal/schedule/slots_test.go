package schedule

import (
	"reflect"
	"testing"
	"time"
)

func TestBuildSlotsSkipsLunch(t *testing.T) {
	got := BuildSlots(Window{Start: 9 * 60, End: 17 * 60})
	want := []string{"09:00", "10:00", "11:00", "12:00", "15:00", "16:00"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("BuildSlots 09:00-17:00 = %v, want %v", got, want)
	}
}

func TestBuildSlotsPartialHourAtEnd(t *testing.T) {
	// 16:30 leaves no room for a full slot starting at 16:00? It does; the
	// slot at 16:00 ends 17:00 > 16:30, so only 15:00 fits after lunch.
	got := BuildSlots(Window{Start: 15 * 60, End: 16*60 + 30})
	want := []string{"15:00"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("BuildSlots 15:00-16:30 = %v, want %v", got, want)
	}
}

func TestBuildSlotsEmptyWindow(t *testing.T) {
	if got := BuildSlots(Window{Start: 13 * 60, End: 15 * 60}); got != nil {
		t.Fatalf("lunch-only window produced slots: %v", got)
	}
	if got := BuildSlots(Window{Start: 12 * 60, End: 12 * 60}); got != nil {
		t.Fatalf("zero-length window produced slots: %v", got)
	}
}

func TestDaySlotsMergesAndSorts(t *testing.T) {
	got := DaySlots([]Window{
		{Start: 15 * 60, End: 18 * 60},
		{Start: 9 * 60, End: 12 * 60},
		{Start: 10 * 60, End: 12 * 60}, // overlapping, must dedupe
	})
	want := []string{"09:00", "10:00", "11:00", "15:00", "16:00", "17:00"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("DaySlots = %v, want %v", got, want)
	}
}

func TestWeekdayOf(t *testing.T) {
	// 2025-06-02 is a Monday.
	d := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 7; i++ {
		if got := WeekdayOf(d.AddDate(0, 0, i)); got != Weekday(i) {
			t.Errorf("WeekdayOf(+%d days) = %d, want %d", i, got, i)
		}
	}
}

func TestParseWeekday(t *testing.T) {
	cases := []struct {
		in   string
		want Weekday
	}{
		{"0", Monday},
		{"6", Sunday},
		{"7", Sunday}, // ISO
		{"monday", Monday},
		{"Martes", Tuesday},
		{"miércoles", Wednesday},
		{"SUN", Sunday},
	}
	for _, tc := range cases {
		got, err := ParseWeekday(tc.in)
		if err != nil || got != tc.want {
			t.Errorf("ParseWeekday(%q) = %d, %v, want %d", tc.in, got, err, tc.want)
		}
	}
	for _, bad := range []string{"", "8", "someday"} {
		if _, err := ParseWeekday(bad); err == nil {
			t.Errorf("ParseWeekday(%q) accepted", bad)
		}
	}
}
