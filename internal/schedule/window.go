// Package schedule implements the clinic's working-hours rules: validation
// of weekly schedule windows and generation of bookable 1-hour slots.
package schedule

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Clinic operating constraints, in minutes from midnight.
const (
	OpeningMinute = 9 * 60  // 09:00
	ClosingMinute = 22 * 60 // 22:00
	LunchStart    = 13 * 60 // 13:00
	LunchEnd      = 15 * 60 // 15:00

	// MinWindowMinutes is the shortest schedule window a dentist may offer.
	MinWindowMinutes = 120

	// SlotMinutes is the fixed appointment duration.
	SlotMinutes = 60
)

// ErrDayDisabled is returned when a window is submitted for a disabled day.
var ErrDayDisabled = errors.New("schedule: day is not enabled")

// ParseClock parses "HH:MM" (24-hour) into minutes from midnight.
func ParseClock(s string) (int, error) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return 0, fmt.Errorf("schedule: invalid time %q, expected HH:MM", s)
	}
	h, err := strconv.Atoi(hh)
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("schedule: invalid hour in %q", s)
	}
	m, err := strconv.Atoi(mm)
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("schedule: invalid minute in %q", s)
	}
	return h*60 + m, nil
}

// FormatClock renders minutes from midnight as "HH:MM".
func FormatClock(minute int) string {
	return fmt.Sprintf("%02d:%02d", minute/60, minute%60)
}

// CheckWindow validates a proposed schedule window for one weekday. enabled
// mirrors the day toggle on the schedule form: windows on disabled days are
// rejected outright. start and end are "HH:MM" strings.
//
// The returned error carries the specific rejection reason; nil means the
// window is acceptable.
func CheckWindow(enabled bool, start, end string) error {
	if !enabled {
		return ErrDayDisabled
	}
	s, err := ParseClock(start)
	if err != nil {
		return err
	}
	e, err := ParseClock(end)
	if err != nil {
		return err
	}
	return CheckWindowMinutes(s, e)
}

// CheckWindowMinutes validates a window already expressed in minutes from
// midnight.
func CheckWindowMinutes(start, end int) error {
	if start < OpeningMinute || start > ClosingMinute {
		return fmt.Errorf("schedule: start %s is outside clinic hours (%s-%s)",
			FormatClock(start), FormatClock(OpeningMinute), FormatClock(ClosingMinute))
	}
	if end < OpeningMinute || end > ClosingMinute {
		return fmt.Errorf("schedule: end %s is outside clinic hours (%s-%s)",
			FormatClock(end), FormatClock(OpeningMinute), FormatClock(ClosingMinute))
	}
	// A window may span the lunch break, but cannot start or end inside it:
	// starting at 13:00 or ending at 15:00 would put working time in the
	// blackout.
	if start >= LunchStart && start < LunchEnd {
		return fmt.Errorf("schedule: start %s falls in the lunch break (%s-%s)",
			FormatClock(start), FormatClock(LunchStart), FormatClock(LunchEnd))
	}
	if end > LunchStart && end <= LunchEnd {
		return fmt.Errorf("schedule: end %s falls in the lunch break (%s-%s)",
			FormatClock(end), FormatClock(LunchStart), FormatClock(LunchEnd))
	}
	if start >= end {
		return fmt.Errorf("schedule: start %s must be before end %s",
			FormatClock(start), FormatClock(end))
	}
	if end-start < MinWindowMinutes {
		return fmt.Errorf("schedule: window is %d minutes, minimum is %d",
			end-start, MinWindowMinutes)
	}
	return nil
}

// Overlaps reports whether two [start, end) windows intersect.
func Overlaps(aStart, aEnd, bStart, bEnd int) bool {
	return aStart < bEnd && aEnd > bStart
}
