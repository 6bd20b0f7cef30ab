package schedule

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Weekday uses the clinic's canonical convention: Monday=0 .. Sunday=6.
type Weekday int

const (
	Monday Weekday = iota
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
	Sunday
)

var weekdayNames = map[string]Weekday{
	"monday": Monday, "mon": Monday, "lunes": Monday,
	"tuesday": Tuesday, "tue": Tuesday, "martes": Tuesday,
	"wednesday": Wednesday, "wed": Wednesday, "miercoles": Wednesday, "miércoles": Wednesday,
	"thursday": Thursday, "thu": Thursday, "jueves": Thursday,
	"friday": Friday, "fri": Friday, "viernes": Friday,
	"saturday": Saturday, "sat": Saturday, "sabado": Saturday, "sábado": Saturday,
	"sunday": Sunday, "sun": Sunday, "domingo": Sunday,
}

// WeekdayOf converts a calendar date to the canonical Monday=0 convention.
func WeekdayOf(d time.Time) Weekday {
	return Weekday((int(d.Weekday()) + 6) % 7)
}

// ParseWeekday normalizes a weekday given as a digit 0..6 (Monday=0, with 7
// accepted as ISO Sunday) or a Spanish/English name.
func ParseWeekday(raw string) (Weekday, error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return 0, fmt.Errorf("schedule: empty weekday")
	}
	if len(s) == 1 && s[0] >= '0' && s[0] <= '9' {
		n := int(s[0] - '0')
		switch {
		case n >= 0 && n <= 6:
			return Weekday(n), nil
		case n == 7:
			return Sunday, nil
		}
		return 0, fmt.Errorf("schedule: invalid weekday %q", raw)
	}
	if d, ok := weekdayNames[s]; ok {
		return d, nil
	}
	return 0, fmt.Errorf("schedule: unrecognized weekday %q", raw)
}

// Window is a half-open [Start, End) working interval in minutes from
// midnight.
type Window struct {
	Start int
	End   int
}

// BuildSlots generates the bookable "HH:MM" start times inside a window:
// one per hour, only slots that fit entirely before End, skipping the lunch
// hours.
func BuildSlots(w Window) []string {
	var out []string
	for cur := w.Start; cur+SlotMinutes <= w.End; cur += SlotMinutes {
		hour := cur / 60
		if hour == 13 || hour == 14 {
			continue
		}
		out = append(out, FormatClock(cur))
	}
	return out
}

// DaySlots merges the slots of all windows for one day, deduplicated and
// sorted. Windows with End <= Start contribute nothing.
func DaySlots(windows []Window) []string {
	seen := map[string]struct{}{}
	for _, w := range windows {
		for _, s := range BuildSlots(w) {
			seen[s] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for s := range seen {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
