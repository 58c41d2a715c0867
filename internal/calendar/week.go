package calendar

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DaysPerWeek is the number of day columns rendered for a week window.
const DaysPerWeek = 7

// MondayIndex returns the weekday index under the Monday=0 convention.
func MondayIndex(d Date) int {
	return (int(d.Weekday()) + 6) % 7
}

// Column returns the day column of d within its week window: Sunday=0 … Saturday=6.
func Column(d Date) int {
	return (MondayIndex(d) + 1) % DaysPerWeek
}

// WeekStart returns the first day (Sunday) of the week window containing d.
func WeekStart(d Date) Date {
	return d.AddDays(-Column(d))
}

// WeekEnd returns the last day (Saturday) of the week window containing d.
func WeekEnd(d Date) Date {
	return WeekStart(d).AddDays(DaysPerWeek - 1)
}

// WeeksBetween returns the whole number of week windows from the week of from to
// the week of to. It is positive when to lies in a later week.
func WeeksBetween(from, to Date) int {
	return WeekStart(from).DaysUntil(WeekStart(to)) / DaysPerWeek
}

// NextWeekBoundary returns the first day of the week window after the one containing d.
func NextWeekBoundary(d Date) Date {
	return WeekStart(d).AddDays(DaysPerWeek)
}

// NextOccurrence returns the first date on or after ref that falls on day.
func NextOccurrence(day time.Weekday, ref Date) Date {
	delta := (int(day) - int(ref.Weekday()) + DaysPerWeek) % DaysPerWeek
	return ref.AddDays(delta)
}

// FollowingOccurrence returns the first date strictly after ref that falls on day.
func FollowingOccurrence(day time.Weekday, ref Date) Date {
	return NextOccurrence(day, ref.AddDays(1))
}

var weekdayNames = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
	"ראשון":     time.Sunday,
	"שני":       time.Monday,
	"שלישי":     time.Tuesday,
	"רביעי":     time.Wednesday,
	"חמישי":     time.Thursday,
	"שישי":      time.Friday,
	"שבת":       time.Saturday,
}

// ParseWeekday resolves an English or Hebrew weekday name, case-insensitively.
func ParseWeekday(name string) (time.Weekday, bool) {
	day, ok := weekdayNames[strings.ToLower(strings.TrimSpace(name))]
	return day, ok
}

// Column header abbreviations rendered by the portal.
var headerAbbrev = [DaysPerWeek]string{
	time.Sunday:    "א׳",
	time.Monday:    "ב׳",
	time.Tuesday:   "ג׳",
	time.Wednesday: "ד׳",
	time.Thursday:  "ה׳",
	time.Friday:    "ו׳",
	time.Saturday:  "ש׳",
}

// DayHeader returns the column header text the portal renders for d, e.g. "27ו׳".
func DayHeader(d Date) string {
	return strconv.Itoa(d.Day) + headerAbbrev[d.Weekday()]
}

// Minutes parses a 24-hour "HH:MM" string into minutes after midnight.
func Minutes(clock string) (int, error) {
	if len(clock) != 5 || clock[2] != ':' {
		return 0, fmt.Errorf("calendar: invalid time %q", clock)
	}
	h, err := strconv.Atoi(clock[:2])
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("calendar: invalid hour in %q", clock)
	}
	m, err := strconv.Atoi(clock[3:])
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("calendar: invalid minute in %q", clock)
	}
	return h*60 + m, nil
}

// FormatMinutes renders minutes after midnight as "HH:MM".
func FormatMinutes(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}
