// Package calendar maps civil dates onto the portal's Sunday-first week view.
//
// All dates are plain calendar days. Instants are converted with DateOf using the
// single configured location; nothing here depends on the process time zone.
package calendar

import (
	"fmt"
	"time"
)

// Date is a civil calendar day without a time zone.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// NewDate normalizes the supplied components, so NewDate(2025, 2, 29) is 1 March 2025.
func NewDate(year int, month time.Month, day int) Date {
	return dateFromTime(time.Date(year, month, day, 0, 0, 0, 0, time.UTC))
}

// DateOf returns the calendar day of t as observed in loc. A nil loc means UTC.
func DateOf(t time.Time, loc *time.Location) Date {
	if loc == nil {
		loc = time.UTC
	}
	return dateFromTime(t.In(loc))
}

// ParseDate parses an ISO-8601 calendar date such as 2025-03-02.
func ParseDate(value string) (Date, error) {
	t, err := time.Parse(time.DateOnly, value)
	if err != nil {
		return Date{}, fmt.Errorf("calendar: invalid date %q: %w", value, err)
	}
	return dateFromTime(t), nil
}

func dateFromTime(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

func (d Date) utc() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// IsZero reports whether d is the zero Date.
func (d Date) IsZero() bool {
	return d == Date{}
}

// String formats the date as YYYY-MM-DD.
func (d Date) String() string {
	return d.utc().Format(time.DateOnly)
}

// Weekday returns the day of the week.
func (d Date) Weekday() time.Weekday {
	return d.utc().Weekday()
}

// AddDays returns the date n days after d; n may be negative.
func (d Date) AddDays(n int) Date {
	return dateFromTime(d.utc().AddDate(0, 0, n))
}

// DaysUntil returns the number of days from d to other (negative when other is earlier).
func (d Date) DaysUntil(other Date) int {
	return int(other.utc().Sub(d.utc()).Hours() / 24)
}

// Before reports whether d is earlier than other.
func (d Date) Before(other Date) bool {
	return d.utc().Before(other.utc())
}

// After reports whether d is later than other.
func (d Date) After(other Date) bool {
	return d.utc().After(other.utc())
}

// At returns the instant of the given minute-of-day on d in loc.
func (d Date) At(minutes int, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return time.Date(d.Year, d.Month, d.Day, minutes/60, minutes%60, 0, 0, loc)
}

// Format renders the date with a time layout, e.g. "Monday 02/01".
func (d Date) Format(layout string) string {
	return d.utc().Format(layout)
}

// Label is the short human form used in messages: "Sunday 02/03".
func (d Date) Label() string {
	return d.Format("Monday 02/01")
}

// MarshalText implements encoding.TextMarshaler using the ISO form.
func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Date) UnmarshalText(data []byte) error {
	parsed, err := ParseDate(string(data))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
