// Package recurrence expands the standing weekly booking template into the
// concrete sessions of a coming week.
package recurrence

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/example/class-booker/internal/calendar"
)

// ErrInvalidEntry indicates a template entry could not be parsed.
var ErrInvalidEntry = errors.New("recurrence: invalid template entry")

// Entry is one standing booking: a weekday and a start time.
type Entry struct {
	Weekday time.Weekday
	Start   string
}

// String renders the entry in template syntax, e.g. "sunday 07:00".
func (e Entry) String() string {
	return strings.ToLower(e.Weekday.String()) + " " + e.Start
}

// Template is the ordered list of standing bookings attempted every week.
type Template []Entry

// ParseTemplate parses a comma separated list of "<weekday> <HH:MM>" entries.
// Empty items are ignored.
func ParseTemplate(value string) (Template, error) {
	var template Template
	for _, item := range strings.Split(value, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		entry, err := ParseEntry(item)
		if err != nil {
			return nil, err
		}
		template = append(template, entry)
	}
	return template, nil
}

// ParseEntry parses a single "<weekday> <HH:MM>" entry.
func ParseEntry(value string) (Entry, error) {
	fields := strings.Fields(value)
	if len(fields) != 2 {
		return Entry{}, fmt.Errorf("%w: %q", ErrInvalidEntry, value)
	}
	day, ok := calendar.ParseWeekday(fields[0])
	if !ok {
		return Entry{}, fmt.Errorf("%w: unknown weekday %q", ErrInvalidEntry, fields[0])
	}
	if _, err := calendar.Minutes(fields[1]); err != nil {
		return Entry{}, fmt.Errorf("%w: %v", ErrInvalidEntry, err)
	}
	return Entry{Weekday: day, Start: fields[1]}, nil
}

// String renders the template in the syntax ParseTemplate accepts.
func (t Template) String() string {
	parts := make([]string, len(t))
	for i, entry := range t {
		parts[i] = entry.String()
	}
	return strings.Join(parts, ",")
}

// Occurrence is a template entry resolved to a date.
type Occurrence struct {
	Entry Entry
	Date  calendar.Date
	Start string
	At    time.Time
}

// Engine resolves templates in a single time zone.
type Engine struct {
	location *time.Location
}

// NewEngine constructs an Engine that expresses instants in loc. If loc is nil,
// time.Local is used.
func NewEngine(loc *time.Location) *Engine {
	if loc == nil {
		loc = time.Local
	}
	return &Engine{location: loc}
}

// Expand resolves every entry to its next occurrence on or after anchor,
// preserving template order.
func (e *Engine) Expand(template Template, anchor calendar.Date) []Occurrence {
	occurrences := make([]Occurrence, 0, len(template))
	for _, entry := range template {
		date := calendar.NextOccurrence(entry.Weekday, anchor)
		minutes, err := calendar.Minutes(entry.Start)
		if err != nil {
			continue
		}
		occurrences = append(occurrences, Occurrence{
			Entry: entry,
			Date:  date,
			Start: entry.Start,
			At:    date.At(minutes, e.location),
		})
	}
	return occurrences
}

// ComingWeek expands template for the week window after the one containing today.
func (e *Engine) ComingWeek(template Template, today calendar.Date) []Occurrence {
	return e.Expand(template, calendar.NextWeekBoundary(today))
}
