package testfixtures

import (
	"fmt"
	"time"

	"github.com/example/class-booker/internal/calendar"
)

var location = time.FixedZone("IST", 2*60*60)

// Tuesday, 4 March 2025, 09:30 local time.
var referenceTime = time.Date(2025, time.March, 4, 9, 30, 0, 0, location)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// Location returns the fixed zone fixtures are expressed in. It avoids a
// dependency on the host's zone database.
func Location() *time.Location {
	return location
}

// Today returns the calendar date of ReferenceTime.
func Today() calendar.Date {
	return calendar.DateOf(referenceTime, location)
}

// DefaultClass is the class name fixtures render.
const DefaultClass = "CrossFit WOD"

// SessionFixture is one session rendered by FakeSurface.
type SessionFixture struct {
	Date       calendar.Date
	Start      string
	End        string
	Class      string
	Instructor string
	Taken      int
	Total      int
	Registered bool
	Hidden     bool
	// EndAnchor renders a second card anchored at the session's end boundary.
	EndAnchor bool
}

// SessionOption configures the generated session fixture.
type SessionOption func(*SessionFixture)

// NewSessionFixture returns a one hour class session at start on date.
func NewSessionFixture(date calendar.Date, start string, opts ...SessionOption) SessionFixture {
	fixture := SessionFixture{
		Date:       date,
		Start:      start,
		End:        plusHour(start),
		Class:      DefaultClass,
		Instructor: "Dana",
		Taken:      4,
		Total:      20,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithClass overrides the rendered class name.
func WithClass(name string) SessionOption {
	return func(f *SessionFixture) { f.Class = name }
}

// WithInstructor overrides the rendered instructor.
func WithInstructor(name string) SessionOption {
	return func(f *SessionFixture) { f.Instructor = name }
}

// WithOccupancy sets the taken/total fraction.
func WithOccupancy(taken, total int) SessionOption {
	return func(f *SessionFixture) {
		f.Taken = taken
		f.Total = total
	}
}

// WithRegistered marks the session as booked by the caller.
func WithRegistered() SessionOption {
	return func(f *SessionFixture) { f.Registered = true }
}

// WithHidden renders the card as not visible.
func WithHidden() SessionOption {
	return func(f *SessionFixture) { f.Hidden = true }
}

// WithEndAnchor renders the duplicate end-boundary card.
func WithEndAnchor() SessionOption {
	return func(f *SessionFixture) { f.EndAnchor = true }
}

// Label renders the card text the portal shows for the session.
func (f SessionFixture) Label() string {
	return fmt.Sprintf("%s - %s\n%s\n%s\n%d/%d", f.Start, f.End, f.Class, f.Instructor, f.Taken, f.Total)
}

// anchorLabel renders the end-boundary card text.
func (f SessionFixture) anchorLabel() string {
	return fmt.Sprintf("%s - %s\n%s\n%s\n%d/%d", f.End, f.End, f.Class, f.Instructor, f.Taken, f.Total)
}

func plusHour(start string) string {
	minutes, err := calendar.Minutes(start)
	if err != nil {
		return start
	}
	return calendar.FormatMinutes(minutes + 60)
}
