// Package portal drives the scheduling portal's rendered calendar: it addresses
// weeks and day columns, resolves session cards, runs the register and cancel
// interactions, and scans the visible week for existing bookings.
//
// Everything here works against Surface, the observable rendered state of one
// authenticated view. A Surface must not be shared by concurrent operations.
package portal

import "context"

// Direction selects a week navigation step.
type Direction int

const (
	// Forward advances the view by one week.
	Forward Direction = iota + 1
	// Backward retreats the view by one week.
	Backward
)

func (d Direction) String() string {
	switch d {
	case Forward:
		return "forward"
	case Backward:
		return "backward"
	}
	return "unknown"
}

// Surface is the rendered schedule of one authenticated portal view.
type Surface interface {
	// ColumnCount returns how many day columns are currently rendered.
	ColumnCount(ctx context.Context) (int, error)
	// ColumnHeader returns the header text of a day column.
	ColumnHeader(ctx context.Context, column int) (string, error)
	// Cards returns the session cards of a day column in render order.
	Cards(ctx context.Context, column int) ([]Card, error)
	// StepWeek issues a single week navigation interaction.
	StepWeek(ctx context.Context, dir Direction) error
	// AffordanceVisible reports whether a control with the exact label is visible.
	AffordanceVisible(ctx context.Context, label string) (bool, error)
	// Activate triggers the control with the exact label.
	Activate(ctx context.Context, label string) error
	// Dismiss closes whatever detail view is open.
	Dismiss(ctx context.Context) error
}

// Card is one rendered session card.
type Card interface {
	// Label returns the raw card text, e.g. "07:00 - 08:00\nCrossFit WOD\nDana\n15/20".
	Label(ctx context.Context) (string, error)
	Visible(ctx context.Context) (bool, error)
	// Open opens the card's detail view.
	Open(ctx context.Context) error
}

// Labels are the exact control captions rendered in the detail view.
type Labels struct {
	Register      string
	CancelBooking string
	ConfirmCancel string
}

// DefaultLabels returns the captions the portal renders in its configured locale.
func DefaultLabels() Labels {
	return Labels{
		Register:      "רישום",
		CancelBooking: "ביטול הרשמה",
		ConfirmCancel: "כן, לבטל בבקשה",
	}
}

func (l Labels) withDefaults() Labels {
	def := DefaultLabels()
	if l.Register == "" {
		l.Register = def.Register
	}
	if l.CancelBooking == "" {
		l.CancelBooking = def.CancelBooking
	}
	if l.ConfirmCancel == "" {
		l.ConfirmCancel = def.ConfirmCancel
	}
	return l
}

func (l Labels) all() []string {
	return []string{l.Register, l.CancelBooking, l.ConfirmCancel}
}
