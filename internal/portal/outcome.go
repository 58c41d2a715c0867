package portal

import (
	"fmt"

	"github.com/example/class-booker/internal/calendar"
)

// Outcome is the terminal state of a register or cancel interaction.
type Outcome int

const (
	Registered Outcome = iota + 1
	AlreadyRegistered
	Full
	NotFound
	TimedOut
	Cancelled
	NotRegistered
)

var outcomeNames = map[Outcome]string{
	Registered:        "registered",
	AlreadyRegistered: "already_registered",
	Full:              "full",
	NotFound:          "not_found",
	TimedOut:          "timed_out",
	Cancelled:         "cancelled",
	NotRegistered:     "not_registered",
}

// String returns the stable name used in logs and stored history.
func (o Outcome) String() string {
	if name, ok := outcomeNames[o]; ok {
		return name
	}
	return "unknown"
}

// ParseOutcome is the inverse of Outcome.String.
func ParseOutcome(name string) (Outcome, bool) {
	for o, n := range outcomeNames {
		if n == name {
			return o, true
		}
	}
	return 0, false
}

// Success reports whether the caller holds the booking state it asked for.
func (o Outcome) Success() bool {
	switch o {
	case Registered, AlreadyRegistered, Cancelled, NotRegistered:
		return true
	}
	return false
}

// Result describes how an interaction ended.
type Result struct {
	Outcome   Outcome
	Date      calendar.Date
	Start     string
	Occupancy Occupancy
	// Detail holds the resolution diagnostic of a NotFound result.
	Detail string
}

// Message renders the result for a person.
func (r Result) Message() string {
	when := fmt.Sprintf("%s at %s", r.Date.Label(), r.Start)
	switch r.Outcome {
	case Registered:
		return "Registered for " + when + "."
	case AlreadyRegistered:
		return "Already registered for " + when + "."
	case Full:
		return fmt.Sprintf("Class is full (%s) on %s.", r.Occupancy, when)
	case NotFound:
		if r.Detail != "" {
			return r.Detail
		}
		return "No class slot found for " + when + "."
	case TimedOut:
		return "The portal did not respond in time for " + when + "; try again later."
	case Cancelled:
		return "Cancelled " + when + "."
	case NotRegistered:
		return "Not registered for " + when + "; nothing to cancel."
	}
	return "Unknown result for " + when + "."
}
