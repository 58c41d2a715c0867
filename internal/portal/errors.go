package portal

import (
	"errors"
	"fmt"

	"github.com/example/class-booker/internal/calendar"
	"github.com/example/class-booker/internal/wait"
)

var (
	// ErrNotFound is returned when a slot or its day column is not rendered.
	ErrNotFound = errors.New("portal: slot not found")
	// ErrSessionInvalid is returned when the cached session is no longer authenticated.
	ErrSessionInvalid = errors.New("portal: session not authenticated")
	// ErrTimedOut is returned when an expected control did not appear in time.
	ErrTimedOut = errors.New("portal: timed out waiting for the view")
)

// NotFoundError carries the diagnostics of a failed slot resolution.
type NotFoundError struct {
	Date     calendar.Date
	Start    string
	Column   int
	Rendered int
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	if e.Rendered == 0 {
		return fmt.Sprintf("no day columns rendered for %s at %s; the schedule may not have loaded yet",
			e.Date.Label(), e.Start)
	}
	if e.Column >= e.Rendered {
		return fmt.Sprintf("day column %d not found for %s (only %d visible)",
			e.Column, e.Date.Label(), e.Rendered)
	}
	return fmt.Sprintf("no class slot found for %s at %s (day column %d of %d, sunday=0)",
		e.Date.Label(), e.Start, e.Column, e.Rendered)
}

// Is reports ErrNotFound equivalence.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// ErrorKind maps portal errors to a stable logging label.
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}
	switch {
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrSessionInvalid):
		return "session_invalid"
	case errors.Is(err, ErrTimedOut), errors.Is(err, wait.ErrTimeout):
		return "timed_out"
	case errors.Is(err, ErrBusy):
		return "busy"
	}
	return "unexpected"
}
