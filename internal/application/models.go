package application

import (
	"context"
	"fmt"
	"strings"

	"github.com/example/class-booker/internal/calendar"
	"github.com/example/class-booker/internal/portal"
	"github.com/example/class-booker/internal/queue"
)

// Attempt sources stored with the history.
const (
	SourceChat     = "chat"
	SourceQueue    = "queue"
	SourceTemplate = "template"
)

// Attempt actions stored with the history.
const (
	ActionRegister = "register"
	ActionCancel   = "cancel"
)

// IntentQueue is the pending registration queue used by the services.
type IntentQueue interface {
	Enqueue(ctx context.Context, intent queue.Intent) (bool, error)
	List(ctx context.Context) ([]queue.Intent, error)
	Remove(ctx context.Context, intent queue.Intent) (bool, error)
	Clear(ctx context.Context) error
}

// Notifier delivers one outbound text message.
type Notifier interface {
	Notify(ctx context.Context, text string) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, text string) error

// Notify calls f.
func (f NotifierFunc) Notify(ctx context.Context, text string) error {
	return f(ctx, text)
}

// Registration is the answer to a register request. Exactly one of Queued or
// Result applies: a slot beyond the open registration window is queued instead
// of executed.
type Registration struct {
	Intent        queue.Intent
	Queued        bool
	AlreadyQueued bool
	Result        portal.Result
}

// Message renders the registration for a person.
func (r Registration) Message() string {
	when := fmt.Sprintf("%s at %s", r.Intent.Date.Label(), r.Intent.Time)
	switch {
	case r.Queued && r.AlreadyQueued:
		return when + " is already queued for the weekly run."
	case r.Queued:
		return "Registration for " + when + " is not open yet; queued for the weekly run."
	}
	return r.Result.Message()
}

// ItemResult is the outcome of one batch attempt.
type ItemResult struct {
	Source string
	Date   calendar.Date
	Start  string
	Result portal.Result
	Err    error
}

// Succeeded reports whether the attempt ended holding the booking.
func (i ItemResult) Succeeded() bool {
	return i.Err == nil && i.Result.Outcome.Success()
}

// Line renders the item as one human-readable result line.
func (i ItemResult) Line() string {
	if i.Err != nil {
		return fmt.Sprintf("Error booking %s at %s: %v", i.Date.Label(), i.Start, i.Err)
	}
	return i.Result.Message()
}

// BatchReport aggregates the items attempted in one run.
type BatchReport struct {
	RunID string
	Title string
	Items []ItemResult
	// Notes holds run level problems that are not tied to an item.
	Notes []string
}

func (r *BatchReport) add(item ItemResult) {
	r.Items = append(r.Items, item)
}

func (r *BatchReport) note(format string, args ...any) {
	r.Notes = append(r.Notes, fmt.Sprintf(format, args...))
}

// Booked counts the items that ended holding the booking.
func (r BatchReport) Booked() int {
	booked := 0
	for _, item := range r.Items {
		if item.Succeeded() {
			booked++
		}
	}
	return booked
}

// Summary renders the single aggregated notification for the run.
func (r BatchReport) Summary() string {
	var b strings.Builder
	b.WriteString(r.Title)
	for _, group := range []struct {
		source  string
		heading string
	}{
		{SourceQueue, "Queued requests"},
		{SourceTemplate, "Weekly classes"},
	} {
		var lines []string
		for _, item := range r.Items {
			if item.Source == group.source {
				lines = append(lines, "- "+item.Line())
			}
		}
		if len(lines) == 0 {
			continue
		}
		fmt.Fprintf(&b, "\n\n%s:\n%s", group.heading, strings.Join(lines, "\n"))
	}
	for _, note := range r.Notes {
		b.WriteString("\n\n" + note)
	}
	if len(r.Items) == 0 && len(r.Notes) == 0 {
		b.WriteString("\n\nNothing to book.")
		return b.String()
	}
	fmt.Fprintf(&b, "\n\n%d of %d booked.", r.Booked(), len(r.Items))
	return b.String()
}
