package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/example/class-booker/internal/application"
	"github.com/example/class-booker/internal/calendar"
	"github.com/example/class-booker/internal/persistence"
	"github.com/example/class-booker/internal/portal"
	"github.com/example/class-booker/internal/queue"
)

// historyLimit caps the rows shown by the history command.
const historyLimit = 10

// Booker is the interactive booking surface the commands drive.
type Booker interface {
	Today() calendar.Date
	Register(ctx context.Context, date calendar.Date, start string) (application.Registration, error)
	Cancel(ctx context.Context, date calendar.Date, start string) (portal.Result, error)
	AvailableTimes(ctx context.Context, date calendar.Date) ([]string, error)
	Registered(ctx context.Context) ([]portal.Detection, error)
	Queue(ctx context.Context) ([]queue.Intent, error)
	Unqueue(ctx context.Context, date calendar.Date, start string) (bool, error)
	ClearQueue(ctx context.Context) error
	History(ctx context.Context, limit int) ([]persistence.Attempt, error)
}

// WeekBooker books the standing weekly template.
type WeekBooker interface {
	BookTemplate(ctx context.Context) (application.BatchReport, error)
}

// Responder sends replies back to the chat a command came from.
type Responder interface {
	Reply(ctx context.Context, text string) error
}

// ResponderFunc adapts a function to Responder.
type ResponderFunc func(ctx context.Context, text string) error

// Reply calls f.
func (f ResponderFunc) Reply(ctx context.Context, text string) error {
	return f(ctx, text)
}

// Dispatcher routes commands to handlers.
type Dispatcher struct {
	booker   Booker
	week     WeekBooker
	handlers map[string]handler
	logger   *slog.Logger
}

type handler func(ctx context.Context, args []string, out *replies) error

// NewDispatcher constructs a dispatcher. week may be nil, which disables bookweek.
func NewDispatcher(booker Booker, week WeekBooker, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	d := &Dispatcher{booker: booker, week: week, logger: logger.With("component", "chat")}
	d.handlers = map[string]handler{
		"start":      d.help,
		"help":       d.help,
		"register":   d.register,
		"cancel":     d.cancel,
		"bookweek":   d.bookWeek,
		"slots":      d.slots,
		"mystatus":   d.myStatus,
		"myqueue":    d.myQueue,
		"unqueue":    d.unqueue,
		"clearqueue": d.clearQueue,
		"history":    d.history,
	}
	return d
}

// Commands lists the command names the dispatcher understands.
func (d *Dispatcher) Commands() []string {
	return []string{"start", "help", "register", "cancel", "bookweek", "slots", "mystatus", "myqueue", "unqueue", "clearqueue", "history"}
}

// Handle runs the command in text and sends its replies. Failures are logged
// and answered with a readable message; nothing is returned to the transport.
func (d *Dispatcher) Handle(ctx context.Context, text string, responder Responder) {
	command, args := Split(text)
	logger := d.logger.With("command", command)
	out := &replies{responder: responder, logger: logger}

	h, ok := d.handlers[command]
	if !ok {
		out.send(ctx, "Unknown command. Send /help for the list of commands.")
		return
	}
	if err := h(ctx, args, out); err != nil {
		logger.ErrorContext(ctx, "command failed", "args", strings.Join(args, " "), "error", err, "error_kind", application.ErrorKind(err))
		out.send(ctx, UserMessage(err))
	}
}

// UserMessage converts an error into the reply shown to the user.
func UserMessage(err error) string {
	var vErr *application.ValidationError
	switch {
	case errors.Is(err, ErrBadArgument):
		return "Could not understand that: " + strings.TrimPrefix(err.Error(), ErrBadArgument.Error()+": ")
	case errors.As(err, &vErr):
		return "Invalid request: " + strings.TrimPrefix(vErr.Error(), "validation failed: ")
	case errors.Is(err, portal.ErrBusy):
		return "Another booking is in progress; try again in a minute."
	case errors.Is(err, application.ErrUnavailable):
		return "Could not open the schedule portal; try again later."
	}
	return "Error: " + err.Error()
}

type replies struct {
	responder Responder
	logger    *slog.Logger
}

func (r *replies) send(ctx context.Context, text string) {
	if err := r.responder.Reply(ctx, text); err != nil {
		r.logger.WarnContext(ctx, "failed to send reply", "error", err)
	}
}

const helpText = `Class booking bot.

/register <day> <time> - current week: registered now, next week: queued
/cancel <day> <time> - cancel a booking now
/slots <day> - list class times
/mystatus - classes you are registered for this week
/myqueue - pending next-week registrations
/unqueue <day> <time> - drop a pending registration
/clearqueue - drop every pending registration
/bookweek - register every standing class of next week now
/history - recent booking attempts

Days: today, tomorrow, a weekday name (English or Hebrew).
Times: 07:00, 7am, 6:30pm, 1830.
Queued registrations run every Saturday at 21:00.`

func (d *Dispatcher) help(ctx context.Context, _ []string, out *replies) error {
	out.send(ctx, helpText)
	return nil
}

func (d *Dispatcher) register(ctx context.Context, args []string, out *replies) error {
	today := d.booker.Today()
	date, start, err := parseSlot(args, today)
	if err != nil {
		return fmt.Errorf("%w (usage: /register sunday 07:00)", err)
	}
	if !date.After(calendar.WeekEnd(today)) {
		out.send(ctx, fmt.Sprintf("Registering %s %s...", date.Label(), start))
	}
	reg, err := d.booker.Register(ctx, date, start)
	if err != nil {
		return err
	}
	out.send(ctx, reg.Message())
	return nil
}

func (d *Dispatcher) cancel(ctx context.Context, args []string, out *replies) error {
	date, start, err := parseSlot(args, d.booker.Today())
	if err != nil {
		return fmt.Errorf("%w (usage: /cancel monday 08:00)", err)
	}
	out.send(ctx, fmt.Sprintf("Cancelling %s %s...", date.Label(), start))
	result, err := d.booker.Cancel(ctx, date, start)
	if err != nil {
		return err
	}
	out.send(ctx, result.Message())
	return nil
}

func (d *Dispatcher) bookWeek(ctx context.Context, _ []string, out *replies) error {
	if d.week == nil {
		return fmt.Errorf("%w: weekly booking", application.ErrNotConfigured)
	}
	out.send(ctx, "Registering every standing class of next week...")
	report, err := d.week.BookTemplate(ctx)
	if err != nil {
		return err
	}
	out.send(ctx, report.Summary())
	return nil
}

func (d *Dispatcher) slots(ctx context.Context, args []string, out *replies) error {
	if len(args) < 1 {
		return fmt.Errorf("%w: expected <day> (usage: /slots tuesday)", ErrBadArgument)
	}
	date, err := ParseDay(args[0], d.booker.Today())
	if err != nil {
		return err
	}
	out.send(ctx, fmt.Sprintf("Loading classes for %s...", date.Label()))
	times, err := d.booker.AvailableTimes(ctx, date)
	if err != nil {
		return err
	}
	if len(times) == 0 {
		out.send(ctx, fmt.Sprintf("No classes found on %s.", date.Label()))
		return nil
	}
	out.send(ctx, fmt.Sprintf("Classes on %s:\n%s", date.Label(), strings.Join(times, "\n")))
	return nil
}

func (d *Dispatcher) myStatus(ctx context.Context, _ []string, out *replies) error {
	out.send(ctx, "Scanning registered classes... (this can take a minute)")
	found, err := d.booker.Registered(ctx)
	if err != nil {
		return err
	}
	if len(found) == 0 {
		out.send(ctx, "No registered classes this week.")
		return nil
	}
	lines := []string{"Registered classes this week:"}
	for _, detection := range found {
		lines = append(lines, fmt.Sprintf("- %s %s", detection.Date.Label(), detection.Start))
	}
	out.send(ctx, strings.Join(lines, "\n"))
	return nil
}

func (d *Dispatcher) myQueue(ctx context.Context, _ []string, out *replies) error {
	intents, err := d.booker.Queue(ctx)
	if err != nil {
		return err
	}
	if len(intents) == 0 {
		out.send(ctx, "The queue is empty; no pending registrations.")
		return nil
	}
	lines := []string{"Pending registrations (run Saturday 21:00):"}
	for _, intent := range intents {
		lines = append(lines, "- "+intent.String())
	}
	out.send(ctx, strings.Join(lines, "\n"))
	return nil
}

func (d *Dispatcher) unqueue(ctx context.Context, args []string, out *replies) error {
	date, start, err := parseSlot(args, d.booker.Today())
	if err != nil {
		return fmt.Errorf("%w (usage: /unqueue sunday 07:00)", err)
	}
	intent := queue.Intent{Date: date, Time: start}
	removed, err := d.booker.Unqueue(ctx, date, start)
	if err != nil {
		return err
	}
	if !removed {
		out.send(ctx, intent.String()+" is not in the queue.")
		return nil
	}
	out.send(ctx, "Removed "+intent.String()+" from the queue.")
	return nil
}

func (d *Dispatcher) clearQueue(ctx context.Context, _ []string, out *replies) error {
	if err := d.booker.ClearQueue(ctx); err != nil {
		return err
	}
	out.send(ctx, "Queue cleared.")
	return nil
}

func (d *Dispatcher) history(ctx context.Context, _ []string, out *replies) error {
	attempts, err := d.booker.History(ctx, historyLimit)
	if err != nil {
		return err
	}
	if len(attempts) == 0 {
		out.send(ctx, "No booking history yet.")
		return nil
	}
	lines := []string{"Recent attempts:"}
	for _, a := range attempts {
		lines = append(lines, fmt.Sprintf("- %s %s %s: %s (%s)", a.Date.Label(), a.Time, a.Action, a.Outcome, a.Source))
	}
	out.send(ctx, strings.Join(lines, "\n"))
	return nil
}
