package portal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/class-booker/internal/calendar"
	"github.com/example/class-booker/internal/wait"
)

// Navigator brings the week containing a date into view. The step count is
// derived from calendar arithmetic between the displayed week and the target
// week, starting from the current week when the view was acquired. A view that
// is reloaded out of band is not detected beyond the settle check.
type Navigator struct {
	surface Surface
	shown   calendar.Date
	settle  time.Duration
	logger  *slog.Logger
}

// NewNavigator returns a navigator for a freshly acquired view showing the week of today.
func NewNavigator(surface Surface, today calendar.Date, settle time.Duration, logger *slog.Logger) *Navigator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Navigator{
		surface: surface,
		shown:   calendar.WeekStart(today),
		settle:  settle,
		logger:  logger,
	}
}

// Shown returns the start of the week the navigator believes is displayed.
func (n *Navigator) Shown() calendar.Date {
	return n.shown
}

// ShowWeekOf steps the view to the week containing target and waits for the
// first column header to show that week's start.
func (n *Navigator) ShowWeekOf(ctx context.Context, target calendar.Date) error {
	delta := calendar.WeeksBetween(n.shown, target)
	dir, step := Forward, calendar.DaysPerWeek
	if delta < 0 {
		dir, step, delta = Backward, -calendar.DaysPerWeek, -delta
	}
	if delta == 0 {
		return n.settleOn(ctx, n.shown)
	}

	for i := 0; i < delta; i++ {
		if err := n.surface.StepWeek(ctx, dir); err != nil {
			return fmt.Errorf("step week %s: %w", dir, err)
		}
		n.shown = n.shown.AddDays(step)
		if err := n.settleOn(ctx, n.shown); err != nil {
			return err
		}
	}
	return nil
}

// settleOn polls for the header of weekStart in column 0. When the header never
// matches, the poll has acted as a fixed settle delay and navigation continues.
func (n *Navigator) settleOn(ctx context.Context, weekStart calendar.Date) error {
	want := calendar.DayHeader(weekStart)
	var last string
	err := wait.Until(ctx, wait.DefaultOptions().WithTimeout(n.settle), func(ctx context.Context) (bool, error) {
		count, err := n.surface.ColumnCount(ctx)
		if err != nil || count == 0 {
			return false, nil
		}
		header, err := n.surface.ColumnHeader(ctx, 0)
		if err != nil {
			return false, nil
		}
		last = header
		return header == want, nil
	})
	if errors.Is(err, wait.ErrTimeout) {
		n.logger.Debug("week header did not settle",
			"week_start", weekStart.String(),
			"expected_header", want,
			"observed_header", last,
		)
		return nil
	}
	return err
}
