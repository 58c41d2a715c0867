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

// Timeouts bound every wait the client performs.
type Timeouts struct {
	Primary time.Duration
	Confirm time.Duration
	Probe   time.Duration
	Settle  time.Duration
	Close   time.Duration
}

// DefaultTimeouts returns the bounds the portal is known to satisfy.
func DefaultTimeouts() Timeouts {
	return Timeouts{
		Primary: 3 * time.Second,
		Confirm: 5 * time.Second,
		Probe:   800 * time.Millisecond,
		Settle:  1500 * time.Millisecond,
		Close:   time.Second,
	}
}

func (t Timeouts) withDefaults() Timeouts {
	def := DefaultTimeouts()
	if t.Primary <= 0 {
		t.Primary = def.Primary
	}
	if t.Confirm <= 0 {
		t.Confirm = def.Confirm
	}
	if t.Probe <= 0 {
		t.Probe = def.Probe
	}
	if t.Settle <= 0 {
		t.Settle = def.Settle
	}
	if t.Close <= 0 {
		t.Close = def.Close
	}
	return t
}

// Register books the session at start on date.
func (c *Client) Register(ctx context.Context, date calendar.Date, start string) (result Result, err error) {
	logger := c.opLogger(ctx, "register", "date", date.String(), "time", start)
	result = Result{Date: date, Start: start}
	defer func() { c.logResult(logger, result, err) }()

	slot, err := c.Locate(ctx, date, start)
	if err != nil {
		return notFoundResult(result, err)
	}
	result.Occupancy = slot.Occupancy()
	if result.Occupancy.Full() {
		result.Outcome = Full
		return result, nil
	}

	if err := slot.card.Open(ctx); err != nil {
		return result, fmt.Errorf("open slot: %w", err)
	}
	defer c.ensureClosed(ctx, logger)

	seen, err := c.awaitFirst(ctx, c.timeouts.Primary, c.labels.Register, c.labels.CancelBooking)
	if errors.Is(err, wait.ErrTimeout) {
		result.Outcome = TimedOut
		return result, nil
	}
	if err != nil {
		return result, err
	}

	if seen == c.labels.CancelBooking {
		result.Outcome = AlreadyRegistered
		return result, nil
	}
	if err := c.surface.Activate(ctx, c.labels.Register); err != nil {
		return result, fmt.Errorf("activate register: %w", err)
	}
	result.Outcome = Registered
	return result, nil
}

// Cancel releases the booking for the session at start on date.
func (c *Client) Cancel(ctx context.Context, date calendar.Date, start string) (result Result, err error) {
	logger := c.opLogger(ctx, "cancel", "date", date.String(), "time", start)
	result = Result{Date: date, Start: start}
	defer func() { c.logResult(logger, result, err) }()

	slot, err := c.Locate(ctx, date, start)
	if err != nil {
		return notFoundResult(result, err)
	}
	result.Occupancy = slot.Occupancy()

	if err := slot.card.Open(ctx); err != nil {
		return result, fmt.Errorf("open slot: %w", err)
	}
	defer c.ensureClosed(ctx, logger)

	_, err = c.awaitFirst(ctx, c.timeouts.Primary, c.labels.CancelBooking)
	if errors.Is(err, wait.ErrTimeout) {
		result.Outcome = NotRegistered
		return result, nil
	}
	if err != nil {
		return result, err
	}
	if err := c.surface.Activate(ctx, c.labels.CancelBooking); err != nil {
		return result, fmt.Errorf("activate cancel registration: %w", err)
	}

	_, err = c.awaitFirst(ctx, c.timeouts.Confirm, c.labels.ConfirmCancel)
	if errors.Is(err, wait.ErrTimeout) {
		result.Outcome = TimedOut
		return result, nil
	}
	if err != nil {
		return result, err
	}
	if err := c.surface.Activate(ctx, c.labels.ConfirmCancel); err != nil {
		return result, fmt.Errorf("activate confirmation: %w", err)
	}
	result.Outcome = Cancelled
	return result, nil
}

func notFoundResult(result Result, err error) (Result, error) {
	var nf *NotFoundError
	if errors.As(err, &nf) {
		result.Outcome = NotFound
		result.Detail = nf.Error()
		return result, nil
	}
	return result, err
}

// awaitFirst polls until one of labels is visible and returns it. Labels are
// checked in order on every poll.
func (c *Client) awaitFirst(ctx context.Context, timeout time.Duration, labels ...string) (string, error) {
	var seen string
	err := wait.Until(ctx, wait.DefaultOptions().WithTimeout(timeout), func(ctx context.Context) (bool, error) {
		for _, label := range labels {
			visible, err := c.surface.AffordanceVisible(ctx, label)
			if err != nil {
				return false, fmt.Errorf("probe %q: %w", label, err)
			}
			if visible {
				seen = label
				return true, nil
			}
		}
		return false, nil
	})
	return seen, err
}

// ensureClosed dismisses the detail view and waits until none of its
// affordances is visible. Failure is logged, never returned.
func (c *Client) ensureClosed(ctx context.Context, logger *slog.Logger) {
	ctx = context.WithoutCancel(ctx)
	if err := c.surface.Dismiss(ctx); err != nil {
		logger.Warn("dismiss detail view failed", "error", err, "error_kind", ErrorKind(err))
		return
	}
	labels := c.labels.all()
	err := wait.Until(ctx, wait.DefaultOptions().WithTimeout(c.timeouts.Close), func(ctx context.Context) (bool, error) {
		for _, label := range labels {
			visible, err := c.surface.AffordanceVisible(ctx, label)
			if err != nil {
				return false, err
			}
			if visible {
				return false, nil
			}
		}
		return true, nil
	})
	if err != nil {
		logger.Warn("detail view still open after dismiss", "error", err, "error_kind", ErrorKind(err))
	}
}

func (c *Client) logResult(logger *slog.Logger, result Result, err error) {
	if err != nil {
		logger.Error("portal interaction failed", "error", err, "error_kind", ErrorKind(err))
		return
	}
	logger.Info("portal interaction finished", "outcome", result.Outcome.String(), "occupancy", result.Occupancy.String())
}
