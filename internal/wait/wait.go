// Package wait provides bounded polling used in place of unconditional sleeps
// while the portal re-renders client side.
package wait

import (
	"context"
	"errors"
	"time"
)

// ErrTimeout is returned when a condition did not hold before the deadline.
var ErrTimeout = errors.New("wait: condition not met before timeout")

// Condition reports whether the awaited state has been reached.
type Condition func(ctx context.Context) (bool, error)

// Options configures a poll. Zero values fall back to DefaultOptions.
type Options struct {
	Timeout       time.Duration
	Interval      time.Duration
	MaxInterval   time.Duration
	BackoffFactor float64
}

// DefaultOptions returns a poll configuration suited to UI affordances.
func DefaultOptions() Options {
	return Options{
		Timeout:       3 * time.Second,
		Interval:      50 * time.Millisecond,
		MaxInterval:   400 * time.Millisecond,
		BackoffFactor: 1.5,
	}
}

// WithTimeout returns a copy of o with a different overall bound.
func (o Options) WithTimeout(timeout time.Duration) Options {
	o.Timeout = timeout
	return o
}

func (o Options) normalized() Options {
	def := DefaultOptions()
	if o.Timeout <= 0 {
		o.Timeout = def.Timeout
	}
	if o.Interval <= 0 {
		o.Interval = def.Interval
	}
	if o.MaxInterval < o.Interval {
		o.MaxInterval = o.Interval
	}
	if o.BackoffFactor < 1 {
		o.BackoffFactor = 1
	}
	return o
}

// Until evaluates cond immediately and then repeatedly with a growing interval
// until it returns true, returns an error, or the timeout elapses. A timeout is
// reported as ErrTimeout; context cancellation is reported as the context error.
func Until(ctx context.Context, opts Options, cond Condition) error {
	opts = opts.normalized()
	deadline := time.Now().Add(opts.Timeout)
	delay := opts.Interval

	for {
		ok, err := cond(ctx)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return ErrTimeout
		}
		if delay > remaining {
			delay = remaining
		}

		if err := Sleep(ctx, delay); err != nil {
			return err
		}

		delay = time.Duration(float64(delay) * opts.BackoffFactor)
		if delay > opts.MaxInterval {
			delay = opts.MaxInterval
		}
	}
}

// Sleep pauses for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
