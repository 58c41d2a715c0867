// Package scheduler arms the weekly batch run on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultSpec fires every Saturday at 21:00, when the next week opens for registration.
const DefaultSpec = "0 21 * * 6"

// Job is the work a trigger runs.
type Job func(ctx context.Context) error

// Trigger runs a Job on a cron schedule in a fixed zone. A firing that comes
// while the previous run is still going is skipped, and a panicking run is
// recovered and logged.
type Trigger struct {
	spec     string
	schedule cron.Schedule
	location *time.Location
	job      Job
	logger   *slog.Logger

	mu  sync.Mutex
	ctx context.Context
}

// NewTrigger parses spec, a standard five field cron expression or descriptor.
func NewTrigger(spec string, loc *time.Location, job Job, logger *slog.Logger) (*Trigger, error) {
	if spec == "" {
		spec = DefaultSpec
	}
	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("parse schedule %q: %w", spec, err)
	}
	if loc == nil {
		loc = time.Local
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Trigger{
		spec:     spec,
		schedule: schedule,
		location: loc,
		job:      job,
		logger:   logger.With("component", "scheduler", "spec", spec),
		ctx:      context.Background(),
	}, nil
}

// Next returns the first firing strictly after t.
func (t *Trigger) Next(after time.Time) time.Time {
	return t.schedule.Next(after.In(t.location))
}

// Start arms the trigger. The returned channel is closed once ctx is done and
// any run in progress has finished.
func (t *Trigger) Start(ctx context.Context) <-chan struct{} {
	t.mu.Lock()
	t.ctx = ctx
	t.mu.Unlock()

	cronLog := cronLogger{logger: t.logger}
	c := cron.New(
		cron.WithLocation(t.location),
		cron.WithLogger(cronLog),
		cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)),
	)
	c.Schedule(t.schedule, cron.FuncJob(func() { t.fire() }))
	c.Start()
	t.logger.InfoContext(ctx, "weekly trigger armed", "next", t.Next(time.Now()).Format(time.RFC3339))

	done := make(chan struct{})
	go func() {
		defer close(done)
		<-ctx.Done()
		<-c.Stop().Done()
		t.logger.Info("weekly trigger stopped")
	}()
	return done
}

// RunNow runs the job once on the caller's goroutine.
func (t *Trigger) RunNow(ctx context.Context) error {
	return t.run(ctx)
}

func (t *Trigger) fire() {
	t.mu.Lock()
	ctx := t.ctx
	t.mu.Unlock()
	if ctx.Err() != nil {
		return
	}
	_ = t.run(ctx)
}

func (t *Trigger) run(ctx context.Context) error {
	started := time.Now()
	t.logger.InfoContext(ctx, "scheduled run starting")
	if err := t.job(ctx); err != nil {
		t.logger.ErrorContext(ctx, "scheduled run failed", "error", err, "elapsed", time.Since(started).String())
		return err
	}
	t.logger.InfoContext(ctx, "scheduled run finished", "elapsed", time.Since(started).String())
	return nil
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, append([]any{"error", err}, keysAndValues...)...)
}
