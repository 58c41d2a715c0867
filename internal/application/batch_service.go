package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/example/class-booker/internal/calendar"
	"github.com/example/class-booker/internal/logging"
	"github.com/example/class-booker/internal/persistence"
	"github.com/example/class-booker/internal/portal"
	"github.com/example/class-booker/internal/recurrence"
	"github.com/example/class-booker/internal/wait"
)

// DefaultPause separates consecutive batch attempts.
const DefaultPause = time.Second

// BatchOptions tunes a BatchService.
type BatchOptions struct {
	Portal portal.Config
	// Pause between attempts. Zero selects DefaultPause, a negative value disables it.
	Pause time.Duration
	// NewID generates run and attempt identifiers. Defaults to random UUIDs.
	NewID func() string
}

// BatchService drains the queue and books the weekly template.
type BatchService struct {
	provider portal.Provider
	queue    IntentQueue
	template recurrence.Template
	engine   *recurrence.Engine
	notifier Notifier
	portal   portal.Config
	pause    time.Duration
	newID    func() string
	history  history
	logger   *slog.Logger
}

// NewBatchService constructs a batch service using the default logger.
func NewBatchService(provider portal.Provider, intents IntentQueue, template recurrence.Template, notifier Notifier, attempts persistence.AttemptRepository, opts BatchOptions) *BatchService {
	return NewBatchServiceWithLogger(provider, intents, template, notifier, attempts, opts, nil)
}

// NewBatchServiceWithLogger constructs a batch service with a specified logger.
// notifier and attempts may be nil.
func NewBatchServiceWithLogger(provider portal.Provider, intents IntentQueue, template recurrence.Template, notifier Notifier, attempts persistence.AttemptRepository, opts BatchOptions, logger *slog.Logger) *BatchService {
	cfg := normalizePortalConfig(opts.Portal)
	if opts.Pause == 0 {
		opts.Pause = DefaultPause
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	return &BatchService{
		provider: provider,
		queue:    intents,
		template: template,
		engine:   recurrence.NewEngine(cfg.Location),
		notifier: notifier,
		portal:   cfg,
		pause:    opts.Pause,
		newID:    opts.NewID,
		history:  history{attempts: attempts, idGenerator: opts.NewID, now: cfg.Now},
		logger:   defaultLogger(logger),
	}
}

func (s *BatchService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "BatchService", operation, attrs...)
}

func (s *BatchService) today() calendar.Date {
	return calendar.DateOf(s.portal.Now(), s.portal.Location)
}

// RunWeekly attempts every queued intent, clears the queue once all of them were
// attempted, then books the template for the coming week. One notification
// summarises the run. If no view could be acquired the run fails as a whole.
func (s *BatchService) RunWeekly(ctx context.Context) (BatchReport, error) {
	return s.run(ctx, "RunWeekly", "Weekly booking run", true)
}

// BookTemplate books the template for the coming week without touching the queue.
func (s *BatchService) BookTemplate(ctx context.Context) (BatchReport, error) {
	return s.run(ctx, "BookTemplate", "Weekly class booking", false)
}

func (s *BatchService) run(ctx context.Context, operation, title string, drainQueue bool) (report BatchReport, err error) {
	report = BatchReport{RunID: s.newID(), Title: title}
	logger := s.loggerWith(ctx, operation, "run_id", report.RunID)
	ctx = logging.ContextWithLogger(ctx, logger)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "batch run failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "batch run finished", "attempted", len(report.Items), "booked", report.Booked())
	}()

	occurrences := s.engine.ComingWeek(s.template, s.today())

	err = withClient(ctx, s.provider, s.portal, s.logger, func(ctx context.Context, client *portal.Client) error {
		b := batch{service: s, client: client, report: &report, logger: logger}
		if drainQueue {
			if err := b.drainQueue(ctx); err != nil {
				return err
			}
		}
		for _, occ := range occurrences {
			if err := b.attempt(ctx, SourceTemplate, occ.Date, occ.Start); err != nil {
				return err
			}
		}
		return nil
	})

	if errors.Is(err, ErrUnavailable) {
		s.notify(ctx, logger, fmt.Sprintf("%s failed: %v", title, err))
		return report, err
	}
	if err != nil {
		report.note("Run interrupted: %v", err)
	}
	s.notify(ctx, logger, report.Summary())
	return report, err
}

func (s *BatchService) notify(ctx context.Context, logger *slog.Logger, text string) {
	if s.notifier == nil {
		logger.InfoContext(ctx, "no notifier configured, dropping report", "text", text)
		return
	}
	if err := s.notifier.Notify(context.WithoutCancel(ctx), text); err != nil {
		logger.ErrorContext(ctx, "failed to send batch report", "error", err, "error_kind", ErrorKind(err))
	}
}

// batch is the state of one run over one acquired view.
type batch struct {
	service  *BatchService
	client   *portal.Client
	report   *BatchReport
	logger   *slog.Logger
	attempts int
}

func (b *batch) drainQueue(ctx context.Context) error {
	if b.service.queue == nil {
		return nil
	}
	intents, err := b.service.queue.List(ctx)
	if err != nil {
		b.logger.ErrorContext(ctx, "failed to read queue", "error", err, "error_kind", ErrorKind(err))
		b.report.note("Could not read the queue: %v", err)
		return nil
	}
	for _, intent := range intents {
		if err := b.attempt(ctx, SourceQueue, intent.Date, intent.Time); err != nil {
			return err
		}
	}
	if len(intents) == 0 {
		return nil
	}
	if err := b.service.queue.Clear(ctx); err != nil {
		b.logger.ErrorContext(ctx, "failed to clear queue", "error", err, "error_kind", ErrorKind(err))
		b.report.note("Could not clear the queue: %v", err)
	}
	return nil
}

// attempt registers one slot. Item failures are kept in the report; only a
// cancelled context stops the run.
func (b *batch) attempt(ctx context.Context, source string, date calendar.Date, start string) error {
	if b.attempts > 0 && b.service.pause > 0 {
		if err := wait.Sleep(ctx, b.service.pause); err != nil {
			return err
		}
	}
	b.attempts++

	result, err := b.client.Register(ctx, date, start)
	b.service.history.record(ctx, b.logger, b.report.RunID, source, ActionRegister, result, err)
	b.report.add(ItemResult{Source: source, Date: date, Start: start, Result: result, Err: err})
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return nil
}
