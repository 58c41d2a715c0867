package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/class-booker/internal/calendar"
	"github.com/example/class-booker/internal/persistence"
	"github.com/example/class-booker/internal/portal"
	"github.com/example/class-booker/internal/queue"
)

// BookingService runs the interactive operations. Each call acquires its own
// portal view from the provider.
type BookingService struct {
	provider portal.Provider
	queue    IntentQueue
	portal   portal.Config
	history  history
	logger   *slog.Logger
}

// NewBookingService constructs a booking service using the default logger.
func NewBookingService(provider portal.Provider, intents IntentQueue, attempts persistence.AttemptRepository, cfg portal.Config, idGenerator func() string) *BookingService {
	return NewBookingServiceWithLogger(provider, intents, attempts, cfg, idGenerator, nil)
}

// NewBookingServiceWithLogger constructs a booking service with a specified logger.
// attempts may be nil, in which case no history is kept.
func NewBookingServiceWithLogger(provider portal.Provider, intents IntentQueue, attempts persistence.AttemptRepository, cfg portal.Config, idGenerator func() string, logger *slog.Logger) *BookingService {
	cfg = normalizePortalConfig(cfg)
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	return &BookingService{
		provider: provider,
		queue:    intents,
		portal:   cfg,
		history:  history{attempts: attempts, idGenerator: idGenerator, now: cfg.Now},
		logger:   defaultLogger(logger),
	}
}

func normalizePortalConfig(cfg portal.Config) portal.Config {
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return cfg
}

func (s *BookingService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "BookingService", operation, attrs...)
}

// Today returns the current date in the portal's zone.
func (s *BookingService) Today() calendar.Date {
	return calendar.DateOf(s.portal.Now(), s.portal.Location)
}

// Register books the slot now when its week is open for registration, and
// queues it for the weekly run otherwise. A current-week slot is never queued.
func (s *BookingService) Register(ctx context.Context, date calendar.Date, start string) (reg Registration, err error) {
	logger := s.loggerWith(ctx, "Register", "date", date.String(), "time", start)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "registration failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "registration handled", "queued", reg.Queued, "outcome", reg.Result.Outcome.String())
	}()

	today := s.Today()
	if vErr := validateSlot(date, start, today); vErr.HasErrors() {
		err = vErr
		return
	}
	reg.Intent = queue.Intent{Date: date, Time: start}

	if date.After(calendar.WeekEnd(today)) {
		if s.queue == nil {
			err = fmt.Errorf("%w: no queue for future weeks", ErrNotConfigured)
			return
		}
		var added bool
		added, err = s.queue.Enqueue(ctx, reg.Intent)
		if err != nil {
			return
		}
		reg.Queued = true
		reg.AlreadyQueued = !added
		return
	}

	err = s.withClient(ctx, func(ctx context.Context, client *portal.Client) error {
		var opErr error
		reg.Result, opErr = client.Register(ctx, date, start)
		s.history.record(ctx, logger, "", SourceChat, ActionRegister, reg.Result, opErr)
		return opErr
	})
	return
}

// Cancel releases the caller's booking for the slot.
func (s *BookingService) Cancel(ctx context.Context, date calendar.Date, start string) (result portal.Result, err error) {
	logger := s.loggerWith(ctx, "Cancel", "date", date.String(), "time", start)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "cancellation failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "cancellation handled", "outcome", result.Outcome.String())
	}()

	if vErr := validateSlot(date, start, s.Today()); vErr.HasErrors() {
		err = vErr
		return
	}

	err = s.withClient(ctx, func(ctx context.Context, client *portal.Client) error {
		var opErr error
		result, opErr = client.Cancel(ctx, date, start)
		s.history.record(ctx, logger, "", SourceChat, ActionCancel, result, opErr)
		return opErr
	})
	return
}

// AvailableTimes lists the class start times rendered on date, full ones included.
func (s *BookingService) AvailableTimes(ctx context.Context, date calendar.Date) (times []string, err error) {
	logger := s.loggerWith(ctx, "AvailableTimes", "date", date.String())
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to list available times", "error", err, "error_kind", ErrorKind(err))
		}
	}()

	err = s.withClient(ctx, func(ctx context.Context, client *portal.Client) error {
		var opErr error
		times, opErr = client.ListAvailable(ctx, date)
		return opErr
	})
	return
}

// Registered lists the caller's bookings in the current week from today on.
func (s *BookingService) Registered(ctx context.Context) (found []portal.Detection, err error) {
	logger := s.loggerWith(ctx, "Registered")
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to scan registrations", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "registrations scanned", "count", len(found))
	}()

	err = s.withClient(ctx, func(ctx context.Context, client *portal.Client) error {
		var opErr error
		found, opErr = client.Registered(ctx)
		return opErr
	})
	return
}

// Queue returns the pending intents in order.
func (s *BookingService) Queue(ctx context.Context) ([]queue.Intent, error) {
	if s.queue == nil {
		return nil, nil
	}
	return s.queue.List(ctx)
}

// Unqueue removes one pending intent. removed is false when it was not queued.
func (s *BookingService) Unqueue(ctx context.Context, date calendar.Date, start string) (removed bool, err error) {
	if s.queue == nil {
		return false, nil
	}
	removed, err = s.queue.Remove(ctx, queue.Intent{Date: date, Time: start})
	if err != nil {
		s.loggerWith(ctx, "Unqueue").ErrorContext(ctx, "failed to remove intent", "error", err, "error_kind", ErrorKind(err))
	}
	return removed, err
}

// ClearQueue drops every pending intent.
func (s *BookingService) ClearQueue(ctx context.Context) error {
	if s.queue == nil {
		return nil
	}
	if err := s.queue.Clear(ctx); err != nil {
		s.loggerWith(ctx, "ClearQueue").ErrorContext(ctx, "failed to clear queue", "error", err, "error_kind", ErrorKind(err))
		return err
	}
	return nil
}

// History returns up to limit recorded attempts, newest first. It is empty when
// no attempt store is configured.
func (s *BookingService) History(ctx context.Context, limit int) ([]persistence.Attempt, error) {
	if s.history.attempts == nil {
		return nil, nil
	}
	return s.history.attempts.ListAttempts(ctx, limit)
}

func (s *BookingService) withClient(ctx context.Context, fn func(ctx context.Context, client *portal.Client) error) error {
	return withClient(ctx, s.provider, s.portal, s.logger, fn)
}

// withClient acquires a view and runs fn with a client over it. An error that
// occurred before any view was handed out is marked ErrUnavailable.
func withClient(ctx context.Context, provider portal.Provider, cfg portal.Config, logger *slog.Logger, fn func(ctx context.Context, client *portal.Client) error) error {
	if provider == nil {
		return fmt.Errorf("%w: no portal provider", ErrNotConfigured)
	}
	acquired := false
	err := portal.WithSurface(ctx, provider, func(ctx context.Context, surface portal.Surface) error {
		acquired = true
		return fn(ctx, portal.NewClientWithLogger(surface, cfg, logger))
	})
	if err != nil && !acquired {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return err
}

func validateSlot(date calendar.Date, start string, today calendar.Date) *ValidationError {
	vErr := &ValidationError{}
	if date.IsZero() {
		vErr.add("date", "is required")
	} else if date.Before(today) {
		vErr.add("date", "is in the past")
	}
	if _, err := calendar.Minutes(start); err != nil {
		vErr.add("time", "must be HH:MM")
	}
	return vErr
}
