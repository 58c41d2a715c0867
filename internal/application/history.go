package application

import (
	"context"
	"log/slog"
	"time"

	"github.com/example/class-booker/internal/persistence"
	"github.com/example/class-booker/internal/portal"
)

// history writes attempt rows. A nil repository turns it into a no-op.
type history struct {
	attempts    persistence.AttemptRepository
	idGenerator func() string
	now         func() time.Time
}

func (h history) record(ctx context.Context, logger *slog.Logger, runID, source, action string, result portal.Result, err error) {
	if h.attempts == nil {
		return
	}
	attempt := persistence.Attempt{
		ID:          h.idGenerator(),
		RunID:       runID,
		Source:      source,
		Action:      action,
		Date:        result.Date,
		Time:        result.Start,
		Outcome:     result.Outcome.String(),
		Message:     result.Message(),
		AttemptedAt: h.now(),
	}
	if err != nil {
		attempt.Outcome = "error"
		attempt.Message = err.Error()
	}
	if recErr := h.attempts.RecordAttempt(context.WithoutCancel(ctx), attempt); recErr != nil {
		logger.WarnContext(ctx, "failed to record attempt", "error", recErr, "error_kind", ErrorKind(recErr))
	}
}
