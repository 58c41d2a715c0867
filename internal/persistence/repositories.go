package persistence

import "context"

// QueueRepository stores the ordered booking queue. Implementations replace the
// whole list on every save.
type QueueRepository interface {
	LoadQueue(ctx context.Context) ([]QueueEntry, error)
	SaveQueue(ctx context.Context, entries []QueueEntry) error
}

// AttemptRepository stores the history of booking attempts.
type AttemptRepository interface {
	RecordAttempt(ctx context.Context, attempt Attempt) error
	// ListAttempts returns the most recent attempts first.
	ListAttempts(ctx context.Context, limit int) ([]Attempt, error)
}
