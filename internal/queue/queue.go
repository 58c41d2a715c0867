// Package queue holds booking intents for weeks whose registration window has
// not opened yet.
package queue

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/example/class-booker/internal/calendar"
	"github.com/example/class-booker/internal/persistence"
)

// Intent is an unexecuted registration request. The (Date, Time) pair is its identity.
type Intent struct {
	Date calendar.Date
	Time string
}

// String renders the intent for chat replies, e.g. "Sunday 09/03 07:00".
func (i Intent) String() string {
	return i.Date.Label() + " " + i.Time
}

func (i Intent) entry() persistence.QueueEntry {
	return persistence.QueueEntry{Date: i.Date, Time: i.Time}
}

func fromEntry(e persistence.QueueEntry) Intent {
	return Intent{Date: e.Date, Time: e.Time}
}

// Queue is the ordered pending registration queue. Every mutation is a
// read-modify-write of the repository performed under one lock, so concurrent
// callers in the same process never lose each other's changes.
type Queue struct {
	mu     sync.Mutex
	repo   persistence.QueueRepository
	logger *slog.Logger
}

// New returns a queue persisted through repo.
func New(repo persistence.QueueRepository) *Queue {
	return NewWithLogger(repo, nil)
}

// NewWithLogger returns a queue that logs mutations to logger.
func NewWithLogger(repo persistence.QueueRepository, logger *slog.Logger) *Queue {
	if logger == nil {
		logger = slog.Default()
	}
	return &Queue{repo: repo, logger: logger.With("component", "queue")}
}

// Enqueue appends intent unless the same pair is already queued. added is false
// when it was present, in which case nothing is written.
func (q *Queue) Enqueue(ctx context.Context, intent Intent) (added bool, err error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	entries, err := q.load(ctx)
	if err != nil {
		return false, err
	}
	for _, e := range entries {
		if fromEntry(e) == intent {
			q.logger.DebugContext(ctx, "intent already queued", "date", intent.Date.String(), "time", intent.Time)
			return false, nil
		}
	}
	if err := q.save(ctx, append(entries, intent.entry())); err != nil {
		return false, err
	}
	q.logger.InfoContext(ctx, "intent queued", "date", intent.Date.String(), "time", intent.Time, "size", len(entries)+1)
	return true, nil
}

// List returns the full queue contents in insertion order.
func (q *Queue) List(ctx context.Context) ([]Intent, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	entries, err := q.load(ctx)
	if err != nil {
		return nil, err
	}
	intents := make([]Intent, 0, len(entries))
	for _, e := range entries {
		intents = append(intents, fromEntry(e))
	}
	return intents, nil
}

// Remove drops the first entry matching intent. removed is false when no entry
// matched, in which case nothing is written.
func (q *Queue) Remove(ctx context.Context, intent Intent) (removed bool, err error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	entries, err := q.load(ctx)
	if err != nil {
		return false, err
	}
	for i, e := range entries {
		if fromEntry(e) != intent {
			continue
		}
		remaining := append(entries[:i:i], entries[i+1:]...)
		if err := q.save(ctx, remaining); err != nil {
			return false, err
		}
		q.logger.InfoContext(ctx, "intent removed", "date", intent.Date.String(), "time", intent.Time)
		return true, nil
	}
	return false, nil
}

// Clear empties the queue.
func (q *Queue) Clear(ctx context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if err := q.save(ctx, nil); err != nil {
		return err
	}
	q.logger.InfoContext(ctx, "queue cleared")
	return nil
}

func (q *Queue) load(ctx context.Context) ([]persistence.QueueEntry, error) {
	entries, err := q.repo.LoadQueue(ctx)
	if err != nil {
		return nil, fmt.Errorf("load queue: %w", err)
	}
	return entries, nil
}

func (q *Queue) save(ctx context.Context, entries []persistence.QueueEntry) error {
	if err := q.repo.SaveQueue(ctx, entries); err != nil {
		return fmt.Errorf("save queue: %w", err)
	}
	return nil
}
