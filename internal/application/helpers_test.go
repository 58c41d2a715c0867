package application

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/example/class-booker/internal/calendar"
	"github.com/example/class-booker/internal/persistence"
	"github.com/example/class-booker/internal/persistence/jsonfile"
	"github.com/example/class-booker/internal/portal"
	"github.com/example/class-booker/internal/queue"
	"github.com/example/class-booker/internal/testfixtures"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testPortalConfig() portal.Config {
	return portal.Config{
		ClassName: testfixtures.DefaultClass,
		Timeouts: portal.Timeouts{
			Primary: 60 * time.Millisecond,
			Confirm: 60 * time.Millisecond,
			Probe:   30 * time.Millisecond,
			Settle:  30 * time.Millisecond,
			Close:   30 * time.Millisecond,
		},
		Location: testfixtures.Location(),
		Now:      testfixtures.NewClock(time.Time{}).NowFunc(),
	}
}

func day(offset int) calendar.Date {
	return testfixtures.Today().AddDays(offset)
}

func newTestQueue(t *testing.T) *queue.Queue {
	t.Helper()
	store := jsonfile.NewStoreWithLogger(filepath.Join(t.TempDir(), "queue.json"), quietLogger())
	return queue.NewWithLogger(store, quietLogger())
}

type attemptsStub struct {
	mu       sync.Mutex
	recorded []persistence.Attempt
	err      error
}

func (a *attemptsStub) RecordAttempt(ctx context.Context, attempt persistence.Attempt) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err != nil {
		return a.err
	}
	a.recorded = append(a.recorded, attempt)
	return nil
}

func (a *attemptsStub) ListAttempts(ctx context.Context, limit int) ([]persistence.Attempt, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]persistence.Attempt, 0, len(a.recorded))
	for i := len(a.recorded) - 1; i >= 0; i-- {
		out = append(out, a.recorded[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

type notifierStub struct {
	mu       sync.Mutex
	messages []string
	err      error
}

func (n *notifierStub) Notify(ctx context.Context, text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, text)
	return n.err
}

func (n *notifierStub) sent() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.messages...)
}

type queueStub struct {
	IntentQueue
	listErr error
}

func (q *queueStub) List(ctx context.Context) ([]queue.Intent, error) {
	if q.listErr != nil {
		return nil, q.listErr
	}
	return q.IntentQueue.List(ctx)
}

var errAcquire = errors.New("browser failed to start")
