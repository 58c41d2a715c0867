package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/example/class-booker/internal/testfixtures"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewTrigger(t *testing.T) {
	noop := func(context.Context) error { return nil }

	t.Run("rejects malformed specs", func(t *testing.T) {
		if _, err := NewTrigger("61 25 * * *", nil, noop, quietLogger()); err == nil {
			t.Fatal("expected parse error")
		}
	})

	t.Run("default spec fires saturday evening in the configured zone", func(t *testing.T) {
		trigger, err := NewTrigger("", testfixtures.Location(), noop, quietLogger())
		if err != nil {
			t.Fatalf("NewTrigger failed: %v", err)
		}
		next := trigger.Next(testfixtures.ReferenceTime())
		want := time.Date(2025, time.March, 8, 21, 0, 0, 0, testfixtures.Location())
		if !next.Equal(want) {
			t.Fatalf("Next = %v, want %v", next, want)
		}
		if following := trigger.Next(next); !following.Equal(want.AddDate(0, 0, 7)) {
			t.Fatalf("following firing = %v", following)
		}
	})
}

func TestTriggerStart(t *testing.T) {
	var runs atomic.Int32
	fired := make(chan struct{}, 8)
	trigger, err := NewTrigger("@every 1s", time.UTC, func(ctx context.Context) error {
		runs.Add(1)
		fired <- struct{}{}
		return nil
	}, quietLogger())
	if err != nil {
		t.Fatalf("NewTrigger failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := trigger.Start(ctx)

	select {
	case <-fired:
	case <-time.After(3 * time.Second):
		t.Fatal("trigger never fired")
	}
	cancel()

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("trigger did not stop")
	}
	if runs.Load() == 0 {
		t.Fatal("expected at least one run")
	}
}

func TestTriggerRunNow(t *testing.T) {
	boom := errors.New("portal down")
	trigger, err := NewTrigger(DefaultSpec, time.UTC, func(context.Context) error { return boom }, quietLogger())
	if err != nil {
		t.Fatalf("NewTrigger failed: %v", err)
	}
	if err := trigger.RunNow(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("expected job error, got %v", err)
	}
}
