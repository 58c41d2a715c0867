package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRetryHelper(t *testing.T) {
	ctx := context.Background()
	helper := NewRetryHelper(RetryConfig{MaxRetries: 2, InitialDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond, BackoffFactor: 2})

	t.Run("retries lock contention until success", func(t *testing.T) {
		calls := 0
		err := helper.WithRetry(ctx, func() error {
			calls++
			if calls < 3 {
				return errors.New("database is locked (5) (SQLITE_BUSY)")
			}
			return nil
		})
		if err != nil || calls != 3 {
			t.Fatalf("expected success on third call, got %v after %d calls", err, calls)
		}
	})

	t.Run("gives up after the configured retries", func(t *testing.T) {
		calls := 0
		err := helper.WithRetry(ctx, func() error {
			calls++
			return errors.New("database is locked")
		})
		if !errors.Is(err, ErrDatabaseLocked) || calls != 3 {
			t.Fatalf("expected locked error after 3 calls, got %v after %d", err, calls)
		}
	})

	t.Run("other errors are not retried", func(t *testing.T) {
		boom := errors.New("no such table: queue_entries")
		calls := 0
		err := helper.WithRetry(ctx, func() error {
			calls++
			return boom
		})
		if !errors.Is(err, boom) || calls != 1 {
			t.Fatalf("expected one call returning boom, got %v after %d", err, calls)
		}
	})

	t.Run("cancellation stops the backoff", func(t *testing.T) {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		err := helper.WithRetry(cancelled, func() error { return errors.New("database is locked") })
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	})
}
