package portal_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/example/class-booker/internal/portal"
	"github.com/example/class-booker/internal/testfixtures"
)

func TestWithSurface(t *testing.T) {
	t.Run("releases after an error", func(t *testing.T) {
		provider := &testfixtures.FakeProvider{Surface: testfixtures.NewFakeSurface(testfixtures.Today())}
		boom := errors.New("boom")
		err := portal.WithSurface(context.Background(), provider, func(context.Context, portal.Surface) error {
			return boom
		})
		if !errors.Is(err, boom) {
			t.Fatalf("expected callback error, got %v", err)
		}
		if acquired, released := provider.Counts(); acquired != 1 || released != 1 {
			t.Fatalf("acquired=%d released=%d", acquired, released)
		}
	})

	t.Run("releases after a panic", func(t *testing.T) {
		provider := &testfixtures.FakeProvider{Surface: testfixtures.NewFakeSurface(testfixtures.Today())}
		func() {
			defer func() {
				if recover() == nil {
					t.Fatal("expected panic to propagate")
				}
			}()
			_ = portal.WithSurface(context.Background(), provider, func(context.Context, portal.Surface) error {
				panic("view exploded")
			})
		}()
		if _, released := provider.Counts(); released != 1 {
			t.Fatalf("expected release after panic, got %d", released)
		}
	})

	t.Run("reports acquisition failure", func(t *testing.T) {
		provider := &testfixtures.FakeProvider{Err: portal.ErrSessionInvalid}
		called := false
		err := portal.WithSurface(context.Background(), provider, func(context.Context, portal.Surface) error {
			called = true
			return nil
		})
		if !errors.Is(err, portal.ErrSessionInvalid) || called {
			t.Fatalf("unexpected err=%v called=%v", err, called)
		}
	})
}

func TestExclusive(t *testing.T) {
	provider := portal.Exclusive(&testfixtures.FakeProvider{Surface: testfixtures.NewFakeSurface(testfixtures.Today())})

	var active, peak int32
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := portal.WithSurface(context.Background(), provider, func(context.Context, portal.Surface) error {
				n := atomic.AddInt32(&active, 1)
				for {
					p := atomic.LoadInt32(&peak)
					if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
						break
					}
				}
				time.Sleep(5 * time.Millisecond)
				atomic.AddInt32(&active, -1)
				return nil
			})
			if err != nil {
				t.Errorf("WithSurface: %v", err)
			}
		}()
	}
	wg.Wait()
	if peak != 1 {
		t.Fatalf("expected serialized access, peak concurrency %d", peak)
	}

	t.Run("waiting caller gives up on cancellation", func(t *testing.T) {
		session, err := provider.Acquire(context.Background())
		if err != nil {
			t.Fatalf("Acquire: %v", err)
		}
		defer session.Release(context.Background())

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()
		_, err = provider.Acquire(ctx)
		if !errors.Is(err, portal.ErrBusy) || !errors.Is(err, context.DeadlineExceeded) {
			t.Fatalf("expected ErrBusy, got %v", err)
		}
	})
}

func TestFirstMatch(t *testing.T) {
	frames := []string{"https://portal.example/home", "https://widget.arboxapp.com/schedule", "https://other"}
	hasHost := func(u string) bool { return strings.Contains(u, "arboxapp.com") }
	fallback := func() string { return "iframe" }

	if got := portal.FirstMatch(frames, hasHost, fallback); got != frames[1] {
		t.Fatalf("got %q", got)
	}
	if got := portal.FirstMatch(frames[:1], hasHost, fallback); got != "iframe" {
		t.Fatalf("expected fallback, got %q", got)
	}
}
