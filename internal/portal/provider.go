package portal

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrBusy is returned when the caller gave up waiting for the shared view.
var ErrBusy = errors.New("portal: view is held by another operation")

// Session is one acquired authenticated view.
type Session interface {
	Surface() Surface
	// Release persists the session cache and frees the view.
	Release(ctx context.Context) error
}

// Provider opens authenticated views.
type Provider interface {
	Acquire(ctx context.Context) (Session, error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(ctx context.Context) (Session, error)

// Acquire calls f.
func (f ProviderFunc) Acquire(ctx context.Context) (Session, error) {
	return f(ctx)
}

// WithSurface acquires a view, runs fn against it and releases it on every
// exit path. A panic in fn is re-raised after release.
func WithSurface(ctx context.Context, provider Provider, fn func(ctx context.Context, surface Surface) error) (err error) {
	session, err := provider.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire portal view: %w", err)
	}
	defer func() {
		releaseErr := session.Release(context.WithoutCancel(ctx))
		if releaseErr != nil && err == nil {
			err = fmt.Errorf("release portal view: %w", releaseErr)
		}
	}()
	return fn(ctx, session.Surface())
}

// Exclusive wraps provider so that at most one view is held at a time. Waiting
// callers honour context cancellation and then fail with ErrBusy.
func Exclusive(provider Provider) Provider {
	return &exclusiveProvider{inner: provider, sem: make(chan struct{}, 1)}
}

type exclusiveProvider struct {
	inner Provider
	sem   chan struct{}
}

func (p *exclusiveProvider) Acquire(ctx context.Context) (Session, error) {
	select {
	case p.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %w", ErrBusy, ctx.Err())
	}
	session, err := p.inner.Acquire(ctx)
	if err != nil {
		<-p.sem
		return nil, err
	}
	return &exclusiveSession{Session: session, sem: p.sem}, nil
}

type exclusiveSession struct {
	Session
	sem  chan struct{}
	once sync.Once
}

func (s *exclusiveSession) Release(ctx context.Context) error {
	err := s.Session.Release(ctx)
	s.once.Do(func() { <-s.sem })
	return err
}

// FirstMatch returns the first item satisfying match, or fallback() when none does.
func FirstMatch[T any](items []T, match func(T) bool, fallback func() T) T {
	for _, item := range items {
		if match(item) {
			return item
		}
	}
	return fallback()
}
