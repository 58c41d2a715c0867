// Package announce sends the day's announcement text to the chat.
package announce

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/example/class-booker/internal/application"
)

const (
	DefaultHeader = "🏋️ CROSSFIT PANDA - DAILY WOD 🏋️"
	DefaultFooter = "💪 !בהצלחה באימון"
)

// ErrEmpty is reported when the fetched announcement has no text.
var ErrEmpty = errors.New("announce: no announcement text")

// Fetcher retrieves the announcement text.
type Fetcher interface {
	Fetch(ctx context.Context) (string, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context) (string, error)

// Fetch calls f.
func (f FetcherFunc) Fetch(ctx context.Context) (string, error) {
	return f(ctx)
}

// Job fetches the announcement and forwards it through the notifier.
type Job struct {
	Fetcher  Fetcher
	Notifier application.Notifier
	Header   string
	Footer   string
	Logger   *slog.Logger
}

// Run performs one announcement. Empty text is logged and nothing is sent.
func (j Job) Run(ctx context.Context) error {
	logger := j.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "announce")

	text, err := j.Fetcher.Fetch(ctx)
	if err != nil {
		logger.ErrorContext(ctx, "failed to fetch announcement", "error", err)
		return fmt.Errorf("fetch announcement: %w", err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		logger.WarnContext(ctx, "announcement skipped", "error", ErrEmpty)
		return nil
	}

	if err := j.Notifier.Notify(ctx, j.compose(text)); err != nil {
		logger.ErrorContext(ctx, "failed to send announcement", "error", err)
		return fmt.Errorf("send announcement: %w", err)
	}
	logger.InfoContext(ctx, "announcement sent", "length", len(text))
	return nil
}

func (j Job) compose(text string) string {
	header, footer := j.Header, j.Footer
	if header == "" {
		header = DefaultHeader
	}
	if footer == "" {
		footer = DefaultFooter
	}
	return header + "\n\n" + text + "\n\n" + footer
}
