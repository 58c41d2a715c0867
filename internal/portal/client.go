package portal

import (
	"context"
	"log/slog"
	"time"

	"github.com/example/class-booker/internal/calendar"
	"github.com/example/class-booker/internal/logging"
)

// DefaultClassName is the class filter applied when none is configured.
const DefaultClassName = "CrossFit WOD"

// Config tunes a Client.
type Config struct {
	ClassName string
	Labels    Labels
	Timeouts  Timeouts
	Location  *time.Location
	Now       func() time.Time
}

// Client runs portal operations against one acquired Surface. Calls must not
// overlap.
type Client struct {
	surface   Surface
	nav       *Navigator
	className string
	labels    Labels
	timeouts  Timeouts
	location  *time.Location
	now       func() time.Time
	logger    *slog.Logger
}

// NewClient constructs a client using the default logger.
func NewClient(surface Surface, cfg Config) *Client {
	return NewClientWithLogger(surface, cfg, nil)
}

// NewClientWithLogger constructs a client for a view that currently shows the
// week of today.
func NewClientWithLogger(surface Surface, cfg Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.ClassName == "" {
		cfg.ClassName = DefaultClassName
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	c := &Client{
		surface:   surface,
		className: cfg.ClassName,
		labels:    cfg.Labels.withDefaults(),
		timeouts:  cfg.Timeouts.withDefaults(),
		location:  cfg.Location,
		now:       cfg.Now,
		logger:    logger.With("component", "portal"),
	}
	c.nav = NewNavigator(surface, c.today(), c.timeouts.Settle, c.logger)
	return c
}

// Navigator exposes the client's week navigation.
func (c *Client) Navigator() *Navigator {
	return c.nav
}

func (c *Client) today() calendar.Date {
	return calendar.DateOf(c.now(), c.location)
}

func (c *Client) opLogger(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	logger := c.logger
	if fromCtx := logging.FromContext(ctx); fromCtx != nil {
		logger = fromCtx.With("component", "portal")
	}
	pairs := append([]any{"operation", operation}, attrs...)
	return logger.With(pairs...)
}
