package testfixtures

import (
	"sync"
	"time"

	"github.com/example/class-booker/internal/calendar"
)

// Clock is a manually driven time source expressed in the fixture zone.
type Clock struct {
	mu      sync.Mutex
	current time.Time
}

// NewClock returns a clock at start, or at ReferenceTime when start is zero.
func NewClock(start time.Time) *Clock {
	if start.IsZero() {
		start = ReferenceTime()
	}
	return &Clock{current: start.In(location)}
}

// Now returns the clock's instant.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// NowFunc exposes Now for injection into portal and application configs.
func (c *Clock) NowFunc() func() time.Time {
	if c == nil {
		return time.Now
	}
	return c.Now
}

// Today returns the calendar date the clock is on.
func (c *Clock) Today() calendar.Date {
	return calendar.DateOf(c.Now(), location)
}

// Advance moves the clock forward by d and returns the new instant.
func (c *Clock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = c.current.Add(d)
	return c.current
}

// MoveTo sets the clock to clock time ("HH:MM") on date. It panics on a
// malformed clock value, which is a bug in the calling test.
func (c *Clock) MoveTo(date calendar.Date, clock string) time.Time {
	minutes, err := calendar.Minutes(clock)
	if err != nil {
		panic(err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = date.At(minutes, location)
	return c.current
}
