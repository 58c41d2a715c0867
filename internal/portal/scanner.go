package portal

import (
	"context"
	"errors"
	"fmt"

	"github.com/example/class-booker/internal/calendar"
	"github.com/example/class-booker/internal/wait"
)

// Detection is a session the caller holds a booking for.
type Detection struct {
	Date  calendar.Date
	Start string
	// Label is the card text the detection was read from; empty when unknown.
	Label string
}

// Registered scans the current week from today onwards and returns every class
// session showing the cancel-registration affordance, with render duplicates removed.
func (c *Client) Registered(ctx context.Context) ([]Detection, error) {
	logger := c.opLogger(ctx, "scan_registered")
	today := c.today()

	if err := c.nav.ShowWeekOf(ctx, today); err != nil {
		return nil, err
	}
	rendered, err := c.surface.ColumnCount(ctx)
	if err != nil {
		return nil, fmt.Errorf("count day columns: %w", err)
	}

	weekStart := calendar.WeekStart(today)
	var found []Detection
	for column := 0; column < rendered; column++ {
		date := weekStart.AddDays(column)
		if date.Before(today) {
			continue
		}
		cards, err := c.classCards(ctx, column)
		if err != nil {
			return nil, err
		}
		for _, cl := range cards {
			start, ok := StartTime(cl.label)
			if !ok {
				logger.Warn("skipping card without a start time", "date", date.String(), "label", cl.label)
				continue
			}
			held, err := c.probe(ctx, cl.card)
			if err != nil {
				return nil, fmt.Errorf("probe %s %s: %w", date, start, err)
			}
			if held {
				found = append(found, Detection{Date: date, Start: start, Label: cl.label})
			}
		}
	}

	deduped := Dedupe(found)
	logger.Info("registered sessions scanned", "detected", len(found), "registered", len(deduped))
	return deduped, nil
}

// probe opens a card, checks for the cancel-registration affordance with the
// short probe bound and closes the view again before returning.
func (c *Client) probe(ctx context.Context, card Card) (bool, error) {
	if err := card.Open(ctx); err != nil {
		return false, fmt.Errorf("open card: %w", err)
	}
	defer c.ensureClosed(ctx, c.opLogger(ctx, "probe"))

	err := wait.Until(ctx, wait.DefaultOptions().WithTimeout(c.timeouts.Probe), func(ctx context.Context) (bool, error) {
		return c.surface.AffordanceVisible(ctx, c.labels.CancelBooking)
	})
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, wait.ErrTimeout):
		return false, nil
	}
	return false, err
}
