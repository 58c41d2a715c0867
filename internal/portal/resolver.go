package portal

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/example/class-booker/internal/calendar"
)

// Slot is a resolved session card.
type Slot struct {
	Date   calendar.Date
	Start  string
	Column int
	Label  string
	card   Card
}

// Occupancy parses the slot's label.
func (s Slot) Occupancy() Occupancy {
	return ParseOccupancy(s.Label)
}

// Locate resolves the card for the session starting at start on date. The
// primary match requires the class name; the fallback accepts any card with the
// same start boundary. A miss is reported as *NotFoundError.
func (c *Client) Locate(ctx context.Context, date calendar.Date, start string) (Slot, error) {
	if err := c.nav.ShowWeekOf(ctx, date); err != nil {
		return Slot{}, err
	}

	column := calendar.Column(date)
	rendered, err := c.surface.ColumnCount(ctx)
	if err != nil {
		return Slot{}, fmt.Errorf("count day columns: %w", err)
	}
	notFound := &NotFoundError{Date: date, Start: start, Column: column, Rendered: rendered}
	if rendered == 0 || column >= rendered {
		return Slot{}, notFound
	}

	cards, err := c.surface.Cards(ctx, column)
	if err != nil {
		return Slot{}, fmt.Errorf("list cards in column %d: %w", column, err)
	}

	prefix := startFilter(start)
	filters := [][]string{{prefix, c.className}, {prefix}}
	for _, required := range filters {
		slot, ok, err := firstVisible(ctx, cards, required)
		if err != nil {
			return Slot{}, err
		}
		if ok {
			slot.Date, slot.Start, slot.Column = date, start, column
			return slot, nil
		}
	}
	return Slot{}, notFound
}

// firstVisible returns the first visible card whose trimmed label starts with
// required[0] and contains every other required fragment.
func firstVisible(ctx context.Context, cards []Card, required []string) (Slot, bool, error) {
	for _, card := range cards {
		label, err := card.Label(ctx)
		if err != nil {
			return Slot{}, false, fmt.Errorf("read card label: %w", err)
		}
		if !matches(label, required) {
			continue
		}
		visible, err := card.Visible(ctx)
		if err != nil {
			return Slot{}, false, fmt.Errorf("read card visibility: %w", err)
		}
		if visible {
			return Slot{Label: label, card: card}, true, nil
		}
	}
	return Slot{}, false, nil
}

func matches(label string, required []string) bool {
	label = strings.TrimSpace(label)
	if !strings.HasPrefix(label, required[0]) {
		return false
	}
	for _, fragment := range required[1:] {
		if !strings.Contains(label, fragment) {
			return false
		}
	}
	return true
}

// ListAvailable returns the sorted distinct start times of every class card on
// date, full sessions included. A column that is not rendered yields no times.
func (c *Client) ListAvailable(ctx context.Context, date calendar.Date) ([]string, error) {
	if err := c.nav.ShowWeekOf(ctx, date); err != nil {
		return nil, err
	}

	column := calendar.Column(date)
	rendered, err := c.surface.ColumnCount(ctx)
	if err != nil {
		return nil, fmt.Errorf("count day columns: %w", err)
	}
	if column >= rendered {
		return []string{}, nil
	}

	cards, err := c.classCards(ctx, column)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, len(cards))
	times := make([]string, 0, len(cards))
	for _, cl := range cards {
		start, ok := StartTime(cl.label)
		if !ok {
			continue
		}
		if _, dup := seen[start]; dup {
			continue
		}
		seen[start] = struct{}{}
		times = append(times, start)
	}
	sort.Strings(times)
	return times, nil
}

type labelledCard struct {
	card  Card
	label string
}

// classCards returns the cards of column whose label contains the class name.
func (c *Client) classCards(ctx context.Context, column int) ([]labelledCard, error) {
	cards, err := c.surface.Cards(ctx, column)
	if err != nil {
		return nil, fmt.Errorf("list cards in column %d: %w", column, err)
	}
	out := make([]labelledCard, 0, len(cards))
	for _, card := range cards {
		label, err := card.Label(ctx)
		if err != nil {
			return nil, fmt.Errorf("read card label: %w", err)
		}
		if strings.Contains(label, c.className) {
			out = append(out, labelledCard{card: card, label: label})
		}
	}
	return out, nil
}
