package browser

import (
	"context"
	"fmt"
	"strings"

	"github.com/playwright-community/playwright-go"

	"github.com/example/class-booker/internal/portal"
)

const (
	columnSelector = ".date-events-wrapper"
	cardSelector   = ".session-wrapper"
	arrowSelector  = "svg"

	nextWeekArrow     = 2
	previousWeekArrow = 1
)

// scope is where schedule selectors are evaluated: either a resolved frame or
// the first iframe of the page.
type scope interface {
	Locator(selector string) playwright.Locator
	Role(role, name string, exact bool) playwright.Locator
}

type frameScope struct {
	frame playwright.Frame
}

func (s frameScope) Locator(selector string) playwright.Locator {
	return s.frame.Locator(selector)
}

func (s frameScope) Role(role, name string, exact bool) playwright.Locator {
	options := playwright.FrameGetByRoleOptions{Exact: playwright.Bool(exact)}
	if name != "" {
		options.Name = name
	}
	return s.frame.GetByRole(playwright.AriaRole(role), options)
}

type iframeScope struct {
	frame playwright.FrameLocator
}

func (s iframeScope) Locator(selector string) playwright.Locator {
	return s.frame.Locator(selector)
}

func (s iframeScope) Role(role, name string, exact bool) playwright.Locator {
	options := playwright.FrameLocatorGetByRoleOptions{Exact: playwright.Bool(exact)}
	if name != "" {
		options.Name = name
	}
	return s.frame.GetByRole(playwright.AriaRole(role), options)
}

// scheduleScope returns the first frame after the host page whose URL contains
// host, falling back to the first iframe.
func scheduleScope(page playwright.Page, host string) scope {
	frames := page.Frames()
	if len(frames) > 0 {
		frames = frames[1:]
	}
	frame := portal.FirstMatch(frames, func(f playwright.Frame) bool {
		return host != "" && strings.Contains(f.URL(), host)
	}, func() playwright.Frame { return nil })
	if frame == nil {
		return iframeScope{frame: page.FrameLocator("iframe").First()}
	}
	return frameScope{frame: frame}
}

// Surface implements portal.Surface over a Playwright page.
type Surface struct {
	page      playwright.Page
	frameHost string
}

var _ portal.Surface = (*Surface)(nil)

// NewSurface wraps page. frameHost selects the schedule frame.
func NewSurface(page playwright.Page, frameHost string) *Surface {
	return &Surface{page: page, frameHost: frameHost}
}

func (s *Surface) scope() scope {
	return scheduleScope(s.page, s.frameHost)
}

func (s *Surface) column(column int) playwright.Locator {
	return s.scope().Locator(columnSelector).Nth(column)
}

// ColumnCount implements portal.Surface.
func (s *Surface) ColumnCount(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return s.scope().Locator(columnSelector).Count()
}

// ColumnHeader implements portal.Surface. The header is the first text line of
// the column with whitespace removed.
func (s *Surface) ColumnHeader(ctx context.Context, column int) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	text, err := s.column(column).InnerText()
	if err != nil {
		return "", fmt.Errorf("read column %d header: %w", column, err)
	}
	return headerOf(text), nil
}

func headerOf(text string) string {
	for _, line := range strings.Split(text, "\n") {
		if compact := strings.Join(strings.Fields(line), ""); compact != "" {
			return compact
		}
	}
	return ""
}

// Cards implements portal.Surface.
func (s *Surface) Cards(ctx context.Context, column int) ([]portal.Card, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	locators, err := s.column(column).Locator(cardSelector).All()
	if err != nil {
		return nil, fmt.Errorf("list cards in column %d: %w", column, err)
	}
	cards := make([]portal.Card, 0, len(locators))
	for _, locator := range locators {
		cards = append(cards, card{locator: locator})
	}
	return cards, nil
}

// StepWeek implements portal.Surface.
func (s *Surface) StepWeek(ctx context.Context, dir portal.Direction) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	arrow := nextWeekArrow
	if dir == portal.Backward {
		arrow = previousWeekArrow
	}
	return s.scope().Locator(arrowSelector).Nth(arrow).Click()
}

// AffordanceVisible implements portal.Surface.
func (s *Surface) AffordanceVisible(ctx context.Context, label string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return s.scope().Role("button", label, true).First().IsVisible()
}

// Activate implements portal.Surface. The click is dispatched to the element
// directly because detail views can render outside the frame's bounds.
func (s *Surface) Activate(ctx context.Context, label string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.scope().Role("button", label, true).First().DispatchEvent("click", nil)
}

// Dismiss implements portal.Surface.
func (s *Surface) Dismiss(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.page.Keyboard().Press("Escape")
}

type card struct {
	locator playwright.Locator
}

func (c card) Label(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return c.locator.InnerText()
}

func (c card) Visible(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return c.locator.IsVisible()
}

func (c card) Open(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return c.locator.DispatchEvent("click", nil)
}
