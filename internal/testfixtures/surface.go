package testfixtures

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/example/class-booker/internal/calendar"
	"github.com/example/class-booker/internal/portal"
)

// ErrNotVisible is returned when a test drives a control that is not rendered.
var ErrNotVisible = errors.New("testfixtures: control not visible")

// FakeSurface renders an in-memory week calendar with the portal's detail view
// behaviour. The displayed week starts at the week of today.
type FakeSurface struct {
	mu sync.Mutex

	labels   portal.Labels
	today    calendar.Date
	offset   int
	sessions []*SessionFixture

	open           *SessionFixture
	confirmPending bool

	// Columns overrides the number of rendered day columns; -1 renders none.
	Columns int
	// Unresponsive hides every affordance of an opened detail view.
	Unresponsive bool
	// NoConfirmation never renders the cancel confirmation.
	NoConfirmation bool
	// StickyDetail ignores Dismiss.
	StickyDetail bool

	steps       []portal.Direction
	activations []string
	opened      []string
	dismissals  int
}

// NewFakeSurface returns a surface showing the week of today.
func NewFakeSurface(today calendar.Date, sessions ...SessionFixture) *FakeSurface {
	s := &FakeSurface{labels: portal.DefaultLabels(), today: today}
	for _, session := range sessions {
		s.Add(session)
	}
	return s
}

// Add renders another session.
func (s *FakeSurface) Add(session SessionFixture) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions = append(s.sessions, &session)
}

// Reload returns the view to the week of today with no detail view open, as a
// freshly acquired page shows it.
func (s *FakeSurface) Reload() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.offset = 0
	s.open = nil
	s.confirmPending = false
}

// Session returns the current state of the session at start on date.
func (s *FakeSurface) Session(date calendar.Date, start string) (SessionFixture, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, session := range s.sessions {
		if session.Date == date && session.Start == start {
			return *session, true
		}
	}
	return SessionFixture{}, false
}

// Steps returns the week navigation interactions issued so far.
func (s *FakeSurface) Steps() []portal.Direction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]portal.Direction(nil), s.steps...)
}

// Activations returns the labels of every activated control in order.
func (s *FakeSurface) Activations() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.activations...)
}

// Opened returns the labels of every card opened in order.
func (s *FakeSurface) Opened() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.opened...)
}

// Dismissals returns how many times the detail view was dismissed.
func (s *FakeSurface) Dismissals() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dismissals
}

// DetailOpen reports whether a detail view is currently shown.
func (s *FakeSurface) DetailOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.open != nil
}

// ShownWeek returns the start of the week currently displayed.
func (s *FakeSurface) ShownWeek() calendar.Date {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.weekStart()
}

func (s *FakeSurface) weekStart() calendar.Date {
	return calendar.WeekStart(s.today).AddDays(s.offset * calendar.DaysPerWeek)
}

func (s *FakeSurface) columnCount() int {
	switch {
	case s.Columns < 0:
		return 0
	case s.Columns == 0:
		return calendar.DaysPerWeek
	}
	return s.Columns
}

// ColumnCount implements portal.Surface.
func (s *FakeSurface) ColumnCount(context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.columnCount(), nil
}

// ColumnHeader implements portal.Surface.
func (s *FakeSurface) ColumnHeader(_ context.Context, column int) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if column < 0 || column >= s.columnCount() {
		return "", fmt.Errorf("testfixtures: column %d not rendered", column)
	}
	return calendar.DayHeader(s.weekStart().AddDays(column)), nil
}

// Cards implements portal.Surface. Sessions render in start order; an end
// anchor renders right after its session.
func (s *FakeSurface) Cards(_ context.Context, column int) ([]portal.Card, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if column < 0 || column >= s.columnCount() {
		return nil, fmt.Errorf("testfixtures: column %d not rendered", column)
	}
	date := s.weekStart().AddDays(column)

	var day []*SessionFixture
	for _, session := range s.sessions {
		if session.Date == date {
			day = append(day, session)
		}
	}
	sort.SliceStable(day, func(i, j int) bool { return day[i].Start < day[j].Start })

	cards := make([]portal.Card, 0, len(day))
	for _, session := range day {
		cards = append(cards, &fakeCard{surface: s, session: session})
		if session.EndAnchor {
			cards = append(cards, &fakeCard{surface: s, session: session, anchor: true})
		}
	}
	return cards, nil
}

// StepWeek implements portal.Surface.
func (s *FakeSurface) StepWeek(_ context.Context, dir portal.Direction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch dir {
	case portal.Forward:
		s.offset++
	case portal.Backward:
		s.offset--
	default:
		return fmt.Errorf("testfixtures: unknown direction %d", dir)
	}
	s.steps = append(s.steps, dir)
	return nil
}

func (s *FakeSurface) visible(label string) bool {
	if s.open == nil || s.Unresponsive {
		return false
	}
	switch label {
	case s.labels.Register:
		return !s.confirmPending && !s.open.Registered
	case s.labels.CancelBooking:
		return !s.confirmPending && s.open.Registered
	case s.labels.ConfirmCancel:
		return s.confirmPending
	}
	return false
}

// AffordanceVisible implements portal.Surface.
func (s *FakeSurface) AffordanceVisible(_ context.Context, label string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.visible(label), nil
}

// Activate implements portal.Surface.
func (s *FakeSurface) Activate(_ context.Context, label string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.visible(label) {
		return fmt.Errorf("%w: %q", ErrNotVisible, label)
	}
	s.activations = append(s.activations, label)
	switch label {
	case s.labels.Register:
		s.open.Registered = true
		s.open.Taken++
	case s.labels.CancelBooking:
		if s.NoConfirmation {
			s.Unresponsive = true
			return nil
		}
		s.confirmPending = true
	case s.labels.ConfirmCancel:
		s.open.Registered = false
		s.open.Taken--
		s.confirmPending = false
		s.open = nil
	}
	return nil
}

// Dismiss implements portal.Surface.
func (s *FakeSurface) Dismiss(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dismissals++
	if s.StickyDetail {
		return nil
	}
	s.open = nil
	s.confirmPending = false
	return nil
}

type fakeCard struct {
	surface *FakeSurface
	session *SessionFixture
	anchor  bool
}

func (c *fakeCard) Label(context.Context) (string, error) {
	c.surface.mu.Lock()
	defer c.surface.mu.Unlock()
	if c.anchor {
		return c.session.anchorLabel(), nil
	}
	return c.session.Label(), nil
}

func (c *fakeCard) Visible(context.Context) (bool, error) {
	c.surface.mu.Lock()
	defer c.surface.mu.Unlock()
	return !c.session.Hidden, nil
}

func (c *fakeCard) Open(context.Context) error {
	c.surface.mu.Lock()
	defer c.surface.mu.Unlock()
	c.surface.open = c.session
	c.surface.confirmPending = false
	label := c.session.Label()
	if c.anchor {
		label = c.session.anchorLabel()
	}
	c.surface.opened = append(c.surface.opened, label)
	return nil
}

// FakeProvider hands out sessions over one FakeSurface and counts them.
type FakeProvider struct {
	mu       sync.Mutex
	Surface  *FakeSurface
	Err      error
	acquired int
	released int
}

// Acquire implements portal.Provider.
func (p *FakeProvider) Acquire(context.Context) (portal.Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Err != nil {
		return nil, p.Err
	}
	p.acquired++
	p.Surface.Reload()
	return &fakeSession{provider: p}, nil
}

// Counts returns how many sessions were acquired and released.
func (p *FakeProvider) Counts() (acquired, released int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.acquired, p.released
}

type fakeSession struct {
	provider *FakeProvider
}

func (s *fakeSession) Surface() portal.Surface {
	return s.provider.Surface
}

func (s *fakeSession) Release(context.Context) error {
	s.provider.mu.Lock()
	defer s.provider.mu.Unlock()
	s.provider.released++
	return nil
}
