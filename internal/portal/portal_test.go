package portal_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/example/class-booker/internal/calendar"
	"github.com/example/class-booker/internal/portal"
	"github.com/example/class-booker/internal/testfixtures"
)

var labels = portal.DefaultLabels()

func fastTimeouts() portal.Timeouts {
	return portal.Timeouts{
		Primary: 60 * time.Millisecond,
		Confirm: 60 * time.Millisecond,
		Probe:   30 * time.Millisecond,
		Settle:  30 * time.Millisecond,
		Close:   30 * time.Millisecond,
	}
}

func newClient(surface portal.Surface) *portal.Client {
	clock := testfixtures.NewClock(time.Time{})
	return portal.NewClient(surface, portal.Config{
		ClassName: testfixtures.DefaultClass,
		Timeouts:  fastTimeouts(),
		Location:  testfixtures.Location(),
		Now:       clock.NowFunc(),
	})
}

func day(offset int) calendar.Date {
	return testfixtures.Today().AddDays(offset)
}

func TestOccupancy(t *testing.T) {
	cases := []struct {
		label string
		full  bool
		known bool
	}{
		{"07:00 - 08:00\nCrossFit WOD\n20/20", true, true},
		{"07:00 - 08:00\nCrossFit WOD\n4/20", false, true},
		{"07:00 - 08:00\nCrossFit WOD\n20/20(9)", true, true},
		{"07:00 - 08:00\nCrossFit WOD", false, false},
	}
	for _, tc := range cases {
		occ := portal.ParseOccupancy(tc.label)
		if occ.Full() != tc.full || occ.Known != tc.known {
			t.Fatalf("ParseOccupancy(%q) = %+v, full=%v", tc.label, occ, occ.Full())
		}
	}
	if got := portal.ParseOccupancy("no fraction").String(); got != "?" {
		t.Fatalf("expected ? for unknown occupancy, got %q", got)
	}
}

func TestDedupe(t *testing.T) {
	date := day(1)

	t.Run("collapses the end anchor of one session", func(t *testing.T) {
		session := testfixtures.NewSessionFixture(date, "08:00")
		got := portal.Dedupe([]portal.Detection{
			{Date: date, Start: "08:00", Label: session.Label()},
			{Date: date, Start: "09:00", Label: "09:00 - 09:00\nCrossFit WOD\nDana\n4/20"},
		})
		if len(got) != 1 || got[0].Start != "08:00" {
			t.Fatalf("expected only 08:00, got %+v", got)
		}
	})

	t.Run("keeps distinct sessions an hour apart", func(t *testing.T) {
		var in []portal.Detection
		for _, s := range []testfixtures.SessionFixture{
			testfixtures.NewSessionFixture(date, "17:00", testfixtures.WithInstructor("Dana")),
			testfixtures.NewSessionFixture(date, "18:00", testfixtures.WithInstructor("Noa")),
			testfixtures.NewSessionFixture(date, "19:00", testfixtures.WithOccupancy(13, 20)),
		} {
			in = append(in, portal.Detection{Date: date, Start: s.Start, Label: s.Label()})
		}
		if got := portal.Dedupe(in); len(got) != 3 {
			t.Fatalf("expected three sessions, got %+v", got)
		}
	})

	t.Run("falls back to the hour rule without labels", func(t *testing.T) {
		got := portal.Dedupe([]portal.Detection{
			{Date: date, Start: "08:00"},
			{Date: date, Start: "09:00"},
			{Date: date.AddDays(1), Start: "09:00"},
		})
		if len(got) != 2 || got[0].Start != "08:00" || got[1].Date != date.AddDays(1) {
			t.Fatalf("unexpected result %+v", got)
		}
	})

	t.Run("drops exact duplicates", func(t *testing.T) {
		got := portal.Dedupe([]portal.Detection{
			{Date: date, Start: "08:00", Label: "a"},
			{Date: date, Start: "08:00", Label: "b"},
		})
		if len(got) != 1 || got[0].Label != "a" {
			t.Fatalf("unexpected result %+v", got)
		}
	})
}

func TestNavigator(t *testing.T) {
	surface := testfixtures.NewFakeSurface(testfixtures.Today())
	client := newClient(surface)
	ctx := context.Background()

	next := day(7)
	if err := client.Navigator().ShowWeekOf(ctx, next); err != nil {
		t.Fatalf("ShowWeekOf: %v", err)
	}
	if err := client.Navigator().ShowWeekOf(ctx, next.AddDays(2)); err != nil {
		t.Fatalf("ShowWeekOf again: %v", err)
	}
	if steps := surface.Steps(); len(steps) != 1 || steps[0] != portal.Forward {
		t.Fatalf("expected a single forward step, got %v", steps)
	}
	if got := surface.ShownWeek(); got != calendar.WeekStart(next) {
		t.Fatalf("surface shows %s, want %s", got, calendar.WeekStart(next))
	}

	if err := client.Navigator().ShowWeekOf(ctx, day(-7)); err != nil {
		t.Fatalf("ShowWeekOf previous: %v", err)
	}
	if steps := surface.Steps(); len(steps) != 3 || steps[1] != portal.Backward || steps[2] != portal.Backward {
		t.Fatalf("expected two backward steps, got %v", steps)
	}
}

func TestLocate(t *testing.T) {
	ctx := context.Background()
	date := day(1)

	t.Run("matches start boundary and class", func(t *testing.T) {
		surface := testfixtures.NewFakeSurface(testfixtures.Today(),
			testfixtures.NewSessionFixture(date, "07:00"),
			testfixtures.NewSessionFixture(date, "08:00", testfixtures.WithClass("Open GYM")),
			testfixtures.NewSessionFixture(date, "08:00", testfixtures.WithInstructor("Noa")),
		)
		slot, err := newClient(surface).Locate(ctx, date, "08:00")
		if err != nil {
			t.Fatalf("Locate: %v", err)
		}
		if !strings.Contains(slot.Label, "CrossFit WOD") || !strings.HasPrefix(slot.Label, "08:00 -") {
			t.Fatalf("unexpected slot %q", slot.Label)
		}
		if slot.Column != calendar.Column(date) {
			t.Fatalf("column %d, want %d", slot.Column, calendar.Column(date))
		}
	})

	t.Run("falls back to start time only", func(t *testing.T) {
		surface := testfixtures.NewFakeSurface(testfixtures.Today(),
			testfixtures.NewSessionFixture(date, "08:00", testfixtures.WithClass("WOD renamed")),
		)
		slot, err := newClient(surface).Locate(ctx, date, "08:00")
		if err != nil {
			t.Fatalf("Locate: %v", err)
		}
		if !strings.Contains(slot.Label, "WOD renamed") {
			t.Fatalf("unexpected slot %q", slot.Label)
		}
	})

	t.Run("skips hidden cards", func(t *testing.T) {
		surface := testfixtures.NewFakeSurface(testfixtures.Today(),
			testfixtures.NewSessionFixture(date, "08:00", testfixtures.WithHidden()),
		)
		_, err := newClient(surface).Locate(ctx, date, "08:00")
		if !errors.Is(err, portal.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("end boundary never matches", func(t *testing.T) {
		surface := testfixtures.NewFakeSurface(testfixtures.Today(),
			testfixtures.NewSessionFixture(date, "07:00"),
		)
		_, err := newClient(surface).Locate(ctx, date, "08:00")
		var nf *portal.NotFoundError
		if !errors.As(err, &nf) {
			t.Fatalf("expected NotFoundError, got %v", err)
		}
		if nf.Column != calendar.Column(date) || nf.Rendered != calendar.DaysPerWeek {
			t.Fatalf("unexpected diagnostics %+v", nf)
		}
	})

	t.Run("reports an unloaded schedule", func(t *testing.T) {
		surface := testfixtures.NewFakeSurface(testfixtures.Today())
		surface.Columns = -1
		_, err := newClient(surface).Locate(ctx, date, "08:00")
		var nf *portal.NotFoundError
		if !errors.As(err, &nf) || nf.Rendered != 0 {
			t.Fatalf("expected empty render diagnostic, got %v", err)
		}
		if !strings.Contains(err.Error(), "not have loaded") {
			t.Fatalf("unexpected message %q", err.Error())
		}
	})

	t.Run("reports a missing column", func(t *testing.T) {
		surface := testfixtures.NewFakeSurface(testfixtures.Today())
		surface.Columns = 2
		_, err := newClient(surface).Locate(ctx, date, "08:00")
		if err == nil || !strings.Contains(err.Error(), "only 2 visible") {
			t.Fatalf("unexpected error %v", err)
		}
	})
}

func TestListAvailable(t *testing.T) {
	ctx := context.Background()
	date := day(2)
	surface := testfixtures.NewFakeSurface(testfixtures.Today(),
		testfixtures.NewSessionFixture(date, "19:00", testfixtures.WithOccupancy(20, 20)),
		testfixtures.NewSessionFixture(date, "17:00"),
		testfixtures.NewSessionFixture(date, "18:00"),
		testfixtures.NewSessionFixture(date, "18:00", testfixtures.WithInstructor("Noa")),
		testfixtures.NewSessionFixture(date, "12:00", testfixtures.WithClass("Open GYM")),
	)
	client := newClient(surface)

	got, err := client.ListAvailable(ctx, date)
	if err != nil {
		t.Fatalf("ListAvailable: %v", err)
	}
	want := []string{"17:00", "18:00", "19:00"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("got %v, want %v", got, want)
	}

	surface.Columns = 1
	empty, err := client.ListAvailable(ctx, date)
	if err != nil || len(empty) != 0 {
		t.Fatalf("expected no times for an absent column, got %v (%v)", empty, err)
	}
}

func TestRegister(t *testing.T) {
	ctx := context.Background()
	date := day(1)

	t.Run("registers an open slot", func(t *testing.T) {
		surface := testfixtures.NewFakeSurface(testfixtures.Today(), testfixtures.NewSessionFixture(date, "07:00"))
		result, err := newClient(surface).Register(ctx, date, "07:00")
		if err != nil {
			t.Fatalf("Register: %v", err)
		}
		if result.Outcome != portal.Registered {
			t.Fatalf("expected registered, got %s", result.Outcome)
		}
		session, _ := surface.Session(date, "07:00")
		if !session.Registered || session.Taken != 5 {
			t.Fatalf("session not booked: %+v", session)
		}
		if surface.DetailOpen() {
			t.Fatal("detail view left open")
		}
		if !strings.HasPrefix(result.Message(), "Registered for ") {
			t.Fatalf("unexpected message %q", result.Message())
		}
	})

	t.Run("full class never opens", func(t *testing.T) {
		surface := testfixtures.NewFakeSurface(testfixtures.Today(),
			testfixtures.NewSessionFixture(date, "07:00", testfixtures.WithOccupancy(20, 20)))
		result, err := newClient(surface).Register(ctx, date, "07:00")
		if err != nil {
			t.Fatalf("Register: %v", err)
		}
		if result.Outcome != portal.Full {
			t.Fatalf("expected full, got %s", result.Outcome)
		}
		if len(surface.Opened()) != 0 || len(surface.Activations()) != 0 {
			t.Fatalf("full class was opened: %v %v", surface.Opened(), surface.Activations())
		}
		if !strings.Contains(result.Message(), "full (20/20)") {
			t.Fatalf("unexpected message %q", result.Message())
		}
	})

	t.Run("already registered leaves the view closed", func(t *testing.T) {
		surface := testfixtures.NewFakeSurface(testfixtures.Today(),
			testfixtures.NewSessionFixture(date, "07:00", testfixtures.WithRegistered()))
		result, err := newClient(surface).Register(ctx, date, "07:00")
		if err != nil {
			t.Fatalf("Register: %v", err)
		}
		if result.Outcome != portal.AlreadyRegistered {
			t.Fatalf("expected already registered, got %s", result.Outcome)
		}
		if surface.DetailOpen() || surface.Dismissals() == 0 {
			t.Fatal("detail view left open")
		}
		if len(surface.Activations()) != 0 {
			t.Fatalf("unexpected activations %v", surface.Activations())
		}
	})

	t.Run("times out when no affordance appears", func(t *testing.T) {
		surface := testfixtures.NewFakeSurface(testfixtures.Today(), testfixtures.NewSessionFixture(date, "07:00"))
		surface.Unresponsive = true
		result, err := newClient(surface).Register(ctx, date, "07:00")
		if err != nil {
			t.Fatalf("Register: %v", err)
		}
		if result.Outcome != portal.TimedOut {
			t.Fatalf("expected timed out, got %s", result.Outcome)
		}
		if surface.DetailOpen() {
			t.Fatal("detail view left open")
		}
	})

	t.Run("missing slot becomes a not found result", func(t *testing.T) {
		surface := testfixtures.NewFakeSurface(testfixtures.Today())
		result, err := newClient(surface).Register(ctx, date, "07:00")
		if err != nil {
			t.Fatalf("Register: %v", err)
		}
		if result.Outcome != portal.NotFound || !strings.Contains(result.Message(), "day column") {
			t.Fatalf("unexpected result %+v", result)
		}
	})

	t.Run("sticky detail view is only warned about", func(t *testing.T) {
		surface := testfixtures.NewFakeSurface(testfixtures.Today(),
			testfixtures.NewSessionFixture(date, "07:00", testfixtures.WithRegistered()))
		surface.StickyDetail = true
		result, err := newClient(surface).Register(ctx, date, "07:00")
		if err != nil || result.Outcome != portal.AlreadyRegistered {
			t.Fatalf("unexpected result %+v (%v)", result, err)
		}
	})
}

func TestCancel(t *testing.T) {
	ctx := context.Background()
	date := day(3)

	t.Run("nothing to cancel skips confirmation", func(t *testing.T) {
		surface := testfixtures.NewFakeSurface(testfixtures.Today(), testfixtures.NewSessionFixture(date, "07:00"))
		result, err := newClient(surface).Cancel(ctx, date, "07:00")
		if err != nil {
			t.Fatalf("Cancel: %v", err)
		}
		if result.Outcome != portal.NotRegistered {
			t.Fatalf("expected not registered, got %s", result.Outcome)
		}
		if len(surface.Activations()) != 0 || surface.DetailOpen() {
			t.Fatalf("unexpected interactions %v open=%v", surface.Activations(), surface.DetailOpen())
		}
		if !strings.Contains(result.Message(), "nothing to cancel") {
			t.Fatalf("unexpected message %q", result.Message())
		}
	})

	t.Run("cancels a booking", func(t *testing.T) {
		surface := testfixtures.NewFakeSurface(testfixtures.Today(),
			testfixtures.NewSessionFixture(date, "07:00", testfixtures.WithRegistered()))
		result, err := newClient(surface).Cancel(ctx, date, "07:00")
		if err != nil {
			t.Fatalf("Cancel: %v", err)
		}
		if result.Outcome != portal.Cancelled {
			t.Fatalf("expected cancelled, got %s", result.Outcome)
		}
		want := []string{labels.CancelBooking, labels.ConfirmCancel}
		if got := surface.Activations(); strings.Join(got, "|") != strings.Join(want, "|") {
			t.Fatalf("activations %v, want %v", got, want)
		}
		if session, _ := surface.Session(date, "07:00"); session.Registered {
			t.Fatal("booking still held")
		}
	})

	t.Run("missing confirmation times out", func(t *testing.T) {
		surface := testfixtures.NewFakeSurface(testfixtures.Today(),
			testfixtures.NewSessionFixture(date, "07:00", testfixtures.WithRegistered()))
		surface.NoConfirmation = true
		result, err := newClient(surface).Cancel(ctx, date, "07:00")
		if err != nil {
			t.Fatalf("Cancel: %v", err)
		}
		if result.Outcome != portal.TimedOut || surface.DetailOpen() {
			t.Fatalf("unexpected result %s open=%v", result.Outcome, surface.DetailOpen())
		}
	})
}

func TestRegisteredScan(t *testing.T) {
	ctx := context.Background()
	surface := testfixtures.NewFakeSurface(testfixtures.Today(),
		testfixtures.NewSessionFixture(day(-1), "07:00", testfixtures.WithRegistered()),
		testfixtures.NewSessionFixture(day(0), "08:00", testfixtures.WithRegistered(), testfixtures.WithEndAnchor()),
		testfixtures.NewSessionFixture(day(0), "17:00"),
		testfixtures.NewSessionFixture(day(2), "17:00", testfixtures.WithRegistered(), testfixtures.WithInstructor("Dana")),
		testfixtures.NewSessionFixture(day(2), "18:00", testfixtures.WithRegistered(), testfixtures.WithInstructor("Noa")),
		testfixtures.NewSessionFixture(day(3), "07:00", testfixtures.WithRegistered(), testfixtures.WithClass("Open GYM")),
		testfixtures.NewSessionFixture(day(7), "07:00", testfixtures.WithRegistered()),
	)
	client := newClient(surface)

	// Leave the view on another week first.
	if err := client.Navigator().ShowWeekOf(ctx, day(7)); err != nil {
		t.Fatalf("ShowWeekOf: %v", err)
	}

	got, err := client.Registered(ctx)
	if err != nil {
		t.Fatalf("Registered: %v", err)
	}
	want := []string{
		day(0).String() + " 08:00",
		day(2).String() + " 17:00",
		day(2).String() + " 18:00",
	}
	if len(got) != len(want) {
		t.Fatalf("got %+v, want %v", got, want)
	}
	for i, d := range got {
		if d.Date.String()+" "+d.Start != want[i] {
			t.Fatalf("entry %d = %s %s, want %s", i, d.Date, d.Start, want[i])
		}
	}
	if surface.DetailOpen() {
		t.Fatal("detail view left open after scan")
	}
	if len(surface.Activations()) != 0 {
		t.Fatalf("scan activated controls: %v", surface.Activations())
	}
}

func TestErrorKind(t *testing.T) {
	cases := map[string]error{
		"not_found":       &portal.NotFoundError{},
		"session_invalid": portal.ErrSessionInvalid,
		"timed_out":       portal.ErrTimedOut,
		"busy":            portal.ErrBusy,
		"unexpected":      errors.New("boom"),
		"":                nil,
	}
	for want, err := range cases {
		if got := portal.ErrorKind(err); got != want {
			t.Fatalf("ErrorKind(%v) = %q, want %q", err, got, want)
		}
	}
}
