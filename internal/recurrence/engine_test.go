package recurrence

import (
	"errors"
	"testing"
	"time"

	"github.com/example/class-booker/internal/calendar"
)

var ist = time.FixedZone("IST", 2*60*60)

func TestParseTemplate(t *testing.T) {
	t.Parallel()

	t.Run("parses english and hebrew weekdays", func(t *testing.T) {
		t.Parallel()
		template, err := ParseTemplate("sunday 07:00, Monday 18:30,,חמישי 07:00")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := Template{
			{Weekday: time.Sunday, Start: "07:00"},
			{Weekday: time.Monday, Start: "18:30"},
			{Weekday: time.Thursday, Start: "07:00"},
		}
		if len(template) != len(want) {
			t.Fatalf("got %v, want %v", template, want)
		}
		for i := range want {
			if template[i] != want[i] {
				t.Fatalf("entry %d = %v, want %v", i, template[i], want[i])
			}
		}
		if got := template.String(); got != "sunday 07:00,monday 18:30,thursday 07:00" {
			t.Fatalf("unexpected rendering %q", got)
		}
	})

	t.Run("rejects malformed entries", func(t *testing.T) {
		t.Parallel()
		for _, value := range []string{"sunday", "someday 07:00", "monday 7:00", "monday 25:00", "monday 07:00 extra"} {
			if _, err := ParseTemplate(value); !errors.Is(err, ErrInvalidEntry) {
				t.Fatalf("ParseTemplate(%q) error = %v, want ErrInvalidEntry", value, err)
			}
		}
	})
}

func TestEngineExpand(t *testing.T) {
	t.Parallel()

	engine := NewEngine(ist)
	template, err := ParseTemplate("sunday 07:00,monday 07:00,thursday 18:00,saturday 09:00")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	t.Run("resolves on or after the anchor", func(t *testing.T) {
		t.Parallel()
		anchor := calendar.NewDate(2025, time.March, 9) // Sunday
		got := engine.Expand(template, anchor)
		want := []string{"2025-03-09", "2025-03-10", "2025-03-13", "2025-03-15"}
		if len(got) != len(want) {
			t.Fatalf("got %d occurrences, want %d", len(got), len(want))
		}
		for i, occ := range got {
			if occ.Date.String() != want[i] {
				t.Fatalf("occurrence %d on %s, want %s", i, occ.Date, want[i])
			}
			if calendar.WeekStart(occ.Date) != anchor {
				t.Fatalf("occurrence %d outside the anchored week", i)
			}
		}
		if !got[2].At.Equal(time.Date(2025, time.March, 13, 18, 0, 0, 0, ist)) {
			t.Fatalf("unexpected instant %v", got[2].At)
		}
	})

	t.Run("coming week starts at the next boundary", func(t *testing.T) {
		t.Parallel()
		saturday := calendar.NewDate(2025, time.March, 8)
		got := engine.ComingWeek(template, saturday)
		if got[0].Date.String() != "2025-03-09" {
			t.Fatalf("first occurrence %s, want 2025-03-09", got[0].Date)
		}
		sunday := calendar.NewDate(2025, time.March, 9)
		if got := engine.ComingWeek(template, sunday); got[0].Date.String() != "2025-03-16" {
			t.Fatalf("from a sunday the coming week is the next one, got %s", got[0].Date)
		}
	})
}
