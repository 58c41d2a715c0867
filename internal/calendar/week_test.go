package calendar

import (
	"testing"
	"time"
)

func TestColumn(t *testing.T) {
	t.Run("stays within the week and starts on sunday", func(t *testing.T) {
		start := NewDate(2025, time.January, 1)
		for i := 0; i < 400; i++ {
			d := start.AddDays(i)
			col := Column(d)
			if col < 0 || col > 6 {
				t.Fatalf("column for %s out of range: %d", d, col)
			}
			if (col == 0) != (d.Weekday() == time.Sunday) {
				t.Fatalf("column 0 must be sunday, got %d for %s (%s)", col, d, d.Weekday())
			}
		}
	})

	t.Run("maps weekdays sunday first", func(t *testing.T) {
		cases := map[Date]int{
			NewDate(2025, time.March, 2): 0, // Sunday
			NewDate(2025, time.March, 3): 1, // Monday
			NewDate(2025, time.March, 7): 5, // Friday
			NewDate(2025, time.March, 8): 6, // Saturday
		}
		for d, want := range cases {
			if got := Column(d); got != want {
				t.Fatalf("Column(%s) = %d, want %d", d, got, want)
			}
		}
	})
}

func TestWeekWindows(t *testing.T) {
	wednesday := NewDate(2025, time.March, 5)

	if got := WeekStart(wednesday); got != NewDate(2025, time.March, 2) {
		t.Fatalf("unexpected week start %s", got)
	}
	if got := WeekEnd(wednesday); got != NewDate(2025, time.March, 8) {
		t.Fatalf("unexpected week end %s", got)
	}
	if got := WeekStart(NewDate(2025, time.March, 2)); got != NewDate(2025, time.March, 2) {
		t.Fatalf("sunday must start its own week, got %s", got)
	}

	t.Run("counts whole weeks between windows", func(t *testing.T) {
		saturday := NewDate(2025, time.March, 8)
		nextSunday := NewDate(2025, time.March, 9)
		if got := WeeksBetween(saturday, nextSunday); got != 1 {
			t.Fatalf("expected a one week step across the boundary, got %d", got)
		}
		if got := WeeksBetween(wednesday, saturday); got != 0 {
			t.Fatalf("expected same week, got %d", got)
		}
		if got := WeeksBetween(wednesday, NewDate(2025, time.February, 20)); got != -2 {
			t.Fatalf("expected two weeks back, got %d", got)
		}
	})

	t.Run("next boundary is strictly after", func(t *testing.T) {
		if got := NextWeekBoundary(NewDate(2025, time.March, 8)); got != NewDate(2025, time.March, 9) {
			t.Fatalf("saturday boundary: %s", got)
		}
		if got := NextWeekBoundary(NewDate(2025, time.March, 2)); got != NewDate(2025, time.March, 9) {
			t.Fatalf("sunday boundary: %s", got)
		}
	})
}

func TestOccurrences(t *testing.T) {
	ref := NewDate(2025, time.March, 2)
	for i := 0; i < 14; i++ {
		r := ref.AddDays(i)
		for day := time.Sunday; day <= time.Saturday; day++ {
			next := NextOccurrence(day, r)
			if next.Before(r) || next.Weekday() != day {
				t.Fatalf("NextOccurrence(%s, %s) = %s", day, r, next)
			}
			if again := NextOccurrence(day, next); again != next {
				t.Fatalf("on-or-after must be stable, got %s then %s", next, again)
			}

			following := FollowingOccurrence(day, r)
			if !following.After(r) || following.Weekday() != day {
				t.Fatalf("FollowingOccurrence(%s, %s) = %s", day, r, following)
			}
			if again := FollowingOccurrence(day, following); following.DaysUntil(again) != 7 {
				t.Fatalf("expected exactly one week later, got %s then %s", following, again)
			}
		}
	}
}

func TestParseWeekday(t *testing.T) {
	for name, want := range map[string]time.Weekday{
		"Sunday":  time.Sunday,
		" friday": time.Friday,
		"שבת":     time.Saturday,
		"ראשון":   time.Sunday,
	} {
		got, ok := ParseWeekday(name)
		if !ok || got != want {
			t.Fatalf("ParseWeekday(%q) = %v, %v", name, got, ok)
		}
	}
	if _, ok := ParseWeekday("someday"); ok {
		t.Fatalf("expected unknown name to fail")
	}
}

func TestDayHeader(t *testing.T) {
	if got := DayHeader(NewDate(2025, time.February, 28)); got != "28ו׳" {
		t.Fatalf("unexpected header %q", got)
	}
}

func TestMinutes(t *testing.T) {
	got, err := Minutes("07:30")
	if err != nil || got != 450 {
		t.Fatalf("Minutes = %d, %v", got, err)
	}
	for _, bad := range []string{"7:30", "24:00", "12:60", "ab:cd", ""} {
		if _, err := Minutes(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
	if FormatMinutes(450) != "07:30" {
		t.Fatalf("unexpected format %q", FormatMinutes(450))
	}
}

func TestDateText(t *testing.T) {
	d, err := ParseDate("2025-03-02")
	if err != nil {
		t.Fatalf("ParseDate: %v", err)
	}
	if d.String() != "2025-03-02" || d.Label() != "Sunday 02/03" {
		t.Fatalf("unexpected rendering %s / %s", d.String(), d.Label())
	}
	if _, err := ParseDate("02/03/2025"); err == nil {
		t.Fatalf("expected non-ISO date to fail")
	}

	jerusalem := time.FixedZone("IST", 2*60*60)
	late := time.Date(2025, time.March, 1, 23, 30, 0, 0, time.UTC)
	if got := DateOf(late, jerusalem); got != NewDate(2025, time.March, 2) {
		t.Fatalf("expected zone-aware date, got %s", got)
	}
}
