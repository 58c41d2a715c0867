package chat

import (
	"errors"
	"testing"
	"time"

	"github.com/example/class-booker/internal/calendar"
)

// Tuesday.
var today = calendar.NewDate(2025, time.March, 4)

func TestParseDay(t *testing.T) {
	cases := []struct {
		token string
		want  calendar.Date
	}{
		{"today", today},
		{"היום", today},
		{"Tomorrow", today.AddDays(1)},
		{"מחר", today.AddDays(1)},
		{"wednesday", today.AddDays(1)},
		{"sunday", today.AddDays(5)},
		{"ראשון", today.AddDays(5)},
		{"tuesday", today.AddDays(7)},
		{"שלישי", today.AddDays(7)},
	}
	for _, tc := range cases {
		t.Run(tc.token, func(t *testing.T) {
			got, err := ParseDay(tc.token, today)
			if err != nil {
				t.Fatalf("ParseDay failed: %v", err)
			}
			if got != tc.want {
				t.Fatalf("ParseDay(%q) = %s, want %s", tc.token, got, tc.want)
			}
		})
	}

	if _, err := ParseDay("someday", today); !errors.Is(err, ErrBadArgument) {
		t.Fatalf("expected ErrBadArgument, got %v", err)
	}
}

func TestParseTime(t *testing.T) {
	valid := map[string]string{
		"07:00":  "07:00",
		"7:00":   "07:00",
		"18:30":  "18:30",
		"7am":    "07:00",
		"7pm":    "19:00",
		"12am":   "00:00",
		"12pm":   "12:00",
		"6:30PM": "18:30",
		"700":    "07:00",
		"1830":   "18:30",
		" 0800 ": "08:00",
	}
	for token, want := range valid {
		got, err := ParseTime(token)
		if err != nil {
			t.Fatalf("ParseTime(%q) failed: %v", token, err)
		}
		if got != want {
			t.Fatalf("ParseTime(%q) = %q, want %q", token, got, want)
		}
	}

	for _, token := range []string{"", "7", "25:00", "07:75", "13pm", "0am", "2400", "noon", "7:5"} {
		if _, err := ParseTime(token); !errors.Is(err, ErrBadArgument) {
			t.Fatalf("ParseTime(%q): expected ErrBadArgument, got %v", token, err)
		}
	}
}

func TestSplit(t *testing.T) {
	command, args := Split("/register@booker_bot sunday 07:00")
	if command != "register" || len(args) != 2 || args[0] != "sunday" {
		t.Fatalf("unexpected split %q %v", command, args)
	}
	if command, args := Split("   "); command != "" || args != nil {
		t.Fatalf("expected empty split, got %q %v", command, args)
	}
	if command, _ := Split("MyQueue"); command != "myqueue" {
		t.Fatalf("expected lowercase command, got %q", command)
	}
}
