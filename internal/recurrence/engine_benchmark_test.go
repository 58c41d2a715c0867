package recurrence

import (
	"testing"
	"time"

	"github.com/example/class-booker/internal/calendar"
)

func BenchmarkEngineComingWeek(b *testing.B) {
	engine := NewEngine(ist)
	template, err := ParseTemplate("sunday 07:00,monday 07:00,tuesday 07:00,wednesday 07:00,thursday 07:00")
	if err != nil {
		b.Fatalf("unexpected error: %v", err)
	}
	today := calendar.NewDate(2025, time.March, 4)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if occurrences := engine.ComingWeek(template, today); len(occurrences) != len(template) {
			b.Fatal("expected every entry to resolve")
		}
	}
}
