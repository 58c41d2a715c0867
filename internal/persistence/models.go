package persistence

import (
	"time"

	"github.com/example/class-booker/internal/calendar"
)

// QueueEntry is one stored booking intent. The JSON form is the queue file
// record: {"date": "2025-03-09", "time": "07:00"}.
type QueueEntry struct {
	Date calendar.Date `json:"date"`
	Time string        `json:"time"`
}

// Attempt is one recorded register or cancel interaction.
type Attempt struct {
	ID          string
	RunID       string
	Source      string
	Action      string
	Date        calendar.Date
	Time        string
	Outcome     string
	Message     string
	AttemptedAt time.Time
}
