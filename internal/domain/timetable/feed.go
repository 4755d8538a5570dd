package timetable

import (
	"context"
	"time"
)

// Event is one VEVENT from a user's calendar feed.
type Event struct {
	UID      string
	Start    time.Time
	Summary  string
	Location string
}

// Feed fetches and parses a remote calendar.
type Feed interface {
	Events(ctx context.Context, url string) ([]Event, error)
}
