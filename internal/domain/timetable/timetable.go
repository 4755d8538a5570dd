package timetable

import (
	"strings"
	"time"
)

// DateLayout is the key format of a day schedule document.
const DateLayout = "2006-01-02"

// PeriodUnmapped marks an event whose start hour is not on the class grid.
const PeriodUnmapped = 0

// Entry is one class of a day.
type Entry struct {
	Subject     string `json:"subject"`
	Location    string `json:"location"`
	Period      int    `json:"period"`
	IsCancelled bool   `json:"isCancelled"`
}

// DaySchedule is the derived timetable of one user for one date.
type DaySchedule struct {
	UserID    string
	Date      string // DateLayout
	Entries   []Entry
	UpdatedAt time.Time
}

// Cancelled returns the entries flagged as cancelled, in schedule order.
func (d *DaySchedule) Cancelled() []Entry {
	var out []Entry
	for _, e := range d.Entries {
		if e.IsCancelled {
			out = append(out, e)
		}
	}
	return out
}

var periodByStartHour = map[int]int{
	8:  1,
	10: 2,
	13: 3,
	14: 4,
	16: 5,
	18: 6,
}

// PeriodForHour maps a start hour to a class period, or PeriodUnmapped.
func PeriodForHour(hour int) int {
	if p, ok := periodByStartHour[hour]; ok {
		return p
	}
	return PeriodUnmapped
}

// PeriodForTime maps t to a class period using only its hour in t's location.
func PeriodForTime(t time.Time) int {
	return PeriodForHour(t.Hour())
}

// CancellationPolicy decides whether an event summary denotes a cancelled class.
type CancellationPolicy func(summary string) bool

// DefaultCancellationMarker is the feed convention for a cancelled class.
const DefaultCancellationMarker = "[休]"

// MarkerPolicy flags summaries containing marker anywhere.
func MarkerPolicy(marker string) CancellationPolicy {
	return func(summary string) bool {
		return strings.Contains(summary, marker)
	}
}

// SameDate reports whether a and b fall on the same calendar day in loc.
func SameDate(a, b time.Time, loc *time.Location) bool {
	a, b = a.In(loc), b.In(loc)
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}
