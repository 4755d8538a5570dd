package calendar

import (
	"fmt"
	"io"
	"strings"
	"time"

	"quest_notifier/internal/domain/timetable"

	ics "github.com/arran4/golang-ical"
)

// ParseEvents reads an iCalendar document. Floating start times (no TZID and
// no trailing Z) are read as wall-clock times in loc. Events whose DTSTART
// cannot be parsed are dropped and counted in skipped.
func ParseEvents(r io.Reader, loc *time.Location) (events []timetable.Event, skipped int, err error) {
	cal, err := ics.ParseCalendar(r)
	if err != nil {
		return nil, 0, fmt.Errorf("parse calendar: %w", err)
	}

	for _, ev := range cal.Events() {
		start, err := ev.GetStartAt()
		if err != nil {
			skipped++
			continue
		}
		if loc != nil && isFloating(ev.GetProperty(ics.ComponentPropertyDtStart)) {
			start = time.Date(start.Year(), start.Month(), start.Day(),
				start.Hour(), start.Minute(), start.Second(), 0, loc)
		}
		events = append(events, timetable.Event{
			UID:      ev.Id(),
			Start:    start,
			Summary:  propertyValue(ev, ics.ComponentPropertySummary),
			Location: propertyValue(ev, ics.ComponentPropertyLocation),
		})
	}
	return events, skipped, nil
}

// isFloating reports whether a DTSTART carries no zone of its own. The
// library resolves those in time.Local.
func isFloating(p *ics.IANAProperty) bool {
	if p == nil {
		return false
	}
	if _, ok := p.ICalParameters[string(ics.ParameterTzid)]; ok {
		return false
	}
	return !strings.HasSuffix(strings.ToUpper(p.Value), "Z")
}

func propertyValue(ev *ics.VEvent, name ics.ComponentProperty) string {
	if p := ev.GetProperty(name); p != nil {
		return p.Value
	}
	return ""
}
