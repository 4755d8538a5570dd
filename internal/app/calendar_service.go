// internal/app/calendar_service.go
package app

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"quest_notifier/internal/domain/push"
	"quest_notifier/internal/domain/timetable"
	"quest_notifier/internal/domain/user"

	"github.com/sirupsen/logrus"
)

// CalendarIngestReport summarizes one ingestion run.
type CalendarIngestReport struct {
	Users         int
	Skipped       int
	Ingested      int
	Failed        int
	Cancellations int // users notified about at least one cancelled class
}

// CalendarIngestion rebuilds each user's timetable for today from their
// calendar feed and announces cancelled classes. The schedule write is
// idempotent per day; the cancellation push is not and repeats on every run
// that sees a cancellation.
type CalendarIngestion struct {
	users       user.Repository
	timetables  timetable.Repository
	feed        timetable.Feed
	dispatcher  *PushDispatcher
	isCancelled timetable.CancellationPolicy
	location    *time.Location
	concurrency int
	logger      *logrus.Entry
	now         func() time.Time
}

func NewCalendarIngestion(
	users user.Repository,
	timetables timetable.Repository,
	feed timetable.Feed,
	dispatcher *PushDispatcher,
	isCancelled timetable.CancellationPolicy,
	location *time.Location,
	concurrency int,
	logger *logrus.Entry,
) *CalendarIngestion {
	if isCancelled == nil {
		isCancelled = timetable.MarkerPolicy(timetable.DefaultCancellationMarker)
	}
	if location == nil {
		location = time.Local
	}
	return &CalendarIngestion{
		users:       users,
		timetables:  timetables,
		feed:        feed,
		dispatcher:  dispatcher,
		isCancelled: isCancelled,
		location:    location,
		concurrency: concurrency,
		logger:      logger,
		now:         time.Now,
	}
}

// Run ingests every user with a linked calendar. It fails only when the
// users cannot be listed.
func (c *CalendarIngestion) Run(ctx context.Context) (*CalendarIngestReport, error) {
	users, err := c.users.ListWithCalendar(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users with calendar: %w", err)
	}

	today := c.now().In(c.location)
	c.logger.WithFields(logrus.Fields{
		"users": len(users),
		"date":  today.Format(timetable.DateLayout),
	}).Info("Starting calendar ingestion")

	report := &CalendarIngestReport{Users: len(users)}
	var mu sync.Mutex
	forEach(ctx, c.concurrency, users, func(ctx context.Context, _ int, u *user.User) {
		out := c.ingestUser(ctx, u, today)
		mu.Lock()
		defer mu.Unlock()
		switch out.Status {
		case OutcomeFailed:
			report.Failed++
		case OutcomeSkipped:
			if out.Reason == reasonNoCancellations {
				report.Ingested++
			} else {
				report.Skipped++
			}
		case OutcomeDispatched:
			report.Ingested++
			report.Cancellations++
		}
	})

	c.logger.WithFields(logrus.Fields{
		"users":         report.Users,
		"ingested":      report.Ingested,
		"skipped":       report.Skipped,
		"failed":        report.Failed,
		"cancellations": report.Cancellations,
	}).Info("Calendar ingestion completed")
	return report, nil
}

const reasonNoCancellations = "no cancellations"

func (c *CalendarIngestion) ingestUser(ctx context.Context, u *user.User, today time.Time) Outcome {
	logCtx := c.logger.WithField("user_id", u.ID)
	if u.CalendarURL == "" || !u.HasToken() {
		logCtx.Info("Skipping user without calendar feed or push token")
		return skipped("missing calendar or token")
	}

	events, err := c.feed.Events(ctx, u.CalendarURL)
	if err != nil {
		logCtx.WithError(err).Error("Failed to fetch calendar feed")
		return failed("feed failed", err)
	}

	schedule := &timetable.DaySchedule{
		UserID:  u.ID,
		Date:    today.Format(timetable.DateLayout),
		Entries: c.BuildEntries(events, today),
	}
	if err := c.timetables.Upsert(ctx, schedule); err != nil {
		logCtx.WithError(err).Error("Failed to save day schedule")
	} else {
		logCtx.WithField("entries", len(schedule.Entries)).Info("Day schedule saved")
	}

	cancelled := schedule.Cancelled()
	if len(cancelled) == 0 {
		return skipped(reasonNoCancellations)
	}

	result, err := c.dispatcher.Send(ctx, []string{u.FCMToken}, CancellationPayload(schedule.Date, cancelled))
	if err != nil {
		logCtx.WithError(err).Error("Error sending cancellation notification")
		return failed("dispatch failed", err)
	}
	logCtx.WithField("cancelled", len(cancelled)).Info("Cancellation notification sent")
	return dispatched(result)
}

// BuildEntries keeps the events that start on today's date in the ingestion
// location and maps them onto the class grid, ordered by start time.
func (c *CalendarIngestion) BuildEntries(events []timetable.Event, today time.Time) []timetable.Entry {
	var todays []timetable.Event
	for _, ev := range events {
		if timetable.SameDate(ev.Start, today, c.location) {
			todays = append(todays, ev)
		}
	}
	sort.SliceStable(todays, func(i, j int) bool {
		return todays[i].Start.Before(todays[j].Start)
	})

	entries := make([]timetable.Entry, 0, len(todays))
	for _, ev := range todays {
		entries = append(entries, timetable.Entry{
			Subject:     ev.Summary,
			Location:    ev.Location,
			Period:      timetable.PeriodForTime(ev.Start.In(c.location)),
			IsCancelled: c.isCancelled(ev.Summary),
		})
	}
	return entries
}

// CancellationPayload lists every cancelled class as "<period>時限 <subject> (<location>)".
func CancellationPayload(date string, cancelled []timetable.Entry) push.Payload {
	lines := make([]string, 0, len(cancelled))
	for _, e := range cancelled {
		lines = append(lines, fmt.Sprintf("%d時限 %s (%s)", e.Period, e.Subject, e.Location))
	}
	return push.Payload{
		Notification: push.Notification{
			Title: "休講のお知らせ",
			Body:  strings.Join(lines, "\n"),
		},
		Data: map[string]string{
			"type":  push.TypeCancellationNotification,
			"date":  date,
			"count": strconv.Itoa(len(cancelled)),
		},
	}
}
