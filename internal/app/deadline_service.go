// internal/app/deadline_service.go
package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"quest_notifier/internal/domain/push"
	"quest_notifier/internal/domain/quest"

	"github.com/sirupsen/logrus"
)

// DefaultDeadlineLookahead is how far ahead of now a deadline triggers a reminder.
const DefaultDeadlineLookahead = time.Hour

const (
	deadlineDisplayLayout = "01/02 15:04"
	isoMillisLayout       = "2006-01-02T15:04:05.000Z07:00"
)

// DeadlineScanReport summarizes one scan.
type DeadlineScanReport struct {
	Found           int
	Notified        int
	AlreadyNotified int
	NoRecipients    int
	Failed          int
}

// DeadlineScanner reminds enrolled users of quests whose deadline is near.
// The persisted deadlineNotificationSent flag is the only guard against
// notifying a quest twice; overlapping scans rely on it alone.
type DeadlineScanner struct {
	quests      quest.Repository
	recipients  *RecipientSetBuilder
	dispatcher  *PushDispatcher
	lookahead   time.Duration
	location    *time.Location
	concurrency int
	logger      *logrus.Entry
	now         func() time.Time
}

func NewDeadlineScanner(
	quests quest.Repository,
	recipients *RecipientSetBuilder,
	dispatcher *PushDispatcher,
	lookahead time.Duration,
	location *time.Location,
	concurrency int,
	logger *logrus.Entry,
) *DeadlineScanner {
	if lookahead <= 0 {
		lookahead = DefaultDeadlineLookahead
	}
	if location == nil {
		location = time.Local
	}
	return &DeadlineScanner{
		quests:      quests,
		recipients:  recipients,
		dispatcher:  dispatcher,
		lookahead:   lookahead,
		location:    location,
		concurrency: concurrency,
		logger:      logger,
		now:         time.Now,
	}
}

// Scan processes every quest due within the lookahead window. It returns an
// error only when the quests cannot be listed; per-quest failures are logged
// and counted.
func (s *DeadlineScanner) Scan(ctx context.Context) (*DeadlineScanReport, error) {
	s.logger.Info("Starting quest deadline notification check")

	now := s.now()
	quests, err := s.quests.ListDeadlineBetween(ctx, now, now.Add(s.lookahead))
	if err != nil {
		return nil, fmt.Errorf("failed to list quests near deadline: %w", err)
	}
	s.logger.Infof("Found %d quests with deadline within %s", len(quests), s.lookahead)

	report := &DeadlineScanReport{Found: len(quests)}
	var mu sync.Mutex
	forEach(ctx, s.concurrency, quests, func(ctx context.Context, _ int, q *quest.Quest) {
		out := s.processQuest(ctx, q)
		mu.Lock()
		defer mu.Unlock()
		switch {
		case out.Status == OutcomeDispatched:
			report.Notified++
		case out.Status == OutcomeFailed:
			report.Failed++
		case out.Reason == reasonAlreadyNotified:
			report.AlreadyNotified++
		default:
			report.NoRecipients++
		}
	})

	s.logger.WithFields(logrus.Fields{
		"found":            report.Found,
		"notified":         report.Notified,
		"already_notified": report.AlreadyNotified,
		"no_recipients":    report.NoRecipients,
		"failed":           report.Failed,
	}).Info("Quest deadline notification check completed")
	return report, nil
}

const reasonAlreadyNotified = "already notified"

func (s *DeadlineScanner) processQuest(ctx context.Context, q *quest.Quest) Outcome {
	logCtx := s.logger.WithField("quest_id", q.ID)

	if q.DeadlineNotificationSent {
		logCtx.Info("Deadline notification already sent for quest")
		return skipped(reasonAlreadyNotified)
	}
	if q.DispatchUnconfirmed() {
		logCtx.WithField("attempted_at", q.DeadlineDispatchAttemptedAt.Time).
			Warn("Previous deadline dispatch was never confirmed; recipients may receive a duplicate")
	}

	logCtx.Info("Sending deadline notification for quest")
	tokens := s.recipients.Build(ctx, q.EnrolledUserIDs, "")
	if len(tokens) == 0 {
		logCtx.Info("No push tokens found for enrolled users")
		return skipped("no recipients")
	}

	payload := DeadlinePayload(q, s.location)

	if err := s.quests.MarkDeadlineDispatchAttempted(ctx, q.ID); err != nil {
		logCtx.WithError(err).Warn("Failed to record deadline dispatch attempt")
	}

	result, err := s.dispatcher.Send(ctx, tokens, payload)
	if err != nil {
		logCtx.WithError(err).Error("Error sending deadline notification")
		// An earlier chunk may have reached devices; keep the marker so the
		// retry is flagged as a possible duplicate.
		if result == nil || result.SuccessCount+result.FailureCount == 0 {
			if clearErr := s.quests.ClearDeadlineDispatchAttempt(ctx, q.ID); clearErr != nil {
				logCtx.WithError(clearErr).Warn("Failed to clear deadline dispatch attempt")
			}
		}
		return failed("dispatch failed", err)
	}
	logCtx.WithField("recipients", len(tokens)).Info("Deadline notification sent")

	if err := s.quests.MarkDeadlineNotified(ctx, q.ID); err != nil {
		logCtx.WithError(err).Error("Failed to set deadline notification flag; the next scan will notify again")
		return failed("flag write failed", err)
	}
	return dispatched(result)
}

// DeadlinePayload builds the reminder for q with the deadline shown in loc.
func DeadlinePayload(q *quest.Quest, loc *time.Location) push.Payload {
	name := q.Name
	if name == "" {
		name = defaultQuestName
	}
	return push.Payload{
		Notification: push.Notification{
			Title: "クエスト締め切り間近！",
			Body:  fmt.Sprintf("「%s」の締め切りが%sです。残り1時間です！", name, q.Deadline.In(loc).Format(deadlineDisplayLayout)),
		},
		Data: map[string]string{
			"type":      push.TypeQuestDeadline,
			"questId":   q.ID,
			"questName": name,
			"deadline":  q.Deadline.UTC().Format(isoMillisLayout),
		},
	}
}
