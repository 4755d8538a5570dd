// internal/app/notification_service.go
package app

import (
	"context"
	"errors"

	"quest_notifier/internal/domain/notification"
	"quest_notifier/internal/domain/quest"
	idb "quest_notifier/internal/infra/database"

	"github.com/sirupsen/logrus"
)

// NotificationService is the entry point used by triggers, the scheduler and
// the HTTP surface.
type NotificationService interface {
	// HandleQuestCreated loads quests/{questID} and notifies its audience.
	HandleQuestCreated(ctx context.Context, questID string) Outcome
	// HandleNotificationCreated loads users/{userID}/notifications/{notificationID}
	// and pushes it when it is a reward.
	HandleNotificationCreated(ctx context.Context, userID, notificationID string) Outcome
	ScanDeadlines(ctx context.Context) (*DeadlineScanReport, error)
	IngestCalendars(ctx context.Context) (*CalendarIngestReport, error)
	BroadcastLoginBonus(ctx context.Context) (*DispatchResult, error)
}

// NotificationServiceImpl implements the NotificationService interface.
type NotificationServiceImpl struct {
	questRepo  quest.Repository
	notifRepo  notification.Repository
	handlers   *EventHandlers
	scanner    *DeadlineScanner
	ingestion  *CalendarIngestion
	loginBonus *LoginBonusBroadcaster
	logger     *logrus.Entry
}

func NewNotificationServiceImpl(
	qr quest.Repository,
	nr notification.Repository,
	handlers *EventHandlers,
	scanner *DeadlineScanner,
	ingestion *CalendarIngestion,
	loginBonus *LoginBonusBroadcaster,
	logger *logrus.Entry,
) *NotificationServiceImpl {
	return &NotificationServiceImpl{
		questRepo:  qr,
		notifRepo:  nr,
		handlers:   handlers,
		scanner:    scanner,
		ingestion:  ingestion,
		loginBonus: loginBonus,
		logger:     logger,
	}
}

func (s *NotificationServiceImpl) HandleQuestCreated(ctx context.Context, questID string) Outcome {
	q, err := s.questRepo.GetByID(ctx, questID)
	if err != nil && !errors.Is(err, idb.ErrQuestNotFound) {
		s.logger.WithError(err).WithField("quest_id", questID).Error("Failed to load created quest")
		return failed("quest lookup failed", err)
	}
	return s.handlers.QuestCreated(ctx, questID, q)
}

func (s *NotificationServiceImpl) HandleNotificationCreated(ctx context.Context, userID, notificationID string) Outcome {
	n, err := s.notifRepo.GetByID(ctx, userID, notificationID)
	if err != nil && !errors.Is(err, idb.ErrNotificationNotFound) {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"user_id":         userID,
			"notification_id": notificationID,
		}).Error("Failed to load created notification")
		return failed("notification lookup failed", err)
	}
	return s.handlers.RewardReceived(ctx, userID, notificationID, n)
}

func (s *NotificationServiceImpl) ScanDeadlines(ctx context.Context) (*DeadlineScanReport, error) {
	return s.scanner.Scan(ctx)
}

func (s *NotificationServiceImpl) IngestCalendars(ctx context.Context) (*CalendarIngestReport, error) {
	return s.ingestion.Run(ctx)
}

func (s *NotificationServiceImpl) BroadcastLoginBonus(ctx context.Context) (*DispatchResult, error) {
	return s.loginBonus.Broadcast(ctx)
}
