// internal/app/event_handlers.go
package app

import (
	"context"
	"fmt"

	"quest_notifier/internal/domain/notification"
	"quest_notifier/internal/domain/push"
	"quest_notifier/internal/domain/quest"

	"github.com/sirupsen/logrus"
)

const (
	defaultQuestName  = "クエスト"
	defaultCourseName = "授業"
	defaultReason     = "クエスト"
)

// EventHandlers reacts to newly created quest and inbox records.
type EventHandlers struct {
	resolver   *TokenResolver
	recipients *RecipientSetBuilder
	dispatcher *PushDispatcher
	logger     *logrus.Entry
}

func NewEventHandlers(
	resolver *TokenResolver,
	recipients *RecipientSetBuilder,
	dispatcher *PushDispatcher,
	logger *logrus.Entry,
) *EventHandlers {
	return &EventHandlers{
		resolver:   resolver,
		recipients: recipients,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// QuestCreated notifies everyone enrolled in a new quest except its creator.
func (h *EventHandlers) QuestCreated(ctx context.Context, questID string, q *quest.Quest) Outcome {
	logCtx := h.logger.WithFields(logrus.Fields{"handler": "quest_created", "quest_id": questID})
	if q == nil {
		logCtx.Error("Quest data not found")
		return skipped("quest not found")
	}

	questName := q.Name
	if questName == "" {
		questName = defaultQuestName
	}
	courseName := q.CourseID
	if courseName == "" {
		courseName = defaultCourseName
	}
	logCtx = logCtx.WithField("creator_id", q.CreatedBy)
	logCtx.Infof("Quest created: %s", questName)

	creatorName := h.resolver.DisplayName(ctx, q.CreatedBy)

	tokens := h.recipients.Build(ctx, q.EnrolledUserIDs, q.CreatedBy)
	if len(tokens) == 0 {
		logCtx.Info("No push tokens found for enrolled users")
		return skipped("no recipients")
	}

	payload := push.Payload{
		Notification: push.Notification{
			Title: "新しいクエストが作成されました！",
			Body:  fmt.Sprintf("%sが%sで「%s」クエストを作成しました", creatorName, courseName, questName),
		},
		Data: map[string]string{
			"type":       push.TypeNewQuestCreated,
			"questId":    questID,
			"courseName": courseName,
			"questName":  questName,
		},
	}

	result, err := h.dispatcher.Send(ctx, tokens, payload)
	if err != nil {
		logCtx.WithError(err).Error("Error sending push notification")
		return failed("dispatch failed", err)
	}
	logCtx.WithField("recipients", len(tokens)).Info("Quest creation notification sent")
	return dispatched(result)
}

// RewardReceived notifies the owner of a takoyaki_received inbox record.
// Records of any other type are ignored.
func (h *EventHandlers) RewardReceived(ctx context.Context, userID, notificationID string, n *notification.Notification) Outcome {
	logCtx := h.logger.WithFields(logrus.Fields{
		"handler":         "reward_received",
		"user_id":         userID,
		"notification_id": notificationID,
	})
	if n == nil {
		logCtx.Error("Notification data not found")
		return skipped("notification not found")
	}
	if n.Type != notification.TypeTakoyakiReceived {
		return skipped("unhandled notification type")
	}
	logCtx.Info("Takoyaki received notification")

	res := h.resolver.Resolve(ctx, userID)
	switch res.Status {
	case ResolutionFailed:
		logCtx.WithError(res.Err).Error("Error getting push token for user")
		return skipped("recipient lookup failed")
	case ResolutionSkipped:
		logCtx.WithField("reason", res.SkipReason).Info("No push token found for user")
		return skipped("no recipient")
	}

	senderName := h.resolver.DisplayName(ctx, n.SenderID)
	reason := n.Reason
	if reason == "" {
		reason = defaultReason
	}

	payload := push.Payload{
		Notification: push.Notification{
			Title: "たこ焼きを貰いました！",
			Body:  fmt.Sprintf("%sから%sでたこ焼きを送ってもらいました！", senderName, reason),
		},
		Data: map[string]string{
			"type":           push.TypeTakoyakiReceived,
			"notificationId": notificationID,
			"senderId":       n.SenderID,
			"reason":         n.Reason,
		},
	}

	result, err := h.dispatcher.Send(ctx, []string{res.Token}, payload)
	if err != nil {
		logCtx.WithError(err).Error("Error sending takoyaki notification")
		return failed("dispatch failed", err)
	}
	logCtx.Info("Takoyaki notification sent")
	return dispatched(result)
}
