package app

import (
	"context"
	"fmt"
	"time"

	"quest_notifier/internal/domain/push"
	"quest_notifier/internal/domain/timetable"
	"quest_notifier/internal/domain/user"

	"github.com/sirupsen/logrus"
)

// LoginBonusBroadcaster sends the daily login bonus reminder to every user
// with a push token.
type LoginBonusBroadcaster struct {
	users      user.Repository
	dispatcher *PushDispatcher
	location   *time.Location
	logger     *logrus.Entry
	now        func() time.Time
}

func NewLoginBonusBroadcaster(users user.Repository, dispatcher *PushDispatcher, location *time.Location, logger *logrus.Entry) *LoginBonusBroadcaster {
	if location == nil {
		location = time.Local
	}
	return &LoginBonusBroadcaster{
		users:      users,
		dispatcher: dispatcher,
		location:   location,
		logger:     logger,
		now:        time.Now,
	}
}

// Broadcast returns a nil result when nobody has a token.
func (b *LoginBonusBroadcaster) Broadcast(ctx context.Context) (*DispatchResult, error) {
	users, err := b.users.ListWithToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users with push token: %w", err)
	}

	tokens := make([]string, 0, len(users))
	seen := make(map[string]struct{}, len(users))
	for _, u := range users {
		if !u.HasToken() {
			continue
		}
		if _, dup := seen[u.FCMToken]; dup {
			continue
		}
		seen[u.FCMToken] = struct{}{}
		tokens = append(tokens, u.FCMToken)
	}
	if len(tokens) == 0 {
		b.logger.Info("No push tokens found for login bonus broadcast")
		return nil, nil
	}

	payload := push.Payload{
		Notification: push.Notification{
			Title: "ログインボーナス",
			Body:  "今日のログインボーナスを受け取りましょう！",
		},
		Data: map[string]string{
			"type": push.TypeLoginBonus,
			"date": b.now().In(b.location).Format(timetable.DateLayout),
		},
	}

	result, err := b.dispatcher.Send(ctx, tokens, payload)
	if err != nil {
		return result, fmt.Errorf("failed to broadcast login bonus: %w", err)
	}
	b.logger.WithField("recipients", len(tokens)).Info("Login bonus broadcast sent")
	return result, nil
}
