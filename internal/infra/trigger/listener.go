// Package trigger consumes the document_created NOTIFY events raised by the
// insert triggers and routes them to the notification handlers.
package trigger

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"quest_notifier/internal/app"
	idb "quest_notifier/internal/infra/database"

	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

// Collections named in the trigger payload.
const (
	CollectionQuests        = "quests"
	CollectionNotifications = "notifications"
)

const (
	minReconnectInterval = 10 * time.Second
	maxReconnectInterval = time.Minute
	pingInterval         = 90 * time.Second
)

// DocumentEvent is the JSON payload of a document_created notification.
type DocumentEvent struct {
	Collection string `json:"collection"`
	ID         string `json:"id"`
	ParentID   string `json:"parentId,omitempty"`
}

// Handlers is the subset of app.NotificationService the router needs.
type Handlers interface {
	HandleQuestCreated(ctx context.Context, questID string) app.Outcome
	HandleNotificationCreated(ctx context.Context, userID, notificationID string) app.Outcome
}

// Listener holds a dedicated LISTEN connection.
type Listener struct {
	connStr  string
	handlers Handlers
	timeout  time.Duration
	logger   *logrus.Entry
}

func NewListener(connStr string, handlers Handlers, timeout time.Duration, logger *logrus.Entry) *Listener {
	return &Listener{
		connStr:  connStr,
		handlers: handlers,
		timeout:  timeout,
		logger:   logger,
	}
}

// Run blocks until ctx is cancelled. Events are handled one at a time in
// arrival order.
func (l *Listener) Run(ctx context.Context) error {
	pl := pq.NewListener(l.connStr, minReconnectInterval, maxReconnectInterval, func(ev pq.ListenerEventType, err error) {
		switch ev {
		case pq.ListenerEventConnectionAttemptFailed, pq.ListenerEventDisconnected:
			l.logger.WithError(err).Warn("Trigger listener connection problem")
		case pq.ListenerEventReconnected:
			l.logger.Info("Trigger listener reconnected")
		}
	})
	defer pl.Close()

	if err := pl.Listen(idb.DocumentCreatedChannel); err != nil {
		return fmt.Errorf("listen on %s: %w", idb.DocumentCreatedChannel, err)
	}
	l.logger.WithField("channel", idb.DocumentCreatedChannel).Info("Trigger listener started")

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			l.logger.Info("Trigger listener stopped")
			return nil
		case n := <-pl.Notify:
			// nil after a reconnect; events raised while disconnected are lost
			if n == nil {
				continue
			}
			l.handle(ctx, n.Extra)
		case <-ticker.C:
			go func() {
				if err := pl.Ping(); err != nil {
					l.logger.WithError(err).Warn("Trigger listener ping failed")
				}
			}()
		}
	}
}

func (l *Listener) handle(ctx context.Context, raw string) {
	ev, err := ParseEvent(raw)
	if err != nil {
		l.logger.WithError(err).WithField("payload", raw).Warn("Ignoring malformed trigger payload")
		return
	}

	jobCtx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	out, routed := Route(jobCtx, l.handlers, ev)
	if !routed {
		l.logger.WithField("collection", ev.Collection).Debug("No handler for collection")
		return
	}

	entry := l.logger.WithFields(logrus.Fields{
		"collection": ev.Collection,
		"id":         ev.ID,
		"status":     out.Status,
	})
	if out.Err != nil {
		entry.WithError(out.Err).Error("Trigger handler failed")
		return
	}
	entry.WithField("reason", out.Reason).Info("Trigger handled")
}

// ParseEvent decodes a NOTIFY payload.
func ParseEvent(raw string) (DocumentEvent, error) {
	var ev DocumentEvent
	if err := json.Unmarshal([]byte(raw), &ev); err != nil {
		return DocumentEvent{}, fmt.Errorf("decode trigger payload: %w", err)
	}
	if ev.Collection == "" || ev.ID == "" {
		return DocumentEvent{}, fmt.Errorf("trigger payload missing collection or id")
	}
	return ev, nil
}

// Route dispatches ev to its handler. routed is false for unknown collections.
func Route(ctx context.Context, h Handlers, ev DocumentEvent) (out app.Outcome, routed bool) {
	switch ev.Collection {
	case CollectionQuests:
		return h.HandleQuestCreated(ctx, ev.ID), true
	case CollectionNotifications:
		return h.HandleNotificationCreated(ctx, ev.ParentID, ev.ID), true
	default:
		return app.Outcome{}, false
	}
}
