// internal/infra/database/postgres_notification_repository.go
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"quest_notifier/internal/domain/notification"
)

type PostgresNotificationRepository struct {
	db *sql.DB
}

func NewPostgresNotificationRepository(db *sql.DB) *PostgresNotificationRepository {
	return &PostgresNotificationRepository{db: db}
}

func (r *PostgresNotificationRepository) GetByID(ctx context.Context, userID, notificationID string) (*notification.Notification, error) {
	query := `SELECT id, user_id, type, COALESCE(sender_id, ''), COALESCE(reason, ''), created_at
               FROM user_notifications WHERE user_id = $1 AND id = $2`
	n := notification.Notification{}
	err := r.db.QueryRowContext(ctx, query, userID, notificationID).Scan(
		&n.ID, &n.UserID, &n.Type, &n.SenderID, &n.Reason, &n.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotificationNotFound
		}
		return nil, fmt.Errorf("error getting notification by ID: %w", err)
	}
	return &n, nil
}
