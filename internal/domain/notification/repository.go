// internal/domain/notification/repository.go
package notification

import (
	"context"
)

// Repository defines read access to per-user inbox records.
type Repository interface {
	GetByID(ctx context.Context, userID, notificationID string) (*Notification, error)
}
