// internal/domain/notification/notification.go
package notification

import (
	"time"
)

// Notification is an inbox record stored under users/{userId}/notifications.
// Records are immutable once written.
type Notification struct {
	ID        string
	UserID    string // owning user, the recipient
	Type      Type
	SenderID  string // optional, weak reference to another user
	Reason    string // optional free text
	CreatedAt time.Time
}
