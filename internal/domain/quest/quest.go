package quest

import (
	"database/sql"
	"time"
)

// Quest is a shareable task with an enrollment list and a deadline.
type Quest struct {
	ID              string
	Name            string
	CourseID        string
	CreatedBy       string
	EnrolledUserIDs []string
	Deadline        time.Time

	// DeadlineNotificationSent flips false->true once and never reverts.
	DeadlineNotificationSent   bool
	DeadlineNotificationSentAt sql.NullTime
	// DeadlineDispatchAttemptedAt is written right before the gateway call and
	// cleared when the call fails outright.
	DeadlineDispatchAttemptedAt sql.NullTime
	CreatedAt                   time.Time
}

// DispatchUnconfirmed reports whether a previous scan reached the gateway but
// never recorded the outcome.
func (q *Quest) DispatchUnconfirmed() bool {
	return q.DeadlineDispatchAttemptedAt.Valid && !q.DeadlineNotificationSent
}
