package quest

import (
	"context"
	"time"
)

// Repository defines operations on the quests collection.
type Repository interface {
	GetByID(ctx context.Context, id string) (*Quest, error)
	// ListDeadlineBetween returns quests whose deadline lies in [from, to], both inclusive.
	ListDeadlineBetween(ctx context.Context, from, to time.Time) ([]*Quest, error)
	// MarkDeadlineDispatchAttempted stamps the attempt marker with the server time.
	MarkDeadlineDispatchAttempted(ctx context.Context, id string) error
	// ClearDeadlineDispatchAttempt removes the attempt marker without touching the sent flag.
	ClearDeadlineDispatchAttempt(ctx context.Context, id string) error
	// MarkDeadlineNotified sets the sent flag and its server timestamp.
	MarkDeadlineNotified(ctx context.Context, id string) error
}
