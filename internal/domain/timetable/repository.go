package timetable

import (
	"context"
)

// Repository persists day schedules under users/{userId}/timetables/{date}.
type Repository interface {
	// Upsert replaces the entries stored for (UserID, Date) and stamps UpdatedAt.
	Upsert(ctx context.Context, s *DaySchedule) error
	Get(ctx context.Context, userID, date string) (*DaySchedule, error)
}
