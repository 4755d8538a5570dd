package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"quest_notifier/internal/domain/timetable"
)

type PostgresTimetableRepository struct {
	db *sql.DB
}

func NewPostgresTimetableRepository(db *sql.DB) *PostgresTimetableRepository {
	return &PostgresTimetableRepository{db: db}
}

// Upsert replaces the whole entry list; nothing from an earlier run of the
// same day survives.
func (r *PostgresTimetableRepository) Upsert(ctx context.Context, s *timetable.DaySchedule) error {
	entries := s.Entries
	if entries == nil {
		entries = []timetable.Entry{}
	}
	payload, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("error encoding timetable entries: %w", err)
	}

	query := `INSERT INTO timetables (user_id, date, entries, updated_at)
               VALUES ($1, $2, $3, NOW())
               ON CONFLICT (user_id, date)
               DO UPDATE SET entries = EXCLUDED.entries, updated_at = NOW()
               RETURNING updated_at`
	if err := r.db.QueryRowContext(ctx, query, s.UserID, s.Date, payload).Scan(&s.UpdatedAt); err != nil {
		return fmt.Errorf("error upserting timetable: %w", err)
	}
	return nil
}

func (r *PostgresTimetableRepository) Get(ctx context.Context, userID, date string) (*timetable.DaySchedule, error) {
	query := `SELECT entries, updated_at FROM timetables WHERE user_id = $1 AND date = $2`
	s := &timetable.DaySchedule{UserID: userID, Date: date}
	var raw []byte
	err := r.db.QueryRowContext(ctx, query, userID, date).Scan(&raw, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTimetableNotFound
		}
		return nil, fmt.Errorf("error getting timetable: %w", err)
	}
	if err := json.Unmarshal(raw, &s.Entries); err != nil {
		return nil, fmt.Errorf("error decoding timetable entries: %w", err)
	}
	return s, nil
}
