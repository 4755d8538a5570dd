// internal/infra/database/postgres_quest_repository.go
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"quest_notifier/internal/domain/quest"

	"github.com/lib/pq" // For pq.Array
)

const questColumns = `id, name, course_id, created_by, enrolled_user_ids, deadline,
       deadline_notification_sent, deadline_notification_sent_at, deadline_dispatch_attempted_at, created_at`

type PostgresQuestRepository struct {
	db *sql.DB
}

func NewPostgresQuestRepository(db *sql.DB) *PostgresQuestRepository {
	return &PostgresQuestRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanQuest(row rowScanner) (*quest.Quest, error) {
	q := &quest.Quest{}
	err := row.Scan(
		&q.ID, &q.Name, &q.CourseID, &q.CreatedBy, pq.Array(&q.EnrolledUserIDs), &q.Deadline,
		&q.DeadlineNotificationSent, &q.DeadlineNotificationSentAt, &q.DeadlineDispatchAttemptedAt, &q.CreatedAt,
	)
	return q, err
}

func (r *PostgresQuestRepository) GetByID(ctx context.Context, id string) (*quest.Quest, error) {
	query := `SELECT ` + questColumns + ` FROM quests WHERE id = $1`
	q, err := scanQuest(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrQuestNotFound
		}
		return nil, fmt.Errorf("error getting quest by ID: %w", err)
	}
	return q, nil
}

func (r *PostgresQuestRepository) ListDeadlineBetween(ctx context.Context, from, to time.Time) ([]*quest.Quest, error) {
	query := `SELECT ` + questColumns + ` FROM quests
               WHERE deadline >= $1 AND deadline <= $2
               ORDER BY deadline ASC`
	rows, err := r.db.QueryContext(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("error querying quests by deadline: %w", err)
	}
	defer rows.Close()

	quests := make([]*quest.Quest, 0)
	for rows.Next() {
		q, err := scanQuest(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning quest row: %w", err)
		}
		quests = append(quests, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating quest rows: %w", err)
	}
	return quests, nil
}

func (r *PostgresQuestRepository) MarkDeadlineDispatchAttempted(ctx context.Context, id string) error {
	return r.execOne(ctx, "marking deadline dispatch attempt",
		`UPDATE quests SET deadline_dispatch_attempted_at = NOW() WHERE id = $1`, id)
}

func (r *PostgresQuestRepository) ClearDeadlineDispatchAttempt(ctx context.Context, id string) error {
	return r.execOne(ctx, "clearing deadline dispatch attempt",
		`UPDATE quests SET deadline_dispatch_attempted_at = NULL WHERE id = $1`, id)
}

// MarkDeadlineNotified keeps the first sent_at if the flag was already set.
func (r *PostgresQuestRepository) MarkDeadlineNotified(ctx context.Context, id string) error {
	return r.execOne(ctx, "marking deadline notified",
		`UPDATE quests
            SET deadline_notification_sent = TRUE,
                deadline_notification_sent_at = COALESCE(deadline_notification_sent_at, NOW())
          WHERE id = $1`, id)
}

func (r *PostgresQuestRepository) execOne(ctx context.Context, op, query string, id string) error {
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("error %s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("error %s: %w", op, err)
	}
	if n == 0 {
		return ErrQuestNotFound
	}
	return nil
}
