package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"quest_notifier/internal/domain/user"
)

const userColumns = `id, character, COALESCE(fcm_token, ''), COALESCE(calendar_url, '')`

type PostgresUserRepository struct {
	db *sql.DB
}

func NewPostgresUserRepository(db *sql.DB) *PostgresUserRepository {
	return &PostgresUserRepository{db: db}
}

func (r *PostgresUserRepository) GetByID(ctx context.Context, id string) (*user.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	u := &user.User{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(&u.ID, &u.Character, &u.FCMToken, &u.CalendarURL)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("error getting user by ID: %w", err)
	}
	return u, nil
}

func (r *PostgresUserRepository) ListWithToken(ctx context.Context) ([]*user.User, error) {
	query := `SELECT ` + userColumns + ` FROM users
               WHERE fcm_token IS NOT NULL AND fcm_token <> '' ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error listing users with token: %w", err)
	}
	defer rows.Close()
	return scanUsers(rows)
}

func (r *PostgresUserRepository) ListWithCalendar(ctx context.Context) ([]*user.User, error) {
	query := `SELECT ` + userColumns + ` FROM users
               WHERE calendar_url IS NOT NULL AND calendar_url <> '' ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error listing users with calendar: %w", err)
	}
	defer rows.Close()
	return scanUsers(rows)
}

func scanUsers(rows *sql.Rows) ([]*user.User, error) {
	users := make([]*user.User, 0)
	for rows.Next() {
		u := &user.User{}
		if err := rows.Scan(&u.ID, &u.Character, &u.FCMToken, &u.CalendarURL); err != nil {
			return nil, fmt.Errorf("error scanning user row: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating user rows: %w", err)
	}
	return users, nil
}
