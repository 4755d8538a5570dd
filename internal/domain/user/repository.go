package user

import (
	"context"
)

// Repository defines read access to user profiles.
type Repository interface {
	GetByID(ctx context.Context, id string) (*User, error)
	ListWithToken(ctx context.Context) ([]*User, error)
	ListWithCalendar(ctx context.Context) ([]*User, error)
}
