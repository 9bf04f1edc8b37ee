package repository

import (
	"context"
	"errors"

	"user-service/internal/domain"
)

var (
	// ErrNotFound is returned when no user matches a lookup or delete.
	ErrNotFound = errors.New("user not found")
	// ErrDuplicateUsername is returned when a save would give two users the same username.
	ErrDuplicateUsername = errors.New("username already in use")
)

// UserRepository defines persistence operations for User records.
type UserRepository interface {
	Init(ctx context.Context) error
	FindByID(ctx context.Context, id int64) (*domain.User, error)
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	ExistsByID(ctx context.Context, id int64) (bool, error)
	// Save inserts the user or replaces the record with the same ID.
	Save(ctx context.Context, user *domain.User) (*domain.User, error)
	DeleteByID(ctx context.Context, id int64) error
	FindPage(ctx context.Context, req domain.PageRequest) ([]domain.User, int64, error)
}
