package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"user-service/internal/domain"
	"user-service/internal/repository"
)

var (
	// ErrUserNotFound indicates that no user matches the requested id or username.
	ErrUserNotFound = errors.New("user not found")
	// ErrUserExists is returned when creating a user whose id is already taken.
	ErrUserExists = errors.New("user already exists")
	// ErrUsernameTaken is returned when another user already holds the username.
	ErrUsernameTaken = errors.New("username already taken")
)

// TimeSource yields the timestamp recorded on create and update. It must not fail.
type TimeSource interface {
	Resolve(ctx context.Context) time.Time
}

// UserService describes user lifecycle operations.
type UserService interface {
	GetByID(ctx context.Context, id int64) (*domain.UserView, error)
	GetByUsername(ctx context.Context, username string) (*domain.UserView, error)
	Create(ctx context.Context, input domain.NewUser) (*domain.UserView, error)
	Update(ctx context.Context, id int64, patch domain.UserPatch) (*domain.UserView, error)
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, req domain.PageRequest) (domain.Page[domain.UserView], error)
}

type userService struct {
	users repository.UserRepository
	clock TimeSource
}

func NewUserService(users repository.UserRepository, clock TimeSource) UserService {
	return &userService{
		users: users,
		clock: clock,
	}
}

func (s *userService) GetByID(ctx context.Context, id int64) (*domain.UserView, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "id %d", id)
	}
	return toView(user), nil
}

func (s *userService) GetByUsername(ctx context.Context, username string) (*domain.UserView, error) {
	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		return nil, notFound(err, "username %q", username)
	}
	return toView(user), nil
}

func (s *userService) Create(ctx context.Context, input domain.NewUser) (*domain.UserView, error) {
	exists, err := s.users.ExistsByID(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("%w: id %d", ErrUserExists, input.ID)
	}
	if err := s.ensureUsernameFree(ctx, input.Username, input.ID); err != nil {
		return nil, err
	}

	user := &domain.User{
		ID:        input.ID,
		Username:  input.Username,
		LastName:  input.LastName,
		Age:       input.Age,
		CreatedAt: s.clock.Resolve(ctx),
	}

	saved, err := s.users.Save(ctx, user)
	if err != nil {
		return nil, saveError(err, user.Username)
	}
	return toView(saved), nil
}

func (s *userService) Update(ctx context.Context, id int64, patch domain.UserPatch) (*domain.UserView, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "id %d", id)
	}

	patch.Apply(user)
	if patch.Username.Set {
		if err := s.ensureUsernameFree(ctx, user.Username, user.ID); err != nil {
			return nil, err
		}
	}
	user.CreatedAt = s.clock.Resolve(ctx)

	saved, err := s.users.Save(ctx, user)
	if err != nil {
		return nil, saveError(err, user.Username)
	}
	return toView(saved), nil
}

func (s *userService) Delete(ctx context.Context, id int64) error {
	exists, err := s.users.ExistsByID(ctx, id)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%w: id %d", ErrUserNotFound, id)
	}
	if err := s.users.DeleteByID(ctx, id); err != nil {
		return notFound(err, "id %d", id)
	}
	return nil
}

func (s *userService) List(ctx context.Context, req domain.PageRequest) (domain.Page[domain.UserView], error) {
	users, total, err := s.users.FindPage(ctx, req)
	if err != nil {
		return domain.Page[domain.UserView]{}, err
	}
	page := domain.NewPage(users, req, total)
	return domain.MapPage(page, func(u domain.User) domain.UserView { return *toView(&u) }), nil
}

// ensureUsernameFree reports ErrUsernameTaken if a user other than owner holds username.
func (s *userService) ensureUsernameFree(ctx context.Context, username string, owner int64) error {
	existing, err := s.users.FindByUsername(ctx, username)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return nil
	case err != nil:
		return err
	case existing.ID != owner:
		return fmt.Errorf("%w: %q", ErrUsernameTaken, username)
	}
	return nil
}

func notFound(err error, format string, args ...any) error {
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("%w: %s", ErrUserNotFound, fmt.Sprintf(format, args...))
	}
	return err
}

func saveError(err error, username string) error {
	if errors.Is(err, repository.ErrDuplicateUsername) {
		return fmt.Errorf("%w: %q", ErrUsernameTaken, username)
	}
	return err
}

func toView(user *domain.User) *domain.UserView {
	if user == nil {
		return nil
	}
	return &domain.UserView{
		ID:        user.ID,
		Username:  user.Username,
		LastName:  user.LastName,
		Age:       user.Age,
		CreatedAt: user.CreatedAt,
	}
}
