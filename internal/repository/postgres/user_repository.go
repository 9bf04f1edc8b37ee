package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"user-service/internal/domain"
	"user-service/internal/repository"
)

// created_at is text so the resolved offset survives the round trip; created_at_ns orders rows by instant.
const createUsersTable = `
CREATE TABLE IF NOT EXISTS users (
	id BIGINT PRIMARY KEY,
	username VARCHAR(50) NOT NULL,
	last_name VARCHAR(50) NOT NULL,
	age INTEGER NOT NULL CHECK (age >= 0),
	created_at TEXT NOT NULL,
	created_at_ns BIGINT NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_users_username ON users(username);
`

const uniqueViolation = "23505"

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) repository.UserRepository {
	return &UserRepository{pool: pool}
}

func (r *UserRepository) Init(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, createUsersTable); err != nil {
		return fmt.Errorf("create users table: %w", err)
	}
	return nil
}

func (r *UserRepository) FindByID(ctx context.Context, id int64) (*domain.User, error) {
	const query = `SELECT id, username, last_name, age, created_at FROM users WHERE id = $1`
	return scanUser(r.pool.QueryRow(ctx, query, id))
}

func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	const query = `SELECT id, username, last_name, age, created_at FROM users WHERE username = $1`
	return scanUser(r.pool.QueryRow(ctx, query, username))
}

func (r *UserRepository) ExistsByID(ctx context.Context, id int64) (bool, error) {
	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)`, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("check user exists: %w", err)
	}
	return exists, nil
}

func (r *UserRepository) Save(ctx context.Context, user *domain.User) (*domain.User, error) {
	const query = `INSERT INTO users (id, username, last_name, age, created_at, created_at_ns)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			username = EXCLUDED.username,
			last_name = EXCLUDED.last_name,
			age = EXCLUDED.age,
			created_at = EXCLUDED.created_at,
			created_at_ns = EXCLUDED.created_at_ns`
	_, err := r.pool.Exec(ctx, query,
		user.ID,
		user.Username,
		user.LastName,
		user.Age,
		repository.FormatTimestamp(user.CreatedAt),
		user.CreatedAt.UnixNano(),
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, fmt.Errorf("save user %d: %w", user.ID, repository.ErrDuplicateUsername)
		}
		return nil, fmt.Errorf("save user: %w", err)
	}

	saved := *user
	return &saved, nil
}

func (r *UserRepository) DeleteByID(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *UserRepository) FindPage(ctx context.Context, req domain.PageRequest) ([]domain.User, int64, error) {
	order, err := repository.OrderClause(req.Sort)
	if err != nil {
		return nil, 0, err
	}

	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}

	query := fmt.Sprintf(`SELECT id, username, last_name, age, created_at FROM users %s LIMIT $1 OFFSET $2`, order)
	rows, err := r.pool.Query(ctx, query, req.Size, req.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		users = append(users, *user)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate users: %w", err)
	}
	return users, total, nil
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var (
		user      domain.User
		createdAt string
	)
	if err := row.Scan(&user.ID, &user.Username, &user.LastName, &user.Age, &createdAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	ts, err := repository.ParseTimestamp(createdAt)
	if err != nil {
		return nil, err
	}
	user.CreatedAt = ts
	return &user, nil
}

var _ repository.UserRepository = (*UserRepository)(nil)
