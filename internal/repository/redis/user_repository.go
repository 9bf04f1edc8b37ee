package redis

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"user-service/internal/domain"
	"user-service/internal/repository"
)

const maxTxRetries = 5

// Options configures the redis connection backing a UserRepository.
type Options struct {
	Addr     string
	Password string
	DB       int
}

// Open connects to redis and verifies the server answers.
func Open(ctx context.Context, opts Options) (*goredis.Client, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// UserRepository keeps each user in a hash, a username→id key for lookups,
// and a sorted set of ids for paging.
type UserRepository struct {
	client *goredis.Client
	prefix string
}

func NewUserRepository(client *goredis.Client, prefix string) repository.UserRepository {
	return &UserRepository{client: client, prefix: prefix}
}

func (r *UserRepository) userKey(id int64) string {
	return r.prefix + "user:" + strconv.FormatInt(id, 10)
}

func (r *UserRepository) usernameKey(username string) string {
	return r.prefix + "username:" + username
}

func (r *UserRepository) indexKey() string {
	return r.prefix + "users"
}

// Init has nothing to create; it only checks the connection.
func (r *UserRepository) Init(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	return nil
}

func (r *UserRepository) FindByID(ctx context.Context, id int64) (*domain.User, error) {
	fields, err := r.client.HGetAll(ctx, r.userKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if len(fields) == 0 {
		return nil, repository.ErrNotFound
	}
	return decodeUser(fields)
}

func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	raw, err := r.client.Get(ctx, r.usernameKey(username)).Result()
	if errors.Is(err, goredis.Nil) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get username index: %w", err)
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("corrupt username index for %q: %w", username, err)
	}
	return r.FindByID(ctx, id)
}

func (r *UserRepository) ExistsByID(ctx context.Context, id int64) (bool, error) {
	n, err := r.client.Exists(ctx, r.userKey(id)).Result()
	if err != nil {
		return false, fmt.Errorf("check user exists: %w", err)
	}
	return n > 0, nil
}

func (r *UserRepository) Save(ctx context.Context, user *domain.User) (*domain.User, error) {
	idStr := strconv.FormatInt(user.ID, 10)
	userKey := r.userKey(user.ID)
	nameKey := r.usernameKey(user.Username)

	txf := func(tx *goredis.Tx) error {
		owner, err := tx.Get(ctx, nameKey).Result()
		switch {
		case err == nil && owner != idStr:
			return repository.ErrDuplicateUsername
		case err != nil && !errors.Is(err, goredis.Nil):
			return fmt.Errorf("get username index: %w", err)
		}

		previous, err := tx.HGet(ctx, userKey, "username").Result()
		if err != nil && !errors.Is(err, goredis.Nil) {
			return fmt.Errorf("get previous username: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			if previous != "" && previous != user.Username {
				pipe.Del(ctx, r.usernameKey(previous))
			}
			pipe.HSet(ctx, userKey, encodeUser(user))
			pipe.Set(ctx, nameKey, idStr, 0)
			pipe.ZAdd(ctx, r.indexKey(), goredis.Z{Score: float64(user.ID), Member: idStr})
			return nil
		})
		return err
	}

	if err := r.watch(ctx, txf, userKey, nameKey); err != nil {
		if errors.Is(err, repository.ErrDuplicateUsername) {
			return nil, fmt.Errorf("save user %d: %w", user.ID, err)
		}
		return nil, fmt.Errorf("save user: %w", err)
	}

	saved := *user
	return &saved, nil
}

func (r *UserRepository) DeleteByID(ctx context.Context, id int64) error {
	userKey := r.userKey(id)

	txf := func(tx *goredis.Tx) error {
		username, err := tx.HGet(ctx, userKey, "username").Result()
		if errors.Is(err, goredis.Nil) {
			return repository.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("get username: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			pipe.Del(ctx, userKey)
			pipe.Del(ctx, r.usernameKey(username))
			pipe.ZRem(ctx, r.indexKey(), strconv.FormatInt(id, 10))
			return nil
		})
		return err
	}

	if err := r.watch(ctx, txf, userKey); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return err
		}
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}

func (r *UserRepository) FindPage(ctx context.Context, req domain.PageRequest) ([]domain.User, int64, error) {
	total, err := r.client.ZCard(ctx, r.indexKey()).Result()
	if err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}
	if total == 0 || req.Size <= 0 {
		return nil, total, nil
	}

	start := int64(req.Offset())
	if start < 0 || start >= total {
		return nil, total, nil
	}

	if req.Sort.Field == "" || req.Sort.Field == domain.SortByID {
		ids, err := r.client.ZRangeArgs(ctx, goredis.ZRangeArgs{
			Key:   r.indexKey(),
			Start: start,
			Stop:  start + int64(req.Size) - 1,
			Rev:   req.Sort.Desc,
		}).Result()
		if err != nil {
			return nil, 0, fmt.Errorf("range users: %w", err)
		}
		users, err := r.load(ctx, ids)
		return users, total, err
	}

	// Other orderings need every record; the index only orders by id.
	ids, err := r.client.ZRange(ctx, r.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, 0, fmt.Errorf("range users: %w", err)
	}
	users, err := r.load(ctx, ids)
	if err != nil {
		return nil, 0, err
	}
	cmpFn, err := compareBy(req.Sort)
	if err != nil {
		return nil, 0, err
	}
	slices.SortStableFunc(users, cmpFn)

	if start >= int64(len(users)) {
		return nil, total, nil
	}
	end := min(start+int64(req.Size), int64(len(users)))
	return users[start:end], total, nil
}

func (r *UserRepository) load(ctx context.Context, ids []string) ([]domain.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	cmds := make([]*goredis.MapStringStringCmd, len(ids))
	_, err := r.client.Pipelined(ctx, func(pipe goredis.Pipeliner) error {
		for i, id := range ids {
			cmds[i] = pipe.HGetAll(ctx, r.prefix+"user:"+id)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load users: %w", err)
	}

	users := make([]domain.User, 0, len(ids))
	for _, cmd := range cmds {
		fields := cmd.Val()
		if len(fields) == 0 {
			// removed between the range and the load
			continue
		}
		user, err := decodeUser(fields)
		if err != nil {
			return nil, err
		}
		users = append(users, *user)
	}
	return users, nil
}

func (r *UserRepository) watch(ctx context.Context, fn func(*goredis.Tx) error, keys ...string) error {
	var err error
	for i := 0; i < maxTxRetries; i++ {
		err = r.client.Watch(ctx, fn, keys...)
		if !errors.Is(err, goredis.TxFailedErr) {
			return err
		}
	}
	return err
}

func compareBy(sort domain.Sort) (func(a, b domain.User) int, error) {
	var byField func(a, b domain.User) int
	switch sort.Field {
	case domain.SortByUsername:
		byField = func(a, b domain.User) int { return strings.Compare(a.Username, b.Username) }
	case domain.SortByLastName:
		byField = func(a, b domain.User) int { return strings.Compare(a.LastName, b.LastName) }
	case domain.SortByAge:
		byField = func(a, b domain.User) int { return cmp.Compare(a.Age, b.Age) }
	case domain.SortByCreatedAt:
		byField = func(a, b domain.User) int { return a.CreatedAt.Compare(b.CreatedAt) }
	default:
		return nil, fmt.Errorf("unsupported sort field %q", sort.Field)
	}
	return func(a, b domain.User) int {
		c := byField(a, b)
		if sort.Desc {
			c = -c
		}
		if c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	}, nil
}

func encodeUser(user *domain.User) map[string]any {
	return map[string]any{
		"id":         user.ID,
		"username":   user.Username,
		"last_name":  user.LastName,
		"age":        user.Age,
		"created_at": repository.FormatTimestamp(user.CreatedAt),
	}
}

func decodeUser(fields map[string]string) (*domain.User, error) {
	id, err := strconv.ParseInt(fields["id"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("decode user id: %w", err)
	}
	age, err := strconv.Atoi(fields["age"])
	if err != nil {
		return nil, fmt.Errorf("decode user %d age: %w", id, err)
	}
	createdAt, err := repository.ParseTimestamp(fields["created_at"])
	if err != nil {
		return nil, err
	}
	return &domain.User{
		ID:        id,
		Username:  fields["username"],
		LastName:  fields["last_name"],
		Age:       age,
		CreatedAt: createdAt,
	}, nil
}

var _ repository.UserRepository = (*UserRepository)(nil)
