package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"user-service/internal/domain"
	"user-service/internal/repository"
)

func newTestRepo(t *testing.T) (repository.UserRepository, *miniredis.Miniredis) {
	t.Helper()

	srv := miniredis.RunT(t)
	client, err := Open(context.Background(), Options{Addr: srv.Addr()})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })

	repo := NewUserRepository(client, "test:")
	if err := repo.Init(context.Background()); err != nil {
		t.Fatalf("init: %v", err)
	}
	return repo, srv
}

func TestUserRepository_SaveAndFind(t *testing.T) {
	repo, srv := newTestRepo(t)
	ctx := context.Background()

	ist := time.FixedZone("IST", 5*3600+30*60)
	createdAt := time.Date(2024, time.January, 1, 10, 0, 0, 0, ist)
	if _, err := repo.Save(ctx, &domain.User{ID: 1, Username: "jdoe", LastName: "Doe", Age: 30, CreatedAt: createdAt}); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := repo.FindByUsername(ctx, "jdoe")
	if err != nil {
		t.Fatalf("find by username: %v", err)
	}
	if got.ID != 1 || got.LastName != "Doe" || got.Age != 30 {
		t.Fatalf("unexpected user: %+v", got)
	}
	if _, offset := got.CreatedAt.Zone(); offset != 19800 || !got.CreatedAt.Equal(createdAt) {
		t.Fatalf("created_at not preserved: %v", got.CreatedAt)
	}

	if !srv.Exists("test:user:1") || !srv.Exists("test:username:jdoe") {
		t.Fatal("expected prefixed keys to be written")
	}

	exists, err := repo.ExistsByID(ctx, 1)
	if err != nil || !exists {
		t.Fatalf("expected user to exist, got %v (%v)", exists, err)
	}
}

func TestUserRepository_RenameReleasesOldUsername(t *testing.T) {
	repo, srv := newTestRepo(t)
	ctx := context.Background()

	now := time.Now()
	if _, err := repo.Save(ctx, &domain.User{ID: 1, Username: "before", LastName: "A", Age: 1, CreatedAt: now}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := repo.Save(ctx, &domain.User{ID: 1, Username: "after", LastName: "A", Age: 1, CreatedAt: now}); err != nil {
		t.Fatalf("rename: %v", err)
	}

	if srv.Exists("test:username:before") {
		t.Fatal("old username index should be removed")
	}
	if _, err := repo.FindByUsername(ctx, "before"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for old username, got %v", err)
	}
	if _, err := repo.Save(ctx, &domain.User{ID: 2, Username: "before", LastName: "B", Age: 2, CreatedAt: now}); err != nil {
		t.Fatalf("released username should be reusable: %v", err)
	}
}

func TestUserRepository_DuplicateUsername(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	now := time.Now()
	if _, err := repo.Save(ctx, &domain.User{ID: 1, Username: "dup", LastName: "A", Age: 1, CreatedAt: now}); err != nil {
		t.Fatalf("save: %v", err)
	}
	_, err := repo.Save(ctx, &domain.User{ID: 2, Username: "dup", LastName: "B", Age: 2, CreatedAt: now})
	if !errors.Is(err, repository.ErrDuplicateUsername) {
		t.Fatalf("expected ErrDuplicateUsername, got %v", err)
	}
	if exists, _ := repo.ExistsByID(ctx, 2); exists {
		t.Fatal("rejected user must not be stored")
	}
}

func TestUserRepository_Delete(t *testing.T) {
	repo, srv := newTestRepo(t)
	ctx := context.Background()

	if _, err := repo.Save(ctx, &domain.User{ID: 5, Username: "gone", LastName: "A", Age: 1, CreatedAt: time.Now()}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := repo.DeleteByID(ctx, 5); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if srv.Exists("test:user:5") || srv.Exists("test:username:gone") {
		t.Fatal("expected keys to be removed")
	}
	if err := repo.DeleteByID(ctx, 5); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := repo.FindByID(ctx, 5); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUserRepository_FindPage(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	for i := int64(1); i <= 15; i++ {
		user := &domain.User{ID: i, Username: "u" + string(rune('a'+i)), LastName: "L", Age: int(100 - i), CreatedAt: time.Now()}
		if _, err := repo.Save(ctx, user); err != nil {
			t.Fatalf("save %d: %v", i, err)
		}
	}

	users, total, err := repo.FindPage(ctx, domain.PageRequest{Page: 0, Size: 10})
	if err != nil {
		t.Fatalf("find page: %v", err)
	}
	if total != 15 || len(users) != 10 {
		t.Fatalf("unexpected page: total=%d len=%d", total, len(users))
	}
	for i, u := range users {
		if u.ID != int64(i+1) {
			t.Fatalf("position %d: expected id %d, got %d", i, i+1, u.ID)
		}
	}

	desc, _, err := repo.FindPage(ctx, domain.PageRequest{Page: 0, Size: 2, Sort: domain.Sort{Field: domain.SortByID, Desc: true}})
	if err != nil {
		t.Fatalf("find page desc: %v", err)
	}
	if len(desc) != 2 || desc[0].ID != 15 || desc[1].ID != 14 {
		t.Fatalf("unexpected desc page: %+v", desc)
	}

	byAge, _, err := repo.FindPage(ctx, domain.PageRequest{Page: 1, Size: 10, Sort: domain.Sort{Field: domain.SortByAge}})
	if err != nil {
		t.Fatalf("find page by age: %v", err)
	}
	if len(byAge) != 5 || byAge[0].ID != 5 || byAge[4].ID != 1 {
		t.Fatalf("unexpected age page: %+v", byAge)
	}

	beyond, total, err := repo.FindPage(ctx, domain.PageRequest{Page: 5, Size: 10})
	if err != nil {
		t.Fatalf("find page beyond end: %v", err)
	}
	if len(beyond) != 0 || total != 15 {
		t.Fatalf("expected empty page with total 15, got %d items total %d", len(beyond), total)
	}
}

func TestUserRepository_FindPageNegativeOffset(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	for i := int64(1); i <= 3; i++ {
		user := &domain.User{ID: i, Username: "u" + string(rune('0'+i)), LastName: "L", Age: 1, CreatedAt: time.Now()}
		if _, err := repo.Save(ctx, user); err != nil {
			t.Fatalf("save %d: %v", i, err)
		}
	}

	// an offset that wrapped around must never serve the first page
	for _, sort := range []domain.Sort{{Field: domain.SortByID}, {Field: domain.SortByAge}} {
		users, total, err := repo.FindPage(ctx, domain.PageRequest{Page: -1, Size: 10, Sort: sort})
		if err != nil {
			t.Fatalf("find page: %v", err)
		}
		if total != 3 || len(users) != 0 {
			t.Fatalf("sort %v: expected no users out of 3, got %d of %d", sort.Field, len(users), total)
		}
	}
}
