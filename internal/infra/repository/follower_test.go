package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/totegamma/remotefollow/internal/domain"
)

func TestMemoryFollowerRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryFollowerRepository(time.Minute)

	_, err := repo.Get(ctx, "session-1")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	follower := domain.Identity{ID: "https://example.org/users/alice", Handle: "alice@example.org"}
	if err := repo.Set(ctx, "session-1", follower); err != nil {
		t.Fatalf("set failed: %v", err)
	}

	got, err := repo.Get(ctx, "session-1")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got != follower {
		t.Fatalf("expected %+v got %+v", follower, got)
	}

	if _, err := repo.Get(ctx, "session-2"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected sessions to be isolated, got %v", err)
	}

	if err := repo.Delete(ctx, "session-1"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, err := repo.Get(ctx, "session-1"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestMemoryFollowerRepositoryExpiry(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryFollowerRepository(20 * time.Millisecond)

	if err := repo.Set(ctx, "session-1", domain.Identity{ID: "https://example.org/users/alice"}); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	time.Sleep(50 * time.Millisecond)

	if _, err := repo.Get(ctx, "session-1"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected follower to expire, got %v", err)
	}
}

func newRedisFollowerRepository(t *testing.T, ttl time.Duration) (*RedisFollowerRepository, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return NewRedisFollowerRepository(rdb, ttl), mr
}

func TestRedisFollowerRepository(t *testing.T) {
	ctx := context.Background()
	repo, mr := newRedisFollowerRepository(t, time.Hour)

	_, err := repo.Get(ctx, "session-1")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	follower := domain.Identity{ID: "https://example.org/users/alice", Handle: "alice@example.org"}
	if err := repo.Set(ctx, "session-1", follower); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	if !mr.Exists(followerKey("session-1")) {
		t.Fatalf("expected %q to be stored", followerKey("session-1"))
	}
	if ttl := mr.TTL(followerKey("session-1")); ttl != time.Hour {
		t.Fatalf("expected ttl of an hour, got %s", ttl)
	}

	got, err := repo.Get(ctx, "session-1")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got != follower {
		t.Fatalf("expected %+v got %+v", follower, got)
	}

	if _, err := repo.Get(ctx, "session-2"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected sessions to be isolated, got %v", err)
	}

	if err := repo.Delete(ctx, "session-1"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, err := repo.Get(ctx, "session-1"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if err := repo.Delete(ctx, "session-1"); err != nil {
		t.Fatalf("deleting a missing follower should succeed, got %v", err)
	}
}

func TestRedisFollowerRepositoryExpiry(t *testing.T) {
	ctx := context.Background()
	repo, mr := newRedisFollowerRepository(t, time.Minute)

	if err := repo.Set(ctx, "session-1", domain.Identity{ID: "https://example.org/users/alice"}); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	mr.FastForward(2 * time.Minute)

	if _, err := repo.Get(ctx, "session-1"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected follower to expire, got %v", err)
	}
}

func TestRedisFollowerRepositoryCorruptValue(t *testing.T) {
	ctx := context.Background()
	repo, mr := newRedisFollowerRepository(t, time.Minute)

	if err := mr.Set(followerKey("session-1"), "not json"); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	_, err := repo.Get(ctx, "session-1")
	if err == nil || errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected a decode failure, got %v", err)
	}
}

func TestRedisFollowerRepositoryUnavailable(t *testing.T) {
	ctx := context.Background()
	repo, mr := newRedisFollowerRepository(t, time.Minute)
	mr.Close()

	if err := repo.Set(ctx, "session-1", domain.Identity{}); err == nil {
		t.Fatalf("expected set to fail while redis is down")
	}
	_, err := repo.Get(ctx, "session-1")
	if err == nil || errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected a transport failure, got %v", err)
	}
}
