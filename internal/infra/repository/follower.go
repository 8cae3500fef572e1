package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/bradfitz/gomemcache/memcache"
	"github.com/patrickmn/go-cache"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"

	"github.com/totegamma/remotefollow/internal/domain"
)

var tracer = otel.Tracer("repository")

const followerKeyPrefix = "remotefollow:follower:"

func followerKey(sessionID string) string {
	return followerKeyPrefix + sessionID
}

var errFollowerNotFound = domain.NotFoundError{Resource: "follower"}

// MemoryFollowerRepository keeps followers in process memory. Sessions are
// lost on restart.
type MemoryFollowerRepository struct {
	cache *cache.Cache
}

func NewMemoryFollowerRepository(ttl time.Duration) *MemoryFollowerRepository {
	return &MemoryFollowerRepository{cache: cache.New(ttl, ttl/2)}
}

func (r *MemoryFollowerRepository) Get(ctx context.Context, sessionID string) (domain.Identity, error) {
	x, found := r.cache.Get(followerKey(sessionID))
	if !found {
		return domain.Identity{}, errFollowerNotFound
	}
	return x.(domain.Identity), nil
}

func (r *MemoryFollowerRepository) Set(ctx context.Context, sessionID string, follower domain.Identity) error {
	r.cache.Set(followerKey(sessionID), follower, cache.DefaultExpiration)
	return nil
}

func (r *MemoryFollowerRepository) Delete(ctx context.Context, sessionID string) error {
	r.cache.Delete(followerKey(sessionID))
	return nil
}

// RedisFollowerRepository shares sessions between replicas through redis.
type RedisFollowerRepository struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisFollowerRepository(rdb *redis.Client, ttl time.Duration) *RedisFollowerRepository {
	return &RedisFollowerRepository{rdb: rdb, ttl: ttl}
}

func (r *RedisFollowerRepository) Get(ctx context.Context, sessionID string) (domain.Identity, error) {
	ctx, span := tracer.Start(ctx, "Follower.Repository.Redis.Get")
	defer span.End()

	value, err := r.rdb.Get(ctx, followerKey(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.Identity{}, errFollowerNotFound
		}
		span.RecordError(err)
		return domain.Identity{}, errors.Wrap(err, "failed to get follower")
	}

	var follower domain.Identity
	if err := json.Unmarshal(value, &follower); err != nil {
		span.RecordError(err)
		return domain.Identity{}, errors.Wrap(err, "failed to decode follower")
	}
	return follower, nil
}

func (r *RedisFollowerRepository) Set(ctx context.Context, sessionID string, follower domain.Identity) error {
	ctx, span := tracer.Start(ctx, "Follower.Repository.Redis.Set")
	defer span.End()

	value, err := json.Marshal(follower)
	if err != nil {
		return errors.Wrap(err, "failed to encode follower")
	}

	if err := r.rdb.Set(ctx, followerKey(sessionID), value, r.ttl).Err(); err != nil {
		span.RecordError(err)
		return errors.Wrap(err, "failed to set follower")
	}
	return nil
}

func (r *RedisFollowerRepository) Delete(ctx context.Context, sessionID string) error {
	ctx, span := tracer.Start(ctx, "Follower.Repository.Redis.Delete")
	defer span.End()

	if err := r.rdb.Del(ctx, followerKey(sessionID)).Err(); err != nil {
		span.RecordError(err)
		return errors.Wrap(err, "failed to delete follower")
	}
	return nil
}

// MemcachedFollowerRepository stores followers in memcached.
type MemcachedFollowerRepository struct {
	mc  *memcache.Client
	ttl time.Duration
}

func NewMemcachedFollowerRepository(mc *memcache.Client, ttl time.Duration) *MemcachedFollowerRepository {
	return &MemcachedFollowerRepository{mc: mc, ttl: ttl}
}

func (r *MemcachedFollowerRepository) Get(ctx context.Context, sessionID string) (domain.Identity, error) {
	_, span := tracer.Start(ctx, "Follower.Repository.Memcached.Get")
	defer span.End()

	item, err := r.mc.Get(followerKey(sessionID))
	if err != nil {
		if errors.Is(err, memcache.ErrCacheMiss) {
			return domain.Identity{}, errFollowerNotFound
		}
		span.RecordError(err)
		return domain.Identity{}, errors.Wrap(err, "failed to get follower")
	}

	var follower domain.Identity
	if err := json.Unmarshal(item.Value, &follower); err != nil {
		span.RecordError(err)
		return domain.Identity{}, errors.Wrap(err, "failed to decode follower")
	}
	return follower, nil
}

func (r *MemcachedFollowerRepository) Set(ctx context.Context, sessionID string, follower domain.Identity) error {
	_, span := tracer.Start(ctx, "Follower.Repository.Memcached.Set")
	defer span.End()

	value, err := json.Marshal(follower)
	if err != nil {
		return errors.Wrap(err, "failed to encode follower")
	}

	err = r.mc.Set(&memcache.Item{
		Key:        followerKey(sessionID),
		Value:      value,
		Expiration: int32(r.ttl / time.Second),
	})
	if err != nil {
		span.RecordError(err)
		return errors.Wrap(err, "failed to set follower")
	}
	return nil
}

func (r *MemcachedFollowerRepository) Delete(ctx context.Context, sessionID string) error {
	_, span := tracer.Start(ctx, "Follower.Repository.Memcached.Delete")
	defer span.End()

	err := r.mc.Delete(followerKey(sessionID))
	if err != nil && !errors.Is(err, memcache.ErrCacheMiss) {
		span.RecordError(err)
		return errors.Wrap(err, "failed to delete follower")
	}
	return nil
}
