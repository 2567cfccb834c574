package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// redisCmdable is the slice of *redis.Client the store uses.
type redisCmdable interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	SetNX(ctx context.Context, key string, value any, expiration time.Duration) *redis.BoolCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// RedisIdempotencyStore shares cached responses between replicas.
type RedisIdempotencyStore struct {
	rdb    redisCmdable
	prefix string
	ttl    time.Duration
}

func NewRedisIdempotencyStore(rdb *redis.Client, ttl time.Duration) *RedisIdempotencyStore {
	return newRedisIdempotencyStore(rdb, ttl)
}

func newRedisIdempotencyStore(rdb redisCmdable, ttl time.Duration) *RedisIdempotencyStore {
	return &RedisIdempotencyStore{
		rdb:    rdb,
		prefix: "slotbook:idempotency",
		ttl:    ttl,
	}
}

func (s *RedisIdempotencyStore) responseKey(key string) string {
	return s.prefix + ":response:" + key
}

func (s *RedisIdempotencyStore) lockKey(key string) string {
	return s.prefix + ":lock:" + key
}

func (s *RedisIdempotencyStore) Get(ctx context.Context, key string) (*CachedResponse, bool, error) {
	data, err := s.rdb.Get(ctx, s.responseKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to read idempotency key: %w", err)
	}

	var cached CachedResponse
	if err := json.Unmarshal(data, &cached); err != nil {
		return nil, false, fmt.Errorf("failed to decode cached response: %w", err)
	}
	return &cached, true, nil
}

func (s *RedisIdempotencyStore) Reserve(ctx context.Context, key string) (bool, error) {
	ok, err := s.rdb.SetNX(ctx, s.lockKey(key), "1", s.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to reserve idempotency key: %w", err)
	}
	return ok, nil
}

func (s *RedisIdempotencyStore) Set(ctx context.Context, key string, response *CachedResponse) error {
	response.CreatedAt = time.Now()
	data, err := json.Marshal(response)
	if err != nil {
		return fmt.Errorf("failed to encode cached response: %w", err)
	}

	if err := s.rdb.Set(ctx, s.responseKey(key), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store idempotency key: %w", err)
	}
	return s.Release(ctx, key)
}

func (s *RedisIdempotencyStore) Release(ctx context.Context, key string) error {
	if err := s.rdb.Del(ctx, s.lockKey(key)).Err(); err != nil {
		return fmt.Errorf("failed to release idempotency key: %w", err)
	}
	return nil
}

// Stop is a no-op; the shared client is closed by client.GracefulShutdown.
func (s *RedisIdempotencyStore) Stop() {}
