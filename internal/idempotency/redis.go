// Package idempotency guards against re-processing duplicate deliveries,
// e.g. the same webhook event arriving twice. Settlement stays correct
// without it; the lock only skips redundant work.
package idempotency

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

type Store interface {
	// TryLock returns true exactly once per (scope, key) within the TTL.
	TryLock(ctx context.Context, scope, key string) (bool, error)

	// Unlock drops the key so a later TryLock succeeds again. Callers use it
	// to give back a lock whose guarded work failed, so a retry of the same
	// delivery is not mistaken for a duplicate.
	Unlock(ctx context.Context, scope, key string) error
}

type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisStore(rdb *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{rdb: rdb, ttl: ttl}
}

func (s *RedisStore) TryLock(ctx context.Context, scope, key string) (bool, error) {
	return s.rdb.SetNX(ctx, "idemp:"+scope+":"+key, "1", s.ttl).Result()
}

func (s *RedisStore) Unlock(ctx context.Context, scope, key string) error {
	return s.rdb.Del(ctx, "idemp:"+scope+":"+key).Err()
}

var _ Store = (*RedisStore)(nil)
