package dispatcher

import (
	"context"
	"time"

	infraRedis "github.com/cassiomorais/gateway/internal/infrastructure/redis"
	"github.com/redis/go-redis/v9"
)

// RedisLocker takes a short-lived distributed lock per event so that
// multiple dispatcher instances never attempt the same delivery at once.
type RedisLocker struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisLocker(client *redis.Client, ttl time.Duration) *RedisLocker {
	return &RedisLocker{client: client, ttl: ttl}
}

func (l *RedisLocker) Acquire(ctx context.Context, key string) (func(), bool, error) {
	lock := infraRedis.NewDistributedLock(l.client, "webhook:"+key, l.ttl)
	acquired, err := lock.Acquire(ctx)
	if err != nil || !acquired {
		return nil, false, err
	}
	release := func() {
		// Release on a fresh context so shutdown does not leak the lock
		// until TTL expiry.
		releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = lock.Release(releaseCtx)
	}
	return release, true, nil
}

// NoopLocker always grants the lock. It is used when a single dispatcher
// instance runs and in tests.
type NoopLocker struct{}

func (NoopLocker) Acquire(ctx context.Context, key string) (func(), bool, error) {
	return func() {}, true, nil
}
