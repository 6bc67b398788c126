package idempotency

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "idempotency:"

// RedisIndex implements Index on top of Redis with a fixed TTL per entry.
type RedisIndex struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisIndex(client *redis.Client, ttl time.Duration) *RedisIndex {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisIndex{client: client, ttl: ttl}
}

func (i *RedisIndex) Get(ctx context.Context, key string) (uuid.UUID, bool, error) {
	val, err := i.client.Get(ctx, keyPrefix+key).Result()
	if err == redis.Nil {
		return uuid.Nil, false, nil
	}
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("get idempotency key: %w", err)
	}

	id, err := uuid.Parse(val)
	if err != nil {
		// A corrupt entry is treated as a miss; the store constraint
		// still guards against duplicates.
		return uuid.Nil, false, nil
	}
	return id, true, nil
}

func (i *RedisIndex) Set(ctx context.Context, key string, id uuid.UUID) error {
	if err := i.client.Set(ctx, keyPrefix+key, id.String(), i.ttl).Err(); err != nil {
		return fmt.Errorf("set idempotency key: %w", err)
	}
	return nil
}
