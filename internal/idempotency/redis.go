package idempotency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "idempotency:"

// redis-backed store shared by every server instance
type RedisStore struct {
	client    *redis.Client
	lockTTL   time.Duration
	resultTTL time.Duration
}

// creates a store whose pending keys live for lockTTL; zero selects DefaultLockTTL
func NewRedisStore(client *redis.Client, lockTTL time.Duration) *RedisStore {
	if lockTTL <= 0 {
		lockTTL = DefaultLockTTL
	}

	return &RedisStore{
		client:    client,
		lockTTL:   lockTTL,
		resultTTL: DefaultResultTTL,
	}
}

func (s *RedisStore) Reserve(ctx context.Context, key string) ([]byte, error) {
	ok, err := s.client.SetNX(ctx, keyPrefix+key, pendingMarker, s.lockTTL).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to reserve idempotency key: %w", err)
	}

	if ok {
		return nil, nil
	}

	val, err := s.client.Get(ctx, keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		// expired between the two calls; try once more
		return s.Reserve(ctx, key)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read idempotency key: %w", err)
	}

	if string(val) == pendingMarker {
		return nil, ErrInFlight
	}

	return val, nil
}

func (s *RedisStore) Complete(ctx context.Context, key string, result []byte) error {
	if err := s.client.Set(ctx, keyPrefix+key, result, s.resultTTL).Err(); err != nil {
		return fmt.Errorf("failed to store idempotent result: %w", err)
	}
	return nil
}

func (s *RedisStore) Release(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, keyPrefix+key).Err(); err != nil {
		return fmt.Errorf("failed to release idempotency key: %w", err)
	}
	return nil
}
