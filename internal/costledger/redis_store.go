package costledger

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore is a Redis-backed Store, following the same dial-and-ping
// construction and redis.Nil handling as the orchestrator's dedupe store.
type RedisStore struct {
	client redis.UniversalClient
}

// NewRedisStore wraps an existing Redis client.
func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client}
}

// DialRedisStore creates a new client for addr/db and pings it to validate
// the connection before returning.
func DialRedisStore(addr string, db int) (*RedisStore, error) {
	c := redis.NewClient(&redis.Options{Addr: addr, DB: db})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := c.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return &RedisStore{client: c}, nil
}

func (s *RedisStore) IncrByFloat(ctx context.Context, key, field string, delta float64) error {
	return s.client.HIncrByFloat(ctx, key, field, delta).Err()
}

func (s *RedisStore) IncrBy(ctx context.Context, key, field string, delta int64) error {
	return s.client.HIncrBy(ctx, key, field, delta).Err()
}

func (s *RedisStore) HashGetAll(ctx context.Context, key string) (map[string]string, error) {
	m, err := s.client.HGetAll(ctx, key).Result()
	if err != nil && err != redis.Nil {
		return nil, err
	}
	return m, nil
}

func (s *RedisStore) Expire(ctx context.Context, key string, ttl time.Duration) error {
	return s.client.Expire(ctx, key, ttl).Err()
}

func (s *RedisStore) PushRaw(ctx context.Context, key, payload string, ttl time.Duration) error {
	if err := s.client.RPush(ctx, key, payload).Err(); err != nil {
		return err
	}
	return s.client.Expire(ctx, key, ttl).Err()
}

// Close releases the underlying client. Not part of Store; used for
// graceful shutdown by callers holding a *RedisStore directly.
func (s *RedisStore) Close() error {
	if c, ok := s.client.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}
