package cache

import (
	"context"
	"time"

	"github.com/fractal-terminal/terminalx/pkg/redis"
)

// RedisStore shares cached responses across API replicas.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool) {
	return s.client.Get(ctx, key)
}

func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	s.client.SetEx(ctx, key, value, ttl)
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Health(ctx)
}
