package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fractal-terminal/terminalx/pkg/utils"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// DefaultKeyPrefix namespaces every key this service writes.
const DefaultKeyPrefix = "terminalx:"

// Client wraps the Redis client used as the shared response cache.
type Client struct {
	client    redis.UniversalClient
	logger    *zap.Logger
	keyPrefix string
}

// NewClient creates a new Redis client using environment variables for configuration.
// Environment variables:
//   - REDIS_HOST: Redis host (default: "localhost")
//   - REDIS_PORT: Redis port (default: "6379")
//   - REDIS_PASSWORD: Redis password (default: "")
//   - REDIS_DB: Redis database number (default: "0")
//   - REDIS_KEY_PREFIX: key namespace (default: "terminalx:")
func NewClient(ctx context.Context, logger *zap.Logger) (*Client, error) {
	host := utils.Env("REDIS_HOST", "localhost")
	port := utils.Env("REDIS_PORT", "6379")
	password := utils.Env("REDIS_PASSWORD", "")
	db := utils.EnvInt("REDIS_DB", 0)

	addr := fmt.Sprintf("%s:%s", host, port)

	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,

		// Connection pool
		PoolSize:     20,
		MinIdleConns: 2,

		// Cache reads sit on the request path, keep them short.
		DialTimeout:  3 * time.Second,
		ReadTimeout:  500 * time.Millisecond,
		WriteTimeout: 500 * time.Millisecond,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}

	logger.Info("Connected to Redis",
		zap.String("addr", addr),
		zap.Int("db", db))

	return NewWithClient(rdb, logger, utils.Env("REDIS_KEY_PREFIX", DefaultKeyPrefix)), nil
}

// NewWithClient wraps an existing go-redis client.
func NewWithClient(rdb redis.UniversalClient, logger *zap.Logger, keyPrefix string) *Client {
	return &Client{client: rdb, logger: logger, keyPrefix: keyPrefix}
}

// Close closes the Redis connection.
func (c *Client) Close() error {
	return c.client.Close()
}

// Get returns the value stored under key. Misses and errors both report ok=false;
// errors other than a miss are logged.
func (c *Client) Get(ctx context.Context, key string) ([]byte, bool) {
	bz, err := c.client.Get(ctx, c.keyPrefix+key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Debug("Redis get failed", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	return bz, true
}

// SetEx stores value with a TTL. This is best-effort - errors are logged but not returned.
func (c *Client) SetEx(ctx context.Context, key string, value []byte, ttl time.Duration) {
	if err := c.client.Set(ctx, c.keyPrefix+key, value, ttl).Err(); err != nil {
		c.logger.Warn("Redis set failed",
			zap.String("key", key),
			zap.Error(err))
	}
}

// Health checks if Redis is healthy.
func (c *Client) Health(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
