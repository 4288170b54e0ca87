// Package cache provides the shared short-TTL response store used by upstream calls
// and the audit edge cache. Writes are last-write-wins; a miss is always safe.
package cache

import (
	"context"
	"time"
)

// Store is a TTL key/value store. Implementations never fail loudly: a read error is a miss
// and a write error is dropped.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)
	Ping(ctx context.Context) error
}
