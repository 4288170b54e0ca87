package cache

import (
	"context"
	"time"

	"github.com/puzpuzpuz/xsync/v4"
)

const defaultMaxEntries = 10_000

type memEntry struct {
	value     []byte
	expiresAt time.Time
}

// MemoryStore is a process-local Store backed by a concurrent map.
type MemoryStore struct {
	items      *xsync.Map[string, memEntry]
	maxEntries int
	nowFn      func() time.Time
}

// MemoryOption configures a MemoryStore.
type MemoryOption func(*MemoryStore)

// WithMaxEntries bounds the store; expired entries are swept once the bound is crossed.
func WithMaxEntries(n int) MemoryOption {
	return func(s *MemoryStore) {
		if n > 0 {
			s.maxEntries = n
		}
	}
}

// WithClock injects the time source (tests).
func WithClock(now func() time.Time) MemoryOption {
	return func(s *MemoryStore) { s.nowFn = now }
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		items:      xsync.NewMap[string, memEntry](),
		maxEntries: defaultMaxEntries,
		nowFn:      time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, bool) {
	e, ok := s.items.Load(key)
	if !ok {
		return nil, false
	}
	if !s.nowFn().Before(e.expiresAt) {
		s.items.Delete(key)
		return nil, false
	}
	return e.value, true
}

func (s *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	s.items.Store(key, memEntry{value: value, expiresAt: s.nowFn().Add(ttl)})
	if s.items.Size() > s.maxEntries {
		s.sweep()
	}
}

func (s *MemoryStore) Ping(context.Context) error { return nil }

// Len returns the number of stored entries, expired ones included.
func (s *MemoryStore) Len() int { return s.items.Size() }

// sweep drops expired entries; if the store is still over its bound it is cleared.
func (s *MemoryStore) sweep() {
	now := s.nowFn()
	s.items.Range(func(k string, e memEntry) bool {
		if !now.Before(e.expiresAt) {
			s.items.Delete(k)
		}
		return true
	})
	if s.items.Size() > s.maxEntries {
		s.items.Clear()
	}
}
