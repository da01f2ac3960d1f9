// Package cache provides the in-process ports.CacheStore used for summaries.
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/golang/groupcache/lru"

	"github.com/ahrav/go-precis/internal/ports"
)

// Defaults applied when MemoryStore options are zero.
const (
	DefaultTTL        = time.Hour
	DefaultMaxEntries = 1024
)

type entry struct {
	value     any
	expiresAt time.Time
}

// MemoryStore is an LRU cache with per-entry expiry. Expired entries are
// dropped lazily on Get; the LRU bound keeps memory in check otherwise.
// It is safe for concurrent use.
type MemoryStore struct {
	mu    sync.Mutex
	lru   *lru.Cache
	ttl   time.Duration
	now   func() time.Time
	evict func()
}

// Option configures a MemoryStore.
type Option func(*MemoryStore)

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *MemoryStore) { s.now = now }
}

// WithEvictionHook registers fn to run whenever an entry is evicted for
// space. It runs with the store lock held and must not call the store.
func WithEvictionHook(fn func()) Option {
	return func(s *MemoryStore) { s.evict = fn }
}

// NewMemoryStore creates a store holding at most maxEntries values that
// live for ttl unless Set is given an explicit expiration.
func NewMemoryStore(ttl time.Duration, maxEntries int, opts ...Option) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}

	s := &MemoryStore{lru: lru.New(maxEntries), ttl: ttl, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	s.lru.OnEvicted = func(lru.Key, any) {
		if s.evict != nil {
			s.evict()
		}
	}
	return s
}

var _ ports.CacheStore = (*MemoryStore)(nil)

// Get implements ports.CacheStore.
func (s *MemoryStore) Get(ctx context.Context, key string) (any, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, ports.NewCacheError(key, "get", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	raw, ok := s.lru.Get(key)
	if !ok {
		return nil, false, nil
	}
	e, ok := raw.(entry)
	if !ok {
		s.removeQuietly(key)
		return nil, false, ports.NewCacheError(key, "get", ports.ErrCacheCorrupted)
	}
	if !s.now().Before(e.expiresAt) {
		s.removeQuietly(key)
		return nil, false, nil
	}
	return e.value, true, nil
}

// Set implements ports.CacheStore. A non-positive expiration uses the
// store TTL.
func (s *MemoryStore) Set(ctx context.Context, key string, value any, expiration time.Duration) error {
	if err := ctx.Err(); err != nil {
		return ports.NewCacheError(key, "set", err)
	}
	if expiration <= 0 {
		expiration = s.ttl
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.lru.Add(key, entry{value: value, expiresAt: s.now().Add(expiration)})
	return nil
}

// Delete implements ports.CacheStore.
func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return ports.NewCacheError(key, "delete", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeQuietly(key)
	return nil
}

// Clear implements ports.CacheStore.
func (s *MemoryStore) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return ports.NewCacheError("*", "clear", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	hook := s.evict
	s.evict = nil
	s.lru.Clear()
	s.evict = hook
	return nil
}

// Len returns the number of stored entries, including expired ones not
// yet collected.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lru.Len()
}

// removeQuietly deletes key without firing the eviction hook.
func (s *MemoryStore) removeQuietly(key string) {
	hook := s.evict
	s.evict = nil
	s.lru.Remove(key)
	s.evict = hook
}
