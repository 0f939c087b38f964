package cache

import (
	"context"
	"encoding/json"
	"time"

	"storefront/internal/logging"

	gocache "github.com/patrickmn/go-cache"
)

// Store is a best-effort key-value cache with per-entry TTL.
type Store interface {
	Get(key Key) ([]byte, bool)
	Set(key Key, value []byte, ttl time.Duration)
	Delete(keys ...Key)
}

// MemoryStore is a process-local Store backed by go-cache.
type MemoryStore struct {
	c *gocache.Cache
}

// NewMemoryStore creates a MemoryStore whose expired entries are purged every cleanupInterval.
func NewMemoryStore(defaultTTL, cleanupInterval time.Duration) *MemoryStore {
	return &MemoryStore{c: gocache.New(defaultTTL, cleanupInterval)}
}

func (s *MemoryStore) Get(key Key) ([]byte, bool) {
	v, ok := s.c.Get(string(key))
	if !ok {
		return nil, false
	}
	b, ok := v.([]byte)
	return b, ok
}

func (s *MemoryStore) Set(key Key, value []byte, ttl time.Duration) {
	s.c.Set(string(key), value, ttl)
}

func (s *MemoryStore) Delete(keys ...Key) {
	for _, k := range keys {
		s.c.Delete(string(k))
	}
}

// Len reports the number of live entries.
func (s *MemoryStore) Len() int {
	return s.c.ItemCount()
}

// Fetch returns the value cached under key, or calls load, caches its JSON encoding for ttl
// and returns it. Undecodable entries count as misses; cache write failures are only logged.
func Fetch[T any](ctx context.Context, store Store, key Key, ttl time.Duration, load func() (T, error)) (T, error) {
	if raw, ok := store.Get(key); ok {
		var cached T
		if err := json.Unmarshal(raw, &cached); err == nil {
			return cached, nil
		}
		logging.FromContext(ctx).Warn("dropping undecodable cache entry", "key", string(key))
		store.Delete(key)
	}

	v, err := load()
	if err != nil {
		return v, err
	}
	raw, err := json.Marshal(v)
	if err != nil {
		logging.FromContext(ctx).Warn("cache encode failed", "key", string(key), "error", err)
		return v, nil
	}
	store.Set(key, raw, ttl)
	return v, nil
}
