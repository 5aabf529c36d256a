package repository

import (
	"context"
	"sync"
	"time"

	"github.com/golang/groupcache/lru"
)

// DefaultMemoryCacheEntries bounds a MemoryCache created without MaxEntries.
const DefaultMemoryCacheEntries = 10000

type MemoryCacheConfig struct {
	// TTL of each entry. Zero keeps entries until they are evicted.
	TTL time.Duration
	// MaxEntries caps the cache; the least recently used entry is evicted
	// first. Zero means DefaultMemoryCacheEntries.
	MaxEntries int
}

// MemoryCache is a process-local, size-bounded CacheRepository.
type MemoryCache struct {
	mu    sync.Mutex
	ttl   time.Duration
	items *lru.Cache
	now   func() time.Time
}

type memoryEntry struct {
	value     string
	expiresAt time.Time
}

func NewMemoryCache(cfg MemoryCacheConfig) *MemoryCache {
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = DefaultMemoryCacheEntries
	}
	return &MemoryCache{
		ttl:   cfg.TTL,
		items: lru.New(cfg.MaxEntries),
		now:   time.Now,
	}
}

func (m *MemoryCache) Get(_ context.Context, key string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	v, ok := m.items.Get(key)
	if !ok {
		return "", false
	}
	entry := v.(memoryEntry)
	if !entry.expiresAt.IsZero() && !m.now().Before(entry.expiresAt) {
		m.items.Remove(key)
		return "", false
	}
	return entry.value, true
}

func (m *MemoryCache) Set(_ context.Context, key string, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry := memoryEntry{value: value}
	if m.ttl > 0 {
		entry.expiresAt = m.now().Add(m.ttl)
	}
	m.items.Add(key, entry)
	return nil
}

// Len reports the number of entries, including expired ones not yet evicted.
func (m *MemoryCache) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.items.Len()
}
