package cache

import (
	"context"
	"sync"
	"time"

	"pricecalc/pkg/contracts/domain"
)

type memoryEntry struct {
	value     domain.RollingStdev
	expiresAt time.Time
}

// MemoryCache is an in-process StdevCache with a TTL and a size bound
type MemoryCache struct {
	mu        sync.Mutex
	entries   map[string]memoryEntry
	ttl       time.Duration
	maxSize   int
	hitCount  int64
	missCount int64
	now       func() time.Time
}

// NewMemoryCache creates an in-memory cache. A zero ttl never expires.
func NewMemoryCache(ttl time.Duration, maxSize int) *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
		maxSize: maxSize,
		now:     time.Now,
	}
}

// Get implements StdevCache
func (c *MemoryCache) Get(_ context.Context, key Key) (*domain.RollingStdev, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	k := key.String()
	entry, ok := c.entries[k]
	if !ok || c.expired(entry) {
		if ok {
			delete(c.entries, k)
		}
		c.missCount++
		return nil, nil
	}

	c.hitCount++
	v := entry.value
	return &v, nil
}

// Set implements StdevCache
func (c *MemoryCache) Set(_ context.Context, key Key, value domain.RollingStdev) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.maxSize <= 0 {
		return nil
	}

	k := key.String()
	if _, exists := c.entries[k]; !exists && len(c.entries) >= c.maxSize {
		c.evictOldest()
	}

	entry := memoryEntry{value: value}
	if c.ttl > 0 {
		entry.expiresAt = c.now().Add(c.ttl)
	}
	c.entries[k] = entry
	return nil
}

// Stats returns hit and miss counts
func (c *MemoryCache) Stats() (hits, misses int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hitCount, c.missCount
}

// Len returns the number of stored entries
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Close implements StdevCache
func (c *MemoryCache) Close() error {
	return nil
}

func (c *MemoryCache) expired(e memoryEntry) bool {
	return !e.expiresAt.IsZero() && c.now().After(e.expiresAt)
}

// evictOldest drops expired entries, or the entry closest to expiry
func (c *MemoryCache) evictOldest() {
	var (
		oldestKey string
		oldest    time.Time
	)
	for k, e := range c.entries {
		if c.expired(e) {
			delete(c.entries, k)
			continue
		}
		if oldestKey == "" || e.expiresAt.Before(oldest) {
			oldestKey, oldest = k, e.expiresAt
		}
	}
	if len(c.entries) >= c.maxSize && oldestKey != "" {
		delete(c.entries, oldestKey)
	}
}
