package priorart

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"sync"
	"time"
)

// DefaultCacheTTL is how long a successful search result stays fresh.
const DefaultCacheTTL = 24 * time.Hour

// CacheEntry is one stored search result set.
type CacheEntry struct {
	Key       string
	Query     string
	Source    string
	Items     []Item
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Cache stores search results keyed by CacheKey.
type Cache interface {
	Get(ctx context.Context, key string, now time.Time) ([]Item, bool, error)
	Put(ctx context.Context, entry CacheEntry) error
}

// CacheKey returns md5("query:source") in hex.
func CacheKey(query, source string) string {
	sum := md5.Sum([]byte(query + ":" + source))
	return hex.EncodeToString(sum[:])
}

// MemoryCache is an in-process Cache and is safe for concurrent use.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]CacheEntry
}

// NewMemoryCache constructs a MemoryCache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]CacheEntry)}
}

// Get returns the cached items when present and not expired.
func (c *MemoryCache) Get(ctx context.Context, key string, now time.Time) ([]Item, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok || !now.Before(entry.ExpiresAt) {
		return nil, false, nil
	}
	return append([]Item(nil), entry.Items...), true, nil
}

// Put stores or replaces an entry.
func (c *MemoryCache) Put(ctx context.Context, entry CacheEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	entry.Items = append([]Item(nil), entry.Items...)
	c.mu.Lock()
	c.entries[entry.Key] = entry
	c.mu.Unlock()
	return nil
}

// Purge drops expired entries and returns how many were removed.
func (c *MemoryCache) Purge(ctx context.Context, now time.Time) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	var removed int64
	for k, e := range c.entries {
		if !now.Before(e.ExpiresAt) {
			delete(c.entries, k)
			removed++
		}
	}
	return removed, nil
}
