package templatecache

import (
	"context"
	"time"
)

// Cache stores fetched template markup keyed by template reference.
// Get returns cached markup if present and not expired, Set stores markup with TTL.
type Cache interface {
	Get(ctx context.Context, ref string) (string, bool, error)
	Set(ctx context.Context, ref string, markup string, ttl time.Duration) error
}

// InMemoryCache implements Cache using an in-memory map with TTL-based
// expiration. Expired entries are removed on access. Not thread-safe; the
// harness execution model is single-threaded per run.
type InMemoryCache struct {
	data map[string]cacheEntry
}

type cacheEntry struct {
	markup    string
	expiresAt time.Time
}

// NewInMemoryCache creates a new in-memory cache instance.
func NewInMemoryCache() *InMemoryCache {
	return &InMemoryCache{
		data: make(map[string]cacheEntry),
	}
}

// Get retrieves cached markup for the reference if present and not expired.
// Returns ("", false, nil) on miss or expiration; expired entries are removed.
func (c *InMemoryCache) Get(ctx context.Context, ref string) (string, bool, error) {
	entry, ok := c.data[ref]
	if !ok {
		return "", false, nil
	}

	if time.Now().After(entry.expiresAt) {
		delete(c.data, ref)
		return "", false, nil
	}

	return entry.markup, true, nil
}

// Set stores markup with the specified TTL. The entry expires after TTL
// elapses and is removed on next Get access.
func (c *InMemoryCache) Set(ctx context.Context, ref string, markup string, ttl time.Duration) error {
	c.data[ref] = cacheEntry{
		markup:    markup,
		expiresAt: time.Now().Add(ttl),
	}
	return nil
}
