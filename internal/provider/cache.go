package provider

import (
	"fmt"
	"strings"
	"sync"

	"github.com/sydlexius/driftwave/internal/normalize"
)

// Cache memoizes provider responses for the lifetime of the process. It is
// shared across runs and injected into each adapter rather than held as
// package state, so the orchestrator (and the API) own its clear lifecycle.
//
// Writes are last-write-wins on the same key; responses for the same key
// are expected to be identical, so concurrent runs never need exclusive
// ownership.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]any
}

// NewCache creates an empty session cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[string]any)}
}

// Key builds the cache key for a provider call. Arguments are reduced to
// their canonical form so "The Beatles" and "the beatles" share one entry.
func Key(call string, limit int, args ...string) string {
	canon := make([]string, len(args))
	for i, a := range args {
		canon[i] = normalize.CanonicalKey(a)
	}
	return fmt.Sprintf("%s|%s|%d", call, strings.Join(canon, "|"), limit)
}

// Get returns the cached value for key, if present.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.entries[key]
	return v, ok
}

// Put stores a value. Idempotent for identical keys (last write wins).
func (c *Cache) Put(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = value
}

// Clear drops every entry. Called at explicit lifecycle points only.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]any)
}

// Len returns the number of cached responses.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Cached wraps a fetch with cache lookup and store. Errors are never cached.
func Cached[T any](c *Cache, key string, fetch func() (T, error)) (T, error) {
	if c != nil {
		if v, ok := c.Get(key); ok {
			if typed, ok := v.(T); ok {
				return typed, nil
			}
		}
	}
	v, err := fetch()
	if err != nil {
		var zero T
		return zero, err
	}
	if c != nil {
		c.Put(key, v)
	}
	return v, nil
}
