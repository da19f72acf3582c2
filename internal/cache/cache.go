package cache

import (
	"context"
	"sync"
	"time"

	"github.com/kjstillabower/weather-snapshot-client/internal/models"
)

// Entry is a cached snapshot and the time it was stored.
type Entry struct {
	Data      models.Snapshot `json:"data"`
	Timestamp time.Time       `json:"timestamp"`
}

// Age returns how long ago the entry was stored, relative to now.
func (e Entry) Age(now time.Time) time.Duration {
	return now.Sub(e.Timestamp)
}

// Cache stores snapshots by key. Implementations do not judge freshness;
// Get returns whatever was last Set under key until Clear.
type Cache interface {
	Get(ctx context.Context, key string) (Entry, bool, error)
	Set(ctx context.Context, key string, entry Entry) error
	Clear(ctx context.Context) error
	Len() int
}

// InMemoryCache implements Cache with a mutex-guarded map. Entries are only
// removed by Clear or replaced by a later Set for the same key.
type InMemoryCache struct {
	mu   sync.RWMutex
	data map[string]Entry
}

// NewInMemoryCache creates a new in-memory cache instance.
func NewInMemoryCache() *InMemoryCache {
	return &InMemoryCache{
		data: make(map[string]Entry),
	}
}

// Get returns (entry, true, nil) if key was stored, (zero, false, nil) otherwise.
func (c *InMemoryCache) Get(ctx context.Context, key string) (Entry, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.data[key]
	return entry, ok, nil
}

// Set stores entry under key, replacing any previous entry.
func (c *InMemoryCache) Set(ctx context.Context, key string, entry Entry) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = entry
	return nil
}

// Clear removes every entry.
func (c *InMemoryCache) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = make(map[string]Entry)
	return nil
}

// Len returns the number of stored entries, fresh or stale.
func (c *InMemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.data)
}
