package supabase

import (
	"sync"
	"time"
)

// ItemCache holds the last actionable-items listing for a short TTL.
type ItemCache struct {
	mu        sync.RWMutex
	items     []Item
	fetchedAt time.Time
	ttl       time.Duration
}

func NewItemCache(ttl time.Duration) *ItemCache {
	return &ItemCache{ttl: ttl}
}

func (c *ItemCache) Get() []Item {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.items == nil || time.Since(c.fetchedAt) > c.ttl {
		return nil
	}

	result := make([]Item, len(c.items))
	copy(result, c.items)
	return result
}

func (c *ItemCache) Set(items []Item) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make([]Item, len(items))
	copy(c.items, items)
	c.fetchedAt = time.Now()
}

func (c *ItemCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = nil
}
