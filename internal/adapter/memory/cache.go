package memory

import (
	"context"
	"sort"
	"sync"

	"mindtrack/internal/domain"
)

// Cache is an in-memory domain.LocalCache.
type Cache struct {
	mu   sync.RWMutex
	data map[string][]byte
}

var _ domain.LocalCache = (*Cache)(nil)

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{data: make(map[string][]byte)}
}

// Get returns the value for key, or nil on a miss.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.data[key]
	if !ok {
		return nil, nil
	}
	return append([]byte(nil), v...), nil
}

// Put stores a copy of value under key.
func (c *Cache) Put(ctx context.Context, key string, value []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = append([]byte(nil), value...)
	return nil
}

// Delete removes key.
func (c *Cache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}

// Scan returns values whose keys fall within [from, to], ordered by key.
func (c *Cache) Scan(ctx context.Context, from, to string) ([][]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var keys []string
	for k := range c.data {
		if k >= from && k <= to {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	out := make([][]byte, 0, len(keys))
	for _, k := range keys {
		out = append(out, append([]byte(nil), c.data[k]...))
	}
	return out, nil
}
