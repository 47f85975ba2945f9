// Package expansion memoizes oracle answers by (subject, title, difficulty).
package expansion

import (
	"context"
	"sync"

	"kgbuilder/internal/types/kg"
)

// Cache is an in-memory map fronting an optional Store. Entries are never
// evicted during a run.
type Cache struct {
	mu      sync.RWMutex
	store   Store
	entries map[string]kg.Expansion
}

// New returns a cache backed by store; a nil store keeps everything in memory.
func New(store Store) *Cache {
	return &Cache{store: store, entries: map[string]kg.Expansion{}}
}

// Load pulls every persisted entry into memory.
func (c *Cache) Load(ctx context.Context) (int, error) {
	if c.store == nil {
		return 0, nil
	}
	entries, err := c.store.Load(ctx)
	if err != nil {
		return 0, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, v := range entries {
		c.entries[k] = v
	}
	return len(entries), nil
}

func (c *Cache) Get(key string) (kg.Expansion, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	exp, ok := c.entries[key]
	if !ok {
		return kg.Expansion{}, false
	}
	return exp.Clone(), true
}

// Put stores exp under key and writes it through to the store. The
// in-memory entry is kept even when the write fails.
func (c *Cache) Put(ctx context.Context, key string, exp kg.Expansion) error {
	c.mu.Lock()
	c.entries[key] = exp.Clone()
	c.mu.Unlock()
	if c.store == nil {
		return nil
	}
	return c.store.Save(ctx, key, exp)
}

func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
