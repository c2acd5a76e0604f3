// Package memory implements ports.Cache and ports.Locker in process memory,
// for tests and single-instance development.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/trebframework/treb/pkg/domain"
	"github.com/trebframework/treb/pkg/ports"
)

type item struct {
	value   []byte
	expires time.Time
}

// Cache implements ports.Cache with a mutex-guarded map.
type Cache struct {
	mu    sync.RWMutex
	items map[string]item
	locks map[string]time.Time
}

// NewCache creates an empty in-memory cache.
func NewCache() *Cache {
	return &Cache{
		items: make(map[string]item),
		locks: make(map[string]time.Time),
	}
}

func (c *Cache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.RLock()
	it, ok := c.items[key]
	c.mu.RUnlock()
	if !ok || (!it.expires.IsZero() && time.Now().After(it.expires)) {
		return nil, domain.ErrCacheMiss
	}
	out := make([]byte, len(it.value))
	copy(out, it.value)
	return out, nil
}

func (c *Cache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	var expires time.Time
	if ttl > 0 {
		expires = time.Now().Add(ttl)
	}
	stored := make([]byte, len(value))
	copy(stored, value)

	c.mu.Lock()
	c.items[key] = item{value: stored, expires: expires}
	c.mu.Unlock()
	return nil
}

func (c *Cache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	delete(c.items, key)
	c.mu.Unlock()
	return nil
}

// Lock implements ports.Locker with single-attempt, in-process semantics.
// A held, unexpired lock fails immediately with domain.ErrLockNotAcquired.
func (c *Cache) Lock(_ context.Context, key string, ttl time.Duration) (ports.UnlockFunc, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if until, held := c.locks[key]; held && time.Now().Before(until) {
		return nil, domain.ErrLockNotAcquired
	}
	c.locks[key] = time.Now().Add(ttl)

	return func(context.Context) error {
		c.mu.Lock()
		delete(c.locks, key)
		c.mu.Unlock()
		return nil
	}, nil
}
