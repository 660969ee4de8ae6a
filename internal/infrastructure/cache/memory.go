package cache

import (
	"context"
	"sync"
	"time"

	"github.com/comparador/backend/internal/domain"
)

// cacheItem represents a single search result in the cache with expiration
type cacheItem struct {
	Products   []domain.Product
	Expiration time.Time
}

// Option configures a MemoryCache
type Option func(*MemoryCache)

// WithClock overrides the time source used for expiration checks
func WithClock(now func() time.Time) Option {
	return func(c *MemoryCache) {
		c.now = now
	}
}

// MemoryCache is a thread-safe in-memory cache with TTL support.
// Entries expire lazily: nothing sweeps the map, an expired entry is dropped
// the next time its key is read.
type MemoryCache struct {
	data  map[string]cacheItem
	mutex sync.RWMutex
	now   func() time.Time
}

// NewMemoryCache creates a new in-memory cache
func NewMemoryCache(opts ...Option) *MemoryCache {
	c := &MemoryCache{
		data: make(map[string]cacheItem),
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get retrieves a copy of the products stored under key
func (c *MemoryCache) Get(ctx context.Context, key string) ([]domain.Product, error) {
	c.mutex.RLock()
	item, exists := c.data[key]
	c.mutex.RUnlock()

	if !exists {
		return nil, domain.ErrCacheMiss
	}

	if !c.now().Before(item.Expiration) {
		c.mutex.Lock()
		// another writer may have refreshed the key in between
		if current, ok := c.data[key]; ok && !c.now().Before(current.Expiration) {
			delete(c.data, key)
		}
		c.mutex.Unlock()
		return nil, domain.ErrCacheMiss
	}

	return cloneProducts(item.Products), nil
}

// Set stores products under key, replacing any previous entry
func (c *MemoryCache) Set(ctx context.Context, key string, products []domain.Product, ttl time.Duration) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.data[key] = cacheItem{
		Products:   cloneProducts(products),
		Expiration: c.now().Add(ttl),
	}

	return nil
}

// Size returns the number of entries that have not expired yet
func (c *MemoryCache) Size() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	now := c.now()
	size := 0
	for _, item := range c.data {
		if now.Before(item.Expiration) {
			size++
		}
	}
	return size
}

func cloneProducts(products []domain.Product) []domain.Product {
	out := make([]domain.Product, len(products))
	copy(out, products)
	return out
}
