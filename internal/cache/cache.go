package cache

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Cache is a small TTL wrapper over an in-process store. It absorbs
// repeated list reads; correctness never depends on it, because every
// mutation forgets the keys it touches.
type Cache struct {
	inner *gocache.Cache
}

func New(defaultTTL time.Duration) *Cache {
	return &Cache{inner: gocache.New(defaultTTL, 2*defaultTTL)}
}

// Remember returns the cached value for key, or loads, stores and
// returns it. Load errors are never cached.
func (c *Cache) Remember(key string, ttl time.Duration, load func() (any, error)) (any, error) {
	if v, ok := c.inner.Get(key); ok {
		return v, nil
	}
	v, err := load()
	if err != nil {
		return nil, err
	}
	c.inner.Set(key, v, ttl)
	return v, nil
}

func (c *Cache) Forget(keys ...string) {
	for _, k := range keys {
		c.inner.Delete(k)
	}
}

func (c *Cache) Flush() {
	c.inner.Flush()
}
