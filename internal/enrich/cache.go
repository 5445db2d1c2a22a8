package enrich

import (
	"time"

	"github.com/jellydator/ttlcache/v3"
)

// DefaultCacheTTL is how long a fetched aggregate pull count is reused.
const DefaultCacheTTL = time.Hour

// Cache holds aggregate pull counts keyed by organization and package name.
// It is safe for concurrent use.
type Cache struct {
	cache *ttlcache.Cache[string, int]
}

// NewCache returns an empty cache whose entries expire after ttl.
func NewCache(ttl time.Duration, capacity uint64) *Cache {
	opts := []ttlcache.Option[string, int]{ttlcache.WithTTL[string, int](ttl)}
	if capacity > 0 {
		opts = append(opts, ttlcache.WithCapacity[string, int](capacity))
	}
	return &Cache{cache: ttlcache.New(opts...)}
}

func cacheKey(org, name string) string {
	return org + "/" + name
}

// Get returns the cached count for org/name.
func (c *Cache) Get(org, name string) (int, bool) {
	item := c.cache.Get(cacheKey(org, name), ttlcache.WithDisableTouchOnHit[string, int]())
	if item == nil {
		return 0, false
	}
	return item.Value(), true
}

// Set stores the count for org/name with the default TTL.
func (c *Cache) Set(org, name string, n int) {
	c.cache.Set(cacheKey(org, name), n, ttlcache.DefaultTTL)
}

// Len returns the number of live entries.
func (c *Cache) Len() int {
	return c.cache.Len()
}

// Start runs the expiry loop until Stop is called.
func (c *Cache) Start() {
	c.cache.Start()
}

func (c *Cache) Stop() {
	c.cache.Stop()
}
