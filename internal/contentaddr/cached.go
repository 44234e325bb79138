package contentaddr

import (
	"time"

	"github.com/jellydator/ttlcache/v3"

	"avatardl/internal/catalog"
)

type lookupResult struct {
	id string
	ok bool
}

// Cached memoises another Lookup for a fixed TTL. Misses are cached too.
type Cached struct {
	inner Lookup
	cache *ttlcache.Cache[string, lookupResult]
}

// NewCached wraps inner. A non-positive ttl returns inner unchanged.
func NewCached(inner Lookup, ttl time.Duration) Lookup {
	if inner == nil || ttl <= 0 {
		return inner
	}
	cache := ttlcache.New[string, lookupResult](
		ttlcache.WithTTL[string, lookupResult](ttl),
		ttlcache.WithDisableTouchOnHit[string, lookupResult](),
	)
	return &Cached{inner: inner, cache: cache}
}

func (c *Cached) Lookup(filename string, category catalog.Category) (string, bool) {
	key := string(category) + "\x00" + normalizeFilename(filename)
	if item := c.cache.Get(key); item != nil {
		res := item.Value()
		return res.id, res.ok
	}
	id, ok := c.inner.Lookup(filename, category)
	c.cache.Set(key, lookupResult{id: id, ok: ok}, ttlcache.DefaultTTL)
	return id, ok
}

func (c *Cached) URL(id string) string {
	return c.inner.URL(id)
}

// Len reports how many lookups are currently memoised.
func (c *Cached) Len() int {
	return c.cache.Len()
}
