package storage

import (
	"github.com/patrickmn/go-cache"
)

// VisibilityCache remembers whether a bucket is public for the life of the
// process. Entries never expire.
type VisibilityCache struct {
	entries *cache.Cache
}

func NewVisibilityCache() *VisibilityCache {
	return &VisibilityCache{entries: cache.New(cache.NoExpiration, 0)}
}

func (c *VisibilityCache) Get(bucket string) (public bool, ok bool) {
	v, found := c.entries.Get(bucket)
	if !found {
		return false, false
	}
	public, ok = v.(bool)
	return public, ok
}

func (c *VisibilityCache) Set(bucket string, public bool) {
	c.entries.Set(bucket, public, cache.NoExpiration)
}

func (c *VisibilityCache) Reset() {
	c.entries.Flush()
}
