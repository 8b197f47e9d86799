package cache

import (
	"time"

	"github.com/dgraph-io/ristretto"
)

// LRUCache is a size-bounded cache backed by ristretto.
type LRUCache struct {
	cache      *ristretto.Cache
	defaultTTL time.Duration
}

// NewLRU creates a cache bounded to maxSizeMB megabytes of values and tuned
// for about maxEntries keys.
func NewLRU(maxSizeMB int64, maxEntries int64, defaultTTL time.Duration) (*LRUCache, error) {
	// NumCounters should be ~10x the number of entries
	numCounters := max(maxEntries*10, 1000)

	c, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: numCounters,
		MaxCost:     maxSizeMB * 1024 * 1024,
		BufferItems: 64,
		Metrics:     true,
	})
	if err != nil {
		return nil, err
	}
	return &LRUCache{cache: c, defaultTTL: defaultTTL}, nil
}

func (c *LRUCache) Get(key string) ([]byte, bool) {
	val, found := c.cache.Get(key)
	if !found {
		return nil, false
	}
	data, ok := val.([]byte)
	if !ok {
		c.cache.Del(key)
		return nil, false
	}
	return data, true
}

func (c *LRUCache) Set(key string, value []byte, ttl time.Duration) {
	if ttl == 0 {
		ttl = c.defaultTTL
	}
	// Set may drop the item under contention or when it exceeds MaxCost.
	_ = c.cache.SetWithTTL(key, value, int64(len(value)), ttl)
	c.cache.Wait()
}

func (c *LRUCache) Delete(key string) {
	c.cache.Del(key)
}

func (c *LRUCache) Clear() {
	c.cache.Clear()
}

func (c *LRUCache) Stats() Stats {
	m := c.cache.Metrics
	return Stats{
		Hits:      m.Hits(),
		Misses:    m.Misses(),
		KeysAdded: m.KeysAdded(),
		Evictions: m.KeysEvicted(),
		Size:      int64(m.CostAdded() - m.CostEvicted()),
		Items:     int64(m.KeysAdded() - m.KeysEvicted()),
	}
}

// Close stops the ristretto background goroutines.
func (c *LRUCache) Close() {
	c.cache.Close()
}
