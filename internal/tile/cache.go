package tile

import (
	"container/list"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Cache is a concurrent-safe LRU cache of rendered tiles with TTL expiration.
type Cache struct {
	mu         sync.Mutex
	entries    map[string]*list.Element
	order      *list.List // front=newest, back=oldest
	maxEntries int
	ttl        time.Duration
	hits       atomic.Int64
	misses     atomic.Int64
}

type cacheEntry struct {
	key       string
	data      []byte
	createdAt time.Time
}

// CacheStats contains cache performance statistics.
type CacheStats struct {
	Entries    int     `json:"entries"`
	MaxEntries int     `json:"max_entries"`
	Hits       int64   `json:"hits"`
	Misses     int64   `json:"misses"`
	HitRate    float64 `json:"hit_rate"`
}

// NewCache creates a Cache holding at most maxEntries tiles for ttl each.
func NewCache(maxEntries int, ttl time.Duration) *Cache {
	if maxEntries < 1 {
		maxEntries = 1
	}
	return &Cache{
		entries:    make(map[string]*list.Element),
		order:      list.New(),
		maxEntries: maxEntries,
		ttl:        ttl,
	}
}

// Get returns the cached tile or nil on miss or expiration.
func (c *Cache) Get(layer string, coord Coord) []byte {
	key := Key(layer, coord)

	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key]
	if !ok {
		c.misses.Add(1)
		return nil
	}

	entry := el.Value.(*cacheEntry)
	if c.ttl > 0 && time.Since(entry.createdAt) > c.ttl {
		c.order.Remove(el)
		delete(c.entries, key)
		c.misses.Add(1)
		return nil
	}

	c.order.MoveToFront(el)
	c.hits.Add(1)
	return entry.data
}

// Put stores a tile, evicting the least recently used entry when full.
func (c *Cache) Put(layer string, coord Coord, data []byte) {
	key := Key(layer, coord)

	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[key]; ok {
		el.Value = &cacheEntry{key: key, data: data, createdAt: time.Now()}
		c.order.MoveToFront(el)
		return
	}

	for len(c.entries) >= c.maxEntries {
		oldest := c.order.Back()
		if oldest == nil {
			break
		}
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*cacheEntry).key)
	}

	c.entries[key] = c.order.PushFront(&cacheEntry{key: key, data: data, createdAt: time.Now()})
}

// Invalidate drops every cached tile belonging to layer.
func (c *Cache) Invalidate(layer string) int {
	prefix := layer + "/"

	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key, el := range c.entries {
		if strings.HasPrefix(key, prefix) {
			c.order.Remove(el)
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

// Stats returns cache performance statistics.
func (c *Cache) Stats() CacheStats {
	c.mu.Lock()
	entries := len(c.entries)
	c.mu.Unlock()

	hits := c.hits.Load()
	misses := c.misses.Load()

	var hitRate float64
	if total := hits + misses; total > 0 {
		hitRate = float64(hits) / float64(total)
	}

	return CacheStats{
		Entries:    entries,
		MaxEntries: c.maxEntries,
		Hits:       hits,
		Misses:     misses,
		HitRate:    hitRate,
	}
}
