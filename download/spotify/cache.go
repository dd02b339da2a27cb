package spotify

import (
	"container/list"
	"sync"
	"time"
)

// CacheStats holds cache statistics.
type CacheStats struct {
	Hits    int64
	Misses  int64
	Size    int
	MaxSize int
}

type cacheEntry struct {
	key       string
	value     interface{}
	expiresAt time.Time
}

// TTLCache is a thread-safe TTL cache with LRU eviction.
// It is shared by the catalog client and the stream search.
type TTLCache struct {
	mu      sync.Mutex
	items   map[string]*list.Element
	order   *list.List
	maxSize int
	ttl     time.Duration
	hits    int64
	misses  int64
	now     func() time.Time
}

// NewTTLCache creates a new TTL cache.
func NewTTLCache(maxSize, ttlSeconds int) *TTLCache {
	if maxSize <= 0 {
		maxSize = 1
	}
	return &TTLCache{
		items:   make(map[string]*list.Element),
		order:   list.New(),
		maxSize: maxSize,
		ttl:     time.Duration(ttlSeconds) * time.Second,
		now:     time.Now,
	}
}

// Get returns the cached value, or nil when missing or expired.
func (c *TTLCache) Get(key string) interface{} {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		c.misses++
		return nil
	}
	entry := el.Value.(*cacheEntry)
	if !c.now().Before(entry.expiresAt) {
		c.order.Remove(el)
		delete(c.items, key)
		c.misses++
		return nil
	}
	c.order.MoveToFront(el)
	c.hits++
	return entry.value
}

// Set stores a value, evicting the least recently used entry when full.
func (c *TTLCache) Set(key string, value interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()

	expiresAt := c.now().Add(c.ttl)
	if el, ok := c.items[key]; ok {
		entry := el.Value.(*cacheEntry)
		entry.value = value
		entry.expiresAt = expiresAt
		c.order.MoveToFront(el)
		return
	}

	if c.order.Len() >= c.maxSize {
		if back := c.order.Back(); back != nil {
			c.order.Remove(back)
			delete(c.items, back.Value.(*cacheEntry).key)
		}
	}
	c.items[key] = c.order.PushFront(&cacheEntry{key: key, value: value, expiresAt: expiresAt})
}

// Clear removes all entries.
func (c *TTLCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]*list.Element)
	c.order.Init()
}

// Stats returns cache statistics.
func (c *TTLCache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return CacheStats{Hits: c.hits, Misses: c.misses, Size: c.order.Len(), MaxSize: c.maxSize}
}
