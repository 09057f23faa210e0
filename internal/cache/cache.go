package cache

import (
	"container/list"
	"crypto/sha1" //nolint:gosec // G505: sha1 for cache keys, not security
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"openaigateway/internal/core"
)

// LRUCache is a thread-safe LRU cache whose entries expire after their TTL.
// A background worker drops expired entries until Stop is called.
type LRUCache struct {
	capacity int

	mu      sync.Mutex
	order   *list.List
	entries map[string]*list.Element

	stopOnce sync.Once
	done     chan struct{}
}

type entry struct {
	key       string
	value     any
	expiresAt time.Time
}

// NewCache creates an LRU cache holding at most capacity entries. A
// non-positive capacity falls back to core.CacheDefaultCapacity.
func NewCache(capacity int) *LRUCache {
	if capacity <= 0 {
		capacity = core.CacheDefaultCapacity
	}
	c := &LRUCache{
		capacity: capacity,
		order:    list.New(),
		entries:  make(map[string]*list.Element),
		done:     make(chan struct{}),
	}
	go c.cleanupLoop(core.CacheCleanupInterval)
	return c
}

func (c *LRUCache) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.cleanupExpired()
		case <-c.done:
			return
		}
	}
}

// Stop terminates the cleanup worker. It is safe to call more than once.
func (c *LRUCache) Stop() {
	c.stopOnce.Do(func() { close(c.done) })
}

// Set stores value under key for ttl, evicting the least recently used entry when full.
func (c *LRUCache) Set(key string, value any, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	expiresAt := time.Now().Add(ttl)
	if el, ok := c.entries[key]; ok {
		e := el.Value.(*entry)
		e.value = value
		e.expiresAt = expiresAt
		c.order.MoveToFront(el)
		return
	}

	c.entries[key] = c.order.PushFront(&entry{key: key, value: value, expiresAt: expiresAt})
	for c.order.Len() > c.capacity {
		c.removeElement(c.order.Back())
	}
}

// Get returns the value stored under key. Expired entries are dropped on access.
func (c *LRUCache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	e := el.Value.(*entry)
	if !time.Now().Before(e.expiresAt) {
		c.removeElement(el)
		return nil, false
	}
	c.order.MoveToFront(el)
	return e.value, true
}

// Clear drops every entry.
func (c *LRUCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.order.Init()
	c.entries = make(map[string]*list.Element)
}

func (c *LRUCache) removeElement(el *list.Element) {
	if el == nil {
		return
	}
	c.order.Remove(el)
	delete(c.entries, el.Value.(*entry).key)
}

func (c *LRUCache) cleanupExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	for el := c.order.Back(); el != nil; {
		prev := el.Prev()
		if !now.Before(el.Value.(*entry).expiresAt) {
			c.removeElement(el)
		}
		el = prev
	}
}

// ModelConfigCacheKey derives the cache key of a model configuration lookup.
func ModelConfigCacheKey(modelID string) string {
	h := sha1.New() //nolint:gosec // G401: sha1 for cache keys, not security
	h.Write([]byte(modelID))
	return fmt.Sprintf("modelcfg:%s:%s", core.CacheKeyVersion, hex.EncodeToString(h.Sum(nil)))
}
