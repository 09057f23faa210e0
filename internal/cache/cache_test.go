package cache

import (
	"strings"
	"sync"
	"testing"
	"time"
)

func newTestCache(t *testing.T, capacity int) *LRUCache {
	t.Helper()
	c := NewCache(capacity)
	t.Cleanup(c.Stop)
	return c
}

func (c *LRUCache) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func TestLRUCache_BasicSetGet(t *testing.T) {
	cache := newTestCache(t, 0)
	cache.Set("key1", "value1", time.Hour)
	value, found := cache.Get("key1")
	if !found {
		t.Fatal("Expected to find key1")
	}
	if value != "value1" {
		t.Errorf("Expected 'value1', got '%v'", value)
	}
	if _, found := cache.Get("nonexistent"); found {
		t.Error("Should not find nonexistent key")
	}
}

func TestLRUCache_Expiration(t *testing.T) {
	cache := newTestCache(t, 0)
	cache.Set("key", "value", 100*time.Millisecond)
	if _, found := cache.Get("key"); !found {
		t.Error("Key should be found immediately after set")
	}
	time.Sleep(150 * time.Millisecond)
	if _, found := cache.Get("key"); found {
		t.Error("Key should be expired")
	}
	if cache.size() != 0 {
		t.Error("Expired entry should be dropped on access")
	}
}

func TestLRUCache_NonPositiveTTL(t *testing.T) {
	tests := []struct {
		name string
		ttl  time.Duration
	}{
		{"零 TTL", 0},
		{"负 TTL", -time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cache := newTestCache(t, 0)
			cache.Set("key", "value", tt.ttl)
			if _, found := cache.Get("key"); found {
				t.Error("Key should be immediately expired")
			}
		})
	}
}

func TestLRUCache_EvictsLeastRecentlyUsed(t *testing.T) {
	cache := newTestCache(t, 2)
	cache.Set("key1", "value1", time.Hour)
	cache.Set("key2", "value2", time.Hour)
	cache.Get("key1")
	cache.Set("key3", "value3", time.Hour)

	if _, found := cache.Get("key2"); found {
		t.Error("key2 should be evicted (least recently used)")
	}
	for _, key := range []string{"key1", "key3"} {
		if _, found := cache.Get(key); !found {
			t.Errorf("%s should exist", key)
		}
	}
	if cache.size() != 2 {
		t.Errorf("Expected 2 entries, got %d", cache.size())
	}
}

func TestLRUCache_UpdateExisting(t *testing.T) {
	cache := newTestCache(t, 2)
	cache.Set("key", "value1", time.Hour)
	cache.Set("other", "x", time.Hour)
	cache.Set("key", "value2", time.Hour)
	cache.Set("third", "y", time.Hour)

	v, found := cache.Get("key")
	if !found || v != "value2" {
		t.Errorf("Expected updated 'value2', got %v (found=%v)", v, found)
	}
	if _, found := cache.Get("other"); found {
		t.Error("updating key should have made it most recently used")
	}
}

func TestLRUCache_DefaultCapacity(t *testing.T) {
	cache := newTestCache(t, 0)
	if cache.capacity <= 0 {
		t.Error("non-positive capacity should fall back to the default")
	}
}

func TestLRUCache_ConcurrentAccess(t *testing.T) {
	cache := newTestCache(t, 16)
	const numGoroutines = 50
	const numOperations = 100
	var wg sync.WaitGroup
	for i := 0; i < numGoroutines; i++ {
		wg.Add(2)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < numOperations; j++ {
				cache.Set(string(rune('a'+(id+j)%26)), id*numOperations+j, time.Hour)
			}
		}(i)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < numOperations; j++ {
				cache.Get(string(rune('a' + (id+j)%26)))
			}
		}(i)
	}
	wg.Wait()
	if cache.size() > 16 {
		t.Errorf("capacity exceeded: %d", cache.size())
	}
}

func TestLRUCache_Clear(t *testing.T) {
	cache := newTestCache(t, 0)
	cache.Set("key1", "value1", time.Hour)
	cache.Set("key2", "value2", time.Hour)
	cache.Clear()
	if _, found := cache.Get("key1"); found {
		t.Error("key1 应该被清除")
	}
	cache.Set("key3", "value3", time.Hour)
	if _, found := cache.Get("key3"); !found {
		t.Error("cache should stay usable after Clear")
	}
}

func TestLRUCache_CleanupExpired(t *testing.T) {
	cache := newTestCache(t, 0)
	cache.cleanupExpired()

	cache.Set("short", "value", 50*time.Millisecond)
	cache.Set("long", "value", time.Hour)
	time.Sleep(100 * time.Millisecond)
	cache.cleanupExpired()

	if cache.size() != 1 {
		t.Errorf("Expected 1 entry after cleanup, got %d", cache.size())
	}
	if _, found := cache.Get("long"); !found {
		t.Error("long 应该仍然存在")
	}
}

func TestLRUCache_StopIsIdempotent(t *testing.T) {
	cache := NewCache(1)
	cache.Stop()
	cache.Stop()
}

func TestModelConfigCacheKey(t *testing.T) {
	key1 := ModelConfigCacheKey("gpt-4o")
	key2 := ModelConfigCacheKey("gpt-4o")
	key3 := ModelConfigCacheKey("gpt-4o-mini")
	if key1 != key2 {
		t.Error("相同模型应生成相同的缓存键")
	}
	if key1 == key3 {
		t.Error("不同模型应生成不同的缓存键")
	}
	if !strings.HasPrefix(key1, "modelcfg:v1:") {
		t.Errorf("unexpected key prefix: %s", key1)
	}
}
