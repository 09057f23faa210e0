package modelconfig

import (
	"context"
	"time"

	"openaigateway/internal/cache"
	"openaigateway/internal/core"
)

// CachedStore memoizes lookups of another store, misses included.
type CachedStore struct {
	store   core.ModelConfigStore
	cache   *cache.LRUCache
	ttl     time.Duration
	metrics core.MetricsCollector
}

type cachedEntry struct {
	cfg *core.ModelConfig
}

// NewCachedStore wraps store with an LRU cache whose entries live for ttl.
func NewCachedStore(store core.ModelConfigStore, ttl time.Duration) *CachedStore {
	if ttl <= 0 {
		ttl = core.ModelConfigCacheTTL
	}
	return &CachedStore{
		store:   store,
		cache:   cache.NewCache(core.CacheDefaultCapacity),
		ttl:     ttl,
		metrics: &core.NopMetrics{},
	}
}

// WithMetrics reports cache hits and misses to m.
func (c *CachedStore) WithMetrics(m core.MetricsCollector) *CachedStore {
	if m != nil {
		c.metrics = m
	}
	return c
}

func (c *CachedStore) Get(ctx context.Context, modelID string) (*core.ModelConfig, error) {
	key := cache.ModelConfigCacheKey(modelID)
	if v, ok := c.cache.Get(key); ok {
		if entry, ok := v.(cachedEntry); ok {
			c.metrics.RecordCacheHit()
			return cloneConfig(entry.cfg), nil
		}
	}
	c.metrics.RecordCacheMiss()

	cfg, err := c.store.Get(ctx, modelID)
	if err != nil {
		return nil, err
	}
	c.cache.Set(key, cachedEntry{cfg: cloneConfig(cfg)}, c.ttl)
	return cfg, nil
}

// Purge drops every cached lookup.
func (c *CachedStore) Purge() {
	c.cache.Clear()
}

// Reload re-reads the wrapped store when it supports reloading and purges the
// cache either way.
func (c *CachedStore) Reload() error {
	defer c.Purge()
	if r, ok := c.store.(reloader); ok {
		return r.Reload()
	}
	return nil
}

func (c *CachedStore) Close() error {
	c.cache.Stop()
	return nil
}

func cloneConfig(cfg *core.ModelConfig) *core.ModelConfig {
	if cfg == nil {
		return nil
	}
	out := *cfg
	if cfg.Params.Stop != nil {
		out.Params.Stop = append([]string{}, cfg.Params.Stop...)
	}
	return &out
}
