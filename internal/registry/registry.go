package registry

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"openaigateway/internal/core"

	"golang.org/x/sync/errgroup"
)

// BackendSource is the runtime backend configuration the registry reads from.
type BackendSource interface {
	Enabled() bool
	Snapshot() []core.Backend
}

// Options configures a Registry.
type Options struct {
	Backends BackendSource
	Fetcher  Fetcher
	TTL      time.Duration
	Logger   core.Logger
	Metrics  core.MetricsCollector
	Now      func() time.Time
}

// snapshot is one fetch cycle: the raw per-backend documents and the catalog
// merged from them, published together.
type snapshot struct {
	raw       []any
	catalog   *core.ModelCatalog
	fetchedAt time.Time
}

// Registry fans model-list fetches out to every backend and caches the merged
// catalog for TTL. Readers never observe a partially built catalog.
type Registry struct {
	backends BackendSource
	fetcher  Fetcher
	ttl      time.Duration
	logger   core.Logger
	metrics  core.MetricsCollector
	now      func() time.Time

	current   atomic.Pointer[snapshot]
	refreshMu sync.Mutex
}

// New creates a registry with an empty cache.
func New(opts Options) *Registry {
	if opts.TTL <= 0 {
		opts.TTL = core.ModelCacheTTL
	}
	if opts.Logger == nil {
		opts.Logger = &core.NopLogger{}
	}
	if opts.Metrics == nil {
		opts.Metrics = &core.NopMetrics{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Registry{
		backends: opts.Backends,
		fetcher:  opts.Fetcher,
		ttl:      opts.TTL,
		logger:   opts.Logger,
		metrics:  opts.Metrics,
		now:      opts.Now,
	}
}

// ListMergedCatalog returns the merged catalog, fetching when the cache is stale.
// While the API is disabled it returns an empty catalog without any network call.
func (r *Registry) ListMergedCatalog(ctx context.Context) *core.ModelCatalog {
	if !r.backends.Enabled() {
		return core.NewModelCatalog(nil, nil, time.Time{})
	}
	return r.load(ctx).catalog
}

// ListRawPerBackend returns the fetched documents in backend order, nil for
// unreachable backends. It shares the cache of ListMergedCatalog.
func (r *Registry) ListRawPerBackend(ctx context.Context) []any {
	if !r.backends.Enabled() {
		return []any{}
	}
	return r.load(ctx).raw
}

// Current returns the last published catalog without fetching, nil before the first fetch.
func (r *Registry) Current() *core.ModelCatalog {
	if snap := r.current.Load(); snap != nil {
		return snap.catalog
	}
	return nil
}

// Lookup resolves a model id against the last published catalog. It never fetches.
func (r *Registry) Lookup(modelID string) (core.ModelRecord, core.Backend, bool) {
	return r.Current().Lookup(modelID)
}

// Reload fetches a fresh catalog after a configuration change. It waits for any
// refresh already in flight and then fetches again, so the published catalog
// always reflects the current backend list. While disabled the snapshot is
// dropped instead.
func (r *Registry) Reload(ctx context.Context) *core.ModelCatalog {
	r.refreshMu.Lock()
	defer r.refreshMu.Unlock()

	if !r.backends.Enabled() {
		r.current.Store(nil)
		return core.NewModelCatalog(nil, nil, time.Time{})
	}
	return r.refreshLocked(ctx).catalog
}

func (r *Registry) fresh(snap *snapshot) bool {
	return snap != nil && r.now().Sub(snap.fetchedAt) < r.ttl
}

func (r *Registry) load(ctx context.Context) *snapshot {
	if snap := r.current.Load(); r.fresh(snap) {
		r.metrics.RecordCacheHit()
		return snap
	}

	r.refreshMu.Lock()
	defer r.refreshMu.Unlock()

	// another caller may have refreshed while we waited
	if snap := r.current.Load(); r.fresh(snap) {
		r.metrics.RecordCacheHit()
		return snap
	}
	r.metrics.RecordCacheMiss()
	return r.refreshLocked(ctx)
}

// refreshLocked publishes a new snapshot. The fan-out ignores caller
// cancellation; each fetch is bounded by the fetcher's own timeout.
func (r *Registry) refreshLocked(ctx context.Context) *snapshot {
	start := r.now()
	backends := r.backends.Snapshot()
	raw := r.fetchAll(context.WithoutCancel(ctx), backends)

	lists := make([][]any, len(raw))
	for i, doc := range raw {
		lists[i] = ExtractModels(doc)
	}

	fetchedAt := r.now()
	snap := &snapshot{
		raw:       raw,
		catalog:   core.NewModelCatalog(Merge(backends, lists), backends, fetchedAt),
		fetchedAt: fetchedAt,
	}
	r.current.Store(snap)

	r.metrics.RecordCatalogRefresh(snap.catalog.Len(), fetchedAt.Sub(start))
	r.logger.Info("Model catalog refreshed: %d models from %d backends", snap.catalog.Len(), len(backends))
	return snap
}

// fetchAll waits for every backend. A failing backend leaves a nil slot and
// never cancels its siblings.
func (r *Registry) fetchAll(ctx context.Context, backends []core.Backend) []any {
	results := make([]any, len(backends))

	var g errgroup.Group
	for i, backend := range backends {
		g.Go(func() error {
			doc, err := r.fetcher.FetchModels(ctx, backend)
			if err != nil {
				r.logger.Error("Connection error for backend %d (%s): %v", backend.Index, backend.BaseURL, err)
				r.metrics.RecordBackendFetchFailure(backend.Index)
				return nil
			}
			results[i] = doc
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// ListBackendModels queries one backend directly, bypassing the cache.
func (r *Registry) ListBackendModels(ctx context.Context, idx int) (map[string]any, error) {
	backends := r.backends.Snapshot()
	if idx < 0 || idx >= len(backends) {
		return nil, &core.BackendIndexError{Index: idx, Count: len(backends)}
	}

	backend := backends[idx]
	doc, err := r.fetcher.ListModels(ctx, backend)
	if err != nil {
		return nil, err
	}
	if backend.IsOpenAI() {
		doc = FilterOpenAIModels(doc)
	}
	return doc, nil
}
