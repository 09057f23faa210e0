package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// upstreamBuckets covers completion latencies from 100ms to 5m.
var upstreamBuckets = []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300}

// Collector holds the gateway's Prometheus collectors on a private registry.
type Collector struct {
	registry *prometheus.Registry

	catalogRefreshes   prometheus.Counter
	catalogSize        prometheus.Gauge
	catalogRefreshTime prometheus.Histogram
	fetchFailures      *prometheus.CounterVec
	upstreamRequests   *prometheus.CounterVec
	upstreamLatency    *prometheus.HistogramVec
	activeStreams      prometheus.Gauge
	cacheLookups       *prometheus.CounterVec
}

// NewCollector registers every gateway collector plus the Go runtime collectors.
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		catalogRefreshes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "openaigateway_catalog_refreshes_total",
			Help: "Model catalog fetch cycles",
		}),
		catalogSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "openaigateway_catalog_models",
			Help: "Models in the current merged catalog",
		}),
		catalogRefreshTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "openaigateway_catalog_refresh_duration_seconds",
			Help:    "Duration of a full model catalog fan-out",
			Buckets: prometheus.DefBuckets,
		}),
		fetchFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "openaigateway_backend_fetch_failures_total",
			Help: "Model list fetches that failed per backend",
		}, []string{"backend"}),
		upstreamRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "openaigateway_upstream_requests_total",
			Help: "Chat completion calls per backend and status",
		}, []string{"backend", "status"}),
		upstreamLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "openaigateway_upstream_latency_seconds",
			Help:    "Time until upstream response headers",
			Buckets: upstreamBuckets,
		}, []string{"backend"}),
		activeStreams: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "openaigateway_streams_active",
			Help: "Streamed completions currently relayed",
		}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "openaigateway_cache_lookups_total",
			Help: "Model catalog cache lookups by result",
		}, []string{"result"}),
	}

	c.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		c.catalogRefreshes,
		c.catalogSize,
		c.catalogRefreshTime,
		c.fetchFailures,
		c.upstreamRequests,
		c.upstreamLatency,
		c.activeStreams,
		c.cacheLookups,
	)
	return c
}

// Registry exposes the private registry for tests and custom exporters.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

func (c *Collector) RecordCatalogRefresh(models int, duration time.Duration) {
	c.catalogRefreshes.Inc()
	c.catalogSize.Set(float64(models))
	c.catalogRefreshTime.Observe(duration.Seconds())
}

func (c *Collector) RecordBackendFetchFailure(backend int) {
	c.fetchFailures.WithLabelValues(strconv.Itoa(backend)).Inc()
}

func (c *Collector) RecordUpstreamRequest(backend int, status int, duration time.Duration) {
	label := strconv.Itoa(backend)
	c.upstreamRequests.WithLabelValues(label, strconv.Itoa(status)).Inc()
	c.upstreamLatency.WithLabelValues(label).Observe(duration.Seconds())
}

func (c *Collector) StreamOpened() { c.activeStreams.Inc() }
func (c *Collector) StreamClosed() { c.activeStreams.Dec() }

func (c *Collector) RecordCacheHit()  { c.cacheLookups.WithLabelValues("hit").Inc() }
func (c *Collector) RecordCacheMiss() { c.cacheLookups.WithLabelValues("miss").Inc() }
