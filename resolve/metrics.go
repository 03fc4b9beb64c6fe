package resolve

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors for one generation run. Each run
// owns its own registry, so counters never leak across runs or tests. A nil
// *Metrics is valid and drops every observation.
type Metrics struct {
	registry *prometheus.Registry

	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
	cacheEvictions  prometheus.Counter
	schemasResolved prometheus.Counter
	resolveDuration prometheus.Histogram
	memoryCleanups  prometheus.Counter
	heapUsedBytes   prometheus.Gauge
}

// NewMetrics creates collectors registered on a fresh registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		cacheHits: factory.NewCounter(prometheus.CounterOpts{
			Name: "openapikt_resolution_cache_hits_total",
			Help: "Resolution cache hits",
		}),
		cacheMisses: factory.NewCounter(prometheus.CounterOpts{
			Name: "openapikt_resolution_cache_misses_total",
			Help: "Resolution cache misses",
		}),
		cacheEvictions: factory.NewCounter(prometheus.CounterOpts{
			Name: "openapikt_resolution_cache_evictions_total",
			Help: "Resolution cache entries evicted",
		}),
		schemasResolved: factory.NewCounter(prometheus.CounterOpts{
			Name: "openapikt_schemas_resolved_total",
			Help: "Top-level schemas resolved",
		}),
		resolveDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "openapikt_schema_resolve_duration_seconds",
			Help:    "Wall time spent resolving one top-level schema",
			Buckets: prometheus.DefBuckets,
		}),
		memoryCleanups: factory.NewCounter(prometheus.CounterOpts{
			Name: "openapikt_memory_cleanups_total",
			Help: "Memory-pressure cleanups triggered during catalog construction",
		}),
		heapUsedBytes: factory.NewGauge(prometheus.GaugeOpts{
			Name: "openapikt_heap_used_bytes",
			Help: "Heap in use at the last memory sample",
		}),
	}
}

// Registry exposes the run's registry for scraping or test assertions.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) incCacheHit() {
	if m != nil {
		m.cacheHits.Inc()
	}
}

func (m *Metrics) incCacheMiss() {
	if m != nil {
		m.cacheMisses.Inc()
	}
}

func (m *Metrics) incCacheEviction() {
	if m != nil {
		m.cacheEvictions.Inc()
	}
}

func (m *Metrics) observeResolve(seconds float64) {
	if m != nil {
		m.schemasResolved.Inc()
		m.resolveDuration.Observe(seconds)
	}
}

func (m *Metrics) incMemoryCleanup() {
	if m != nil {
		m.memoryCleanups.Inc()
	}
}

func (m *Metrics) setHeapUsed(bytes uint64) {
	if m != nil {
		m.heapUsedBytes.Set(float64(bytes))
	}
}
