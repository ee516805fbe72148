// Package metrics exports retrieval metrics in Prometheus format.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Exporter exports retrieval service metrics.
type Exporter struct {
	registry *prometheus.Registry

	// Search metrics
	searches      *prometheus.CounterVec
	searchLatency prometheus.Histogram
	resultCount   prometheus.Histogram

	// Result cache metrics
	cacheSize      prometheus.Gauge
	cacheCapacity  prometheus.Gauge
	cacheEvictions prometheus.Gauge

	// Index metrics
	indexBuildSeconds prometheus.Gauge
	indexSize         prometheus.Gauge
}

// Config configures the exporter.
type Config struct {
	// Registry to use (if nil, creates a new one)
	Registry *prometheus.Registry

	// Buckets for the search latency histogram (in seconds)
	LatencyBuckets []float64
}

// DefaultConfig returns default metrics configuration. Search latency
// is in-process compute, so the buckets sit well below typical HTTP
// latency buckets.
func DefaultConfig() Config {
	return Config{
		LatencyBuckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
	}
}

// NewExporter creates a metrics exporter.
func NewExporter(cfg Config) *Exporter {
	if len(cfg.LatencyBuckets) == 0 {
		cfg.LatencyBuckets = DefaultConfig().LatencyBuckets
	}

	registry := cfg.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	e := &Exporter{registry: registry}

	e.searches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "exemplar",
			Subsystem: "retrieval",
			Name:      "searches_total",
			Help:      "Total number of similarity searches",
		},
		[]string{"cache"},
	)

	e.searchLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "exemplar",
			Subsystem: "retrieval",
			Name:      "search_latency_seconds",
			Help:      "Search latency in seconds, cache misses only",
			Buckets:   cfg.LatencyBuckets,
		},
	)

	e.resultCount = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "exemplar",
			Subsystem: "retrieval",
			Name:      "result_count",
			Help:      "Number of results returned per search",
			Buckets:   []float64{0, 1, 2, 3, 5, 10, 20, 50},
		},
	)

	e.cacheSize = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "exemplar",
			Subsystem: "retrieval",
			Name:      "cache_size",
			Help:      "Current number of cached result lists",
		},
	)

	e.cacheCapacity = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "exemplar",
			Subsystem: "retrieval",
			Name:      "cache_capacity",
			Help:      "Configured result cache capacity",
		},
	)

	e.cacheEvictions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "exemplar",
			Subsystem: "retrieval",
			Name:      "cache_evictions_total",
			Help:      "Total number of cache evictions",
		},
	)

	e.indexBuildSeconds = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "exemplar",
			Subsystem: "retrieval",
			Name:      "index_build_seconds",
			Help:      "Duration of the most recent index build",
		},
	)

	e.indexSize = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "exemplar",
			Subsystem: "retrieval",
			Name:      "index_size",
			Help:      "Number of events in the current index",
		},
	)

	registry.MustRegister(
		e.searches,
		e.searchLatency,
		e.resultCount,
		e.cacheSize,
		e.cacheCapacity,
		e.cacheEvictions,
		e.indexBuildSeconds,
		e.indexSize,
	)

	return e
}

// RecordSearch records one search. Latency is observed for cache
// misses only.
func (e *Exporter) RecordSearch(cacheHit bool, latency time.Duration, results int) {
	if cacheHit {
		e.searches.WithLabelValues("hit").Inc()
	} else {
		e.searches.WithLabelValues("miss").Inc()
		e.searchLatency.Observe(latency.Seconds())
	}
	e.resultCount.Observe(float64(results))
}

// SetCacheStats updates the result cache gauges.
func (e *Exporter) SetCacheStats(size, capacity int, evictions int64) {
	e.cacheSize.Set(float64(size))
	e.cacheCapacity.Set(float64(capacity))
	e.cacheEvictions.Set(float64(evictions))
}

// ObserveIndexBuild records an index rebuild.
func (e *Exporter) ObserveIndexBuild(d time.Duration, corpusSize int) {
	e.indexBuildSeconds.Set(d.Seconds())
	e.indexSize.Set(float64(corpusSize))
}

// Handler returns the HTTP handler for the metrics endpoint.
func (e *Exporter) Handler() http.Handler {
	return promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{})
}

// Registry returns the Prometheus registry.
func (e *Exporter) Registry() *prometheus.Registry {
	return e.registry
}
