// Package metrics provides internal metrics collection.
// This package is internal and should not be imported by external projects.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Generation outcome labels.
const (
	OutcomeSuccess  = "success"
	OutcomeCacheHit = "cache_hit"
	OutcomeFallback = "fallback"
	OutcomeError    = "error"
)

// Collector aggregates the service's Prometheus metrics. Each collector
// owns its registry so independent instances never collide.
type Collector struct {
	registry *prometheus.Registry

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	generationTotal    *prometheus.CounterVec
	generationDuration prometheus.Histogram

	cacheHits   *prometheus.CounterVec
	cacheMisses *prometheus.CounterVec

	extractionHits  *prometheus.CounterVec
	fallbacksServed prometheus.Counter

	logger *zap.Logger
}

// NewCollector creates a metrics collector under the given namespace.
func NewCollector(namespace string, logger *zap.Logger) *Collector {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	c := &Collector{
		registry: registry,
		logger:   logger.With(zap.String("component", "metrics")),
	}

	c.httpRequestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	c.httpRequestDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	c.generationTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generation_requests_total",
			Help:      "Total number of generation requests by outcome",
		},
		[]string{"outcome"},
	)

	c.generationDuration = factory.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "generation_duration_seconds",
			Help:      "Backend generation duration in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
		},
	)

	c.cacheHits = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Total number of cache hits",
		},
		[]string{"cache_type"},
	)

	c.cacheMisses = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_misses_total",
			Help:      "Total number of cache misses",
		},
		[]string{"cache_type"},
	)

	c.extractionHits = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "extraction_strategy_hits_total",
			Help:      "Artifacts produced per extraction strategy",
		},
		[]string{"strategy"},
	)

	c.fallbacksServed = factory.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fallbacks_served_total",
			Help:      "Total number of placeholder artifacts served",
		},
	)

	logger.Info("metrics collector initialized", zap.String("namespace", namespace))

	return c
}

// Handler serves this collector's registry over HTTP.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// RecordHTTPRequest records one served HTTP request.
func (c *Collector) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	if c == nil {
		return
	}
	c.httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	c.httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordGeneration records one generation request by outcome. duration is
// only observed for real backend successes.
func (c *Collector) RecordGeneration(outcome string, duration time.Duration) {
	if c == nil {
		return
	}
	c.generationTotal.WithLabelValues(outcome).Inc()
	if outcome == OutcomeSuccess {
		c.generationDuration.Observe(duration.Seconds())
	}
}

// RecordCacheHit records a prompt cache hit.
func (c *Collector) RecordCacheHit(cacheType string) {
	if c == nil {
		return
	}
	c.cacheHits.WithLabelValues(cacheType).Inc()
}

// RecordCacheMiss records a prompt cache miss.
func (c *Collector) RecordCacheMiss(cacheType string) {
	if c == nil {
		return
	}
	c.cacheMisses.WithLabelValues(cacheType).Inc()
}

// RecordExtractionHit records which strategy produced an artifact.
func (c *Collector) RecordExtractionHit(strategy string) {
	if c == nil {
		return
	}
	c.extractionHits.WithLabelValues(strategy).Inc()
}

// RecordFallback records a placeholder artifact being served.
func (c *Collector) RecordFallback() {
	if c == nil {
		return
	}
	c.fallbacksServed.Inc()
}
