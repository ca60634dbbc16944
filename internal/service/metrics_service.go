package service

import (
	"fmt"
	"net/http"
	"runtime"
	"strings"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the greeter backend.
type MetricsService struct {
	registry         *prometheus.Registry
	handler          http.Handler
	requestDuration  *prometheus.HistogramVec
	requestTotal     *prometheus.CounterVec
	cacheLookups     *prometheus.CounterVec
	cacheLatency     prometheus.Observer
	cacheWrite       prometheus.Observer
	cacheHitRatio    prometheus.Gauge
	upstreamFetches  *prometheus.CounterVec
	upstreamDuration *prometheus.HistogramVec
	lastRefresh      *prometheus.GaugeVec
	knownHosts       prometheus.Gauge

	cacheHitCount  uint64
	cacheMissCount uint64
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	cacheLookups := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "greeter_cache_lookups_total",
		Help: "Cache lookups by key family and result",
	}, []string{"key", "result"})

	cacheLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_latency_seconds",
		Help:    "Latency for cache operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheWrite := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_write_seconds",
		Help:    "Latency for cache set operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheHitRatio := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "cache_hit_ratio",
		Help: "Ratio of cache hits to total cache lookups",
	})

	upstreamFetches := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "greeter_upstream_fetches_total",
		Help: "Data source fetches by resource and outcome",
	}, []string{"resource", "outcome"})

	upstreamDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "greeter_upstream_fetch_duration_seconds",
		Help:    "Duration of complete (all pages) data source fetches",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
	}, []string{"resource"})

	lastRefresh := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "greeter_last_refresh_timestamp_seconds",
		Help: "Unix time of the last successful refresh per resource",
	}, []string{"resource"})

	knownHosts := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "greeter_known_hosts",
		Help: "Number of distinct workstations that requested a configuration",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheLookups, cacheLatency, cacheWrite, cacheHitRatio,
		upstreamFetches, upstreamDuration, lastRefresh, knownHosts, goroutines)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:         registry,
		handler:          handler,
		requestDuration:  requestDuration,
		requestTotal:     requestTotal,
		cacheLookups:     cacheLookups,
		cacheLatency:     cacheLatency,
		cacheWrite:       cacheWrite,
		cacheHitRatio:    cacheHitRatio,
		upstreamFetches:  upstreamFetches,
		upstreamDuration: upstreamDuration,
		lastRefresh:      lastRefresh,
		knownHosts:       knownHosts,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Registry returns the underlying registry, mainly for tests.
func (m *MetricsService) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordCacheOperation records cache hit/miss metrics and updates hit ratio.
func (m *MetricsService) RecordCacheOperation(key string, hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	result := "miss"
	if hit {
		result = "hit"
		atomic.AddUint64(&m.cacheHitCount, 1)
	} else {
		atomic.AddUint64(&m.cacheMissCount, 1)
	}
	m.cacheLookups.WithLabelValues(keyFamily(key), result).Inc()

	hits := atomic.LoadUint64(&m.cacheHitCount)
	total := hits + atomic.LoadUint64(&m.cacheMissCount)
	if total > 0 {
		m.cacheHitRatio.Set(float64(hits) / float64(total))
	}
}

// ObserveCacheWrite tracks the duration for cache write operations.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// ObserveUpstreamFetch records one complete fetch against the data source.
func (m *MetricsService) ObserveUpstreamFetch(resource string, err error, duration time.Duration, at time.Time) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.upstreamFetches.WithLabelValues(resource, outcome).Inc()
	m.upstreamDuration.WithLabelValues(resource).Observe(duration.Seconds())
	if err == nil {
		m.lastRefresh.WithLabelValues(resource).Set(float64(at.Unix()))
	}
}

// SetKnownHosts updates the registered workstation gauge.
func (m *MetricsService) SetKnownHosts(n int) {
	if m == nil {
		return
	}
	m.knownHosts.Set(float64(n))
}

// keyFamily strips per-entity suffixes ("user-image:jdoe") to keep label cardinality bounded.
func keyFamily(key string) string {
	if i := strings.IndexByte(key, ':'); i >= 0 {
		return key[:i]
	}
	return key
}
