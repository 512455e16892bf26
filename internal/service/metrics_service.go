package service

import (
	"net/http"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jonp69/DL-Homework-Garden/internal/models"
)

// MetricsService owns the process Prometheus registry. Alongside the
// registered series it keeps a few plain counters so Snapshot can answer
// the status endpoint without scraping the registry text format.
type MetricsService struct {
	registry *prometheus.Registry
	handler  http.Handler

	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheLatency    prometheus.Histogram
	cacheWrite      prometheus.Histogram
	cacheHitRatio   prometheus.Gauge
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
	snapshotSave    *prometheus.HistogramVec
	linksTotal      prometheus.Gauge
	linksDeleted    prometheus.Gauge
	linksByStatus   *prometheus.GaugeVec

	httpCount atomic.Uint64
	httpNanos atomic.Uint64
	hitCount  atomic.Uint64
	missCount atomic.Uint64
	saveCount atomic.Uint64
	saveNanos atomic.Uint64
}

// NewMetricsService builds the registry and registers every collector the
// daemon reports.
func NewMetricsService() *MetricsService {
	m := &MetricsService{}

	m.requestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Latency of handled HTTP requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})
	m.requestTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Handled HTTP requests by method, path and status",
	}, []string{"method", "path", "status"})
	m.cacheLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_latency_seconds",
		Help:    "Redis read latency",
		Buckets: prometheus.DefBuckets,
	})
	m.cacheWrite = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_write_seconds",
		Help:    "Redis write latency",
		Buckets: prometheus.DefBuckets,
	})
	m.cacheHitRatio = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "cache_hit_ratio",
		Help: "Share of cache lookups answered from Redis",
	})
	m.cacheHits = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Cache lookups answered from Redis",
	})
	m.cacheMisses = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Cache lookups that fell through to the store",
	})
	m.snapshotSave = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "snapshot_save_duration_seconds",
		Help:    "Time spent persisting one store collection",
		Buckets: prometheus.DefBuckets,
	}, []string{"collection"})
	m.linksTotal = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "links_total",
		Help: "Links tracked in the store",
	})
	m.linksDeleted = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "links_deleted",
		Help: "Links flagged deleted by their matching filter",
	})
	m.linksByStatus = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "links_by_status",
		Help: "Links per lifecycle status",
	}, []string{"status"})

	m.registry = prometheus.NewRegistry()
	m.registry.MustRegister(
		m.requestDuration, m.requestTotal,
		m.cacheLatency, m.cacheWrite, m.cacheHitRatio, m.cacheHits, m.cacheMisses,
		m.snapshotSave,
		m.linksTotal, m.linksDeleted, m.linksByStatus,
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "goroutines_total",
			Help: "Goroutines currently live",
		}, func() float64 { return float64(runtime.NumGoroutine()) }),
	)
	m.handler = promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
	return m
}

// RegisterDepthGauge exports a live depth probe under the given series name.
// The job queues and both operator brokers register theirs at startup; the
// probe runs on every scrape.
func (m *MetricsService) RegisterDepthGauge(name, help string, depth func() int) {
	if m == nil {
		return
	}
	m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: name,
		Help: help,
	}, func() float64 { return float64(depth()) }))
}

// Handler serves the scrape endpoint. A nil service answers 503 so a
// metrics-disabled deployment shows up as down rather than empty.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest feeds one handled request into the histogram and the
// snapshot tallies.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	code := strconv.Itoa(status)
	m.requestDuration.WithLabelValues(method, path, code).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, code).Inc()
	m.httpCount.Add(1)
	m.httpNanos.Add(uint64(duration.Nanoseconds()))
}

// RecordCacheOperation counts one cache lookup and refreshes the hit
// ratio gauge.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	if hit {
		m.cacheHits.Inc()
		m.hitCount.Add(1)
	} else {
		m.cacheMisses.Inc()
		m.missCount.Add(1)
	}
	if hits, misses := m.hitCount.Load(), m.missCount.Load(); hits+misses > 0 {
		m.cacheHitRatio.Set(float64(hits) / float64(hits+misses))
	}
}

// ObserveCacheWrite records the latency of one cache set.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// ObserveSnapshotSave records how long persisting one collection took.
func (m *MetricsService) ObserveSnapshotSave(collection string, duration time.Duration) {
	if m == nil {
		return
	}
	m.snapshotSave.WithLabelValues(collection).Observe(duration.Seconds())
	m.saveCount.Add(1)
	m.saveNanos.Add(uint64(duration.Nanoseconds()))
}

// SetLinkCounts refreshes the link gauges from a stats aggregate.
func (m *MetricsService) SetLinkCounts(stats models.LinkStats) {
	if m == nil {
		return
	}
	m.linksTotal.Set(float64(stats.Total))
	m.linksDeleted.Set(float64(stats.Deleted))
	m.linksByStatus.Reset()
	for status, count := range stats.ByStatus {
		m.linksByStatus.WithLabelValues(string(status)).Set(float64(count))
	}
}

// Snapshot aggregates the plain tallies for the status endpoint.
func (m *MetricsService) Snapshot() models.SystemMetrics {
	if m == nil {
		return models.SystemMetrics{}
	}
	hits, misses := m.hitCount.Load(), m.missCount.Load()
	var ratio float64
	if hits+misses > 0 {
		ratio = float64(hits) / float64(hits+misses)
	}
	return models.SystemMetrics{
		Requests: models.RequestCounters{
			Total:         m.httpCount.Load(),
			AverageMillis: avgMillis(m.httpNanos.Load(), m.httpCount.Load()),
		},
		Cache: models.CacheCounters{Hits: hits, Misses: misses, HitRatio: ratio},
		Snapshots: models.SnapshotCounters{
			Saves:         m.saveCount.Load(),
			AverageMillis: avgMillis(m.saveNanos.Load(), m.saveCount.Load()),
		},
		Goroutines:  runtime.NumGoroutine(),
		GeneratedAt: time.Now().UTC(),
	}
}

func avgMillis(nanos, count uint64) float64 {
	if count == 0 {
		return 0
	}
	return float64(nanos) / float64(count) / float64(time.Millisecond)
}
