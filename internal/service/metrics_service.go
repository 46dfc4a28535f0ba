package service

import (
	"net/http"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/school-hub-api/internal/models"
)

// MetricsService encapsulates Prometheus instrumentation and provides lightweight snapshots for API consumption.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheLatency    prometheus.Observer
	cacheWrite      prometheus.Observer
	cacheHitRatio   prometheus.Gauge
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
	vendorDuration  *prometheus.HistogramVec
	vendorTotal     *prometheus.CounterVec
	droppedRecords  *prometheus.CounterVec
	syncJobs        *prometheus.CounterVec

	cacheHitCount        uint64
	cacheMissCount       uint64
	requestCount         uint64
	requestDurationTotal uint64
	vendorCount          uint64
	vendorFailureCount   uint64
	vendorDurationTotal  uint64
	droppedCount         uint64
	syncSuccessCount     uint64
	syncFailureCount     uint64
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

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total cache misses",
	})

	vendorDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "school_vendor_request_duration_seconds",
		Help:    "Duration of requests to school information systems",
		Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 20},
	}, []string{"service", "endpoint"})

	vendorTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "school_vendor_requests_total",
		Help: "Requests to school information systems by status; status 0 means no response",
	}, []string{"service", "endpoint", "status"})

	droppedRecords := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "school_dropped_records_total",
		Help: "Vendor records skipped because they could not be mapped",
	}, []string{"service", "kind"})

	syncJobs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "school_sync_jobs_total",
		Help: "Background warm-up jobs by outcome",
	}, []string{"outcome"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheLatency, cacheWrite, cacheHitRatio, cacheHits, cacheMisses,
		vendorDuration, vendorTotal, droppedRecords, syncJobs, goroutines)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:        registry,
		handler:         handler,
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		cacheLatency:    cacheLatency,
		cacheWrite:      cacheWrite,
		cacheHitRatio:   cacheHitRatio,
		cacheHits:       cacheHits,
		cacheMisses:     cacheMisses,
		vendorDuration:  vendorDuration,
		vendorTotal:     vendorTotal,
		droppedRecords:  droppedRecords,
		syncJobs:        syncJobs,
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

// ObserveHTTPRequest records request metrics and aggregates simple stats for snapshots.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := strconv.Itoa(status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
	atomic.AddUint64(&m.requestCount, 1)
	atomic.AddUint64(&m.requestDurationTotal, uint64(duration.Nanoseconds()))
}

// RecordCacheOperation records cache hit/miss metrics and updates hit ratio.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	if m.cacheLatency != nil {
		m.cacheLatency.Observe(duration.Seconds())
	}
	if hit {
		m.cacheHits.Inc()
		atomic.AddUint64(&m.cacheHitCount, 1)
	} else {
		m.cacheMisses.Inc()
		atomic.AddUint64(&m.cacheMissCount, 1)
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)
	total := hits + misses
	if total > 0 {
		m.cacheHitRatio.Set(float64(hits) / float64(total))
	}
}

// ObserveCacheWrite tracks the duration for cache write operations.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil || m.cacheWrite == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// ObserveVendorFetch records one round trip to a school service. A status of
// 0 or >= 400 counts as a failure.
func (m *MetricsService) ObserveVendorFetch(service, endpoint string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.vendorDuration.WithLabelValues(service, endpoint).Observe(duration.Seconds())
	m.vendorTotal.WithLabelValues(service, endpoint, strconv.Itoa(status)).Inc()
	atomic.AddUint64(&m.vendorCount, 1)
	atomic.AddUint64(&m.vendorDurationTotal, uint64(duration.Nanoseconds()))
	if status == 0 || status >= http.StatusBadRequest {
		atomic.AddUint64(&m.vendorFailureCount, 1)
	}
}

// RecordDroppedRecord counts a vendor record skipped during mapping.
func (m *MetricsService) RecordDroppedRecord(service, kind string) {
	if m == nil {
		return
	}
	m.droppedRecords.WithLabelValues(service, kind).Inc()
	atomic.AddUint64(&m.droppedCount, 1)
}

// RecordSyncJob counts a finished warm-up job.
func (m *MetricsService) RecordSyncJob(success bool) {
	if m == nil {
		return
	}
	if success {
		m.syncJobs.WithLabelValues("success").Inc()
		atomic.AddUint64(&m.syncSuccessCount, 1)
		return
	}
	m.syncJobs.WithLabelValues("failure").Inc()
	atomic.AddUint64(&m.syncFailureCount, 1)
}

// Snapshot returns aggregated metrics for the summary endpoint.
func (m *MetricsService) Snapshot() models.SystemMetrics {
	if m == nil {
		return models.SystemMetrics{}
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)
	requests := atomic.LoadUint64(&m.requestCount)
	reqDuration := atomic.LoadUint64(&m.requestDurationTotal)
	vendorCount := atomic.LoadUint64(&m.vendorCount)
	vendorDuration := atomic.LoadUint64(&m.vendorDurationTotal)

	var cacheRatio float64
	totalLookups := hits + misses
	if totalLookups > 0 {
		cacheRatio = float64(hits) / float64(totalLookups)
	}

	var avgRequestMs float64
	if requests > 0 {
		avgRequestMs = float64(reqDuration) / float64(requests) / float64(time.Millisecond)
	}

	var avgVendorMs float64
	if vendorCount > 0 {
		avgVendorMs = float64(vendorDuration) / float64(vendorCount) / float64(time.Millisecond)
	}

	return models.SystemMetrics{
		CacheHitRatio:            cacheRatio,
		CacheHits:                hits,
		CacheMisses:              misses,
		RequestsTotal:            requests,
		AverageRequestDurationMs: avgRequestMs,
		VendorFetches:            vendorCount,
		VendorFailures:           atomic.LoadUint64(&m.vendorFailureCount),
		AverageVendorDurationMs:  avgVendorMs,
		DroppedRecords:           atomic.LoadUint64(&m.droppedCount),
		SyncJobsSucceeded:        atomic.LoadUint64(&m.syncSuccessCount),
		SyncJobsFailed:           atomic.LoadUint64(&m.syncFailureCount),
		Goroutines:               runtime.NumGoroutine(),
		GeneratedAt:              time.Now().UTC(),
	}
}
