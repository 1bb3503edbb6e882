package service

import (
	"fmt"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/aju-clearance-api/internal/models"
)

// MetricsService encapsulates Prometheus instrumentation and provides lightweight snapshots for API consumption.
type MetricsService struct {
	registry           *prometheus.Registry
	handler            http.Handler
	requestDuration    *prometheus.HistogramVec
	requestTotal       *prometheus.CounterVec
	cacheLatency       prometheus.Observer
	cacheWrite         prometheus.Observer
	cacheHitRatio      prometheus.Gauge
	cacheHits          prometheus.Counter
	cacheMisses        prometheus.Counter
	receiptsSubmitted  *prometheus.CounterVec
	receiptDecisions   *prometheus.CounterVec
	ignoredTransitions *prometheus.CounterVec
	rollovers          prometheus.Counter
	eventSubscribers   prometheus.Gauge

	cacheHitCount        uint64
	cacheMissCount       uint64
	requestCount         uint64
	requestDurationTotal uint64
	submittedCount       uint64
	decidedCount         uint64
	ignoredCount         uint64
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

	receiptsSubmitted := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "clearance_receipts_submitted_total",
		Help: "Receipts accepted by intake",
	}, []string{"unit"})

	receiptDecisions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "clearance_receipt_decisions_total",
		Help: "Review decisions applied",
	}, []string{"unit", "action"})

	ignoredTransitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "clearance_ledger_transitions_ignored_total",
		Help: "Ledger transitions skipped because the current state did not allow them",
	}, []string{"trigger"})

	rollovers := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "clearance_semester_rollovers_total",
		Help: "Completed semester rollovers",
	})

	eventSubscribers := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "clearance_event_subscribers",
		Help: "Open change stream connections",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheLatency, cacheWrite, cacheHitRatio, cacheHits, cacheMisses,
		receiptsSubmitted, receiptDecisions, ignoredTransitions, rollovers, eventSubscribers, goroutines)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:           registry,
		handler:            handler,
		requestDuration:    requestDuration,
		requestTotal:       requestTotal,
		cacheLatency:       cacheLatency,
		cacheWrite:         cacheWrite,
		cacheHitRatio:      cacheHitRatio,
		cacheHits:          cacheHits,
		cacheMisses:        cacheMisses,
		receiptsSubmitted:  receiptsSubmitted,
		receiptDecisions:   receiptDecisions,
		ignoredTransitions: ignoredTransitions,
		rollovers:          rollovers,
		eventSubscribers:   eventSubscribers,
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
	labelStatus := fmt.Sprintf("%d", status)
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
	m.cacheLatency.Observe(duration.Seconds())
	if hit {
		m.cacheHits.Inc()
		atomic.AddUint64(&m.cacheHitCount, 1)
	} else {
		m.cacheMisses.Inc()
		atomic.AddUint64(&m.cacheMissCount, 1)
	}
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

// RecordReceiptSubmitted counts an accepted upload.
func (m *MetricsService) RecordReceiptSubmitted(unit models.UnitID) {
	if m == nil {
		return
	}
	m.receiptsSubmitted.WithLabelValues(string(unit)).Inc()
	atomic.AddUint64(&m.submittedCount, 1)
}

// RecordReceiptDecision counts an applied review decision.
func (m *MetricsService) RecordReceiptDecision(unit models.UnitID, action models.ReviewAction) {
	if m == nil {
		return
	}
	m.receiptDecisions.WithLabelValues(string(unit), string(action)).Inc()
	atomic.AddUint64(&m.decidedCount, 1)
}

// RecordIgnoredTransition counts a ledger write skipped by the state guard.
func (m *MetricsService) RecordIgnoredTransition(trigger models.LedgerTrigger) {
	if m == nil {
		return
	}
	m.ignoredTransitions.WithLabelValues(string(trigger)).Inc()
	atomic.AddUint64(&m.ignoredCount, 1)
}

// RecordRollover counts a completed semester rollover.
func (m *MetricsService) RecordRollover() {
	if m == nil {
		return
	}
	m.rollovers.Inc()
}

// TrackSubscriber adjusts the open change stream gauge by delta.
func (m *MetricsService) TrackSubscriber(delta int) {
	if m == nil {
		return
	}
	m.eventSubscribers.Add(float64(delta))
}

// Snapshot returns aggregated metrics for the operator dashboard.
func (m *MetricsService) Snapshot() models.SystemMetrics {
	if m == nil {
		return models.SystemMetrics{}
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)
	requests := atomic.LoadUint64(&m.requestCount)
	reqDuration := atomic.LoadUint64(&m.requestDurationTotal)

	var cacheRatio float64
	if total := hits + misses; total > 0 {
		cacheRatio = float64(hits) / float64(total)
	}

	var avgRequestMs float64
	if requests > 0 {
		avgRequestMs = float64(reqDuration) / float64(requests) / float64(time.Millisecond)
	}

	return models.SystemMetrics{
		CacheHitRatio:            cacheRatio,
		CacheHits:                hits,
		CacheMisses:              misses,
		RequestsTotal:            requests,
		AverageRequestDurationMs: avgRequestMs,
		ReceiptsSubmitted:        atomic.LoadUint64(&m.submittedCount),
		ReceiptsDecided:          atomic.LoadUint64(&m.decidedCount),
		TransitionsIgnored:       atomic.LoadUint64(&m.ignoredCount),
		Goroutines:               runtime.NumGoroutine(),
		GeneratedAt:              time.Now().UTC(),
	}
}
