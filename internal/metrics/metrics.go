// Package metrics provides Prometheus metrics for the hrscore service.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Cache lookup results.
const (
	CacheHit   = "hit"
	CacheMiss  = "miss"
	CacheError = "error"
)

// Rescore job outcomes.
const (
	RescoreSucceeded = "succeeded"
	RescoreFailed    = "failed"
	RescoreRetried   = "retried"
	RescoreDropped   = "dropped"
)

// Manager owns every collector of the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	cacheRequests      *prometheus.CounterVec
	cacheInvalidations *prometheus.CounterVec
	computeDuration    *prometheus.HistogramVec

	rescoreJobs     *prometheus.CounterVec
	rescoreDuration prometheus.Histogram
	queueDepth      prometheus.Gauge
	queueCapacity   prometheus.Gauge

	scoresPersisted prometheus.Counter

	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	rateLimited         prometheus.Counter
}

// Custom registry to avoid exposing collectors registered by libraries.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // process-wide registry

var globalManager = NewManager(WithPrometheusRegistry(customRegistry)) //nolint:gochecknoglobals // process-wide collectors

func init() { //nolint:gochecknoinits // runtime collectors belong to the process registry
	customRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// Handler serves the process registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(customRegistry, promhttp.HandlerOpts{})
}

// NewManager creates a metrics manager. Without WithPrometheusRegistry the
// collectors go to prometheus.DefaultRegisterer.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "hrscore",
		subsystem:        "",
		histogramBuckets: prometheus.DefBuckets,
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.cacheRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "cache_requests_total",
		Help:      "Cache lookups by namespace and result",
	}, []string{"namespace", "result"})

	m.cacheInvalidations = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "cache_invalidations_total",
		Help:      "Cache invalidation batches by result",
	}, []string{"result"})

	m.computeDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "view_compute_duration_seconds",
		Help:      "Time spent computing a read model on cache miss",
		Buckets:   m.histogramBuckets,
	}, []string{"namespace"})

	m.rescoreJobs = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "rescore_jobs_total",
		Help:      "Background rescore jobs by outcome",
	}, []string{"outcome"})

	m.rescoreDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "rescore_duration_seconds",
		Help:      "Duration of a rescore job including retries",
		Buckets:   m.histogramBuckets,
	})

	m.queueDepth = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "rescore_queue_depth",
		Help:      "Jobs waiting in the rescore queue",
	})

	m.queueCapacity = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "rescore_queue_capacity",
		Help:      "Capacity of the rescore queue",
	})

	m.scoresPersisted = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "score_logs_appended_total",
		Help:      "Score history entries appended",
	})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_requests_total",
		Help:      "HTTP requests by route, method and status code",
	}, []string{"route", "method", "status_code"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration",
		Buckets:   m.histogramBuckets,
	}, []string{"route", "method", "status_code"})

	m.rateLimited = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_rate_limited_total",
		Help:      "Requests rejected by the per-organization rate limiter",
	})
}

// RecordCacheResult counts one cache lookup.
func (m *Manager) RecordCacheResult(namespace, result string) {
	m.cacheRequests.WithLabelValues(namespace, result).Inc()
}

// RecordInvalidation counts one invalidation batch.
func (m *Manager) RecordInvalidation(ok bool) {
	result := "ok"
	if !ok {
		result = "error"
	}
	m.cacheInvalidations.WithLabelValues(result).Inc()
}

// RecordCompute observes the time spent computing a view.
func (m *Manager) RecordCompute(namespace string, d time.Duration) {
	m.computeDuration.WithLabelValues(namespace).Observe(d.Seconds())
}

// RecordRescore counts a rescore job outcome.
func (m *Manager) RecordRescore(outcome string) {
	m.rescoreJobs.WithLabelValues(outcome).Inc()
}

// RecordRescoreDuration observes a completed rescore job.
func (m *Manager) RecordRescoreDuration(d time.Duration) {
	m.rescoreDuration.Observe(d.Seconds())
}

// UpdateQueueDepth sets the number of queued rescore jobs.
func (m *Manager) UpdateQueueDepth(depth int) {
	m.queueDepth.Set(float64(depth))
}

// UpdateQueueCapacity sets the rescore queue capacity.
func (m *Manager) UpdateQueueCapacity(capacity int) {
	m.queueCapacity.Set(float64(capacity))
}

// RecordScorePersisted counts an appended score history entry.
func (m *Manager) RecordScorePersisted() {
	m.scoresPersisted.Inc()
}

// RecordHTTPRequest counts a served request and its duration.
func (m *Manager) RecordHTTPRequest(route, method, statusCode string, d time.Duration) {
	m.httpRequests.WithLabelValues(route, method, statusCode).Inc()
	m.httpRequestDuration.WithLabelValues(route, method, statusCode).Observe(d.Seconds())
}

// RecordRateLimited counts a request rejected by the rate limiter.
func (m *Manager) RecordRateLimited() {
	m.rateLimited.Inc()
}

// Package-level helpers record on the process-wide manager.

func RecordCacheResult(namespace, result string) {
	globalManager.RecordCacheResult(namespace, result)
}

func RecordInvalidation(ok bool) {
	globalManager.RecordInvalidation(ok)
}

func RecordCompute(namespace string, d time.Duration) {
	globalManager.RecordCompute(namespace, d)
}

func RecordRescore(outcome string) {
	globalManager.RecordRescore(outcome)
}

func RecordRescoreDuration(d time.Duration) {
	globalManager.RecordRescoreDuration(d)
}

func UpdateQueueDepth(depth int) {
	globalManager.UpdateQueueDepth(depth)
}

func UpdateQueueCapacity(capacity int) {
	globalManager.UpdateQueueCapacity(capacity)
}

func RecordScorePersisted() {
	globalManager.RecordScorePersisted()
}

func RecordHTTPRequest(route, method, statusCode string, d time.Duration) {
	globalManager.RecordHTTPRequest(route, method, statusCode, d)
}

func RecordRateLimited() {
	globalManager.RecordRateLimited()
}
