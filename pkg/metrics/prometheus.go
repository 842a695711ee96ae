// Package metrics provides Prometheus metrics for the fantasy league service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var defaultLatencyBuckets = []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000}

// Manager owns every Prometheus collector the service exports.
type Manager struct {
	namespace      string
	subsystem      string
	latencyBuckets []float64
	constLabels    prometheus.Labels
	registry       prometheus.Registerer

	// Recompute pipeline
	recomputes          prometheus.Counter
	recomputeDuration   prometheus.Histogram
	squadsScored        prometheus.Counter
	squadFailures       *prometheus.CounterVec
	scoreEvents         *prometheus.CounterVec
	eliminationsFlagged prometheus.Counter
	jobsCoalesced       prometheus.Counter

	// Queue
	queueSize     prometheus.Gauge
	queueCapacity prometheus.Gauge
	queueEnqueued prometheus.Counter
	queueDequeued prometheus.Counter
	queueRejected *prometheus.CounterVec

	// Workers
	workerActive     prometheus.Gauge
	workerJobs       prometheus.Counter
	workerErrors     prometheus.Counter
	workerJobLatency prometheus.Histogram

	// Storage
	storeOps     *prometheus.CounterVec
	storeLatency *prometheus.HistogramVec

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	errorsByComponent *prometheus.CounterVec
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // singleton used by the package-level helpers

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // exported through GetRegistry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:      "fantabrigade",
		subsystem:      "league",
		latencyBuckets: defaultLatencyBuckets,
		registry:       prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) histogram(name, help string) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
		ConstLabels: m.constLabels, Buckets: m.latencyBuckets,
	})
}

func (m *Manager) histogramVec(name, help string, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
		ConstLabels: m.constLabels, Buckets: m.latencyBuckets,
	}, labels)
}

func (m *Manager) initializeMetrics() {
	m.recomputes = m.counter("recomputes_total", "Episode recomputes completed")
	m.recomputeDuration = m.histogram("recompute_duration_ms", "Time to rescore every squad of an episode")
	m.squadsScored = m.counter("squads_scored_total", "Squads scored and persisted")
	m.squadFailures = m.counterVec("squad_failures_total", "Squads whose side effects failed, by stage", "stage")
	m.scoreEvents = m.counterVec("score_events_total", "Score events emitted, by rule kind", "rule_kind")
	m.eliminationsFlagged = m.counter("eliminations_flagged_total", "Competitors newly flagged as eliminated")
	m.jobsCoalesced = m.counter("jobs_coalesced_total", "Recompute jobs merged into an already pending job")

	m.queueSize = m.gauge("queue_size", "Recompute jobs waiting in the queue")
	m.queueCapacity = m.gauge("queue_capacity", "Recompute queue capacity")
	m.queueEnqueued = m.counter("queue_enqueued_total", "Recompute jobs enqueued")
	m.queueDequeued = m.counter("queue_dequeued_total", "Recompute jobs handed to workers")
	m.queueRejected = m.counterVec("queue_rejected_total", "Recompute jobs rejected, by reason", "reason")

	m.workerActive = m.gauge("worker_active", "Running recompute workers")
	m.workerJobs = m.counter("worker_jobs_total", "Recompute jobs processed by workers")
	m.workerErrors = m.counter("worker_errors_total", "Recompute jobs that ended with an error")
	m.workerJobLatency = m.histogram("worker_job_latency_ms", "Time from enqueue to job completion")

	m.storeOps = m.counterVec("store_operations_total", "Store operations, by operation and result", "operation", "result")
	m.storeLatency = m.histogramVec("store_operation_latency_ms", "Store operation latency", "operation")

	m.httpRequests = m.counterVec("http_requests_total", "HTTP requests, by endpoint method and status", "endpoint", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_ms", "HTTP request latency", "endpoint", "method", "status_code")

	m.errorsByComponent = m.counterVec("errors_total", "Errors, by component and type", "component", "error_type")
}

// RecordRecompute records a finished episode recompute.
func (m *Manager) RecordRecompute(durationMs float64) {
	m.recomputes.Inc()
	m.recomputeDuration.Observe(durationMs)
}

func (m *Manager) RecordSquadScored()                { m.squadsScored.Inc() }
func (m *Manager) RecordSquadFailure(stage string)   { m.squadFailures.WithLabelValues(stage).Inc() }
func (m *Manager) RecordScoreEvent(kind string)      { m.scoreEvents.WithLabelValues(kind).Inc() }
func (m *Manager) RecordJobCoalesced()               { m.jobsCoalesced.Inc() }
func (m *Manager) UpdateQueueSize(size int)          { m.queueSize.Set(float64(size)) }
func (m *Manager) UpdateQueueCapacity(capacity int)  { m.queueCapacity.Set(float64(capacity)) }
func (m *Manager) RecordQueueEnqueue()               { m.queueEnqueued.Inc() }
func (m *Manager) RecordQueueDequeue()               { m.queueDequeued.Inc() }
func (m *Manager) RecordQueueRejected(reason string) { m.queueRejected.WithLabelValues(reason).Inc() }
func (m *Manager) UpdateWorkerActive(count int)      { m.workerActive.Set(float64(count)) }
func (m *Manager) RecordWorkerError()                { m.workerErrors.Inc() }
func (m *Manager) RecordError(component, kind string) {
	m.errorsByComponent.WithLabelValues(component, kind).Inc()
}

// RecordEliminationsFlagged adds n newly flagged competitors.
func (m *Manager) RecordEliminationsFlagged(n int) {
	if n > 0 {
		m.eliminationsFlagged.Add(float64(n))
	}
}

// RecordWorkerJob records a processed job and its end-to-end latency.
func (m *Manager) RecordWorkerJob(latencyMs float64) {
	m.workerJobs.Inc()
	m.workerJobLatency.Observe(latencyMs)
}

// RecordStoreOperation records one storage call.
func (m *Manager) RecordStoreOperation(operation string, latencyMs float64, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.storeOps.WithLabelValues(operation, result).Inc()
	m.storeLatency.WithLabelValues(operation).Observe(latencyMs)
}

// RecordHTTPRequest records a served HTTP request.
func (m *Manager) RecordHTTPRequest(endpoint, method, statusCode string, durationMs float64) {
	m.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
	m.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// Package-level helpers backed by the global manager.

func RecordRecompute(durationMs float64) { globalManager.RecordRecompute(durationMs) }
func RecordSquadScored()                 { globalManager.RecordSquadScored() }
func RecordSquadFailure(stage string)    { globalManager.RecordSquadFailure(stage) }
func RecordScoreEvent(kind string)       { globalManager.RecordScoreEvent(kind) }
func RecordEliminationsFlagged(n int)    { globalManager.RecordEliminationsFlagged(n) }
func RecordJobCoalesced()                { globalManager.RecordJobCoalesced() }
func UpdateQueueSize(size int)           { globalManager.UpdateQueueSize(size) }
func UpdateQueueCapacity(capacity int)   { globalManager.UpdateQueueCapacity(capacity) }
func RecordQueueEnqueue()                { globalManager.RecordQueueEnqueue() }
func RecordQueueDequeue()                { globalManager.RecordQueueDequeue() }
func RecordQueueRejected(reason string)  { globalManager.RecordQueueRejected(reason) }
func UpdateWorkerActive(count int)       { globalManager.UpdateWorkerActive(count) }
func RecordWorkerJob(latencyMs float64)  { globalManager.RecordWorkerJob(latencyMs) }
func RecordWorkerError()                 { globalManager.RecordWorkerError() }
func RecordError(component, kind string) { globalManager.RecordError(component, kind) }

func RecordStoreOperation(operation string, latencyMs float64, err error) {
	globalManager.RecordStoreOperation(operation, latencyMs, err)
}

func RecordHTTPRequest(endpoint, method, statusCode string, durationMs float64) {
	globalManager.RecordHTTPRequest(endpoint, method, statusCode, durationMs)
}

// GetRegistry returns the registry the global manager writes to.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
