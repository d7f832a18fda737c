// Package metrics provides Prometheus metrics for the fanscore ingestion service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Core Business Metrics - ingestion and award outcomes
	eventsIngested  prometheus.Counter
	paidEvents      prometheus.Counter
	eventsDuplicate prometheus.Counter
	classifications *prometheus.CounterVec
	awardsCommitted prometheus.Counter
	pointsAwarded   prometheus.Counter
	pooledEvents    prometheus.Counter
	poolBalance     prometheus.Gauge

	// Poller Metrics - page fetch behavior
	pagesFetched     prometheus.Counter
	pageFetchLatency prometheus.Histogram
	pollErrors       *prometheus.CounterVec
	pollBackoffs     prometheus.Counter

	// Credential Pool Metrics
	credentialsActive       prometheus.Gauge
	credentialDeactivations *prometheus.CounterVec
	credentialReactivations prometheus.Counter

	// Queue Metrics
	queueSize        prometheus.Gauge
	queueCapacity    prometheus.Gauge
	queueUtilization prometheus.Gauge
	queueEnqueues    prometheus.Counter
	queueDequeues    prometheus.Counter
	queueEnqueueErrs prometheus.Counter

	// Worker Metrics
	workerCount      prometheus.Gauge
	workerLatency    prometheus.Histogram
	workerErrors     prometheus.Counter
	awardCommitRetry prometheus.Counter

	// Sink Metrics
	summariesPublished prometheus.Counter
	summariesDropped   prometheus.Counter
	observationsStored prometheus.Counter

	// System Metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

// Initialize global metrics.
func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "fanscore",
		subsystem:        "ingest",
		histogramBuckets: prometheus.DefBuckets,
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.eventsIngested = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "events_ingested_total",
		Help:      "Total number of chat events handed to the pipeline",
	})

	m.paidEvents = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "paid_events_total",
		Help:      "Total number of paid messages observed",
	})

	m.eventsDuplicate = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "events_duplicate_total",
		Help:      "Total number of events rejected by the idempotent admission key",
	})

	m.classifications = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "classifications_total",
			Help:      "Total number of classification results by method",
		},
		[]string{"method"},
	)

	m.awardsCommitted = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "awards_committed_total",
		Help:      "Total number of award transactions committed",
	})

	m.pointsAwarded = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "points_awarded_total",
		Help:      "Total points credited to participants",
	})

	m.pooledEvents = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "pooled_events_total",
		Help:      "Total number of unclassified events routed to the shared pool",
	})

	m.poolBalance = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "pool_balance_usd",
		Help:      "Current shared pool balance in USD",
	})

	m.pagesFetched = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "pages_fetched_total",
		Help:      "Total number of live chat pages fetched successfully",
	})

	m.pageFetchLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "page_fetch_latency_milliseconds",
		Help:      "Histogram of live chat page fetch latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.pollErrors = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "poll_errors_total",
			Help:      "Total number of page fetch failures by reason",
		},
		[]string{"reason"},
	)

	m.pollBackoffs = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "poll_backoffs_total",
		Help:      "Total number of times the poller entered backoff",
	})

	m.credentialsActive = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "credentials_active",
		Help:      "Current number of active credentials in the rotation",
	})

	m.credentialDeactivations = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "credential_deactivations_total",
			Help:      "Total number of credential deactivations by reason",
		},
		[]string{"reason"},
	)

	m.credentialReactivations = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "credential_reactivations_total",
		Help:      "Total number of credentials reactivated by the probe",
	})

	m.queueSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_size",
		Help:      "Current size of the event queue (backlog indicator)",
	})

	m.queueCapacity = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_capacity",
		Help:      "Configured capacity of the event queue",
	})

	m.queueUtilization = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_utilization_ratio",
		Help:      "Queue utilization ratio (size / capacity)",
	})

	m.queueEnqueues = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_enqueues_total",
		Help:      "Total number of events enqueued",
	})

	m.queueDequeues = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_dequeues_total",
		Help:      "Total number of events dequeued",
	})

	m.queueEnqueueErrs = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_enqueue_errors_total",
		Help:      "Total number of rejected enqueues (backpressure or closed)",
	})

	m.workerCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "worker_count",
		Help:      "Current number of pipeline workers",
	})

	m.workerLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "worker_processing_latency_milliseconds",
		Help:      "Histogram of per-event pipeline latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.workerErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "worker_errors_total",
		Help:      "Total number of per-event pipeline failures",
	})

	m.awardCommitRetry = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "award_commit_retries_total",
		Help:      "Total number of award commit retries after transient store errors",
	})

	m.summariesPublished = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "summaries_published_total",
		Help:      "Total number of award summaries handed to the delivery sink",
	})

	m.summariesDropped = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "summaries_dropped_total",
		Help:      "Total number of award summaries dropped on delivery backpressure",
	})

	m.observationsStored = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "observations_stored_total",
		Help:      "Total number of observations recorded for the learning consumer",
	})

	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_memory_usage_bytes",
		Help:      "System memory usage in bytes",
	})

	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_goroutine_count",
		Help:      "Number of goroutines",
	})

	m.systemGCPauseTime = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_gc_pause_time_milliseconds",
		Help:      "GC pause time in milliseconds",
		Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
	})
}

// Package-level helpers on the global manager.

// RecordEventIngested increments the ingested events counter.
func RecordEventIngested() {
	globalManager.eventsIngested.Inc()
}

// RecordPaidEvent increments the paid events counter.
func RecordPaidEvent() {
	globalManager.paidEvents.Inc()
}

// RecordEventDuplicate increments the duplicate events counter.
func RecordEventDuplicate() {
	globalManager.eventsDuplicate.Inc()
}

// RecordClassification increments the classification counter for a method.
func RecordClassification(method string) {
	globalManager.classifications.WithLabelValues(method).Inc()
}

// RecordAwardCommitted increments the committed awards counter.
func RecordAwardCommitted() {
	globalManager.awardsCommitted.Inc()
}

// RecordPointsAwarded adds credited points to the points counter.
func RecordPointsAwarded(points float64) {
	globalManager.pointsAwarded.Add(points)
}

// RecordPooledEvent increments the pooled events counter.
func RecordPooledEvent() {
	globalManager.pooledEvents.Inc()
}

// UpdatePoolBalance sets the shared pool balance gauge.
func UpdatePoolBalance(balance float64) {
	globalManager.poolBalance.Set(balance)
}

// RecordPageFetched increments the fetched pages counter.
func RecordPageFetched() {
	globalManager.pagesFetched.Inc()
}

// RecordPageFetchLatency records page fetch latency in milliseconds.
func RecordPageFetchLatency(latencyMs float64) {
	globalManager.pageFetchLatency.Observe(latencyMs)
}

// RecordPollError increments the poll error counter for a reason.
func RecordPollError(reason string) {
	globalManager.pollErrors.WithLabelValues(reason).Inc()
}

// RecordPollBackoff increments the backoff counter.
func RecordPollBackoff() {
	globalManager.pollBackoffs.Inc()
}

// UpdateCredentialsActive sets the active credentials gauge.
func UpdateCredentialsActive(count int) {
	globalManager.credentialsActive.Set(float64(count))
}

// RecordCredentialDeactivated increments the deactivation counter for a reason.
func RecordCredentialDeactivated(reason string) {
	globalManager.credentialDeactivations.WithLabelValues(reason).Inc()
}

// RecordCredentialReactivated increments the probe reactivation counter.
func RecordCredentialReactivated() {
	globalManager.credentialReactivations.Inc()
}

// UpdateQueueSize sets the queue size gauge.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the queue capacity gauge.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// UpdateQueueUtilization sets the queue utilization gauge.
func UpdateQueueUtilization(utilization float64) {
	globalManager.queueUtilization.Set(utilization)
}

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() {
	globalManager.queueEnqueues.Inc()
}

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() {
	globalManager.queueDequeues.Inc()
}

// RecordQueueEnqueueError increments the enqueue error counter.
func RecordQueueEnqueueError() {
	globalManager.queueEnqueueErrs.Inc()
}

// UpdateWorkerCount sets the worker count gauge.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// RecordWorkerProcessingLatency records per-event pipeline latency in milliseconds.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerLatency.Observe(latencyMs)
}

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() {
	globalManager.workerErrors.Inc()
}

// RecordAwardCommitRetry increments the commit retry counter.
func RecordAwardCommitRetry() {
	globalManager.awardCommitRetry.Inc()
}

// RecordSummaryPublished increments the published summaries counter.
func RecordSummaryPublished() {
	globalManager.summariesPublished.Inc()
}

// RecordSummaryDropped increments the dropped summaries counter.
func RecordSummaryDropped() {
	globalManager.summariesDropped.Inc()
}

// RecordObservationStored increments the stored observations counter.
func RecordObservationStored() {
	globalManager.observationsStored.Inc()
}

// UpdateSystemMemoryUsage sets the current memory usage.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
