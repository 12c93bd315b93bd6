// Package metrics provides Prometheus metrics for the eldercare services.
package metrics

import (
	"runtime"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Latency histograms observe milliseconds.
var defaultLatencyBuckets = []float64{1, 2.5, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000}

// Manager manages all Prometheus metrics for the eldercare services.
type Manager struct {
	namespace        string
	subsystem        string
	latencyBuckets   []float64
	registry         prometheus.Registerer

	// Offline analytics
	riskClassifications *prometheus.CounterVec
	datasetRows         *prometheus.GaugeVec
	datasetLoadDuration prometheus.Histogram

	// Device ingestion
	readingsAccepted  prometheus.Counter
	readingsRejected  *prometheus.CounterVec
	readingsForwarded prometheus.Counter
	forwardErrors     prometheus.Counter
	forwardLatency    prometheus.Histogram
	deviceCacheLookup *prometheus.CounterVec

	// Queue
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueEnqueueTotal  prometheus.Counter
	queueDequeueTotal  prometheus.Counter
	queueEnqueueErrors prometheus.Counter

	// Workers
	workerActiveCount       prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrors            prometheus.Counter

	// Alerting
	detectionEvents *prometheus.CounterVec
	notifications   *prometheus.CounterVec

	alertsAcknowledged prometheus.Counter

	// Storage
	dbQueryLatency *prometheus.HistogramVec
	sessionLookups *prometheus.CounterVec

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Errors
	errorsByComponent *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCCount        prometheus.Gauge
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "eldercare",
		subsystem:        "",
		latencyBuckets:   defaultLatencyBuckets,
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
	})
}

func (m *Manager) histogram(name, help string) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, Buckets: m.latencyBuckets,
	})
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.riskClassifications = m.counterVec("risk_classifications_total",
		"Risk-level classifications served, by effective method", "method")
	m.datasetRows = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "dataset_rows", Help: "Rows held per loaded offline dataset",
	}, []string{"dataset"})
	m.datasetLoadDuration = m.histogram("dataset_load_duration_milliseconds",
		"Time spent loading the offline dataset cache")

	m.readingsAccepted = m.counter("readings_accepted_total", "Device readings accepted by ingestion")
	m.readingsRejected = m.counterVec("readings_rejected_total", "Device readings rejected by ingestion", "reason")
	m.readingsForwarded = m.counter("readings_forwarded_total", "Device readings forwarded to the API")
	m.forwardErrors = m.counter("forward_errors_total", "Failed forwards to the API")
	m.forwardLatency = m.histogram("forward_latency_milliseconds", "Latency of forwarding one reading to the API")
	m.deviceCacheLookup = m.counterVec("device_cache_lookups_total", "Device UID cache lookups", "result")

	m.queueSize = m.gauge("queue_size", "Current size of the ingestion queue")
	m.queueCapacity = m.gauge("queue_capacity", "Maximum ingestion queue capacity")
	m.queueEnqueueTotal = m.counter("queue_enqueue_total", "Total number of readings enqueued")
	m.queueDequeueTotal = m.counter("queue_dequeue_total", "Total number of readings dequeued")
	m.queueEnqueueErrors = m.counter("queue_enqueue_errors_total", "Total number of enqueue errors")

	m.workerActiveCount = m.gauge("worker_active_count", "Number of active forwarding workers")
	m.workerProcessingLatency = m.histogram("worker_processing_latency_milliseconds",
		"Worker processing latency in milliseconds")
	m.workerErrors = m.counter("worker_errors_total", "Total number of worker errors")

	m.detectionEvents = m.counterVec("detection_events_total", "Events emitted by the detection worker", "type", "severity")
	m.notifications = m.counterVec("notifications_total", "Notifications dispatched", "channel", "severity")

	m.alertsAcknowledged = m.counter("alerts_acknowledged_total", "Alerts acknowledged by the care circle")

	m.dbQueryLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "db_query_latency_milliseconds", Help: "Database operation latency",
		Buckets: m.latencyBuckets,
	}, []string{"operation"})
	m.sessionLookups = m.counterVec("session_lookups_total", "Bearer token lookups", "result")

	m.httpRequests = m.counterVec("http_requests_total",
		"Total number of HTTP requests by endpoint and method", "endpoint", "method", "status_code")
	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "http_request_duration_milliseconds", Help: "HTTP request duration in milliseconds",
		Buckets: m.latencyBuckets,
	}, []string{"endpoint", "method", "status_code"})

	m.errorsByComponent = m.counterVec("errors_by_component_total",
		"Total number of errors by component", "component", "error_type")

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "Heap bytes in use")
	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Number of goroutines")
	m.systemGCCount = m.gauge("system_gc_cycles", "Completed GC cycles")
}

// RecordRiskClassification counts one risk-level response.
func RecordRiskClassification(method string) {
	globalManager.riskClassifications.WithLabelValues(method).Inc()
}

// UpdateDatasetRows sets the row count of a loaded dataset.
func UpdateDatasetRows(dataset string, rows int) {
	globalManager.datasetRows.WithLabelValues(dataset).Set(float64(rows))
}

// RecordDatasetLoadDuration records how long the dataset cache took to load.
func RecordDatasetLoadDuration(ms float64) {
	globalManager.datasetLoadDuration.Observe(ms)
}

// RecordReadingAccepted increments the accepted readings counter.
func RecordReadingAccepted() {
	globalManager.readingsAccepted.Inc()
}

// RecordReadingRejected increments the rejected readings counter.
func RecordReadingRejected(reason string) {
	globalManager.readingsRejected.WithLabelValues(reason).Inc()
}

// RecordReadingForwarded increments the forwarded readings counter.
func RecordReadingForwarded() {
	globalManager.readingsForwarded.Inc()
}

// RecordForwardError increments the forward errors counter.
func RecordForwardError() {
	globalManager.forwardErrors.Inc()
}

// RecordForwardLatency records the latency of one forward call.
func RecordForwardLatency(ms float64) {
	globalManager.forwardLatency.Observe(ms)
}

// RecordDeviceCacheLookup counts a device cache hit or miss.
func RecordDeviceCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	globalManager.deviceCacheLookup.WithLabelValues(result).Inc()
}

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() {
	globalManager.queueEnqueueTotal.Inc()
}

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() {
	globalManager.queueDequeueTotal.Inc()
}

// RecordQueueEnqueueError increments the enqueue error counter.
func RecordQueueEnqueueError() {
	globalManager.queueEnqueueErrors.Inc()
}

// UpdateWorkerActiveCount sets the number of active workers.
func UpdateWorkerActiveCount(count int) {
	globalManager.workerActiveCount.Set(float64(count))
}

// RecordWorkerProcessingLatency records worker processing latency.
func RecordWorkerProcessingLatency(ms float64) {
	globalManager.workerProcessingLatency.Observe(ms)
}

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() {
	globalManager.workerErrors.Inc()
}

// RecordDetectionEvent counts an emitted detection event.
func RecordDetectionEvent(eventType, severity string) {
	globalManager.detectionEvents.WithLabelValues(eventType, severity).Inc()
}

// RecordNotification counts a dispatched notification.
func RecordNotification(channel, severity string) {
	globalManager.notifications.WithLabelValues(channel, severity).Inc()
}

// RecordAlertAcknowledged counts an acknowledged alert.
func RecordAlertAcknowledged() {
	globalManager.alertsAcknowledged.Inc()
}

// RecordDBQueryLatency records latency for a named repository operation.
func RecordDBQueryLatency(operation string, ms float64) {
	globalManager.dbQueryLatency.WithLabelValues(operation).Observe(ms)
}

// RecordSessionLookup counts a token lookup by result (hit, miss, error).
func RecordSessionLookup(result string) {
	globalManager.sessionLookups.WithLabelValues(result).Inc()
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// CollectSystemStats refreshes the runtime gauges. Called before each scrape.
func CollectSystemStats() {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	globalManager.systemMemoryUsage.Set(float64(ms.HeapAlloc))
	globalManager.systemGoroutineCount.Set(float64(runtime.NumGoroutine()))
	globalManager.systemGCCount.Set(float64(ms.NumGC))
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
