// Package metrics provides Prometheus metrics for the portfolio service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every Prometheus collector exposed by the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      map[string]string
	registry         prometheus.Registerer

	// Activity feed
	activityFetches     *prometheus.CounterVec
	upstreamLatency     prometheus.Histogram
	activityItems       prometheus.Histogram
	cacheLookups        *prometheus.CounterVec
	activityLastSuccess prometheus.Gauge

	// Contact form
	contactSubmissions *prometheus.CounterVec

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Errors
	errorRateByType     *prometheus.CounterVec
	errorRateByEndpoint *prometheus.CounterVec
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// Init rebuilds the global collectors on a fresh registry with opts applied.
// Call it once at startup, before anything records or GetRegistry is read.
func Init(opts ...Option) {
	customRegistry = prometheus.NewRegistry()
	globalManager = NewManager(append([]Option{WithPrometheusRegistry(customRegistry)}, opts...)...)
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "portfolio",
		subsystem:        "api",
		histogramBuckets: prometheus.DefBuckets,
		constLabels:      map[string]string{},
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	auto := promauto.With(m.registry)

	m.activityFetches = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "activity_fetches_total",
			Help:        "Upstream activity fetches by outcome",
			ConstLabels: m.constLabels,
		},
		[]string{"outcome"},
	)

	m.upstreamLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "activity_upstream_latency_milliseconds",
		Help:        "Latency of upstream events requests in milliseconds",
		Buckets:     []float64{25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
		ConstLabels: m.constLabels,
	})

	m.activityItems = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "activity_items_returned",
		Help:        "Number of normalized activity items per successful fetch",
		Buckets:     []float64{0, 1, 2, 3, 5, 10, 20, 50},
		ConstLabels: m.constLabels,
	})

	m.cacheLookups = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "activity_cache_lookups_total",
			Help:        "Activity cache lookups by result",
			ConstLabels: m.constLabels,
		},
		[]string{"result"},
	)

	m.activityLastSuccess = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "activity_last_success_unixtime",
		Help:        "Unix time of the last successful upstream fetch",
		ConstLabels: m.constLabels,
	})

	m.contactSubmissions = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "contact_submissions_total",
			Help:        "Contact form submissions by result",
			ConstLabels: m.constLabels,
		},
		[]string{"result"},
	)

	m.httpRequests = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "http_requests_total",
			Help:        "Total number of HTTP requests by endpoint and method",
			ConstLabels: m.constLabels,
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.httpRequestDuration = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "http_request_duration_milliseconds",
			Help:        "HTTP request duration in milliseconds",
			Buckets:     m.histogramBuckets,
			ConstLabels: m.constLabels,
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.errorRateByType = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "errors_by_type_total",
			Help:        "Total number of errors by type",
			ConstLabels: m.constLabels,
		},
		[]string{"error_type", "severity"},
	)

	m.errorRateByEndpoint = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "errors_by_endpoint_total",
			Help:        "Total number of errors by endpoint",
			ConstLabels: m.constLabels,
		},
		[]string{"endpoint", "method", "error_type"},
	)
}

// RecordActivityFetch counts one upstream fetch. outcome is "ok" or an error kind.
func RecordActivityFetch(outcome string) {
	globalManager.activityFetches.WithLabelValues(outcome).Inc()
}

// RecordUpstreamLatency records upstream request latency in milliseconds.
func RecordUpstreamLatency(latencyMs float64) {
	globalManager.upstreamLatency.Observe(latencyMs)
}

// RecordActivityItems records the size of a normalized feed.
func RecordActivityItems(n int) {
	globalManager.activityItems.Observe(float64(n))
}

// UpdateActivityLastSuccess sets the last successful fetch time.
func UpdateActivityLastSuccess(unix int64) {
	globalManager.activityLastSuccess.Set(float64(unix))
}

// RecordCacheHit increments the cache hit counter.
func RecordCacheHit() {
	globalManager.cacheLookups.WithLabelValues("hit").Inc()
}

// RecordCacheMiss increments the cache miss counter.
func RecordCacheMiss() {
	globalManager.cacheLookups.WithLabelValues("miss").Inc()
}

// RecordContactSubmission counts a contact form submission by result
// ("delivered", "duplicate", "invalid", "failed").
func RecordContactSubmission(result string) {
	globalManager.contactSubmissions.WithLabelValues(result).Inc()
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByType records an error with type and severity labels.
func RecordErrorByType(errorType, severity string) {
	globalManager.errorRateByType.WithLabelValues(errorType, severity).Inc()
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
