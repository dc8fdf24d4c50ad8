package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusMetrics contains all Prometheus metrics for pulsewatch
type PrometheusMetrics struct {
	// Scheduler metrics
	TicksTotal   *prometheus.CounterVec
	ActiveTimers prometheus.Gauge

	// Dispatcher metrics
	AlertsFiredTotal      prometheus.Counter
	OrphanedTimersTotal   prometheus.Counter
	EvaluationsTotal      *prometheus.CounterVec
	DeliveryFailuresTotal prometheus.Counter
	DeliveryDuration      prometheus.Histogram

	// Store metrics
	StoreRewritesTotal   prometheus.Counter
	StoreRewriteDuration prometheus.Histogram

	// History metrics
	HistoryWritesTotal *prometheus.CounterVec

	// API metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Application health metrics
	ApplicationUptime prometheus.Gauge
	ComponentHealth   *prometheus.GaugeVec
	GoroutineCount    prometheus.Gauge
}

// NewPrometheusMetrics creates and registers all Prometheus metrics
func NewPrometheusMetrics() *PrometheusMetrics {
	return &PrometheusMetrics{
		TicksTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pulsewatch_ticks_total",
				Help: "Total number of scheduler ticks by outcome",
			},
			[]string{"result"},
		),

		ActiveTimers: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "pulsewatch_active_timers",
				Help: "Number of notification timers currently registered",
			},
		),

		AlertsFiredTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "pulsewatch_alerts_fired_total",
				Help: "Total number of alerts that satisfied their condition",
			},
		),

		OrphanedTimersTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "pulsewatch_orphaned_timers_total",
				Help: "Total number of timers cancelled because their record was gone",
			},
		),

		EvaluationsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pulsewatch_evaluations_total",
				Help: "Total number of threshold evaluations by outcome",
			},
			[]string{"satisfied"},
		),

		DeliveryFailuresTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "pulsewatch_delivery_failures_total",
				Help: "Total number of failed alert message deliveries",
			},
		),

		DeliveryDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "pulsewatch_delivery_duration_seconds",
				Help:    "Time spent delivering alert messages",
				Buckets: prometheus.DefBuckets,
			},
		),

		StoreRewritesTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "pulsewatch_store_rewrites_total",
				Help: "Total number of whole-document store rewrites",
			},
		),

		StoreRewriteDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "pulsewatch_store_rewrite_duration_seconds",
				Help:    "Time spent rewriting the record document",
				Buckets: []float64{.001, .005, .01, .05, .1, .5, 1},
			},
		),

		HistoryWritesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pulsewatch_history_writes_total",
				Help: "Total number of fired-alert history writes by status",
			},
			[]string{"status"},
		),

		HTTPRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pulsewatch_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),

		HTTPRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pulsewatch_http_request_duration_seconds",
				Help:    "HTTP request duration",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		ApplicationUptime: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "pulsewatch_uptime_seconds",
				Help: "Application uptime in seconds",
			},
		),

		ComponentHealth: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "pulsewatch_component_health",
				Help: "Component health status (1 healthy, 0 unhealthy)",
			},
			[]string{"component"},
		),

		GoroutineCount: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "pulsewatch_goroutines",
				Help: "Current number of goroutines",
			},
		),
	}
}

// Tick outcomes recorded against TicksTotal.
const (
	TickSample = "sample"
	TickEmpty  = "empty"
	TickError  = "error"
)

// RecordTick records one scheduler tick with its outcome.
func (m *PrometheusMetrics) RecordTick(result string) {
	m.TicksTotal.WithLabelValues(result).Inc()
}

// RecordEvaluation records one threshold evaluation.
func (m *PrometheusMetrics) RecordEvaluation(satisfied bool) {
	if satisfied {
		m.EvaluationsTotal.WithLabelValues("true").Inc()
	} else {
		m.EvaluationsTotal.WithLabelValues("false").Inc()
	}
}

// RecordStoreRewrite records one whole-document rewrite.
func (m *PrometheusMetrics) RecordStoreRewrite(duration time.Duration) {
	m.StoreRewritesTotal.Inc()
	m.StoreRewriteDuration.Observe(duration.Seconds())
}

// RecordHTTPRequest records one HTTP request.
func (m *PrometheusMetrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// UpdateComponentHealth updates a component health gauge.
func (m *PrometheusMetrics) UpdateComponentHealth(component string, healthy bool) {
	value := 0.0
	if healthy {
		value = 1.0
	}
	m.ComponentHealth.WithLabelValues(component).Set(value)
}

// UpdateActiveTimers updates the active timer gauge.
func (m *PrometheusMetrics) UpdateActiveTimers(count int) {
	m.ActiveTimers.Set(float64(count))
}
