// Package monitoring exposes Prometheus metrics for the service.
package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics.
type Metrics struct {
	// Registry carries every metric below; the /metrics endpoint serves it.
	Registry *prometheus.Registry

	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Operation metrics
	OperationsTotal   *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec
	ConflictsTotal    prometheus.Counter
	LockTimeoutsTotal prometheus.Counter
	LockWaitSeconds   prometheus.Histogram

	// Diagnostics metrics
	DiagnosticsDropped prometheus.Gauge

	// System metrics
	Uptime    prometheus.Gauge
	startTime time.Time
}

// NewMetrics creates and registers all metrics on a dedicated registry.
func NewMetrics() *Metrics {
	return NewMetricsWithRegistry(prometheus.NewRegistry())
}

// NewMetricsWithRegistry creates metrics on the provided registry.
func NewMetricsWithRegistry(reg *prometheus.Registry) *Metrics {
	factory := promauto.With(reg)

	m := &Metrics{
		Registry: reg,
		RequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "memstore_http_requests_total",
			Help: "Total HTTP requests",
		}, []string{"method", "path", "status"}),
		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "memstore_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path"}),

		OperationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "memstore_operations_total",
			Help: "Total memory operations by outcome",
		}, []string{"operation", "status"}),
		OperationDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "memstore_operation_duration_seconds",
			Help:    "Memory operation duration",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
		ConflictsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "memstore_conflicts_total",
			Help: "Writes aborted by the optimistic conflict check",
		}),
		LockTimeoutsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "memstore_lock_timeouts_total",
			Help: "Lock acquisitions that exceeded their budget",
		}),
		LockWaitSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "memstore_lock_wait_seconds",
			Help:    "Time spent waiting for lock acquisition",
			Buckets: []float64{.001, .005, .01, .05, .1, .5, 1, 2.5, 5},
		}),

		DiagnosticsDropped: factory.NewGauge(prometheus.GaugeOpts{
			Name: "memstore_diagnostics_dropped_total",
			Help: "Diagnostic events dropped due to a full queue",
		}),

		Uptime: factory.NewGauge(prometheus.GaugeOpts{
			Name: "memstore_uptime_seconds",
			Help: "Process uptime",
		}),
		startTime: time.Now(),
	}

	go m.trackUptime()
	return m
}

// RecordHTTPRequest records HTTP request metrics.
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordOperation records one memory operation.
func (m *Metrics) RecordOperation(operation string, success bool, duration time.Duration) {
	status := "success"
	if !success {
		status = "error"
	}
	m.OperationsTotal.WithLabelValues(operation, status).Inc()
	m.OperationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

func (m *Metrics) trackUptime() {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	for range ticker.C {
		m.Uptime.Set(time.Since(m.startTime).Seconds())
	}
}
