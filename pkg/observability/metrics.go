// Package observability provides Prometheus metrics and OpenTelemetry
// tracing for the protocol engine and its transports.
package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsConfig configures the metrics collector.
type MetricsConfig struct {
	// ServiceName and ServiceVersion label every metric.
	ServiceName    string
	ServiceVersion string

	// Namespace is the Prometheus namespace, "mcp" by default.
	Namespace string

	// HistogramBuckets are latency buckets in milliseconds.
	HistogramBuckets []float64

	// SessionCount, when set, is exported as a live gauge.
	SessionCount func() float64
}

// Metrics collects engine and transport metrics on a private registry
// so multiple servers in one process never collide.
type Metrics struct {
	registry *prometheus.Registry

	requestDuration   *prometheus.HistogramVec
	requestTotal      *prometheus.CounterVec
	errorTotal        *prometheus.CounterVec
	toolCallDuration  *prometheus.HistogramVec
	activeConnections prometheus.Gauge
	messageSize       prometheus.Histogram
}

// NewMetrics creates and registers the metric collectors.
func NewMetrics(config MetricsConfig) *Metrics {
	if config.Namespace == "" {
		config.Namespace = "mcp"
	}
	if config.HistogramBuckets == nil {
		config.HistogramBuckets = []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000}
	}

	constLabels := prometheus.Labels{
		"service": config.ServiceName,
		"version": config.ServiceVersion,
	}

	m := &Metrics{registry: prometheus.NewRegistry()}

	m.requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Name:        "request_duration_milliseconds",
			Help:        "Duration of handled protocol messages in milliseconds",
			Buckets:     config.HistogramBuckets,
			ConstLabels: constLabels,
		},
		[]string{"method", "status"},
	)

	m.requestTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Name:        "request_total",
			Help:        "Total number of handled protocol messages",
			ConstLabels: constLabels,
		},
		[]string{"method", "status"},
	)

	m.errorTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Name:        "error_total",
			Help:        "Total number of error responses by JSON-RPC code",
			ConstLabels: constLabels,
		},
		[]string{"code", "method"},
	)

	m.toolCallDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Name:        "tool_call_duration_milliseconds",
			Help:        "Duration of tool invocations in milliseconds",
			Buckets:     config.HistogramBuckets,
			ConstLabels: constLabels,
		},
		[]string{"tool", "status"},
	)

	m.activeConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Name:        "active_connections",
			Help:        "Number of open full-duplex connections",
			ConstLabels: constLabels,
		},
	)

	m.messageSize = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Name:        "message_size_bytes",
			Help:        "Size of inbound messages in bytes",
			Buckets:     prometheus.ExponentialBuckets(64, 4, 10),
			ConstLabels: constLabels,
		},
	)

	m.registry.MustRegister(
		m.requestDuration,
		m.requestTotal,
		m.errorTotal,
		m.toolCallDuration,
		m.activeConnections,
		m.messageSize,
	)

	if config.SessionCount != nil {
		m.registry.MustRegister(prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Namespace:   config.Namespace,
				Name:        "active_sessions",
				Help:        "Number of tracked sessions",
				ConstLabels: constLabels,
			},
			config.SessionCount,
		))
	}

	return m
}

// RecordRequest records one handled message. code is zero for success.
func (m *Metrics) RecordRequest(method string, code int, duration time.Duration) {
	if m == nil {
		return
	}
	status := "ok"
	if code != 0 {
		status = "error"
		m.errorTotal.WithLabelValues(strconv.Itoa(code), method).Inc()
	}
	ms := float64(duration.Microseconds()) / 1000.0
	m.requestDuration.WithLabelValues(method, status).Observe(ms)
	m.requestTotal.WithLabelValues(method, status).Inc()
}

// RecordToolCall records one tool invocation.
func (m *Metrics) RecordToolCall(tool string, err bool, duration time.Duration) {
	if m == nil {
		return
	}
	status := "ok"
	if err {
		status = "error"
	}
	ms := float64(duration.Microseconds()) / 1000.0
	m.toolCallDuration.WithLabelValues(tool, status).Observe(ms)
}

// RecordMessageSize records the byte size of an inbound message.
func (m *Metrics) RecordMessageSize(size int) {
	if m == nil {
		return
	}
	m.messageSize.Observe(float64(size))
}

// ConnectionOpened increments the active connection gauge.
func (m *Metrics) ConnectionOpened() {
	if m == nil {
		return
	}
	m.activeConnections.Inc()
}

// ConnectionClosed decrements the active connection gauge.
func (m *Metrics) ConnectionClosed() {
	if m == nil {
		return
	}
	m.activeConnections.Dec()
}

// Handler returns the scrape endpoint for this collector's registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry for additional collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
