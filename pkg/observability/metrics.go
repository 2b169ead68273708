// Package observability provides the metrics and tracing integrations. It
// implements the router's observer with Prometheus collectors and wraps
// backends with OpenTelemetry spans.
package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mcpserve/mcpserve/pkg/protocol"
)

// Metrics is a Prometheus-backed router observer. All collectors live on a
// private registry so embedding applications keep control of their default
// registry.
type Metrics struct {
	registry *prometheus.Registry

	requests           *prometheus.CounterVec
	errors             *prometheus.CounterVec
	duration           *prometheus.HistogramVec
	notificationErrors *prometheus.CounterVec
	sessions           prometheus.Gauge
}

// NewMetrics creates and registers the collectors under the given
// namespace.
func NewMetrics(namespace string) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Requests dispatched, by method.",
		}, []string{"method"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "Error responses produced, by method and wire code.",
		}, []string{"method", "code"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "Dispatch latency, by method.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		notificationErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notification_errors_total",
			Help:      "Notification handler failures, by method.",
		}, []string{"method"}),
		sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Sessions currently open.",
		}),
	}
	m.registry.MustRegister(m.requests, m.errors, m.duration, m.notificationErrors, m.sessions)
	return m
}

// Handler exposes the collectors in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry for additional collectors.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// OnRequest implements router.Observer.
func (m *Metrics) OnRequest(method string) {
	m.requests.WithLabelValues(method).Inc()
}

// OnResponse implements router.Observer.
func (m *Metrics) OnResponse(method string, code protocol.ErrorCode, elapsed time.Duration) {
	m.duration.WithLabelValues(method).Observe(elapsed.Seconds())
	if code != 0 {
		m.errors.WithLabelValues(method, strconv.Itoa(int(code))).Inc()
	}
}

// OnNotificationError implements router.Observer.
func (m *Metrics) OnNotificationError(method string, _ error) {
	m.notificationErrors.WithLabelValues(method).Inc()
}

// OnSessionOpened implements router.Observer.
func (m *Metrics) OnSessionOpened(string) { m.sessions.Inc() }

// OnSessionClosed implements router.Observer.
func (m *Metrics) OnSessionClosed(string) { m.sessions.Dec() }
