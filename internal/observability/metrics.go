package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the console's Prometheus collectors on a private registry.
// All methods are safe on a nil receiver.
type Metrics struct {
	registry       *prometheus.Registry
	requests       *prometheus.CounterVec
	latency        *prometheus.HistogramVec
	errors         *prometheus.CounterVec
	guardDecisions *prometheus.CounterVec
	upstream       *prometheus.CounterVec
	forcedLogouts  prometheus.Counter
}

// NewMetrics registers the collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "console_http_requests_total",
			Help: "HTTP requests served by the console.",
		}, []string{"route", "method", "status"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "console_http_request_duration_seconds",
			Help:    "Latency of console HTTP requests.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "console_http_errors_total",
			Help: "Requests that ended in an error response.",
		}, []string{"route", "method", "code"}),
		guardDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "console_guard_decisions_total",
			Help: "Route guard admission decisions.",
		}, []string{"action"}),
		upstream: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "console_backend_requests_total",
			Help: "Requests sent to the backend API.",
		}, []string{"method", "status"}),
		forcedLogouts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "console_forced_logouts_total",
			Help: "Sessions cleared because the backend answered 401.",
		}),
	}
	m.registry.MustRegister(m.requests, m.latency, m.errors, m.guardDecisions, m.upstream, m.forcedLogouts)
	return m
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(route, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.latency.WithLabelValues(route, method).Observe(duration.Seconds())
}

// RecordError increments error counters.
func (m *Metrics) RecordError(route, method, code string) {
	if m == nil {
		return
	}
	m.errors.WithLabelValues(route, method, code).Inc()
}

// RecordGuardDecision counts one admission decision.
func (m *Metrics) RecordGuardDecision(action string) {
	if m == nil {
		return
	}
	m.guardDecisions.WithLabelValues(action).Inc()
}

// RecordUpstream counts a backend call. status 0 means no response was received.
func (m *Metrics) RecordUpstream(method string, status int) {
	if m == nil {
		return
	}
	m.upstream.WithLabelValues(method, strconv.Itoa(status)).Inc()
}

// RecordForcedLogout counts a 401-triggered session clear.
func (m *Metrics) RecordForcedLogout() {
	if m == nil {
		return
	}
	m.forcedLogouts.Inc()
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Gatherer returns the underlying registry.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	return m.registry
}
