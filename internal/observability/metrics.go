package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service's Prometheus collectors on a private registry. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	registry        *prometheus.Registry
	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	errors          *prometheus.CounterVec
	authOutcomes    *prometheus.CounterVec
	transitions     *prometheus.CounterVec
	ratelimitPurged prometheus.Counter
}

// NewMetrics registers collectors.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	m := &Metrics{
		registry: registry,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "campusdesk",
			Name:      "http_requests_total",
			Help:      "HTTP requests by route, method and status.",
		}, []string{"route", "method", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "campusdesk",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "campusdesk",
			Name:      "errors_total",
			Help:      "Errors returned to callers by code.",
		}, []string{"route", "method", "code"}),
		authOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "campusdesk",
			Name:      "auth_events_total",
			Help:      "Login and registration outcomes.",
		}, []string{"action", "outcome"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "campusdesk",
			Name:      "ticket_transitions_total",
			Help:      "Accepted ticket status transitions.",
		}, []string{"from", "to"}),
		ratelimitPurged: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "campusdesk",
			Name:      "ratelimit_purged_attempts_total",
			Help:      "Stale rate-limit attempts removed by the sweeper.",
		}),
	}
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requests,
		m.requestDuration,
		m.errors,
		m.authOutcomes,
		m.transitions,
		m.ratelimitPurged,
	)
	return m
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(route, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(route, method).Observe(duration.Seconds())
}

// RecordError increments error counters.
func (m *Metrics) RecordError(route, method, code string) {
	if m == nil {
		return
	}
	m.errors.WithLabelValues(route, method, code).Inc()
}

// RecordAuth counts a login or registration outcome such as "success" or an error code.
func (m *Metrics) RecordAuth(action, outcome string) {
	if m == nil {
		return
	}
	m.authOutcomes.WithLabelValues(action, outcome).Inc()
}

// RecordTransition counts an accepted status change.
func (m *Metrics) RecordTransition(from, to string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(from, to).Inc()
}

// RecordPurge counts rate-limit rows removed by a sweep.
func (m *Metrics) RecordPurge(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.ratelimitPurged.Add(float64(n))
}
