package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics holds the service's Prometheus collectors on a private registry.
type Metrics struct {
	registry        *prometheus.Registry
	requests        *prometheus.CounterVec
	requestLatency  *prometheus.HistogramVec
	errors          *prometheus.CounterVec
	ticketEvents    *prometheus.CounterVec
	classifications *prometheus.CounterVec
	auditFailures   prometheus.Counter
}

// NewMetrics registers collectors on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "assetdesk",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route, method and status.",
		}, []string{"route", "method", "status"}),
		requestLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "assetdesk",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route and method.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"route", "method"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "assetdesk",
			Subsystem: "http",
			Name:      "errors_total",
			Help:      "Error responses by route, method and domain error code.",
		}, []string{"route", "method", "code"}),
		ticketEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "assetdesk",
			Subsystem: "tickets",
			Name:      "events_total",
			Help:      "Ticket domain events by type.",
		}, []string{"type"}),
		classifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "assetdesk",
			Subsystem: "sla",
			Name:      "classifications_total",
			Help:      "SLA classifications served by resulting state.",
		}, []string{"state"}),
		auditFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "assetdesk",
			Subsystem: "tickets",
			Name:      "audit_append_failures_total",
			Help:      "Status changes whose audit interaction could not be recorded.",
		}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requests,
		m.requestLatency,
		m.errors,
		m.ticketEvents,
		m.classifications,
		m.auditFailures,
	)
	return m
}

// Registry exposes the registry for the /metrics handler.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// RecordRequest counts a finished request.
func (m *Metrics) RecordRequest(route, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.requestLatency.WithLabelValues(route, method).Observe(duration.Seconds())
}

// RecordError counts an error response.
func (m *Metrics) RecordError(route, method, code string) {
	if m == nil {
		return
	}
	m.errors.WithLabelValues(route, method, code).Inc()
}

// RecordTicketEvent counts a published ticket event.
func (m *Metrics) RecordTicketEvent(eventType string) {
	if m == nil {
		return
	}
	m.ticketEvents.WithLabelValues(eventType).Inc()
}

// RecordClassification counts a served SLA classification.
func (m *Metrics) RecordClassification(state string) {
	if m == nil {
		return
	}
	m.classifications.WithLabelValues(state).Inc()
}

// RecordAuditFailure counts a lost status-change audit entry.
func (m *Metrics) RecordAuditFailure() {
	if m == nil {
		return
	}
	m.auditFailures.Inc()
}
