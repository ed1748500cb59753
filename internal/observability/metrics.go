package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics holds the prometheus collectors exported by the service.
type Metrics struct {
	registry         *prometheus.Registry
	httpRequests     *prometheus.CounterVec
	httpLatency      *prometheus.HistogramVec
	httpErrors       *prometheus.CounterVec
	ticketsCreated   *prometheus.CounterVec
	assignRefused    prometheus.Counter
	slaTransitions   *prometheus.CounterVec
	attachmentErrors prometheus.Counter
}

// NewMetrics registers collectors on a dedicated registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		}, []string{"method", "path", "status"}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
		httpErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_errors_total",
			Help: "HTTP responses rendered from domain errors, by code.",
		}, []string{"method", "path", "code"}),
		ticketsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "crm_tickets_created_total",
			Help: "Tickets committed, by priority.",
		}, []string{"priority"}),
		assignRefused: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "crm_assignment_refused_total",
			Help: "Ticket submissions refused because the city has no region mapping.",
		}),
		slaTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "crm_sla_transitions_total",
			Help: "SLA status changes detected by the sweeper, by new status.",
		}, []string{"status"}),
		attachmentErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "crm_attachment_failures_total",
			Help: "Attachment uploads or metadata inserts that failed.",
		}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		m.httpRequests, m.httpLatency, m.httpErrors,
		m.ticketsCreated, m.assignRefused, m.slaTransitions, m.attachmentErrors,
	)
	return m
}

// Registry exposes the underlying registry for the /metrics handler.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	code := strconv.Itoa(status)
	m.httpRequests.WithLabelValues(method, path, code).Inc()
	m.httpLatency.WithLabelValues(method, path, code).Observe(duration.Seconds())
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	m.httpErrors.WithLabelValues(method, path, code).Inc()
}

// TicketCreated counts a committed ticket.
func (m *Metrics) TicketCreated(priority string) {
	if m == nil {
		return
	}
	m.ticketsCreated.WithLabelValues(priority).Inc()
}

// AssignmentRefused counts a submission blocked by a missing city mapping.
func (m *Metrics) AssignmentRefused() {
	if m == nil {
		return
	}
	m.assignRefused.Inc()
}

// SLATransition counts a ticket entering a new SLA bucket.
func (m *Metrics) SLATransition(status string) {
	if m == nil {
		return
	}
	m.slaTransitions.WithLabelValues(status).Inc()
}

// AttachmentFailed counts a failed attachment step.
func (m *Metrics) AttachmentFailed() {
	if m == nil {
		return
	}
	m.attachmentErrors.Inc()
}
