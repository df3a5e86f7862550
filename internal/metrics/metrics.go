// Package metrics exposes Prometheus collectors for the calendar service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/medical-calendar/backend/internal/schedule"
)

// Metrics groups the service collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	mutations      *prometheus.CounterVec
	projections    *prometheus.CounterVec
	validationErrs prometheus.Counter
	events         prometheus.Gauge
	sessions       prometheus.Gauge
	httpRequests   *prometheus.CounterVec
	httpDuration   *prometheus.HistogramVec
}

// New creates and registers all collectors.
func New() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.mutations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "medcal",
		Name:      "event_mutations_total",
		Help:      "Event store mutations by operation",
	}, []string{"op"})
	m.projections = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "medcal",
		Name:      "projections_total",
		Help:      "Calendar projections by view",
	}, []string{"view"})
	m.validationErrs = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "medcal",
		Name:      "form_validation_failures_total",
		Help:      "Rejected event form submissions",
	})
	m.events = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "medcal",
		Name:      "events",
		Help:      "Number of events in the store",
	})
	m.sessions = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "medcal",
		Name:      "sessions_active",
		Help:      "Number of open login sessions",
	})
	m.httpRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "medcal",
		Name:      "http_requests_total",
		Help:      "HTTP requests by method and status code",
	}, []string{"method", "code"})
	m.httpDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "medcal",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method"})

	m.registry.MustRegister(
		m.mutations,
		m.projections,
		m.validationErrs,
		m.events,
		m.sessions,
		m.httpRequests,
		m.httpDuration,
		prometheus.NewGoCollector(),
	)
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveChange is a schedule.ChangeFunc recording store mutations.
func (m *Metrics) ObserveChange(c schedule.Change) {
	m.mutations.WithLabelValues(string(c.Op)).Inc()
	m.events.Set(float64(len(c.Events)))
}

// SetEvents records the current number of events.
func (m *Metrics) SetEvents(n int) {
	m.events.Set(float64(n))
}

// ObserveProjection counts one projection for view.
func (m *Metrics) ObserveProjection(view schedule.ViewMode) {
	m.projections.WithLabelValues(string(view)).Inc()
}

// ObserveValidationFailure counts one rejected form.
func (m *Metrics) ObserveValidationFailure() {
	m.validationErrs.Inc()
}

// SetSessions records the number of open sessions.
func (m *Metrics) SetSessions(n int) {
	m.sessions.Set(float64(n))
}

// ObserveRequest records one served HTTP request.
func (m *Metrics) ObserveRequest(method string, status int, d time.Duration) {
	m.httpRequests.WithLabelValues(method, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method).Observe(d.Seconds())
}
