// Package metrics exposes Prometheus collectors for reservations, notifier
// channels and background jobs.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/example/briefings/internal/application"
)

const namespace = "briefings"

// Metrics owns a registry and the collectors registered on it. All methods
// are safe on a nil receiver so callers may run without metrics.
type Metrics struct {
	registry      *prometheus.Registry
	confirmations *prometheus.CounterVec
	notifications *prometheus.CounterVec
	jobRuns       *prometheus.CounterVec
	jobItems      *prometheus.CounterVec
}

// New builds a registry with process and Go runtime collectors plus the
// briefings counters.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		confirmations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "confirmations_total",
			Help:      "Confirmation attempts by proposal kind and outcome.",
		}, []string{"kind", "outcome"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifier_calls_total",
			Help:      "Notifier channel calls by channel and outcome.",
		}, []string{"channel", "outcome"}),
		jobRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "job_runs_total",
			Help:      "Background job runs by job and outcome.",
		}, []string{"job", "outcome"}),
		jobItems: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "job_items_total",
			Help:      "Events handled by background jobs.",
		}, []string{"job"}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.confirmations,
		m.notifications,
		m.jobRuns,
		m.jobItems,
	)
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveConfirmation records one Confirm outcome ("first", "repeat" or an
// error kind).
func (m *Metrics) ObserveConfirmation(kind application.ProposalKind, outcome string) {
	if m == nil {
		return
	}
	m.confirmations.WithLabelValues(string(kind), outcome).Inc()
}

// ObserveNotification records a notifier channel call.
func (m *Metrics) ObserveNotification(channel string, err error) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(channel, outcome(err)).Inc()
}

// ObserveJob records one job run and the number of events it handled.
func (m *Metrics) ObserveJob(job string, handled int, err error) {
	if m == nil {
		return
	}
	m.jobRuns.WithLabelValues(job, outcome(err)).Inc()
	if handled > 0 {
		m.jobItems.WithLabelValues(job).Add(float64(handled))
	}
}

func outcome(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}
