// Package metrics exposes counters of ingestion and task processing to prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels.
const (
	Succeeded = "succeeded"
	Failed    = "failed"
	Retried   = "retried"
	Rejected  = "rejected"
)

type Metrics struct {
	registry *prometheus.Registry

	ingestions   *prometheus.CounterVec
	tasks        *prometheus.CounterVec
	taskDuration *prometheus.HistogramVec
}

// New creates Metrics registered in its own registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		ingestions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "yrdb_ingestions_total",
				Help: "uploads processed by the ingestion gate",
			},
			[]string{"entity", "outcome"},
		),
		tasks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "yrdb_tasks_total",
				Help: "attempts of background tasks",
			},
			[]string{"kind", "outcome"},
		),
		taskDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "yrdb_task_duration_seconds",
				Help:    "time spent by an attempt of a task",
				Buckets: prometheus.ExponentialBuckets(0.05, 4, 8),
			},
			[]string{"kind"},
		),
	}
	reg.MustRegister(m.ingestions, m.tasks, m.taskDuration)
	return m
}

// Ingested counts an upload of entity.
func (m *Metrics) Ingested(entity string, outcome string) {
	if m == nil {
		return
	}
	m.ingestions.WithLabelValues(entity, outcome).Inc()
}

// IngestionCounter is the counter of uploads of entity with outcome.
func (m *Metrics) IngestionCounter(entity string, outcome string) prometheus.Counter {
	return m.ingestions.WithLabelValues(entity, outcome)
}

// TaskDone counts an attempt of a task of kind.
func (m *Metrics) TaskDone(kind string, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.tasks.WithLabelValues(kind, outcome).Inc()
	m.taskDuration.WithLabelValues(kind).Observe(elapsed.Seconds())
}

// TaskCounter is the counter of attempts of tasks of kind with outcome.
func (m *Metrics) TaskCounter(kind string, outcome string) prometheus.Counter {
	return m.tasks.WithLabelValues(kind, outcome)
}

// Registry is for tests and exporters.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves metrics in the exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
