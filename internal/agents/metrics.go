package agents

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus instruments for the agent runtime. A nil
// *Metrics is valid and records nothing, which keeps tests quiet.
type Metrics struct {
	TasksSubmitted prometheus.Counter
	TasksDropped   *prometheus.CounterVec
	TasksFinished  *prometheus.CounterVec
}

// NewMetrics creates and registers all agent-runtime metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		TasksSubmitted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "agent_tasks_submitted_total",
			Help: "Tasks accepted onto agent queues",
		}),
		TasksDropped: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agent_tasks_dropped_total",
				Help: "Tasks rejected before enqueue, by reason",
			},
			[]string{"reason"},
		),
		TasksFinished: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agent_tasks_finished_total",
				Help: "Tasks reaching a terminal status",
			},
			[]string{"status"},
		),
	}
}

// RecordSubmitted records one accepted task.
func (m *Metrics) RecordSubmitted() {
	if m == nil {
		return
	}
	m.TasksSubmitted.Inc()
}

// RecordDropped records a gate or queue rejection.
func (m *Metrics) RecordDropped(reason string) {
	if m == nil {
		return
	}
	m.TasksDropped.WithLabelValues(reason).Inc()
}

// RecordFinished records a task reaching a terminal status.
func (m *Metrics) RecordFinished(status string) {
	if m == nil {
		return
	}
	m.TasksFinished.WithLabelValues(status).Inc()
}
