// Package metrics exposes Prometheus instrumentation for planning and
// execution. A nil *Metrics is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "auralia"

// Metrics groups every collector the engine reports.
type Metrics struct {
	InterpretTotal  *prometheus.CounterVec
	PlannerLatency  prometheus.Histogram
	StepTotal       *prometheus.CounterVec
	AgentIterations prometheus.Histogram
	AgentTasksTotal *prometheus.CounterVec
	CacheEntries    prometheus.Gauge
}

// New creates the collectors and registers them with reg. A nil registerer
// leaves them unregistered, which is what tests usually want.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		InterpretTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "interpreter",
			Name:      "commands_total",
			Help:      "Commands interpreted, by the layer that produced the plan.",
		}, []string{"source"}),
		PlannerLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "interpreter",
			Name:      "planner_seconds",
			Help:      "Latency of planner calls, including timeouts.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 4, 8, 16, 32},
		}),
		StepTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sequencer",
			Name:      "steps_total",
			Help:      "Executed actions by kind and outcome.",
		}, []string{"kind", "outcome"}),
		AgentIterations: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "agent",
			Name:      "iterations",
			Help:      "Iterations used per agent task.",
			Buckets:   prometheus.LinearBuckets(1, 2, 12),
		}),
		AgentTasksTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "agent",
			Name:      "tasks_total",
			Help:      "Finished agent tasks by result.",
		}, []string{"result"}),
		CacheEntries: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "interpreter",
			Name:      "cache_entries",
			Help:      "Entries currently held by the interpretation cache.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.InterpretTotal, m.PlannerLatency, m.StepTotal, m.AgentIterations, m.AgentTasksTotal, m.CacheEntries)
	}
	return m
}

// ObserveInterpretation counts one interpreted command.
func (m *Metrics) ObserveInterpretation(source string) {
	if m == nil {
		return
	}
	m.InterpretTotal.WithLabelValues(source).Inc()
}

// ObservePlanner records how long a planner call took.
func (m *Metrics) ObservePlanner(d time.Duration) {
	if m == nil {
		return
	}
	m.PlannerLatency.Observe(d.Seconds())
}

// ObserveStep counts one executed action.
func (m *Metrics) ObserveStep(kind string, ok bool) {
	if m == nil {
		return
	}
	outcome := "success"
	if !ok {
		outcome = "failure"
	}
	m.StepTotal.WithLabelValues(kind, outcome).Inc()
}

// ObserveTask records a finished agent task.
func (m *Metrics) ObserveTask(iterations int, success bool) {
	if m == nil {
		return
	}
	m.AgentIterations.Observe(float64(iterations))
	result := "success"
	if !success {
		result = "failure"
	}
	m.AgentTasksTotal.WithLabelValues(result).Inc()
}

// SetCacheEntries reports the current cache size.
func (m *Metrics) SetCacheEntries(n int) {
	if m == nil {
		return
	}
	m.CacheEntries.Set(float64(n))
}
