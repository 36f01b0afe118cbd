// Package metrics exposes Prometheus metrics for tool dispatch.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the dispatch core.
type Metrics struct {
	registry *prometheus.Registry

	// Tool metrics
	ToolExecutionsTotal      *prometheus.CounterVec
	ToolExecutionDuration    *prometheus.HistogramVec
	ToolExecutionErrorsTotal *prometheus.CounterVec
	ToolRetriesTotal         *prometheus.CounterVec

	// Registry metrics
	RegisteredTools *prometheus.GaugeVec

	// Batch metrics
	BatchCallsTotal    prometheus.Counter
	BatchCallsRejected prometheus.Counter
}

// NewMetrics creates and registers all metrics.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,

		ToolExecutionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tool_executions_total",
				Help: "Total number of tool executions",
			},
			[]string{"tool_name", "status"},
		),
		ToolExecutionDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tool_execution_duration_seconds",
				Help:    "Duration of tool executions in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"tool_name"},
		),
		ToolExecutionErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tool_execution_errors_total",
				Help: "Total number of tool execution errors",
			},
			[]string{"tool_name", "error_code"},
		),
		ToolRetriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tool_retries_total",
				Help: "Total number of tool execution retries",
			},
			[]string{"tool_name"},
		),

		RegisteredTools: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "registered_tools",
				Help: "Number of registered tools by source",
			},
			[]string{"source"},
		),

		BatchCallsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "batch_tool_calls_total",
				Help: "Total number of batch_use_tool invocations",
			},
		),
		BatchCallsRejected: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "batch_tool_calls_rejected_total",
				Help: "Batch invocations rejected for size violations",
			},
		),
	}

	m.registerMetrics()

	return m
}

// registerMetrics registers all metrics with the registry
func (m *Metrics) registerMetrics() {
	m.registry.MustRegister(m.ToolExecutionsTotal)
	m.registry.MustRegister(m.ToolExecutionDuration)
	m.registry.MustRegister(m.ToolExecutionErrorsTotal)
	m.registry.MustRegister(m.ToolRetriesTotal)
	m.registry.MustRegister(m.RegisteredTools)
	m.registry.MustRegister(m.BatchCallsTotal)
	m.registry.MustRegister(m.BatchCallsRejected)
}

// RecordExecution records one tool execution outcome.
func (m *Metrics) RecordExecution(toolName string, success bool, durationSeconds float64, errorCode string) {
	status := "success"
	if !success {
		status = "error"
		m.ToolExecutionErrorsTotal.WithLabelValues(toolName, errorCode).Inc()
	}
	m.ToolExecutionsTotal.WithLabelValues(toolName, status).Inc()
	m.ToolExecutionDuration.WithLabelValues(toolName).Observe(durationSeconds)
}

// Handler returns an HTTP handler for the metrics endpoint
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// Registry returns the Prometheus registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
