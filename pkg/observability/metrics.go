// Package observability provides Prometheus metrics and HTTP middleware
// for monitoring the datagrep service.
package observability

import "github.com/prometheus/client_golang/prometheus"

// ExecutionBuckets defines histogram buckets suited for sandboxed code
// executions, ranging from fast aggregates to the 60s default timeout.
var ExecutionBuckets = []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60, 120}

var (
	// RequestsTotal counts all HTTP requests by method and status class.
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "datagrep_requests_total",
			Help: "Total requests",
		},
		[]string{"method", "status"},
	)

	// RequestDuration records HTTP request duration in seconds.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "datagrep_request_duration_seconds",
			Help:    "Request duration",
			Buckets: ExecutionBuckets,
		},
		[]string{"method"},
	)

	// ExecutionsTotal counts sandbox executions by terminal status.
	ExecutionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "datagrep_executions_total",
			Help: "Sandbox executions",
		},
		[]string{"status"},
	)

	// ExecutionDuration records wall-clock execution time in seconds.
	ExecutionDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "datagrep_execution_duration_seconds",
			Help:    "Sandbox execution duration",
			Buckets: ExecutionBuckets,
		},
	)

	// SandboxesActive tracks executions currently holding a sandbox.
	SandboxesActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "datagrep_sandboxes_active",
			Help: "Executions in flight",
		},
	)

	// GenerationsTotal counts pipeline generations by model and outcome.
	GenerationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "datagrep_generations_total",
			Help: "Pipeline generations",
		},
		[]string{"model", "status"},
	)

	// GenerationLatency records code-generation backend latency in seconds.
	GenerationLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "datagrep_generation_latency_seconds",
			Help:    "Generation backend latency",
			Buckets: ExecutionBuckets,
		},
		[]string{"model"},
	)
)

func init() {
	prometheus.MustRegister(
		RequestsTotal,
		RequestDuration,
		ExecutionsTotal,
		ExecutionDuration,
		SandboxesActive,
		GenerationsTotal,
		GenerationLatency,
	)
}
