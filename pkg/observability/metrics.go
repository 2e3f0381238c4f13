// Package observability provides Prometheus metrics and HTTP middleware
// for monitoring the weiche proxy.
package observability

import "github.com/prometheus/client_golang/prometheus"

// LLMBuckets defines histogram buckets suited for LLM inference latencies,
// ranging from 100ms to 120s.
var LLMBuckets = []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120}

var (
	// RequestsTotal counts all HTTP requests by method and status class.
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weiche_requests_total",
			Help: "Total requests",
		},
		[]string{"method", "status"},
	)

	// RequestDuration records HTTP request duration in seconds by method.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "weiche_request_duration_seconds",
			Help:    "Request duration",
			Buckets: LLMBuckets,
		},
		[]string{"method"},
	)

	// StreamingConnections tracks the number of active SSE streams.
	StreamingConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "weiche_streaming_connections_active",
			Help: "Active streaming connections",
		},
	)

	// BackendRequestsTotal counts requests sent upstream by outcome
	// (success, error, rejected).
	BackendRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weiche_backend_requests_total",
			Help: "Backend requests",
		},
		[]string{"outcome"},
	)

	// BackendLatency records the time from backend call to stream end.
	BackendLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "weiche_backend_latency_seconds",
			Help:    "Backend latency",
			Buckets: LLMBuckets,
		},
		[]string{"model"},
	)

	// TokensTotal counts tokens reported by the backend by direction
	// (input/output).
	TokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weiche_tokens_total",
			Help: "Token count",
		},
		[]string{"model", "direction"},
	)

	// XMLSalvagedTotal counts tool calls recovered from XML-encoded text.
	XMLSalvagedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "weiche_xml_tool_calls_salvaged_total",
			Help: "Tool calls recovered from XML text",
		},
	)

	// BreakerOpen is 1 while the circuit breaker is open.
	BreakerOpen = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "weiche_circuit_breaker_open",
			Help: "Circuit breaker open state",
		},
	)
)

func init() {
	prometheus.MustRegister(
		RequestsTotal,
		RequestDuration,
		StreamingConnections,
		BackendRequestsTotal,
		BackendLatency,
		TokensTotal,
		XMLSalvagedTotal,
		BreakerOpen,
	)
}
