// Package metrics provides the gateway's Prometheus collectors and HTTP
// middleware.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// BackendBuckets spans Space latencies from 100ms to two minutes; cold Spaces
// can take tens of seconds to answer.
var BackendBuckets = []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120}

var (
	// RequestsTotal counts HTTP requests by method and status class.
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gradiogate_requests_total",
			Help: "Total requests",
		},
		[]string{"method", "status"},
	)

	// RequestDuration records HTTP request duration in seconds.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gradiogate_request_duration_seconds",
			Help:    "Request duration",
			Buckets: BackendBuckets,
		},
		[]string{"method"},
	)

	// StreamingResponses tracks pseudo-streams being written.
	StreamingResponses = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "gradiogate_streaming_responses_active",
			Help: "Active streaming responses",
		},
	)

	// BackendCallsTotal counts backend invocations by model and outcome.
	BackendCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gradiogate_backend_calls_total",
			Help: "Backend calls",
		},
		[]string{"model", "outcome"},
	)

	// BackendLatency records backend call latency in seconds.
	BackendLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gradiogate_backend_latency_seconds",
			Help:    "Backend latency",
			Buckets: BackendBuckets,
		},
		[]string{"model"},
	)

	// AnonymousRetriesTotal counts credentialed failures retried anonymously.
	AnonymousRetriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gradiogate_anonymous_retries_total",
			Help: "Anonymous retries",
		},
		[]string{"model"},
	)

	// ConnectionCacheTotal counts connection cache lookups by result.
	ConnectionCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gradiogate_connection_cache_total",
			Help: "Connection cache lookups",
		},
		[]string{"result"},
	)
)

func init() {
	prometheus.MustRegister(
		RequestsTotal,
		RequestDuration,
		StreamingResponses,
		BackendCallsTotal,
		BackendLatency,
		AnonymousRetriesTotal,
		ConnectionCacheTotal,
	)
}

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Recorder feeds backend and cache telemetry into the collectors.
type Recorder struct{}

// ObserveBackendCall records one backend call.
func (Recorder) ObserveBackendCall(model, outcome string, elapsed time.Duration) {
	BackendCallsTotal.WithLabelValues(model, outcome).Inc()
	BackendLatency.WithLabelValues(model).Observe(elapsed.Seconds())
}

// ObserveAnonymousRetry records one anonymous retry.
func (Recorder) ObserveAnonymousRetry(model string) {
	AnonymousRetriesTotal.WithLabelValues(model).Inc()
}

// ObserveCacheLookup records one connection cache lookup.
func (Recorder) ObserveCacheLookup(result string) {
	ConnectionCacheTotal.WithLabelValues(result).Inc()
}

// StreamStarted increments the active stream gauge and returns the matching
// decrement.
func StreamStarted() func() {
	StreamingResponses.Inc()
	return StreamingResponses.Dec
}
