// Package metrics exposes prometheus instrumentation for proxied requests.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// RequestMetrics tracks proxied request outcomes.
//
// Metrics:
//   - ccg_requests_total: request count by provider, CLI type, status class
//   - ccg_request_duration_seconds: request duration histogram
//   - ccg_request_tokens_total: token counts by provider, CLI type, direction
type RequestMetrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	tokensTotal     *prometheus.CounterVec
}

// NewRequestMetrics creates and registers request metrics with the
// provided registry.
func NewRequestMetrics(registry *prometheus.Registry) *RequestMetrics {
	rm := &RequestMetrics{
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "ccg",
				Name:      "requests_total",
				Help:      "Total number of proxied requests",
			},
			[]string{"provider", "cli_type", "status"},
		),

		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "ccg",
				Name:      "request_duration_seconds",
				Help:      "Duration of proxied requests in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12), // 50ms to ~100s
			},
			[]string{"provider", "cli_type"},
		),

		tokensTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "ccg",
				Name:      "request_tokens_total",
				Help:      "Total number of tokens observed in upstream responses",
			},
			[]string{"provider", "cli_type", "direction"},
		),
	}

	registry.MustRegister(rm.requestsTotal, rm.requestDuration, rm.tokensTotal)

	return rm
}

// RecordRequest records one terminated request. status is a class label:
// "success", "http_error", "upstream_error", "timeout", or "no_provider".
func (rm *RequestMetrics) RecordRequest(provider, cliType, status string, duration time.Duration, inputTokens, outputTokens int64) {
	if provider == "" {
		provider = "none"
	}

	rm.requestsTotal.WithLabelValues(provider, cliType, status).Inc()
	rm.requestDuration.WithLabelValues(provider, cliType).Observe(duration.Seconds())

	if inputTokens > 0 {
		rm.tokensTotal.WithLabelValues(provider, cliType, "input").Add(float64(inputTokens))
	}
	if outputTokens > 0 {
		rm.tokensTotal.WithLabelValues(provider, cliType, "output").Add(float64(outputTokens))
	}
}
