// Package metrics exposes Prometheus collectors for the discovery service.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	providerCallsTotal          *prometheus.CounterVec
	providerCallDurationSeconds *prometheus.HistogramVec
	httpRequestsTotal           *prometheus.CounterVec
	httpRequestDurationSeconds  *prometheus.HistogramVec
	dedupResolutionsTotal       *prometheus.CounterVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		providerCallsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "discovery_provider_calls_total",
				Help: "Total provider API calls, labeled by provider, operation, and outcome.",
			},
			[]string{"provider", "op", "outcome"},
		)

		providerCallDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "discovery_provider_call_duration_seconds",
				Help:    "Histogram of provider API call latencies, labeled by provider and operation.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
			},
			[]string{"provider", "op"},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)

		dedupResolutionsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "discovery_dedup_resolutions_total",
				Help: "Total candidate resolutions, labeled by action.",
			},
			[]string{"action"},
		)
	})
}

// ObserveProviderCall records one provider API call.
func ObserveProviderCall(provider, op string, err error, duration time.Duration) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	providerCallsTotal.WithLabelValues(provider, op, outcome).Inc()
	providerCallDurationSeconds.WithLabelValues(provider, op).Observe(duration.Seconds())
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}

// ObserveResolution increments the dedup resolution counter for one action.
func ObserveResolution(action string) {
	dedupResolutionsTotal.WithLabelValues(action).Inc()
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}
