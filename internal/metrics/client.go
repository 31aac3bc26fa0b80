package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	upstreamRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "parking_upstream_requests_total",
		Help: "Upstream API requests by client, endpoint and HTTP status",
	}, []string{"client", "endpoint", "status"})

	upstreamRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "parking_upstream_request_duration_seconds",
		Help:    "Upstream API request latency by client and endpoint",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 20},
	}, []string{"client", "endpoint"})

	upstreamRetriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "parking_upstream_retries_total",
		Help: "Upstream API request retries by client and endpoint",
	}, []string{"client", "endpoint"})

	tokenRefreshTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "parking_ura_token_refresh_total",
		Help: "URA daily token refresh attempts by outcome",
	}, []string{"outcome"})
)

// ObserveUpstreamRequest records one upstream request with its HTTP
// status (0 for transport errors) and latency.
func ObserveUpstreamRequest(client, endpoint string, status int, d time.Duration) {
	upstreamRequestsTotal.WithLabelValues(client, endpoint, strconv.Itoa(status)).Inc()
	upstreamRequestDuration.WithLabelValues(client, endpoint).Observe(d.Seconds())
}

// RecordUpstreamRetry counts one retry attempt.
func RecordUpstreamRetry(client, endpoint string) {
	upstreamRetriesTotal.WithLabelValues(client, endpoint).Inc()
}

// RecordTokenRefresh counts one URA token refresh attempt.
func RecordTokenRefresh(err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	tokenRefreshTotal.WithLabelValues(outcome).Inc()
}
