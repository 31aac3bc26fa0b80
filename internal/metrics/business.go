// Package metrics exposes the Prometheus collectors shared across the
// service. Collectors are registered at import via promauto and written
// through small helper functions so call sites stay terse.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Refresh pipeline metrics
	refreshTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "parking_refresh_total",
		Help: "Total number of refresh cycles by outcome",
	}, []string{"outcome"}) // outcome=success|partial|failure

	refreshDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "parking_refresh_duration_seconds",
		Help:    "Time spent running one full refresh cycle",
		Buckets: prometheus.DefBuckets,
	})

	lastRefreshTimestamp = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "parking_last_refresh_timestamp_seconds",
		Help: "Unix timestamp of the last successful refresh",
	})

	refreshFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "parking_refresh_failures_total",
		Help: "Total number of refresh failures by stage",
	}, []string{"stage"}) // stage=ura_availability|ura_details|datamall|cache|store|export|feed

	// Data metrics
	lotsAvailable = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "parking_lots_available",
		Help: "Available lots summed per agency and lot type (last refresh)",
	}, []string{"agency", "lot_type"})

	recordsFetched = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "parking_records_fetched",
		Help: "Number of records fetched per source (last refresh)",
	}, []string{"source"})

	// Cache metrics
	cacheOperationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "parking_cache_operations_total",
		Help: "Cache operations by type and outcome",
	}, []string{"op", "outcome"}) // op=get|set, outcome=hit|miss|success|error

	// Artifact metrics
	exportWritesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "parking_export_writes_total",
		Help: "Snapshot artifact writes by format and outcome",
	}, []string{"format", "outcome"}) // format=json|csv

	// Feed metrics
	feedPublishTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "parking_feed_publish_total",
		Help: "Refresh feed publish attempts by outcome",
	}, []string{"outcome"})
)

// RecordRefresh records the outcome and duration of one refresh cycle.
func RecordRefresh(outcome string, d time.Duration) {
	refreshTotal.WithLabelValues(outcome).Inc()
	refreshDurationSeconds.Observe(d.Seconds())
	if outcome != "failure" {
		lastRefreshTimestamp.SetToCurrentTime()
	}
}

// RecordRefreshFailure increments the failure counter for a stage.
func RecordRefreshFailure(stage string) {
	refreshFailuresTotal.WithLabelValues(stage).Inc()
}

// SetLotsAvailable records the summed availability per agency and lot type.
func SetLotsAvailable(agency, lotType string, n int) {
	lotsAvailable.WithLabelValues(agency, lotType).Set(float64(n))
}

// SetRecordsFetched records how many rows a source returned.
func SetRecordsFetched(source string, n int) {
	recordsFetched.WithLabelValues(source).Set(float64(n))
}

// RecordCacheOp counts one cache operation.
func RecordCacheOp(op, outcome string) {
	cacheOperationsTotal.WithLabelValues(op, outcome).Inc()
}

// RecordExport counts one artifact write.
func RecordExport(format string, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	exportWritesTotal.WithLabelValues(format, outcome).Inc()
}

// RecordFeedPublish counts one feed publish attempt.
func RecordFeedPublish(err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	feedPublishTotal.WithLabelValues(outcome).Inc()
}
