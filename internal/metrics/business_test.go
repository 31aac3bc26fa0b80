package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
)

func findFamily(t *testing.T, name string) *dto.MetricFamily {
	t.Helper()
	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func TestRecordRefresh(t *testing.T) {
	success := refreshTotal.WithLabelValues("success")
	before := testutil.ToFloat64(success)

	RecordRefresh("success", 1500*time.Millisecond)

	require.Equal(t, before+1, testutil.ToFloat64(success))

	mf := findFamily(t, "parking_refresh_duration_seconds")
	require.NotNil(t, mf, "histogram family must be registered")
	require.NotEmpty(t, mf.GetMetric())
	require.GreaterOrEqual(t, mf.GetMetric()[0].GetHistogram().GetSampleCount(), uint64(1))

	require.Greater(t, testutil.ToFloat64(lastRefreshTimestamp), 0.0)
}

func TestRecordRefresh_FailureDoesNotTouchTimestamp(t *testing.T) {
	lastRefreshTimestamp.Set(0)
	RecordRefresh("failure", time.Second)
	require.Equal(t, 0.0, testutil.ToFloat64(lastRefreshTimestamp))
}

func TestSetLotsAvailable(t *testing.T) {
	SetLotsAvailable("URA", "Car", 123)
	g := lotsAvailable.WithLabelValues("URA", "Car")
	require.Equal(t, 123.0, testutil.ToFloat64(g))

	SetLotsAvailable("URA", "Car", 7)
	require.Equal(t, 7.0, testutil.ToFloat64(g))
}

func TestSetCircuitBreakerState(t *testing.T) {
	SetCircuitBreakerState("ura", "open")

	require.Equal(t, 1.0, testutil.ToFloat64(circuitBreakerState.WithLabelValues("ura", "open")))
	require.Equal(t, 0.0, testutil.ToFloat64(circuitBreakerState.WithLabelValues("ura", "closed")))
	require.Equal(t, 0.0, testutil.ToFloat64(circuitBreakerState.WithLabelValues("ura", "half-open")))

	SetCircuitBreakerState("ura", "closed")
	require.Equal(t, 1.0, testutil.ToFloat64(circuitBreakerState.WithLabelValues("ura", "closed")))
	require.Equal(t, 0.0, testutil.ToFloat64(circuitBreakerState.WithLabelValues("ura", "open")))
}

func TestObserveUpstreamRequest(t *testing.T) {
	c := upstreamRequestsTotal.WithLabelValues("datamall", "carpark_availability", "200")
	before := testutil.ToFloat64(c)

	ObserveUpstreamRequest("datamall", "carpark_availability", 200, 120*time.Millisecond)

	require.Equal(t, before+1, testutil.ToFloat64(c))
}

func TestRecordOutcomeHelpers(t *testing.T) {
	okExports := exportWritesTotal.WithLabelValues("csv", "success")
	errExports := exportWritesTotal.WithLabelValues("csv", "error")
	okBefore, errBefore := testutil.ToFloat64(okExports), testutil.ToFloat64(errExports)

	RecordExport("csv", nil)
	RecordExport("csv", context.DeadlineExceeded)

	require.Equal(t, okBefore+1, testutil.ToFloat64(okExports))
	require.Equal(t, errBefore+1, testutil.ToFloat64(errExports))
}
