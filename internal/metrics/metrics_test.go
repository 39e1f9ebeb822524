package metrics_test

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/go-meet-client/internal/metrics"
)

func TestObserveRequest(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	m.ObserveRequest("users", "GET", 200, 10*time.Millisecond)
	m.ObserveRequest("users", "GET", 200, 10*time.Millisecond)
	m.ObserveRequest("users", "GET", 0, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Requests.WithLabelValues("users", "GET", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Requests.WithLabelValues("users", "GET", "error")))

	n, err := testutil.GatherAndCount(reg, "meet_client_request_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *metrics.Metrics
	assert.NotPanics(t, func() {
		m.ObserveRequest("auth", "POST", 401, time.Millisecond)
		m.ObserveRefresh(metrics.RefreshRejected)
		m.ObserveCache(metrics.CacheHit)
	})
}
