package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "meet_client"

// Metrics holds the client-side collectors. A nil *Metrics records nothing.
type Metrics struct {
	Requests        *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	Refreshes       *prometheus.CounterVec
	ProfileCache    *prometheus.CounterVec
}

// New creates the collectors and registers them on reg. A nil reg leaves
// them unregistered.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Outbound requests by service, method and status. Status is \"error\" for transport failures.",
		}, []string{"service", "method", "status"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "Outbound request latency by service.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"service"}),
		Refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refresh_total",
			Help:      "Access token refresh attempts by outcome.",
		}, []string{"outcome"}),
		ProfileCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "profile_cache_total",
			Help:      "Profile cache reads and writes by result.",
		}, []string{"result"}),
	}
	if reg != nil {
		reg.MustRegister(m.Requests, m.RequestDuration, m.Refreshes, m.ProfileCache)
	}
	return m
}

// ObserveRequest records one finished request. status is 0 for transport failures.
func (m *Metrics) ObserveRequest(service, method string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	m.Requests.WithLabelValues(service, method, label).Inc()
	m.RequestDuration.WithLabelValues(service).Observe(elapsed.Seconds())
}

// Refresh outcomes.
const (
	RefreshOK       = "ok"
	RefreshRejected = "rejected"
	RefreshFailed   = "failed"
)

func (m *Metrics) ObserveRefresh(outcome string) {
	if m == nil {
		return
	}
	m.Refreshes.WithLabelValues(outcome).Inc()
}

// Profile cache results.
const (
	CacheHit         = "hit"
	CacheMiss        = "miss"
	CacheStore       = "store"
	CacheStale       = "stale"
	CacheInvalidated = "invalidated"
)

func (m *Metrics) ObserveCache(result string) {
	if m == nil {
		return
	}
	m.ProfileCache.WithLabelValues(result).Inc()
}
