package refresh_test

import (
	"context"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/go-meet-client/internal/errors"
	"github.com/jrsteele09/go-meet-client/internal/fakebackend"
	"github.com/jrsteele09/go-meet-client/internal/metrics"
	"github.com/jrsteele09/go-meet-client/sessions"
	"github.com/jrsteele09/go-meet-client/token/refresh"
	"github.com/jrsteele09/go-meet-client/transport"
)

type testFixture struct {
	backend   *fakebackend.Backend
	client    *transport.Client
	session   *sessions.Manager
	metrics   *metrics.Metrics
	refresher *refresh.Refresher
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()

	fb := fakebackend.New(t)
	fb.AddUser("ada", "s3cret", map[string]any{"name": "Ada"})

	client, err := transport.New(fb.Registry())
	require.NoError(t, err)
	session := sessions.NewManager()
	m := metrics.New(prometheus.NewRegistry())

	return &testFixture{
		backend:   fb,
		client:    client,
		session:   session,
		metrics:   m,
		refresher: refresh.NewRefresher(client, session, refresh.WithMetrics(m)),
	}
}

func (f *testFixture) login(t *testing.T) {
	t.Helper()
	err := f.client.JSON(context.Background(), http.MethodPost, "auth", "/login",
		map[string]string{"username": "ada", "password": "s3cret"}, nil)
	require.NoError(t, err)
	require.NoError(t, f.session.MarkAuthenticated("ada"))
	_, err = f.session.Put(f.session.Generation(), sessions.ProfileKey, []byte(`{"username":"ada"}`))
	require.NoError(t, err)
}

func TestRefreshRenewsAccessCookie(t *testing.T) {
	f := setupTestFixture(t)
	f.login(t)

	f.backend.ExpireAccessTokens()
	resp, err := f.client.Do(context.Background(), http.MethodGet, "users", "/profile", nil)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	ok, err := f.refresher.Refresh(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, f.session.IsAuthenticated())

	resp, err = f.client.Do(context.Background(), http.MethodGet, "users", "/profile", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Refreshes.WithLabelValues(metrics.RefreshOK)))
}

func TestRejectedRefreshClearsSession(t *testing.T) {
	f := setupTestFixture(t)
	f.login(t)
	f.backend.SetRefreshRejected(true)

	ok, err := f.refresher.Refresh(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)

	assert.False(t, f.session.IsAuthenticated())
	_, cached := f.session.Get(sessions.ProfileKey)
	assert.False(t, cached)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Refreshes.WithLabelValues(metrics.RefreshRejected)))
}

func TestRefreshDomainErrorKeepsSession(t *testing.T) {
	f := setupTestFixture(t)
	f.login(t)
	f.backend.SetStatus(fakebackend.RouteRefresh, http.StatusBadRequest)

	ok, err := f.refresher.Refresh(context.Background())
	assert.False(t, ok)
	re, isResponse := errors.AsResponse(err)
	require.True(t, isResponse)
	assert.Equal(t, http.StatusBadRequest, re.Status)
	assert.True(t, f.session.IsAuthenticated())
}

func TestRefreshNetworkFailureKeepsSession(t *testing.T) {
	f := setupTestFixture(t)
	f.login(t)
	f.backend.Server.Close()

	ok, err := f.refresher.Refresh(context.Background())
	assert.False(t, ok)
	assert.ErrorIs(t, err, errors.ErrNetwork)
	assert.True(t, f.session.IsAuthenticated())
}

func TestKeeperTriggerReportsExpiry(t *testing.T) {
	f := setupTestFixture(t)
	f.login(t)

	k := refresh.NewKeeper(f.refresher, f.session, time.Minute)
	var expired atomic.Int32
	k.OnExpired(func() { expired.Add(1) })

	require.NoError(t, k.Trigger(context.Background()))
	assert.Zero(t, expired.Load())

	f.backend.SetRefreshRejected(true)
	err := k.Trigger(context.Background())
	assert.ErrorIs(t, err, errors.ErrSessionExpired)
	assert.Equal(t, int32(1), expired.Load())
}

func TestKeeperTriggerSkipsWhileInFlight(t *testing.T) {
	f := setupTestFixture(t)
	f.login(t)
	f.backend.SetDelay(fakebackend.RouteRefresh, func(int) time.Duration { return 300 * time.Millisecond })

	k := refresh.NewKeeper(f.refresher, f.session, time.Minute)
	done := make(chan error, 1)
	go func() { done <- k.Trigger(context.Background()) }()

	require.Eventually(t, func() bool { return f.backend.Calls(fakebackend.RouteRefresh) == 1 }, time.Second, 5*time.Millisecond)
	assert.ErrorIs(t, k.Trigger(context.Background()), refresh.ErrInFlight)
	require.NoError(t, <-done)
}

func TestKeeperRefreshesOnSchedule(t *testing.T) {
	f := setupTestFixture(t)
	f.login(t)

	k := refresh.NewKeeper(f.refresher, f.session, time.Second)
	require.NoError(t, k.Start())
	t.Cleanup(k.Stop)

	require.Eventually(t, func() bool {
		return f.backend.Calls(fakebackend.RouteRefresh) >= 1
	}, 3*time.Second, 50*time.Millisecond)
}

func TestKeeperSkipsScheduledRefreshWithoutSession(t *testing.T) {
	f := setupTestFixture(t)

	k := refresh.NewKeeper(f.refresher, f.session, time.Second)
	require.NoError(t, k.Start())
	time.Sleep(1500 * time.Millisecond)
	k.Stop()

	assert.Zero(t, f.backend.Calls(fakebackend.RouteRefresh))
}

func TestKeeperCanStopFromOnExpired(t *testing.T) {
	f := setupTestFixture(t)
	f.login(t)
	f.backend.SetRefreshRejected(true)

	k := refresh.NewKeeper(f.refresher, f.session, time.Second)
	stopped := make(chan struct{})
	k.OnExpired(func() {
		k.Stop()
		close(stopped)
	})
	require.NoError(t, k.Start())
	t.Cleanup(k.Stop)

	select {
	case <-stopped:
	case <-time.After(4 * time.Second):
		t.Fatal("Stop called from OnExpired did not return")
	}
	assert.False(t, f.session.IsAuthenticated())
}
