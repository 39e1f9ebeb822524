package refresh

import (
	"context"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-meet-client/internal/config"
	"github.com/jrsteele09/go-meet-client/internal/metrics"
	"github.com/jrsteele09/go-meet-client/sessions"
	"github.com/jrsteele09/go-meet-client/transport"
)

const refreshEndpoint = "refresh"

// Refresher renews the access cookie using the refresh cookie held in the
// client's jar. The token values are never read.
type Refresher struct {
	client  *transport.Client
	session *sessions.Manager
	logger  zerolog.Logger
	metrics *metrics.Metrics
}

type Option func(*Refresher)

func WithLogger(l zerolog.Logger) Option {
	return func(r *Refresher) { r.logger = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Refresher) { r.metrics = m }
}

// NewRefresher creates a refresher that clears session when the auth service
// rejects the refresh cookie.
func NewRefresher(client *transport.Client, session *sessions.Manager, opts ...Option) *Refresher {
	r := &Refresher{
		client:  client,
		session: session,
		logger:  log.Logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Refresh asks the auth service for a new access cookie.
//
// It returns true on a 2xx. When the response is an authentication rejection
// the local session is invalidated and it returns false with a nil error.
// Any other status is returned as *errors.ResponseError and transport
// failures as errors.ErrNetwork; in both cases the session is left alone.
func (r *Refresher) Refresh(ctx context.Context) (bool, error) {
	path, err := r.client.Registry().Endpoint(config.ServiceAuth, refreshEndpoint)
	if err != nil {
		return false, err
	}

	resp, err := r.client.Do(ctx, http.MethodPost, config.ServiceAuth, path, nil)
	if err != nil {
		r.metrics.ObserveRefresh(metrics.RefreshFailed)
		r.logger.Warn().Err(err).Msg("token refresh failed")
		return false, err
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode <= 299:
		resp.Body.Close()
		r.metrics.ObserveRefresh(metrics.RefreshOK)
		r.logger.Debug().Msg("access token refreshed")
		return true, nil

	case r.client.IsAuthRejection(resp.StatusCode):
		resp.Body.Close()
		r.metrics.ObserveRefresh(metrics.RefreshRejected)
		r.logger.Info().Int("status", resp.StatusCode).Msg("refresh rejected, clearing session")
		if err := r.session.Invalidate(); err != nil {
			return false, err
		}
		return false, nil

	default:
		r.metrics.ObserveRefresh(metrics.RefreshFailed)
		err := r.client.ResponseError(resp)
		r.logger.Warn().Err(err).Msg("token refresh failed")
		return false, err
	}
}
