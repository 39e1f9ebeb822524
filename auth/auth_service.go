package auth

import (
	"context"
	"net/http"
	"net/url"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-meet-client/internal/config"
	"github.com/jrsteele09/go-meet-client/internal/errors"
	"github.com/jrsteele09/go-meet-client/services"
	"github.com/jrsteele09/go-meet-client/sessions"
	"github.com/jrsteele09/go-meet-client/token/refresh"
	"github.com/jrsteele09/go-meet-client/transport"
	"github.com/jrsteele09/go-meet-client/users"
)

const (
	loginEndpoint    = "login"
	registerEndpoint = "register"
	logoutEndpoint   = "logout"
	ssoEndpoint      = "sso"

	defaultLoginPath = "/login"
)

// Service drives the auth service: login, registration, logout, SSO and
// recovery from an expired access cookie.
type Service struct {
	transport *transport.Client
	session   *sessions.Manager
	refresher *refresh.Refresher
	cache     *users.Cache
	validator *Validator
	loginPath string
	logger    zerolog.Logger
}

type Option func(*Service)

// WithProfileCache stores the profile returned by a successful login.
func WithProfileCache(c *users.Cache) Option {
	return func(s *Service) { s.cache = c }
}

// WithLoginPath sets the path reported in LoginRequiredError.
func WithLoginPath(path string) Option {
	return func(s *Service) {
		if path != "" {
			s.loginPath = path
		}
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// NewService creates an auth service client.
func NewService(t *transport.Client, session *sessions.Manager, refresher *refresh.Refresher, opts ...Option) (*Service, error) {
	if t == nil || session == nil || refresher == nil {
		return nil, errors.Errorf("transport, session and refresher are required")
	}
	s := &Service{
		transport: t,
		session:   session,
		refresher: refresher,
		validator: NewValidator(),
		loginPath: defaultLoginPath,
		logger:    log.Logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Login posts the credentials. On a 200 the auth service sets the session
// cookies and the local session marker is written.
func (s *Service) Login(ctx context.Context, creds Credentials) (*LoginResult, error) {
	if err := s.validator.ValidateCredentials(creds); err != nil {
		return nil, err
	}
	path, err := s.endpoint(loginEndpoint)
	if err != nil {
		return nil, err
	}

	resp, err := s.transport.Do(ctx, http.MethodPost, config.ServiceAuth, path, creds)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		err := s.transport.ResponseError(resp)
		s.logger.Info().Err(err).Str("username", creds.Username).Msg("login failed")
		return nil, err
	}

	var result LoginResult
	if err := s.transport.Decode(resp, &result); err != nil {
		return nil, err
	}
	if m, ok := s.session.Marker(); ok && m.Username != creds.Username {
		if err := s.session.Invalidate(); err != nil {
			return nil, errors.Wrap(err, "clear previous session")
		}
	}
	if err := s.session.MarkAuthenticated(creds.Username); err != nil {
		return nil, err
	}
	if result.User != nil && s.cache != nil {
		s.cache.Store(result.User)
	}
	s.logger.Info().Str("username", creds.Username).Msg("logged in")
	return &result, nil
}

// Register creates an account. It does not log the user in.
func (s *Service) Register(ctx context.Context, reg Registration) (string, error) {
	if err := s.validator.ValidateRegistration(reg); err != nil {
		return "", err
	}
	path, err := s.endpoint(registerEndpoint)
	if err != nil {
		return "", err
	}

	var out messageResponse
	if err := s.transport.JSON(ctx, http.MethodPost, config.ServiceAuth, path, reg, &out); err != nil {
		return "", err
	}
	s.logger.Info().Str("username", reg.Username).Msg("account registered")
	return out.Message, nil
}

// Logout asks the auth service to clear the session cookies. The local
// session is invalidated even when the call fails.
func (s *Service) Logout(ctx context.Context) error {
	var callErr error
	if path, err := s.endpoint(logoutEndpoint); err != nil {
		callErr = err
	} else {
		callErr = s.transport.JSON(ctx, http.MethodGet, config.ServiceAuth, path, nil, nil)
	}
	if callErr != nil {
		s.logger.Warn().Err(callErr).Msg("logout call failed, clearing local session anyway")
	}

	if err := s.session.Invalidate(); err != nil {
		return errors.Join(callErr, err)
	}
	return callErr
}

// SSOURL returns the address the user agent is sent to for single sign-on
// with provider. returnTo, if set, is where the auth service redirects after
// the provider answers.
func (s *Service) SSOURL(provider, returnTo string) (string, error) {
	if err := s.validator.ValidateProvider(provider); err != nil {
		return "", err
	}
	if err := s.validator.ValidateReturnTo(returnTo); err != nil {
		return "", err
	}
	path, err := s.endpoint(ssoEndpoint)
	if err != nil {
		return "", err
	}
	path, err = services.Join(path, provider)
	if err != nil {
		return "", err
	}
	u, err := s.transport.Registry().BuildURL(config.ServiceAuth, path)
	if err != nil {
		return "", err
	}
	if returnTo != "" {
		u += "?" + url.Values{ssoReturnToParam: {returnTo}}.Encode()
	}
	return u, nil
}

// Recover handles a response status from any service call.
//
// A status that is not an authentication rejection returns nil. Otherwise
// the session is refreshed: on success ErrRetry is returned and the caller
// decides whether to repeat the call. When the refresh is rejected the
// session has been cleared and the error is errors.ErrSessionExpired
// wrapping *LoginRequiredError.
func (s *Service) Recover(ctx context.Context, status int) error {
	if !s.transport.IsAuthRejection(status) {
		return nil
	}

	ok, err := s.refresher.Refresh(ctx)
	if err != nil {
		return err
	}
	if ok {
		return ErrRetry
	}
	s.logger.Info().Str("login_path", s.loginPath).Msg("session expired")
	return errors.Mark(errors.ErrSessionExpired, &LoginRequiredError{LoginPath: s.loginPath})
}

// Session returns the local session state.
func (s *Service) Session() *sessions.Manager {
	return s.session
}

func (s *Service) endpoint(key string) (string, error) {
	return s.transport.Registry().Endpoint(config.ServiceAuth, key)
}
