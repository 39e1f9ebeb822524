package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/publicsuffix"

	"github.com/jrsteele09/go-meet-client/internal/errors"
	"github.com/jrsteele09/go-meet-client/internal/metrics"
	"github.com/jrsteele09/go-meet-client/services"
)

const (
	HeaderContentType = "Content-Type"
	HeaderAccept      = "Accept"
	HeaderOrigin      = "Origin"
	HeaderRequestID   = "X-Request-ID"

	ContentTypeJSON = "application/json"
)

// RequestOptions describes one outbound call. It is not retained after the call.
type RequestOptions struct {
	Method  string
	Headers map[string]string
	// Body is sent as-is when it is an io.Reader or []byte, and JSON encoded otherwise.
	Body  any
	Query url.Values
	// Timeout overrides the client default for this call. Zero keeps the default.
	Timeout time.Duration
}

// Client performs requests against the registered services with the shared
// conventions: JSON negotiation, a shared cookie jar sent on every request
// (credentialed, cross-origin), and diagnostic logging.
type Client struct {
	registry   services.Registry
	httpClient *http.Client
	timeout    time.Duration
	origin     string
	reject     map[int]struct{}
	logger     zerolog.Logger
	metrics    *metrics.Metrics
}

type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client. Its jar is kept if set,
// otherwise the client's own jar is attached.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		jar := c.httpClient.Jar
		cp := *hc
		if cp.Jar == nil {
			cp.Jar = jar
		}
		c.httpClient = &cp
	}
}

// WithJar shares a cookie jar between clients.
func WithJar(jar http.CookieJar) Option {
	return func(c *Client) { c.httpClient.Jar = jar }
}

// WithTimeout sets the default per-request timeout. Zero disables it.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithOrigin sets the Origin header sent on every request.
func WithOrigin(origin string) Option {
	return func(c *Client) { c.origin = origin }
}

// WithRejectStatuses sets the statuses treated as authentication rejection.
func WithRejectStatuses(statuses ...int) Option {
	return func(c *Client) {
		c.reject = make(map[int]struct{}, len(statuses))
		for _, s := range statuses {
			c.reject[s] = struct{}{}
		}
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// New creates a client over registry with its own cookie jar.
func New(registry services.Registry, opts ...Option) (*Client, error) {
	if registry == nil {
		return nil, errors.Errorf("service registry is required")
	}
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, errors.Wrap(err, "create cookie jar")
	}
	c := &Client{
		registry:   registry,
		httpClient: &http.Client{Jar: jar},
		reject:     map[int]struct{}{http.StatusUnauthorized: {}},
		logger:     log.Logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Registry returns the registry the client resolves against.
func (c *Client) Registry() services.Registry {
	return c.registry
}

// Jar returns the cookie jar holding the session cookies.
func (c *Client) Jar() http.CookieJar {
	return c.httpClient.Jar
}

// IsAuthRejection reports whether status means the session was rejected.
func (c *Client) IsAuthRejection(status int) bool {
	_, ok := c.reject[status]
	return ok
}

// HasCookie reports whether a cookie named name would be sent to service.
// The cookie value is never exposed.
func (c *Client) HasCookie(service, name string) bool {
	base, ok := c.registry.ResolveBaseURL(service)
	if !ok || c.httpClient.Jar == nil {
		return false
	}
	u, err := url.Parse(base + "/")
	if err != nil {
		return false
	}
	for _, ck := range c.httpClient.Jar.Cookies(u) {
		if ck.Name == name {
			return true
		}
	}
	return false
}

type serviceKey struct{}

// Request issues one request to service at endpointPath and returns the
// response unopened. A non-2xx status is not an error. Errors are returned
// only for unknown services, malformed requests and transport failures
// (errors.ErrNetwork, or errors.ErrTimeout when the timeout fires).
// The caller must close the response body.
func (c *Client) Request(ctx context.Context, service, endpointPath string, opts RequestOptions) (*http.Response, error) {
	target, err := c.registry.BuildURL(service, endpointPath)
	if err != nil {
		return nil, err
	}
	if len(opts.Query) > 0 {
		sep := "?"
		if strings.Contains(target, "?") {
			sep = "&"
		}
		target += sep + opts.Query.Encode()
	}

	method := opts.Method
	if method == "" {
		method = http.MethodGet
	}

	body, err := encodeBody(opts.Body)
	if err != nil {
		return nil, err
	}

	timeout := c.timeout
	if opts.Timeout > 0 {
		timeout = opts.Timeout
	}
	cancel := context.CancelFunc(func() {})
	reqCtx := context.WithValue(ctx, serviceKey{}, service)
	if timeout > 0 {
		reqCtx, cancel = context.WithTimeout(reqCtx, timeout)
	}

	req, err := http.NewRequestWithContext(reqCtx, method, target, body)
	if err != nil {
		cancel()
		return nil, errors.Wrapf(err, "build %s request", service)
	}
	req.Header.Set(HeaderContentType, ContentTypeJSON)
	req.Header.Set(HeaderAccept, ContentTypeJSON)
	req.Header.Set(HeaderRequestID, uuid.NewString())
	if c.origin != "" {
		req.Header.Set(HeaderOrigin, c.origin)
	}
	for k, v := range opts.Headers {
		req.Header.Set(k, v)
	}

	logURL := redactURL(req.URL)
	requestID := req.Header.Get(HeaderRequestID)
	c.logger.Debug().
		Str("service", service).
		Str("method", method).
		Str("url", logURL).
		Str("request_id", requestID).
		Bool("cookies", c.hasCookies(req.URL)).
		Msg("request start")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		timedOut := isNetTimeout(err) || errors.Is(err, context.DeadlineExceeded)
		cancel()
		c.metrics.ObserveRequest(service, method, 0, elapsed)
		c.logger.Error().Err(err).
			Str("service", service).
			Str("method", method).
			Str("url", logURL).
			Str("request_id", requestID).
			Dur("duration", elapsed).
			Bool("timeout", timedOut).
			Msg("request failed")
		if timedOut {
			return nil, errors.Mark(errors.ErrTimeout, err)
		}
		return nil, errors.Mark(errors.ErrNetwork, err)
	}
	resp.Body = &cancelOnClose{ReadCloser: resp.Body, cancel: cancel}

	c.metrics.ObserveRequest(service, method, resp.StatusCode, elapsed)
	event := c.logger.Info()
	if resp.StatusCode >= 400 {
		event = c.logger.Warn()
	}
	event.
		Str("service", service).
		Str("method", method).
		Str("url", logURL).
		Str("request_id", requestID).
		Int("status", resp.StatusCode).
		Dur("duration", elapsed).
		Dict("headers", headerDict(resp.Header)).
		Msg("request complete")

	return resp, nil
}

// Do is Request with only a method and body.
func (c *Client) Do(ctx context.Context, method, service, endpointPath string, body any) (*http.Response, error) {
	return c.Request(ctx, service, endpointPath, RequestOptions{Method: method, Body: body})
}

// JSON performs the request and decodes a 2xx body into out (which may be nil).
// Non-2xx responses become *errors.ResponseError.
func (c *Client) JSON(ctx context.Context, method, service, endpointPath string, body, out any) error {
	resp, err := c.Do(ctx, method, service, endpointPath, body)
	if err != nil {
		return err
	}
	return c.Decode(resp, out)
}

// Decode closes resp.Body. A 2xx body is decoded into out when out is non-nil
// and the body is not empty. Any other status is returned as *errors.ResponseError
// carrying the server-supplied message.
func (c *Client) Decode(resp *http.Response, out any) error {
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Mark(errors.ErrNetwork, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.responseError(resp, data)
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return errors.Mark(errors.ErrInvalidResponse, err)
	}
	return nil
}

// ResponseError builds the domain error for a non-2xx response and closes its body.
func (c *Client) ResponseError(resp *http.Response) error {
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	return c.responseError(resp, data)
}

func (c *Client) responseError(resp *http.Response, data []byte) *errors.ResponseError {
	var service string
	if resp.Request != nil {
		service, _ = resp.Request.Context().Value(serviceKey{}).(string)
	}
	return &errors.ResponseError{
		Service:       service,
		Status:        resp.StatusCode,
		Message:       serverMessage(data),
		Body:          data,
		AuthRejection: c.IsAuthRejection(resp.StatusCode),
	}
}

func (c *Client) hasCookies(u *url.URL) bool {
	return c.httpClient.Jar != nil && len(c.httpClient.Jar.Cookies(u)) > 0
}

// serverMessage pulls the human readable message out of an error body.
func serverMessage(data []byte) string {
	var body map[string]any
	if err := json.Unmarshal(data, &body); err != nil {
		return strings.TrimSpace(string(data))
	}
	for _, key := range []string{"message", "detail", "error"} {
		if s, ok := body[key].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

func encodeBody(body any) (io.Reader, error) {
	switch b := body.(type) {
	case nil:
		return nil, nil
	case io.Reader:
		return b, nil
	case []byte:
		return bytes.NewReader(b), nil
	default:
		data, err := json.Marshal(b)
		if err != nil {
			return nil, errors.Wrap(err, "encode request body")
		}
		return bytes.NewReader(data), nil
	}
}

func isNetTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// cancelOnClose releases the request timeout once the caller is done with the body.
type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (b *cancelOnClose) Close() error {
	err := b.ReadCloser.Close()
	b.cancel()
	return err
}
