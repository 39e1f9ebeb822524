// Package fakebackend runs an in-process stand-in for the meeting platform's
// auth, users, meetings, notifications and analytics services. Tests point a
// services.Registry at it and script failures through its setters.
package fakebackend

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/jrsteele09/go-meet-client/internal/config"
	"github.com/jrsteele09/go-meet-client/services"
)

const (
	AccessCookie  = "access_token"
	RefreshCookie = "refresh_token"
)

// Route names accepted by SetStatus and SetDelay.
const (
	RouteLogin         = "login"
	RouteRegister      = "register"
	RouteRefresh       = "refresh"
	RouteLogout        = "logout"
	RouteProfile       = "profile"
	RouteEdit          = "edit"
	RouteLookup        = "lookup"
	RouteMeetings      = "meetings"
	RouteNotifications = "notifications"
	RouteAnalytics     = "analytics"
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

// RecordedRequest is what the backend saw for one request.
type RecordedRequest struct {
	Route  string
	Method string
	Path   string
	Query  url.Values
	Header http.Header
	Body   []byte
}

type account struct {
	passwordHash string
	profile      map[string]any
}

// Backend is a scripted fake of every backend service on one httptest server.
type Backend struct {
	Server *httptest.Server

	t  testing.TB
	mu            sync.Mutex
	secret        []byte
	accessTTL     time.Duration
	accounts      map[string]*account
	refreshTokens map[string]string // token -> username
	meetings      map[string]map[string]any
	notes         map[string]map[string]any
	notifications map[string]map[string]any
	settings      map[string]any
	transcripts   map[string]map[string]any

	rejectRefresh  bool
	loginOmitsUser bool
	statuses      map[string]int
	delays        map[string]func(call int) time.Duration
	calls         map[string]int
	requests      []RecordedRequest
}

// New starts a backend that is closed when the test ends.
func New(t testing.TB) *Backend {
	t.Helper()
	b := &Backend{
		t:      t,
		secret:        []byte(uuid.NewString()),
		accessTTL:     15 * time.Minute,
		accounts:      make(map[string]*account),
		refreshTokens: make(map[string]string),
		meetings:      make(map[string]map[string]any),
		notes:         make(map[string]map[string]any),
		notifications: make(map[string]map[string]any),
		settings:      map[string]any{"email": true, "push": false},
		transcripts:   make(map[string]map[string]any),
		statuses:      make(map[string]int),
		delays:        make(map[string]func(int) time.Duration),
		calls:         make(map[string]int),
	}
	b.Server = httptest.NewServer(b.routes())
	t.Cleanup(b.Server.Close)
	return b
}

// Registry resolves every default service key to this backend, keeping the
// default endpoint paths.
func (b *Backend) Registry() services.Registry {
	return services.FromConfig(b.Config())
}

// Config returns default settings with every service pointed at the backend.
func (b *Backend) Config() *config.Settings {
	cfg := config.Defaults()
	for name, svc := range cfg.Services {
		u, err := url.Parse(svc.BaseURL)
		if err == nil {
			svc.BaseURL = b.Server.URL + u.Path
		}
		cfg.Services[name] = svc
	}
	return cfg
}

// AddUser registers an account with a bcrypt-hashed password and a profile.
func (b *Backend) AddUser(username, password string, profile map[string]any) {
	b.t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		b.t.Fatalf("hash password for %s: %v", username, err)
		return
	}
	p := map[string]any{"username": username}
	for k, v := range profile {
		p[k] = v
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.accounts[username] = &account{passwordHash: string(hash), profile: p}
}

// SetProfileField changes the server-side profile of username.
func (b *Backend) SetProfileField(username, field string, value any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if a, ok := b.accounts[username]; ok {
		a.profile[field] = value
	}
}

// SetLoginOmitsUser makes a successful login answer with the message only.
func (b *Backend) SetLoginOmitsUser(omit bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.loginOmitsUser = omit
}

// SetRefreshRejected makes the refresh endpoint reject every token.
func (b *Backend) SetRefreshRejected(rejected bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rejectRefresh = rejected
}

// SetStatus forces route to answer with status and a message body. Zero clears it.
func (b *Backend) SetStatus(route string, status int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if status == 0 {
		delete(b.statuses, route)
		return
	}
	b.statuses[route] = status
}

// SetDelay delays the n-th call (starting at 1) to route by fn(n).
func (b *Backend) SetDelay(route string, fn func(call int) time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.delays[route] = fn
}

// ExpireAccessTokens invalidates every issued access cookie. Refresh tokens stay valid.
func (b *Backend) ExpireAccessTokens() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.secret = []byte(uuid.NewString())
}

// Calls returns how many requests route has received.
func (b *Backend) Calls(route string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[route]
}

// Requests returns a copy of every recorded request.
func (b *Backend) Requests() []RecordedRequest {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]RecordedRequest, len(b.requests))
	copy(out, b.requests)
	return out
}

// LastRequest returns the most recent request to route.
func (b *Backend) LastRequest(route string) (RecordedRequest, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := len(b.requests) - 1; i >= 0; i-- {
		if b.requests[i].Route == route {
			return b.requests[i], true
		}
	}
	return RecordedRequest{}, false
}

// AddTranscript stores a transcript for meetingID.
func (b *Backend) AddTranscript(meetingID string, transcript map[string]any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	transcript["meeting_id"] = meetingID
	b.transcripts[meetingID] = transcript
}

// AddNotification stores a notification and returns its id.
func (b *Backend) AddNotification(n map[string]any) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := uuid.NewString()
	n["id"] = id
	if _, ok := n["read"]; !ok {
		n["read"] = false
	}
	b.notifications[id] = n
	return id
}

func (b *Backend) issueAccess(w http.ResponseWriter, username string) error {
	now := NowTimeFunc()
	token := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, jwtlib.MapClaims{
		"sub": username,
		"iat": now.Unix(),
		"exp": now.Add(b.accessTTL).Unix(),
		"jti": uuid.NewString(),
	})
	signed, err := token.SignedString(b.secret)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{Name: AccessCookie, Value: signed, Path: "/", HttpOnly: true, SameSite: http.SameSiteNoneMode})
	return nil
}

func (b *Backend) issueRefresh(w http.ResponseWriter, username string) {
	token := uuid.NewString()
	b.refreshTokens[token] = username
	http.SetCookie(w, &http.Cookie{Name: RefreshCookie, Value: token, Path: "/", HttpOnly: true, SameSite: http.SameSiteNoneMode})
}

func clearCookies(w http.ResponseWriter) {
	for _, name := range []string{AccessCookie, RefreshCookie} {
		http.SetCookie(w, &http.Cookie{Name: name, Value: "", Path: "/", MaxAge: -1})
	}
}

// authenticate returns the username bound to the request's access cookie.
// Callers hold b.mu.
func (b *Backend) authenticate(r *http.Request) (string, bool) {
	c, err := r.Cookie(AccessCookie)
	if err != nil {
		return "", false
	}
	token, err := jwtlib.Parse(c.Value, func(t *jwtlib.Token) (interface{}, error) {
		return b.secret, nil
	}, jwtlib.WithValidMethods([]string{jwtlib.SigningMethodHS256.Alg()}), jwtlib.WithTimeFunc(NowTimeFunc))
	if err != nil || !token.Valid {
		return "", false
	}
	sub, err := token.Claims.GetSubject()
	if err != nil || sub == "" {
		return "", false
	}
	if _, ok := b.accounts[sub]; !ok {
		return "", false
	}
	return sub, true
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		_ = json.NewEncoder(w).Encode(body)
	}
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"message": msg})
}
