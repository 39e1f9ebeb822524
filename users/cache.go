package users

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-meet-client/internal/config"
	"github.com/jrsteele09/go-meet-client/internal/metrics"
	"github.com/jrsteele09/go-meet-client/sessions"
	"github.com/jrsteele09/go-meet-client/transport"
)

const profileEndpoint = "profile"

// Cache keeps the current user's profile in the session tiers so it can be
// shown before the network answers.
//
// Concurrent fetches are last-write-wins unless WithDiscardStale is set, in
// which case a response is dropped if a fetch issued after it was already
// applied.
type Cache struct {
	client  *transport.Client
	session *sessions.Manager
	logger  zerolog.Logger
	metrics *metrics.Metrics

	discardStale bool

	mu      sync.Mutex
	issued  uint64
	applied uint64
}

type CacheOption func(*Cache)

// WithDiscardStale drops fetch responses that are older than the last applied one.
func WithDiscardStale() CacheOption {
	return func(c *Cache) { c.discardStale = true }
}

func WithCacheLogger(l zerolog.Logger) CacheOption {
	return func(c *Cache) { c.logger = l }
}

func WithCacheMetrics(m *metrics.Metrics) CacheOption {
	return func(c *Cache) { c.metrics = m }
}

// NewCache creates a profile cache stored in session's tiers.
func NewCache(client *transport.Client, session *sessions.Manager, opts ...CacheOption) *Cache {
	c := &Cache{
		client:  client,
		session: session,
		logger:  log.Logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetStored returns the cached profile without any network I/O.
func (c *Cache) GetStored() (*Profile, bool) {
	data, ok := c.session.Get(sessions.ProfileKey)
	if !ok {
		c.metrics.ObserveCache(metrics.CacheMiss)
		return nil, false
	}
	var p Profile
	if err := json.Unmarshal(data, &p); err != nil {
		c.logger.Warn().Err(err).Msg("discarding unreadable cached profile")
		c.metrics.ObserveCache(metrics.CacheMiss)
		return nil, false
	}
	c.metrics.ObserveCache(metrics.CacheHit)
	return &p, true
}

// FetchAndStore loads the profile from the users service and caches it.
//
// An authentication rejection invalidates the whole session. Any other
// failure leaves the cache as it was. In every failure case the result is
// absent.
func (c *Cache) FetchAndStore(ctx context.Context) (*Profile, bool) {
	generation := c.session.Generation()
	seq := c.nextSeq()

	path, err := c.client.Registry().Endpoint(config.ServiceUsers, profileEndpoint)
	if err != nil {
		c.logger.Error().Err(err).Msg("profile endpoint not configured")
		return nil, false
	}

	resp, err := c.client.Do(ctx, http.MethodGet, config.ServiceUsers, path, nil)
	if err != nil {
		c.logger.Warn().Err(err).Msg("profile fetch failed")
		return nil, false
	}
	if c.client.IsAuthRejection(resp.StatusCode) {
		resp.Body.Close()
		c.metrics.ObserveCache(metrics.CacheInvalidated)
		if err := c.session.Invalidate(); err != nil {
			c.logger.Error().Err(err).Msg("clearing rejected session failed")
		}
		return nil, false
	}

	var p Profile
	if err := c.client.Decode(resp, &p); err != nil {
		c.logger.Warn().Err(err).Msg("profile fetch failed")
		return nil, false
	}
	return c.store(generation, seq, &p)
}

// Store writes p to every tier, as if it had just been fetched.
func (c *Cache) Store(p *Profile) bool {
	_, ok := c.store(c.session.Generation(), c.nextSeq(), p)
	return ok
}

func (c *Cache) nextSeq() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.issued++
	return c.issued
}

func (c *Cache) store(generation, seq uint64, p *Profile) (*Profile, bool) {
	data, err := json.Marshal(p)
	if err != nil {
		c.logger.Error().Err(err).Msg("encode profile")
		return nil, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.discardStale && seq < c.applied {
		c.metrics.ObserveCache(metrics.CacheStale)
		c.logger.Debug().Uint64("seq", seq).Uint64("applied", c.applied).Msg("dropping stale profile response")
		data, ok := c.session.Get(sessions.ProfileKey)
		if !ok {
			return nil, false
		}
		var current Profile
		if err := json.Unmarshal(data, &current); err != nil {
			return nil, false
		}
		return &current, true
	}

	written, err := c.session.Put(generation, sessions.ProfileKey, data)
	if err != nil {
		c.logger.Error().Err(err).Msg("store profile")
		return nil, false
	}
	if !written {
		// The session ended while the request was in flight.
		c.metrics.ObserveCache(metrics.CacheStale)
		return nil, false
	}
	if seq > c.applied {
		c.applied = seq
	}
	c.metrics.ObserveCache(metrics.CacheStore)
	return p, true
}

// Use returns the stored profile immediately and refreshes it in the
// background. The refreshed profile is sent on updates only if it differs
// from initial. updates is closed when the refresh finishes or ctx ends.
func (c *Cache) Use(ctx context.Context) (initial *Profile, updates <-chan *Profile) {
	initial, _ = c.GetStored()
	ch := make(chan *Profile, 1)

	go func() {
		defer close(ch)
		current, ok := c.FetchAndStore(ctx)
		if !ok {
			current, _ = c.GetStored()
		}
		if current.Equal(initial) {
			return
		}
		select {
		case ch <- current:
		case <-ctx.Done():
		}
	}()

	return initial, ch
}
