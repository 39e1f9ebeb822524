package users

import (
	"context"
	"net/http"

	"github.com/jrsteele09/go-meet-client/internal/config"
	"github.com/jrsteele09/go-meet-client/internal/errors"
	"github.com/jrsteele09/go-meet-client/services"
	"github.com/jrsteele09/go-meet-client/transport"
)

const (
	editEndpoint   = "edit"
	lookupEndpoint = "lookup"
)

// Client calls the users service. Successful edits are written through to cache.
type Client struct {
	transport *transport.Client
	cache     *Cache
}

// NewClient creates a users service client. cache may be nil.
func NewClient(t *transport.Client, cache *Cache) *Client {
	return &Client{transport: t, cache: cache}
}

// Get fetches the current user's profile without touching the cache.
func (c *Client) Get(ctx context.Context) (*Profile, error) {
	path, err := c.transport.Registry().Endpoint(config.ServiceUsers, profileEndpoint)
	if err != nil {
		return nil, err
	}
	var p Profile
	if err := c.transport.JSON(ctx, http.MethodGet, config.ServiceUsers, path, nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

type editResponse struct {
	Message string   `json:"message"`
	User    *Profile `json:"user"`
}

// Update applies a partial edit and returns the profile the server now holds.
func (c *Client) Update(ctx context.Context, update ProfileUpdate) (*Profile, error) {
	if update.IsEmpty() {
		return nil, errors.Errorf("profile update has no fields")
	}
	path, err := c.transport.Registry().Endpoint(config.ServiceUsers, editEndpoint)
	if err != nil {
		return nil, err
	}

	var out editResponse
	if err := c.transport.JSON(ctx, http.MethodPut, config.ServiceUsers, path, update, &out); err != nil {
		return nil, err
	}
	if out.User == nil {
		// Older users-service builds answer with the message only.
		stored, ok := c.stored()
		if !ok {
			return nil, errors.Wrap(errors.ErrInvalidResponse, "edit response has no user")
		}
		applied := update.Apply(*stored)
		out.User = &applied
	}
	if c.cache != nil {
		c.cache.Store(out.User)
	}
	return out.User, nil
}

func (c *Client) stored() (*Profile, bool) {
	if c.cache == nil {
		return nil, false
	}
	return c.cache.GetStored()
}

// Lookup fetches another user's public profile.
func (c *Client) Lookup(ctx context.Context, username string) (*Profile, error) {
	if username == "" {
		return nil, errors.Errorf("username is required")
	}
	prefix, err := c.transport.Registry().Endpoint(config.ServiceUsers, lookupEndpoint)
	if err != nil {
		return nil, err
	}
	path, err := services.Join(prefix, username)
	if err != nil {
		return nil, err
	}
	var p Profile
	if err := c.transport.JSON(ctx, http.MethodGet, config.ServiceUsers, path, nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}
