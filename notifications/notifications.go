// Package notifications wraps the notifications service.
package notifications

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/jrsteele09/go-meet-client/internal/config"
	"github.com/jrsteele09/go-meet-client/internal/errors"
	"github.com/jrsteele09/go-meet-client/services"
	"github.com/jrsteele09/go-meet-client/transport"
)

const (
	notificationsEndpoint = "notifications"
	settingsEndpoint      = "settings"
	readAllEndpoint       = "readAll"
	readSegment           = "read"
)

type Notification struct {
	ID        string    `json:"id"`
	Type      string    `json:"type,omitempty"`
	Message   string    `json:"message"`
	Read      bool      `json:"read"`
	MeetingID string    `json:"meeting_id,omitempty"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// Settings selects the delivery channels.
type Settings struct {
	Email bool `json:"email"`
	Push  bool `json:"push"`
}

type Client struct {
	transport *transport.Client
}

func NewClient(t *transport.Client) *Client {
	return &Client{transport: t}
}

// List returns the user's notifications, optionally only the unread ones.
func (c *Client) List(ctx context.Context, unreadOnly bool) ([]Notification, error) {
	path, err := c.endpoint(notificationsEndpoint)
	if err != nil {
		return nil, err
	}
	opts := transport.RequestOptions{Method: http.MethodGet}
	if unreadOnly {
		opts.Query = url.Values{"unread": {"true"}}
	}
	resp, err := c.transport.Request(ctx, config.ServiceNotifications, path, opts)
	if err != nil {
		return nil, err
	}
	var out []Notification
	if err := c.transport.Decode(resp, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) MarkRead(ctx context.Context, id string) (*Notification, error) {
	path, err := c.itemPath(id)
	if err != nil {
		return nil, err
	}
	path, err = services.Join(path, readSegment)
	if err != nil {
		return nil, err
	}
	var n Notification
	if err := c.transport.JSON(ctx, http.MethodPut, config.ServiceNotifications, path, nil, &n); err != nil {
		return nil, err
	}
	return &n, nil
}

func (c *Client) MarkAllRead(ctx context.Context) error {
	path, err := c.endpoint(readAllEndpoint)
	if err != nil {
		return err
	}
	return c.transport.JSON(ctx, http.MethodPut, config.ServiceNotifications, path, nil, nil)
}

func (c *Client) Delete(ctx context.Context, id string) error {
	path, err := c.itemPath(id)
	if err != nil {
		return err
	}
	return c.transport.JSON(ctx, http.MethodDelete, config.ServiceNotifications, path, nil, nil)
}

func (c *Client) Settings(ctx context.Context) (*Settings, error) {
	path, err := c.endpoint(settingsEndpoint)
	if err != nil {
		return nil, err
	}
	var s Settings
	if err := c.transport.JSON(ctx, http.MethodGet, config.ServiceNotifications, path, nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (c *Client) UpdateSettings(ctx context.Context, s Settings) (*Settings, error) {
	path, err := c.endpoint(settingsEndpoint)
	if err != nil {
		return nil, err
	}
	var out Settings
	if err := c.transport.JSON(ctx, http.MethodPut, config.ServiceNotifications, path, s, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) endpoint(key string) (string, error) {
	return c.transport.Registry().Endpoint(config.ServiceNotifications, key)
}

func (c *Client) itemPath(id string) (string, error) {
	if id == "" {
		return "", errors.Errorf("notification id is required")
	}
	base, err := c.endpoint(notificationsEndpoint)
	if err != nil {
		return "", err
	}
	return services.Join(base, id)
}
