// Package meetings wraps the meetings service: scheduling, search and notes.
package meetings

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
	meetingsEndpoint = "meetings"
	searchEndpoint   = "search"
	notesSegment     = "notes"
)

type Meeting struct {
	ID           string    `json:"id,omitempty"`
	Title        string    `json:"title"`
	Description  string    `json:"description,omitempty"`
	StartTime    time.Time `json:"start_time"`
	EndTime      time.Time `json:"end_time"`
	Organizer    string    `json:"organizer,omitempty"`
	Participants []string  `json:"participants,omitempty"`
	Link         string    `json:"link,omitempty"`
}

// Duration is zero when either end of the meeting is unset.
func (m Meeting) Duration() time.Duration {
	if m.StartTime.IsZero() || m.EndTime.IsZero() {
		return 0
	}
	return m.EndTime.Sub(m.StartTime)
}

type Note struct {
	MeetingID string `json:"meeting_id,omitempty"`
	Content   string `json:"content"`
}

// SearchQuery filters meetings by title text and an optional time window.
type SearchQuery struct {
	Text string
	From time.Time
	To   time.Time
}

func (q SearchQuery) values() url.Values {
	v := url.Values{}
	if q.Text != "" {
		v.Set("q", q.Text)
	}
	if !q.From.IsZero() {
		v.Set("from", q.From.UTC().Format(time.RFC3339))
	}
	if !q.To.IsZero() {
		v.Set("to", q.To.UTC().Format(time.RFC3339))
	}
	return v
}

type Client struct {
	transport *transport.Client
}

func NewClient(t *transport.Client) *Client {
	return &Client{transport: t}
}

// List returns the meetings organised by the current user.
func (c *Client) List(ctx context.Context) ([]Meeting, error) {
	path, err := c.endpoint(meetingsEndpoint)
	if err != nil {
		return nil, err
	}
	var out []Meeting
	if err := c.transport.JSON(ctx, http.MethodGet, config.ServiceMeetings, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Get(ctx context.Context, id string) (*Meeting, error) {
	path, err := c.meetingPath(id)
	if err != nil {
		return nil, err
	}
	var m Meeting
	if err := c.transport.JSON(ctx, http.MethodGet, config.ServiceMeetings, path, nil, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func (c *Client) Create(ctx context.Context, m Meeting) (*Meeting, error) {
	if m.Title == "" {
		return nil, errors.Errorf("meeting title is required")
	}
	if !m.EndTime.IsZero() && m.EndTime.Before(m.StartTime) {
		return nil, errors.Errorf("meeting ends before it starts")
	}
	path, err := c.endpoint(meetingsEndpoint)
	if err != nil {
		return nil, err
	}
	var out Meeting
	if err := c.transport.JSON(ctx, http.MethodPost, config.ServiceMeetings, path, m, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Update(ctx context.Context, m Meeting) (*Meeting, error) {
	path, err := c.meetingPath(m.ID)
	if err != nil {
		return nil, err
	}
	var out Meeting
	if err := c.transport.JSON(ctx, http.MethodPut, config.ServiceMeetings, path, m, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Delete(ctx context.Context, id string) error {
	path, err := c.meetingPath(id)
	if err != nil {
		return err
	}
	return c.transport.JSON(ctx, http.MethodDelete, config.ServiceMeetings, path, nil, nil)
}

func (c *Client) Search(ctx context.Context, q SearchQuery) ([]Meeting, error) {
	path, err := c.endpoint(searchEndpoint)
	if err != nil {
		return nil, err
	}
	resp, err := c.transport.Request(ctx, config.ServiceMeetings, path, transport.RequestOptions{
		Method: http.MethodGet,
		Query:  q.values(),
	})
	if err != nil {
		return nil, err
	}
	var out []Meeting
	if err := c.transport.Decode(resp, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Notes returns the meeting's notes. A meeting without notes has empty content.
func (c *Client) Notes(ctx context.Context, id string) (*Note, error) {
	path, err := c.notesPath(id)
	if err != nil {
		return nil, err
	}
	var n Note
	if err := c.transport.JSON(ctx, http.MethodGet, config.ServiceMeetings, path, nil, &n); err != nil {
		return nil, err
	}
	return &n, nil
}

// SaveNotes replaces the meeting's notes.
func (c *Client) SaveNotes(ctx context.Context, id string, note Note) (*Note, error) {
	path, err := c.notesPath(id)
	if err != nil {
		return nil, err
	}
	var out Note
	if err := c.transport.JSON(ctx, http.MethodPut, config.ServiceMeetings, path, note, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) endpoint(key string) (string, error) {
	return c.transport.Registry().Endpoint(config.ServiceMeetings, key)
}

func (c *Client) meetingPath(id string) (string, error) {
	if id == "" {
		return "", errors.Errorf("meeting id is required")
	}
	base, err := c.endpoint(meetingsEndpoint)
	if err != nil {
		return "", err
	}
	return services.Join(base, id)
}

func (c *Client) notesPath(id string) (string, error) {
	path, err := c.meetingPath(id)
	if err != nil {
		return "", err
	}
	return services.Join(path, notesSegment)
}
