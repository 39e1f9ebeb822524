// Package analytics wraps the analytics service: meeting transcripts and
// generated reports.
package analytics

import (
	"context"
	"net/http"
	"time"

	"github.com/jrsteele09/go-meet-client/internal/config"
	"github.com/jrsteele09/go-meet-client/internal/errors"
	"github.com/jrsteele09/go-meet-client/services"
	"github.com/jrsteele09/go-meet-client/transport"
)

const (
	transcriptsEndpoint = "transcripts"
	reportsEndpoint     = "reports"
)

// Report kinds understood by the analytics service.
const (
	ReportSummary     = "summary"
	ReportActionItems = "action_items"
)

type Segment struct {
	Speaker string  `json:"speaker"`
	Text    string  `json:"text"`
	Start   float64 `json:"start"` // seconds from the start of the recording
}

type Transcript struct {
	MeetingID string    `json:"meeting_id"`
	Text      string    `json:"text"`
	Segments  []Segment `json:"segments,omitempty"`
}

type Report struct {
	ID        string    `json:"id"`
	MeetingID string    `json:"meeting_id"`
	Kind      string    `json:"kind"`
	Summary   string    `json:"summary"`
	CreatedAt time.Time `json:"created_at"`
}

type Client struct {
	transport *transport.Client
}

func NewClient(t *transport.Client) *Client {
	return &Client{transport: t}
}

func (c *Client) Transcript(ctx context.Context, meetingID string) (*Transcript, error) {
	if meetingID == "" {
		return nil, errors.Errorf("meeting id is required")
	}
	base, err := c.transport.Registry().Endpoint(config.ServiceAnalytics, transcriptsEndpoint)
	if err != nil {
		return nil, err
	}
	path, err := services.Join(base, meetingID)
	if err != nil {
		return nil, err
	}
	var out Transcript
	if err := c.transport.JSON(ctx, http.MethodGet, config.ServiceAnalytics, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GenerateReport asks for a report of kind over the meeting's transcript.
func (c *Client) GenerateReport(ctx context.Context, meetingID, kind string) (*Report, error) {
	if meetingID == "" {
		return nil, errors.Errorf("meeting id is required")
	}
	if kind == "" {
		kind = ReportSummary
	}
	path, err := c.transport.Registry().Endpoint(config.ServiceAnalytics, reportsEndpoint)
	if err != nil {
		return nil, err
	}
	body := map[string]string{"meeting_id": meetingID, "kind": kind}
	var out Report
	if err := c.transport.JSON(ctx, http.MethodPost, config.ServiceAnalytics, path, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
