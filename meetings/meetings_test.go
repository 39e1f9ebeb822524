package meetings_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/go-meet-client/internal/errors"
	"github.com/jrsteele09/go-meet-client/internal/fakebackend"
	"github.com/jrsteele09/go-meet-client/meetings"
	"github.com/jrsteele09/go-meet-client/transport"
)

func setupTestFixture(t *testing.T) (*fakebackend.Backend, *meetings.Client) {
	t.Helper()
	fb := fakebackend.New(t)
	fb.AddUser("ada", "s3cret", nil)

	tc, err := transport.New(fb.Registry())
	require.NoError(t, err)
	err = tc.JSON(context.Background(), http.MethodPost, "auth", "/login",
		map[string]string{"username": "ada", "password": "s3cret"}, nil)
	require.NoError(t, err)
	return fb, meetings.NewClient(tc)
}

func TestMeetingLifecycle(t *testing.T) {
	_, c := setupTestFixture(t)
	ctx := context.Background()
	start := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)

	created, err := c.Create(ctx, meetings.Meeting{
		Title:        "Weekly sync",
		StartTime:    start,
		EndTime:      start.Add(30 * time.Minute),
		Participants: []string{"grace"},
	})
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)
	assert.Equal(t, "ada", created.Organizer)
	assert.Equal(t, 30*time.Minute, created.Duration())

	got, err := c.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, start.Equal(got.StartTime))

	got.Title = "Weekly sync (moved)"
	updated, err := c.Update(ctx, *got)
	require.NoError(t, err)
	assert.Equal(t, "Weekly sync (moved)", updated.Title)

	list, err := c.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)

	require.NoError(t, c.Delete(ctx, created.ID))
	_, err = c.Get(ctx, created.ID)
	assert.ErrorIs(t, err, errors.ErrNotFound)
}

func TestCreateValidates(t *testing.T) {
	fb, c := setupTestFixture(t)
	start := time.Now()

	_, err := c.Create(context.Background(), meetings.Meeting{})
	require.Error(t, err)
	_, err = c.Create(context.Background(), meetings.Meeting{Title: "x", StartTime: start, EndTime: start.Add(-time.Hour)})
	require.Error(t, err)
	assert.Zero(t, fb.Calls(fakebackend.RouteMeetings))
}

func TestSearchSendsQuery(t *testing.T) {
	fb, c := setupTestFixture(t)
	ctx := context.Background()
	for _, title := range []string{"Design review", "1:1", "Review retro"} {
		_, err := c.Create(ctx, meetings.Meeting{Title: title})
		require.NoError(t, err)
	}

	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	found, err := c.Search(ctx, meetings.SearchQuery{Text: "review", From: from})
	require.NoError(t, err)
	assert.Len(t, found, 2)

	req, ok := fb.LastRequest(fakebackend.RouteMeetings)
	require.True(t, ok)
	assert.Equal(t, "/api/meetings/search", req.Path)
	assert.Equal(t, "review", req.Query.Get("q"))
	assert.Equal(t, "2026-01-01T00:00:00Z", req.Query.Get("from"))
	assert.Empty(t, req.Query.Get("to"))
}

func TestNotes(t *testing.T) {
	_, c := setupTestFixture(t)
	ctx := context.Background()
	m, err := c.Create(ctx, meetings.Meeting{Title: "Planning"})
	require.NoError(t, err)

	empty, err := c.Notes(ctx, m.ID)
	require.NoError(t, err)
	assert.Empty(t, empty.Content)

	saved, err := c.SaveNotes(ctx, m.ID, meetings.Note{Content: "ship it"})
	require.NoError(t, err)
	assert.Equal(t, m.ID, saved.MeetingID)

	got, err := c.Notes(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, "ship it", got.Content)

	_, err = c.SaveNotes(ctx, "missing", meetings.Note{Content: "x"})
	assert.ErrorIs(t, err, errors.ErrNotFound)
}

func TestRequiresSession(t *testing.T) {
	fb, c := setupTestFixture(t)
	fb.ExpireAccessTokens()

	_, err := c.List(context.Background())
	assert.ErrorIs(t, err, errors.ErrUnauthenticated)
}

func TestEmptyIDMakesNoCall(t *testing.T) {
	fb, c := setupTestFixture(t)
	_, err := c.Get(context.Background(), "")
	require.Error(t, err)
	assert.Zero(t, fb.Calls(fakebackend.RouteMeetings))
}

func TestDotSegmentIDsMakeNoCall(t *testing.T) {
	fb, c := setupTestFixture(t)
	ctx := context.Background()

	_, err := c.Get(ctx, "..")
	assert.ErrorIs(t, err, errors.ErrInvalidSegment)
	assert.ErrorIs(t, c.Delete(ctx, "."), errors.ErrInvalidSegment)
	_, err = c.Notes(ctx, "..")
	assert.ErrorIs(t, err, errors.ErrInvalidSegment)
	assert.Zero(t, fb.Calls(fakebackend.RouteMeetings))
}
