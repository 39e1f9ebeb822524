package notifications_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/go-meet-client/internal/errors"
	"github.com/jrsteele09/go-meet-client/internal/fakebackend"
	"github.com/jrsteele09/go-meet-client/notifications"
	"github.com/jrsteele09/go-meet-client/transport"
)

func setupTestFixture(t *testing.T) (*fakebackend.Backend, *notifications.Client) {
	t.Helper()
	fb := fakebackend.New(t)
	fb.AddUser("ada", "s3cret", nil)

	tc, err := transport.New(fb.Registry())
	require.NoError(t, err)
	err = tc.JSON(context.Background(), http.MethodPost, "auth", "/login",
		map[string]string{"username": "ada", "password": "s3cret"}, nil)
	require.NoError(t, err)
	return fb, notifications.NewClient(tc)
}

func TestListAndMarkRead(t *testing.T) {
	fb, c := setupTestFixture(t)
	ctx := context.Background()
	first := fb.AddNotification(map[string]any{"message": "Meeting starts in 5 minutes", "type": "reminder"})
	fb.AddNotification(map[string]any{"message": "Notes shared"})

	all, err := c.List(ctx, false)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	n, err := c.MarkRead(ctx, first)
	require.NoError(t, err)
	assert.True(t, n.Read)
	assert.Equal(t, "reminder", n.Type)

	unread, err := c.List(ctx, true)
	require.NoError(t, err)
	require.Len(t, unread, 1)
	assert.Equal(t, "Notes shared", unread[0].Message)

	req, ok := fb.LastRequest(fakebackend.RouteNotifications)
	require.True(t, ok)
	assert.Equal(t, "true", req.Query.Get("unread"))

	require.NoError(t, c.MarkAllRead(ctx))
	unread, err = c.List(ctx, true)
	require.NoError(t, err)
	assert.Empty(t, unread)
}

func TestDelete(t *testing.T) {
	fb, c := setupTestFixture(t)
	ctx := context.Background()
	id := fb.AddNotification(map[string]any{"message": "hello"})

	require.NoError(t, c.Delete(ctx, id))
	assert.ErrorIs(t, c.Delete(ctx, id), errors.ErrNotFound)
	require.Error(t, c.Delete(ctx, ""))
}

func TestSettings(t *testing.T) {
	_, c := setupTestFixture(t)
	ctx := context.Background()

	s, err := c.Settings(ctx)
	require.NoError(t, err)
	assert.Equal(t, notifications.Settings{Email: true, Push: false}, *s)

	updated, err := c.UpdateSettings(ctx, notifications.Settings{Email: false, Push: true})
	require.NoError(t, err)
	assert.Equal(t, notifications.Settings{Email: false, Push: true}, *updated)
}
