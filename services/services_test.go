package services_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/go-meet-client/internal/config"
	"github.com/jrsteele09/go-meet-client/internal/errors"
	"github.com/jrsteele09/go-meet-client/services"
)

func TestDefaultsResolveEveryKnownService(t *testing.T) {
	reg := services.Defaults()

	for _, name := range []string{
		config.ServiceAuth,
		config.ServiceUsers,
		config.ServiceMeetings,
		config.ServiceChat,
		config.ServiceCommunity,
		config.ServiceAnalytics,
		config.ServiceNotifications,
	} {
		base, ok := reg.ResolveBaseURL(name)
		assert.True(t, ok, name)
		assert.NotEmpty(t, base, name)
	}
}

func TestUnknownServiceIsAbsent(t *testing.T) {
	reg := services.Defaults()

	base, ok := reg.ResolveBaseURL("nonexistent")
	assert.False(t, ok)
	assert.Empty(t, base)

	_, err := reg.BuildURL("nonexistent", "/anything")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrUnknownService))

	_, err = reg.Endpoint("nonexistent", "login")
	assert.True(t, errors.Is(err, errors.ErrUnknownService))
}

func TestEnvironmentOverrideWins(t *testing.T) {
	t.Setenv("MEET_AUTH_URL", "https://auth.staging.example.com/v2")

	reg := services.Defaults()
	base, ok := reg.ResolveBaseURL(config.ServiceAuth)
	require.True(t, ok)
	assert.Equal(t, "https://auth.staging.example.com/v2", base)

	users, ok := reg.ResolveBaseURL(config.ServiceUsers)
	require.True(t, ok)
	assert.Equal(t, "http://localhost:8002/api/users", users)
}

func TestBuildURLConcatenatesWithoutEscaping(t *testing.T) {
	reg := services.New(services.Descriptor{Name: "meetings", BaseURL: "http://svc/api/"})

	u, err := reg.BuildURL("meetings", "/meetings/a b")
	require.NoError(t, err)
	assert.Equal(t, "http://svc/api/meetings/a b", u)

	path, err := services.Join("/meetings", "a b", "notes/1")
	require.NoError(t, err)
	u, err = reg.BuildURL("meetings", path)
	require.NoError(t, err)
	assert.Equal(t, "http://svc/api/meetings/a%20b/notes%2F1", u)
}

func TestJoinRejectsDotSegments(t *testing.T) {
	for _, seg := range []string{"", ".", ".."} {
		_, err := services.Join("/meetings", seg)
		assert.ErrorIs(t, err, errors.ErrInvalidSegment, "segment %q", seg)
	}

	path, err := services.Join("/meetings", "...", ".hidden")
	require.NoError(t, err)
	assert.Equal(t, "/meetings/.../.hidden", path)
}

func TestEndpointLookup(t *testing.T) {
	reg := services.Defaults()

	p, err := reg.Endpoint(config.ServiceAuth, "refresh")
	require.NoError(t, err)
	assert.Equal(t, "/refresh", p)

	_, err = reg.Endpoint(config.ServiceAuth, "nope")
	assert.True(t, errors.Is(err, errors.ErrUnknownEndpoint))
}

func TestRegistryIsImmutable(t *testing.T) {
	endpoints := map[string]string{"profile": "/profile"}
	reg := services.New(services.Descriptor{Name: "users", BaseURL: "http://u", Endpoints: endpoints})

	endpoints["profile"] = "/changed"
	d, ok := reg.Resolve("users")
	require.True(t, ok)
	assert.Equal(t, "/profile", d.Endpoints["profile"])

	d.Endpoints["profile"] = "/mutated"
	again, _ := reg.Resolve("users")
	assert.Equal(t, "/profile", again.Endpoints["profile"])
}

func TestNamesSorted(t *testing.T) {
	reg := services.New(
		services.Descriptor{Name: "users", BaseURL: "http://u"},
		services.Descriptor{Name: "auth", BaseURL: "http://a"},
	)
	assert.Equal(t, []string{"auth", "users"}, reg.Names())
}
