package sessions_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/go-meet-client/sessions"
	"github.com/jrsteele09/go-meet-client/storage"
)

func setupManager(t *testing.T) (*sessions.Manager, *storage.MemoryStore, *storage.FileStore) {
	t.Helper()
	fast := storage.NewMemoryStore()
	slow, err := storage.NewFileStore(t.TempDir())
	require.NoError(t, err)
	return sessions.NewManager(fast, slow), fast, slow
}

func TestMarkAuthenticated(t *testing.T) {
	fixed := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	sessions.NowTimeFunc = func() time.Time { return fixed }
	t.Cleanup(func() { sessions.NowTimeFunc = time.Now })

	m, _, slow := setupManager(t)
	assert.False(t, m.IsAuthenticated())

	require.NoError(t, m.MarkAuthenticated("ada"))
	mk, ok := m.Marker()
	require.True(t, ok)
	assert.Equal(t, "ada", mk.Username)
	assert.True(t, fixed.Equal(mk.Since))

	_, ok, err := slow.Get(sessions.MarkerKey)
	require.NoError(t, err)
	assert.True(t, ok, "marker persisted to the long-lived tier")
}

func TestGetPromotesFromSlowTier(t *testing.T) {
	m, fast, slow := setupManager(t)
	require.NoError(t, slow.Set(sessions.ProfileKey, []byte(`{"username":"ada"}`)))

	data, ok := m.Get(sessions.ProfileKey)
	require.True(t, ok)
	assert.JSONEq(t, `{"username":"ada"}`, string(data))

	promoted, ok, err := fast.Get(sessions.ProfileKey)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, data, promoted)
}

func TestInvalidateClearsMarkerAndProfileTogether(t *testing.T) {
	m, fast, slow := setupManager(t)
	require.NoError(t, m.MarkAuthenticated("ada"))
	_, err := m.Put(m.Generation(), sessions.ProfileKey, []byte(`{"username":"ada"}`))
	require.NoError(t, err)

	called := 0
	m.OnInvalidate(func() { called++ })

	require.NoError(t, m.Invalidate())
	assert.Equal(t, 1, called)
	assert.False(t, m.IsAuthenticated())

	for _, s := range []storage.Store{fast, slow} {
		for _, key := range []string{sessions.MarkerKey, sessions.ProfileKey} {
			_, ok, err := s.Get(key)
			require.NoError(t, err)
			assert.False(t, ok, key)
		}
	}
}

func TestPutRejectsWritesFromAnEarlierGeneration(t *testing.T) {
	m, _, _ := setupManager(t)
	gen := m.Generation()

	require.NoError(t, m.Invalidate())

	written, err := m.Put(gen, sessions.ProfileKey, []byte(`{}`))
	require.NoError(t, err)
	assert.False(t, written)
	_, ok := m.Get(sessions.ProfileKey)
	assert.False(t, ok)

	written, err = m.Put(m.Generation(), sessions.ProfileKey, []byte(`{}`))
	require.NoError(t, err)
	assert.True(t, written)
}

func TestUnreadableMarkerIsAbsent(t *testing.T) {
	fast := storage.NewMemoryStore()
	require.NoError(t, fast.Set(sessions.MarkerKey, []byte("not json")))
	m := sessions.NewManager(fast)

	_, ok := m.Marker()
	assert.False(t, ok)
}
