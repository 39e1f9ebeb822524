package sessions

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-meet-client/internal/errors"
	"github.com/jrsteele09/go-meet-client/storage"
)

// Keys owned by the session. They are always cleared together.
const (
	MarkerKey  = "meet.user"
	ProfileKey = "meet.profile"
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

// Marker records that the client believes the user is logged in. It says
// nothing about whether the server-side session is still valid.
type Marker struct {
	Username string    `json:"username"`
	Since    time.Time `json:"since"`
}

// Manager owns the local session state spread across one or more storage
// tiers, fastest first.
type Manager struct {
	mu         sync.Mutex
	stores     []storage.Store
	generation uint64
	listeners  []func()
	logger     zerolog.Logger
}

// NewManager creates a manager over the given tiers. With no tiers an
// in-memory store is used.
func NewManager(stores ...storage.Store) *Manager {
	if len(stores) == 0 {
		stores = []storage.Store{storage.NewMemoryStore()}
	}
	return &Manager{
		stores: stores,
		logger: log.Logger,
	}
}

// WithLogger replaces the manager's logger.
func (m *Manager) WithLogger(l zerolog.Logger) *Manager {
	m.logger = l
	return m
}

// Stores returns the tiers, fastest first.
func (m *Manager) Stores() []storage.Store {
	out := make([]storage.Store, len(m.stores))
	copy(out, m.stores)
	return out
}

// MarkAuthenticated writes the session marker to every tier.
func (m *Manager) MarkAuthenticated(username string) error {
	data, err := json.Marshal(Marker{Username: username, Since: NowTimeFunc().UTC()})
	if err != nil {
		return errors.WithStack(err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.stores {
		if err := s.Set(MarkerKey, data); err != nil {
			return errors.Wrap(err, "store session marker")
		}
	}
	return nil
}

// Marker returns the session marker from the fastest tier that has one.
func (m *Manager) Marker() (Marker, bool) {
	data, ok := m.Get(MarkerKey)
	if !ok {
		return Marker{}, false
	}
	var mk Marker
	if err := json.Unmarshal(data, &mk); err != nil {
		m.logger.Warn().Err(err).Msg("discarding unreadable session marker")
		return Marker{}, false
	}
	return mk, true
}

// IsAuthenticated reports whether a session marker is present.
func (m *Manager) IsAuthenticated() bool {
	_, ok := m.Marker()
	return ok
}

// Get reads key from the tiers in order. A hit in a slower tier is copied
// into the faster ones.
func (m *Manager) Get(key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, s := range m.stores {
		data, ok, err := s.Get(key)
		if err != nil {
			m.logger.Warn().Err(err).Str("key", key).Int("tier", i).Msg("session store read failed")
			continue
		}
		if !ok {
			continue
		}
		for _, faster := range m.stores[:i] {
			if err := faster.Set(key, data); err != nil {
				m.logger.Warn().Err(err).Str("key", key).Msg("session store promote failed")
			}
		}
		return data, true
	}
	return nil, false
}

// Generation identifies the current session. It changes on every Invalidate.
func (m *Manager) Generation() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.generation
}

// Put writes key to every tier, unless the session was invalidated after
// generation was read. It reports whether the value was written.
func (m *Manager) Put(generation uint64, key string, data []byte) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if generation != m.generation {
		return false, nil
	}
	for _, s := range m.stores {
		if err := s.Set(key, data); err != nil {
			return false, errors.Wrapf(err, "store %s", key)
		}
	}
	return true, nil
}

// OnInvalidate registers fn to run after every Invalidate.
func (m *Manager) OnInvalidate(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, fn)
}

// Invalidate removes the session marker and the cached profile from every
// tier in one step and starts a new generation.
func (m *Manager) Invalidate() error {
	m.mu.Lock()
	m.generation++
	var errs []error
	for _, s := range m.stores {
		for _, key := range []string{MarkerKey, ProfileKey} {
			if err := s.Delete(key); err != nil {
				errs = append(errs, err)
			}
		}
	}
	listeners := make([]func(), len(m.listeners))
	copy(listeners, m.listeners)
	m.mu.Unlock()

	m.logger.Info().Msg("local session invalidated")
	for _, fn := range listeners {
		fn()
	}
	if len(errs) > 0 {
		return errors.Wrap(errors.Join(errs...), "invalidate session")
	}
	return nil
}
