package refresh

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/jrsteele09/go-meet-client/internal/errors"
	"github.com/jrsteele09/go-meet-client/sessions"
)

// ErrInFlight is returned by Trigger while another refresh is running.
var ErrInFlight = errors.New("refresh already in flight")

// Keeper refreshes the session on a fixed schedule so the access cookie is
// renewed before it expires.
type Keeper struct {
	refresher *Refresher
	session   *sessions.Manager
	interval  time.Duration
	logger    zerolog.Logger

	running sync.Mutex

	mu        sync.Mutex
	cron      *cron.Cron
	cancel    context.CancelFunc
	onExpired func()
}

// NewKeeper schedules refresher every interval. Intervals below one second
// are rounded up to one second.
func NewKeeper(refresher *Refresher, session *sessions.Manager, interval time.Duration) *Keeper {
	return &Keeper{
		refresher: refresher,
		session:   session,
		interval:  interval,
		logger:    refresher.logger,
	}
}

// OnExpired registers fn to run when the auth service rejects a refresh.
// This is where a caller sends the user back to login. Trigger runs fn before
// it returns. A scheduled refresh runs fn on its own goroutine, so fn may call
// Stop.
func (k *Keeper) OnExpired(fn func()) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.onExpired = fn
}

// Start begins the periodic refresh. Calling Start on a running keeper is a no-op.
func (k *Keeper) Start() error {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.cron != nil {
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cronLogger{k.logger})))
	if _, err := c.AddFunc(fmt.Sprintf("@every %s", k.interval), func() { k.tick(ctx) }); err != nil {
		cancel()
		return errors.Wrap(err, "schedule refresh")
	}
	c.Start()
	k.cron, k.cancel = c, cancel
	k.logger.Info().Dur("interval", k.interval).Msg("refresh keeper started")
	return nil
}

// Stop cancels any in-flight refresh and waits for the scheduler to finish.
func (k *Keeper) Stop() {
	k.mu.Lock()
	c, cancel := k.cron, k.cancel
	k.cron, k.cancel = nil, nil
	k.mu.Unlock()

	if c == nil {
		return
	}
	cancel()
	<-c.Stop().Done()
	k.logger.Info().Msg("refresh keeper stopped")
}

// Trigger refreshes now. It returns errors.ErrSessionExpired when the refresh
// is rejected and ErrInFlight when a scheduled refresh is already running.
func (k *Keeper) Trigger(ctx context.Context) error {
	if !k.running.TryLock() {
		return ErrInFlight
	}
	defer k.running.Unlock()
	err := k.run(ctx)
	if errors.Is(err, errors.ErrSessionExpired) {
		k.expired()
	}
	return err
}

func (k *Keeper) tick(ctx context.Context) {
	if !k.session.IsAuthenticated() {
		k.logger.Debug().Msg("no session, skipping scheduled refresh")
		return
	}
	if !k.running.TryLock() {
		return
	}
	defer k.running.Unlock()
	err := k.run(ctx)
	switch {
	case errors.Is(err, errors.ErrSessionExpired):
		// Stop waits for this job, so the callback must not run inside it.
		go k.expired()
	case err != nil:
		k.logger.Warn().Err(err).Msg("scheduled refresh failed")
	}
}

func (k *Keeper) run(ctx context.Context) error {
	ok, err := k.refresher.Refresh(ctx)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}
	return errors.ErrSessionExpired
}

func (k *Keeper) expired() {
	k.mu.Lock()
	fn := k.onExpired
	k.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// cronLogger sends cron's own diagnostics to zerolog.
type cronLogger struct {
	logger zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug().Fields(keysAndValues).Msg("cron: " + msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error().Err(err).Fields(keysAndValues).Msg("cron: " + msg)
}
