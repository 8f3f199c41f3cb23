package app

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	authdomain "github.com/GoSim-25-26J-441/marketplace-core/internal/auth/domain"
	"github.com/GoSim-25-26J-441/marketplace-core/internal/logging"
)

// Sessions is the part of the session manager the runtime drives.
type Sessions interface {
	Initialize(ctx context.Context)
	State() authdomain.AuthState
	Subscribe(fn func(authdomain.AuthState)) func()
	Close()
}

// Currencies is the part of the currency resolver the runtime drives.
type Currencies interface {
	LoadCatalog(ctx context.Context) error
	OnIdentityChange(ctx context.Context, userID string)
	Close()
}

// App is the application-scoped runtime: one session manager and one
// currency resolver kept in step on identity changes.
type App struct {
	sessions   Sessions
	currencies Currencies

	mu          sync.Mutex
	started     bool
	lastUserID  string
	pending     string
	wake        chan struct{}
	unsubscribe func()

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	log    *logging.Logger
}

func New(sessions Sessions, currencies Currencies) *App {
	return &App{
		sessions:   sessions,
		currencies: currencies,
		wake:       make(chan struct{}, 1),
		done:       make(chan struct{}),
		log:        logging.New("app"),
	}
}

// Start bootstraps the session and loads the catalog concurrently, resolves
// the display currency for the bootstrapped identity, then follows identity
// changes until Close.
func (a *App) Start(ctx context.Context) {
	a.ctx, a.cancel = context.WithCancel(context.WithoutCancel(ctx))
	a.unsubscribe = a.sessions.Subscribe(a.onAuthState)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.sessions.Initialize(gctx)
		return nil
	})
	g.Go(func() error {
		if err := a.currencies.LoadCatalog(gctx); err != nil {
			a.log.Warnf(ctx, "start", "catalog unavailable at startup: %v", err)
		}
		return nil
	})
	_ = g.Wait()

	userID := a.sessions.State().UserID()
	a.mu.Lock()
	a.started = true
	a.lastUserID = userID
	a.mu.Unlock()

	a.log.Infof(ctx, "start", "runtime ready user_id=%q", userID)
	a.currencies.OnIdentityChange(a.ctx, userID)

	go a.follow()
}

// onAuthState queues a currency re-resolution when the user id changes.
// Bursts coalesce to the latest identity.
func (a *App) onAuthState(state authdomain.AuthState) {
	userID := state.UserID()

	a.mu.Lock()
	if !a.started || userID == a.lastUserID {
		a.mu.Unlock()
		return
	}
	a.lastUserID = userID
	a.pending = userID
	a.mu.Unlock()

	select {
	case a.wake <- struct{}{}:
	default:
	}
}

func (a *App) follow() {
	defer close(a.done)
	for {
		select {
		case <-a.ctx.Done():
			return
		case <-a.wake:
		}

		a.mu.Lock()
		userID := a.pending
		a.mu.Unlock()

		a.currencies.OnIdentityChange(a.ctx, userID)
	}
}

// Close unsubscribes, stops following identity changes and drains pending
// conversion log writes.
func (a *App) Close() {
	if a.unsubscribe != nil {
		a.unsubscribe()
	}
	if a.cancel != nil {
		a.cancel()
		a.mu.Lock()
		started := a.started
		a.mu.Unlock()
		if started {
			<-a.done
		}
	}
	a.sessions.Close()
	a.currencies.Close()
}
