package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/GoSim-25-26J-441/marketplace-core/internal/auth/domain"
	"github.com/GoSim-25-26J-441/marketplace-core/internal/auth/events"
	"github.com/GoSim-25-26J-441/marketplace-core/internal/auth/tokenstore"
	"github.com/GoSim-25-26J-441/marketplace-core/internal/logging"
	"github.com/GoSim-25-26J-441/marketplace-core/internal/metrics"
)

// DefaultProfileTimeout bounds how long callers wait for a profile read.
const DefaultProfileTimeout = 15 * time.Second

// Backend is the remote auth service bound to one token storage.
type Backend interface {
	// GetSession returns nil, nil when nothing is stored.
	GetSession(ctx context.Context) (*domain.Session, error)
	SignUp(ctx context.Context, email, password string, metadata map[string]interface{}) (*domain.SignUpResult, error)
	SignInWithPassword(ctx context.Context, email, password string) (*domain.Session, error)
	SignOut(ctx context.Context) error
	ResetPasswordForEmail(ctx context.Context, email string) error
	UpdatePassword(ctx context.Context, newPassword string) error
	GetUser(ctx context.Context) (*domain.User, error)
}

// BackendFactory returns a Backend whose session lives in the given storage.
type BackendFactory func(kind domain.StorageKind) (Backend, error)

// ProfileStore reads and writes the role-partitioned profile tables.
type ProfileStore interface {
	GetByUserID(ctx context.Context, userID string) (*domain.Profile, error)
	Create(ctx context.Context, user *domain.User, fields domain.ProfileFields) (*domain.Profile, error)
	Update(ctx context.Context, role domain.Role, userID string, patch domain.ProfilePatch) (*domain.Profile, error)
	SetAvatarURL(ctx context.Context, role domain.Role, userID, url string) error
	MarkVerified(ctx context.Context, role domain.Role, userID string) error
}

// AvatarUploader stores a profile picture and returns its public URL.
type AvatarUploader interface {
	Upload(ctx context.Context, userID string, file domain.AvatarFile) (string, error)
}

// Deps are the collaborators of a Manager.
type Deps struct {
	Backends BackendFactory
	Profiles ProfileStore
	Avatars  AvatarUploader
	// Persistent holds the storage marker; tokens go to it when "remember me" is set.
	Persistent tokenstore.Store
	// Scoped holds tokens for logins that should not survive the session.
	Scoped tokenstore.Store
	Events events.Source
}

// Options tune a Manager.
type Options struct {
	ProfileTimeout time.Duration
	// Reload rebuilds the whole application runtime. Called last by ForceAuthReset.
	Reload func()
}

// Manager is the single in-memory view of who is logged in and what their
// profile is.
type Manager struct {
	mu         sync.Mutex
	state      domain.AuthState
	phase      domain.Phase
	generation uint64
	backend    Backend
	listeners  map[int]func(domain.AuthState)
	nextID     int

	initialized atomic.Bool
	fetching    atomic.Bool

	deps           Deps
	profileTimeout time.Duration
	reload         func()
	unsubscribe    func()
	ctx            context.Context
	cancel         context.CancelFunc
	log            *logging.Logger
}

// NewManager creates a Manager and subscribes it to auth-change events.
func NewManager(deps Deps, opts Options) (*Manager, error) {
	if deps.Backends == nil || deps.Profiles == nil || deps.Persistent == nil || deps.Scoped == nil {
		return nil, errors.New("session: backends, profiles and both token stores are required")
	}
	if opts.ProfileTimeout <= 0 {
		opts.ProfileTimeout = DefaultProfileTimeout
	}

	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		state:          domain.AuthState{Loading: true},
		phase:          domain.PhaseUninitialized,
		listeners:      make(map[int]func(domain.AuthState)),
		deps:           deps,
		profileTimeout: opts.ProfileTimeout,
		reload:         opts.Reload,
		ctx:            ctx,
		cancel:         cancel,
		log:            logging.New("session"),
	}

	if deps.Events != nil {
		unsubscribe, err := deps.Events.Subscribe(func(change domain.AuthChange) {
			m.handleAuthEvent(m.ctx, change)
		})
		if err != nil {
			cancel()
			return nil, err
		}
		m.unsubscribe = unsubscribe
	}
	return m, nil
}

// Close stops event delivery. It does not touch stored tokens.
func (m *Manager) Close() {
	if m.unsubscribe != nil {
		m.unsubscribe()
	}
	m.cancel()
}

// State returns a snapshot of the auth state.
func (m *Manager) State() domain.AuthState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Phase returns the lifecycle position.
func (m *Manager) Phase() domain.Phase {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.phase
}

// Subscribe registers fn to receive every state change. The returned func
// removes it.
func (m *Manager) Subscribe(fn func(domain.AuthState)) func() {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.listeners[id] = fn
	m.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.listeners, id)
			m.mu.Unlock()
		})
	}
}

// Initialize bootstraps the session once per Manager. Failures leave the
// manager anonymous and are only logged.
func (m *Manager) Initialize(ctx context.Context) {
	if !m.initialized.CompareAndSwap(false, true) {
		return
	}

	m.update(func(s *domain.AuthState) {
		s.Loading = true
		s.Error = ""
		m.phase = domain.PhaseInitializing
	})

	backend, err := m.bindBackend(m.storageKind(ctx))
	if err != nil {
		m.log.Error(ctx, "initialize", err)
		m.becomeAnonymous()
		return
	}

	session, err := backend.GetSession(ctx)
	if err != nil {
		m.log.Error(ctx, "initialize", err)
		m.becomeAnonymous()
		return
	}
	if session == nil || session.User == nil {
		m.becomeAnonymous()
		return
	}

	m.adoptSession(session)
	m.fetchProfile(ctx, session.User.ID)
}

func (m *Manager) storageKind(ctx context.Context) domain.StorageKind {
	v, err := m.deps.Persistent.Get(ctx, tokenstore.StorageMarkerKey)
	if err != nil {
		if !errors.Is(err, tokenstore.ErrKeyNotFound) {
			m.log.Warnf(ctx, "storage-kind", "marker unreadable, using local: %v", err)
		}
		return domain.StorageLocal
	}
	if domain.StorageKind(v) == domain.StorageSession {
		return domain.StorageSession
	}
	return domain.StorageLocal
}

func (m *Manager) bindBackend(kind domain.StorageKind) (Backend, error) {
	backend, err := m.deps.Backends(kind)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.backend = backend
	m.mu.Unlock()
	return backend, nil
}

// client returns the bound backend, binding one from the stored marker if
// Initialize has not run yet.
func (m *Manager) client(ctx context.Context) (Backend, error) {
	m.mu.Lock()
	backend := m.backend
	m.mu.Unlock()
	if backend != nil {
		return backend, nil
	}
	return m.bindBackend(m.storageKind(ctx))
}

// update applies fn under the lock and notifies listeners with the result.
func (m *Manager) update(fn func(s *domain.AuthState)) {
	m.mu.Lock()
	fn(&m.state)
	snapshot := m.state
	listeners := make([]func(domain.AuthState), 0, len(m.listeners))
	for _, l := range m.listeners {
		listeners = append(listeners, l)
	}
	m.mu.Unlock()

	for _, l := range listeners {
		l(snapshot)
	}
}

// adoptSession sets identity ahead of the profile and starts a new generation
// so results belonging to an older identity are discarded.
func (m *Manager) adoptSession(session *domain.Session) {
	m.update(func(s *domain.AuthState) {
		s.User = session.User
		s.Session = session
		s.Profile = nil
		s.Loading = true
		s.Error = ""
		m.generation++
		m.phase = domain.PhaseAuthenticatingProfile
	})
}

func (m *Manager) becomeAnonymous() {
	m.update(func(s *domain.AuthState) {
		s.User = nil
		s.Session = nil
		s.Profile = nil
		s.Loading = false
		m.generation++
		m.phase = domain.PhaseAnonymous
	})
}

func (m *Manager) nonCritical(ctx context.Context, operation string, fn func() error) {
	if err := fn(); err != nil {
		m.log.Warnf(ctx, operation, "non-critical failure ignored: %v", err)
	}
}

func observe(operation string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	metrics.AuthOperations.WithLabelValues(operation, outcome).Inc()
}
