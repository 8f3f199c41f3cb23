package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	authdomain "github.com/GoSim-25-26J-441/marketplace-core/internal/auth/domain"
)

type fakeSessions struct {
	mu           sync.Mutex
	state        authdomain.AuthState
	listener     func(authdomain.AuthState)
	unsubscribed bool
	closed       bool
	catalogSeen  <-chan struct{}
	overlapped   bool
}

func (s *fakeSessions) Initialize(context.Context) {
	select {
	case <-s.catalogSeen:
		s.mu.Lock()
		s.overlapped = true
		s.mu.Unlock()
	case <-time.After(time.Second):
	}
}

func (s *fakeSessions) State() authdomain.AuthState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *fakeSessions) Subscribe(fn func(authdomain.AuthState)) func() {
	s.mu.Lock()
	s.listener = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		s.unsubscribed = true
		s.listener = nil
		s.mu.Unlock()
	}
}

func (s *fakeSessions) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}

func (s *fakeSessions) signIn(userID string) {
	s.mu.Lock()
	s.state = authdomain.AuthState{User: &authdomain.User{ID: userID}}
	fn := s.listener
	state := s.state
	s.mu.Unlock()
	if fn != nil {
		fn(state)
	}
}

func (s *fakeSessions) signOut() {
	s.mu.Lock()
	s.state = authdomain.AuthState{}
	fn := s.listener
	s.mu.Unlock()
	if fn != nil {
		fn(authdomain.AuthState{})
	}
}

type fakeCurrencies struct {
	mu         sync.Mutex
	started    chan struct{}
	loadErr    error
	identities []string
	closed     bool
}

func (c *fakeCurrencies) LoadCatalog(context.Context) error {
	close(c.started)
	return c.loadErr
}

func (c *fakeCurrencies) OnIdentityChange(_ context.Context, userID string) {
	c.mu.Lock()
	c.identities = append(c.identities, userID)
	c.mu.Unlock()
}

func (c *fakeCurrencies) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
}

func (c *fakeCurrencies) seen() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.identities...)
}

func newFakes() (*fakeSessions, *fakeCurrencies) {
	cur := &fakeCurrencies{started: make(chan struct{})}
	return &fakeSessions{catalogSeen: cur.started}, cur
}

func TestStart_BootstrapsConcurrentlyThenResolves(t *testing.T) {
	sessions, currencies := newFakes()
	sessions.state = authdomain.AuthState{User: &authdomain.User{ID: "u1"}}

	a := New(sessions, currencies)
	a.Start(context.Background())
	defer a.Close()

	assert.True(t, sessions.overlapped, "session bootstrap and catalog load should overlap")
	assert.Equal(t, []string{"u1"}, currencies.seen())
}

func TestStart_CatalogFailureStillResolves(t *testing.T) {
	sessions, currencies := newFakes()
	currencies.loadErr = errors.New("relation does not exist")

	a := New(sessions, currencies)
	a.Start(context.Background())
	defer a.Close()

	assert.Equal(t, []string{""}, currencies.seen())
}

func TestIdentityChangesFollowed(t *testing.T) {
	sessions, currencies := newFakes()

	a := New(sessions, currencies)
	a.Start(context.Background())
	defer a.Close()

	sessions.signIn("u2")
	require.Eventually(t, func() bool { return len(currencies.seen()) == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"", "u2"}, currencies.seen())

	// profile updates keep the same user id
	sessions.signIn("u2")
	time.Sleep(20 * time.Millisecond)
	assert.Len(t, currencies.seen(), 2)

	sessions.signOut()
	require.Eventually(t, func() bool { return len(currencies.seen()) == 3 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, "", currencies.seen()[2])
}

func TestClose(t *testing.T) {
	sessions, currencies := newFakes()

	a := New(sessions, currencies)
	a.Start(context.Background())
	a.Close()

	assert.True(t, sessions.unsubscribed)
	assert.True(t, sessions.closed)
	assert.True(t, currencies.closed)

	sessions.signIn("u3")
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, []string{""}, currencies.seen())
}
