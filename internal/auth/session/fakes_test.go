package session

import (
	"context"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/GoSim-25-26J-441/marketplace-core/internal/auth/domain"
	"github.com/GoSim-25-26J-441/marketplace-core/internal/auth/events"
	"github.com/GoSim-25-26J-441/marketplace-core/internal/auth/tokenstore"
)

type fakeBackend struct {
	mu              sync.Mutex
	session         *domain.Session
	sessionErr      error
	getSessionCalls int
	signInSession   *domain.Session
	signInErr       error
	signOutErr      error
	signOutCalls    int
	signUpResult    *domain.SignUpResult
	signUpErr       error
	user            *domain.User
	userErr         error
	resetErr        error
}

func (b *fakeBackend) GetSession(context.Context) (*domain.Session, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.getSessionCalls++
	return b.session, b.sessionErr
}

func (b *fakeBackend) SignUp(_ context.Context, _, _ string, _ map[string]interface{}) (*domain.SignUpResult, error) {
	return b.signUpResult, b.signUpErr
}

func (b *fakeBackend) SignInWithPassword(context.Context, string, string) (*domain.Session, error) {
	return b.signInSession, b.signInErr
}

func (b *fakeBackend) SignOut(context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.signOutCalls++
	return b.signOutErr
}

func (b *fakeBackend) ResetPasswordForEmail(context.Context, string) error { return b.resetErr }

func (b *fakeBackend) UpdatePassword(context.Context, string) error { return nil }

func (b *fakeBackend) GetUser(context.Context) (*domain.User, error) {
	return b.user, b.userErr
}

func (b *fakeBackend) signOuts() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.signOutCalls
}

func (b *fakeBackend) sessionCalls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.getSessionCalls
}

type fakeProfiles struct {
	mu        sync.Mutex
	profiles  map[string]domain.Profile
	getErr    error
	getCalls  int
	verifyErr error
	verified  []string
	created   *domain.Profile

	// when set, GetByUserID signals started then waits for release
	started  chan struct{}
	release  chan struct{}
	finished chan struct{}
}

func newFakeProfiles(profiles ...domain.Profile) *fakeProfiles {
	f := &fakeProfiles{profiles: make(map[string]domain.Profile)}
	for _, p := range profiles {
		f.profiles[p.UserID] = p
	}
	return f
}

func (f *fakeProfiles) GetByUserID(_ context.Context, userID string) (*domain.Profile, error) {
	f.mu.Lock()
	f.getCalls++
	started, release, finished := f.started, f.release, f.finished
	f.mu.Unlock()

	if started != nil {
		started <- struct{}{}
	}
	if release != nil {
		<-release
	}
	if finished != nil {
		defer close(finished)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	p, ok := f.profiles[userID]
	if !ok {
		return nil, domain.ErrProfileNotFound
	}
	return &p, nil
}

func (f *fakeProfiles) Create(_ context.Context, user *domain.User, fields domain.ProfileFields) (*domain.Profile, error) {
	p := domain.Profile{UserID: user.ID, Email: user.Email, Role: fields.Role, AccountType: fields.AccountType, FirstName: fields.FirstName}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.profiles[user.ID] = p
	f.created = &p
	return &p, nil
}

func (f *fakeProfiles) Update(_ context.Context, _ domain.Role, userID string, patch domain.ProfilePatch) (*domain.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.profiles[userID]
	if !ok {
		return nil, domain.ErrProfileNotFound
	}
	if patch.FirstName != nil {
		p.FirstName = patch.FirstName
	}
	if patch.Phone != nil {
		p.Phone = patch.Phone
	}
	f.profiles[userID] = p
	return &p, nil
}

func (f *fakeProfiles) SetAvatarURL(_ context.Context, _ domain.Role, userID, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := f.profiles[userID]
	p.AvatarURL = &url
	f.profiles[userID] = p
	return nil
}

func (f *fakeProfiles) MarkVerified(_ context.Context, _ domain.Role, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.verifyErr != nil {
		return f.verifyErr
	}
	p := f.profiles[userID]
	p.IsVerified = true
	f.profiles[userID] = p
	f.verified = append(f.verified, userID)
	return nil
}

func (f *fakeProfiles) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.getCalls
}

type fakeAvatars struct {
	url string
	err error
}

func (a *fakeAvatars) Upload(context.Context, string, domain.AvatarFile) (string, error) {
	return a.url, a.err
}

type fakeSource struct {
	mu           sync.Mutex
	handler      events.Handler
	unsubscribed bool
}

func (s *fakeSource) Subscribe(handler events.Handler) (func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handler = handler
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.unsubscribed = true
	}, nil
}

func (s *fakeSource) emit(change domain.AuthChange) {
	s.mu.Lock()
	h := s.handler
	s.mu.Unlock()
	h(change)
}

type harness struct {
	manager    *Manager
	backend    *fakeBackend
	profiles   *fakeProfiles
	source     *fakeSource
	persistent *tokenstore.RedisStore
	scoped     *tokenstore.RedisStore
	mr         *miniredis.Miniredis

	kindsMu sync.Mutex
	kinds   []domain.StorageKind
	perKind map[domain.StorageKind]*fakeBackend
	reloads int
}

func newHarness(t *testing.T, backend *fakeBackend, profiles *fakeProfiles, opts Options) *harness {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})

	h := &harness{
		backend:    backend,
		profiles:   profiles,
		source:     &fakeSource{},
		persistent: tokenstore.NewRedisStore(client, "local:", 0),
		scoped:     tokenstore.NewRedisStore(client, "session:", 0),
		mr:         mr,
	}
	if opts.Reload == nil {
		opts.Reload = func() { h.reloads++ }
	}

	m, err := NewManager(Deps{
		Backends: func(kind domain.StorageKind) (Backend, error) {
			h.kindsMu.Lock()
			defer h.kindsMu.Unlock()
			h.kinds = append(h.kinds, kind)
			if b, ok := h.perKind[kind]; ok {
				return b, nil
			}
			return backend, nil
		},
		Profiles:   profiles,
		Avatars:    &fakeAvatars{url: "https://cdn.example.com/avatars/u1/pic.png"},
		Persistent: h.persistent,
		Scoped:     h.scoped,
		Events:     h.source,
	}, opts)
	require.NoError(t, err)
	t.Cleanup(m.Close)
	h.manager = m
	return h
}

func (h *harness) lastKind() domain.StorageKind {
	h.kindsMu.Lock()
	defer h.kindsMu.Unlock()
	if len(h.kinds) == 0 {
		return ""
	}
	return h.kinds[len(h.kinds)-1]
}

func strPtr(s string) *string { return &s }

func testUser() *domain.User {
	return &domain.User{ID: "u1", Email: "ada@example.com"}
}

func testSession() *domain.Session {
	return &domain.Session{AccessToken: "access", RefreshToken: "refresh", User: testUser()}
}

func testProfile() domain.Profile {
	return domain.Profile{
		UserID:      "u1",
		Email:       "ada@example.com",
		Role:        domain.RoleSupplier,
		AccountType: domain.AccountCompany,
		IsVerified:  true,
		FirstName:   strPtr("Ada"),
	}
}
