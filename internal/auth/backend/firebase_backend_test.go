package backend

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"firebase.google.com/go/v4/auth"
	"github.com/alicebob/miniredis/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GoSim-25-26J-441/marketplace-core/internal/auth/domain"
	"github.com/GoSim-25-26J-441/marketplace-core/internal/auth/tokenstore"
)

type fakeAdmin struct {
	mu          sync.Mutex
	users       map[string]*auth.UserRecord
	verifyCalls int
	verifyErr   error
	revoked     []string
	passwords   map[string]string
}

func newFakeAdmin() *fakeAdmin {
	return &fakeAdmin{
		users: map[string]*auth.UserRecord{
			"u1": {UserInfo: &auth.UserInfo{UID: "u1", Email: "ada@example.com", DisplayName: "Ada"}, EmailVerified: true},
		},
		passwords: map[string]string{},
	}
}

func (a *fakeAdmin) CreateUser(_ context.Context, _ *auth.UserToCreate) (*auth.UserRecord, error) {
	rec := &auth.UserRecord{UserInfo: &auth.UserInfo{UID: "u2", Email: "new@example.com"}}
	a.mu.Lock()
	a.users["u2"] = rec
	a.mu.Unlock()
	return rec, nil
}

func (a *fakeAdmin) GetUser(_ context.Context, uid string) (*auth.UserRecord, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	rec, ok := a.users[uid]
	if !ok {
		return nil, errors.New("user not found")
	}
	return rec, nil
}

func (a *fakeAdmin) UpdateUser(_ context.Context, uid string, _ *auth.UserToUpdate) (*auth.UserRecord, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.passwords[uid] = "changed"
	return a.users[uid], nil
}

func (a *fakeAdmin) RevokeRefreshTokens(_ context.Context, uid string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.revoked = append(a.revoked, uid)
	return nil
}

func (a *fakeAdmin) VerifyIDToken(_ context.Context, _ string) (*auth.Token, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.verifyCalls++
	if a.verifyErr != nil {
		return nil, a.verifyErr
	}
	return &auth.Token{UID: "u1"}, nil
}

type fakePasswords struct {
	grant    *TokenGrant
	err      error
	resetFor string
}

func (p *fakePasswords) SignInWithPassword(context.Context, string, string) (*TokenGrant, error) {
	return p.grant, p.err
}

func (p *fakePasswords) SendPasswordReset(_ context.Context, email string) error {
	p.resetFor = email
	return nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.AuthEvent
}

func (p *recordingPublisher) Publish(_ context.Context, change domain.AuthChange) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, change.Event)
	return nil
}

func signedToken(t *testing.T, uid string, exp time.Time) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": uid,
		"exp": exp.Unix(),
	})
	s, err := tok.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return s
}

func setupBackend(t *testing.T, passwords *fakePasswords, requireConfirmation bool) (*FirebaseBackend, *fakeAdmin, *recordingPublisher, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})

	admin := newFakeAdmin()
	pub := &recordingPublisher{}
	b := NewFirebaseBackend(admin, passwords, tokenstore.NewRedisStore(client, "local:", 0), pub, requireConfirmation)
	return b, admin, pub, mr
}

func TestSignInWithPassword_StoresSession(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	passwords := &fakePasswords{grant: &TokenGrant{UID: "u1", IDToken: signedToken(t, "u1", exp), RefreshToken: "refresh-1"}}
	b, _, pub, mr := setupBackend(t, passwords, false)
	ctx := context.Background()

	session, err := b.SignInWithPassword(ctx, "ada@example.com", "secret")
	require.NoError(t, err)
	assert.True(t, session.ExpiresAt.Equal(exp))
	assert.Equal(t, "u1", session.User.ID)
	assert.True(t, session.User.EmailConfirmed)
	assert.Equal(t, "Ada", session.User.Metadata["display_name"])

	assert.True(t, mr.Exists("local:"+tokenstore.AuthTokenKey))
	refresh, err := mr.Get("local:" + tokenstore.RefreshTokenKey)
	require.NoError(t, err)
	assert.Equal(t, "refresh-1", refresh)
	assert.Equal(t, []domain.AuthEvent{domain.EventSignedIn}, pub.events)
}

func TestSignInWithPassword_InvalidCredentials(t *testing.T) {
	b, _, pub, _ := setupBackend(t, &fakePasswords{err: ErrInvalidCredentials}, false)

	_, err := b.SignInWithPassword(context.Background(), "ada@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.Empty(t, pub.events)
}

func TestGetSession(t *testing.T) {
	t.Run("nothing stored", func(t *testing.T) {
		b, _, _, _ := setupBackend(t, &fakePasswords{}, false)
		session, err := b.GetSession(context.Background())
		require.NoError(t, err)
		assert.Nil(t, session)
	})

	t.Run("valid token restores user", func(t *testing.T) {
		passwords := &fakePasswords{grant: &TokenGrant{UID: "u1", IDToken: signedToken(t, "u1", time.Now().Add(time.Hour)), RefreshToken: "r"}}
		b, admin, _, _ := setupBackend(t, passwords, false)
		ctx := context.Background()
		_, err := b.SignInWithPassword(ctx, "ada@example.com", "secret")
		require.NoError(t, err)

		session, err := b.GetSession(ctx)
		require.NoError(t, err)
		require.NotNil(t, session)
		assert.Equal(t, "u1", session.User.ID)
		assert.Equal(t, 1, admin.verifyCalls)
	})

	t.Run("expired token is dropped locally", func(t *testing.T) {
		passwords := &fakePasswords{grant: &TokenGrant{UID: "u1", IDToken: signedToken(t, "u1", time.Now().Add(-time.Minute)), RefreshToken: "r"}}
		b, admin, _, mr := setupBackend(t, passwords, false)
		ctx := context.Background()
		_, err := b.SignInWithPassword(ctx, "ada@example.com", "secret")
		require.NoError(t, err)

		session, err := b.GetSession(ctx)
		require.NoError(t, err)
		assert.Nil(t, session)
		assert.Equal(t, 0, admin.verifyCalls)
		assert.False(t, mr.Exists("local:"+tokenstore.AuthTokenKey))
	})

	t.Run("rejected token clears storage", func(t *testing.T) {
		passwords := &fakePasswords{grant: &TokenGrant{UID: "u1", IDToken: signedToken(t, "u1", time.Now().Add(time.Hour)), RefreshToken: "r"}}
		b, admin, _, mr := setupBackend(t, passwords, false)
		ctx := context.Background()
		_, err := b.SignInWithPassword(ctx, "ada@example.com", "secret")
		require.NoError(t, err)
		admin.verifyErr = errors.New("token revoked")

		_, err = b.GetSession(ctx)
		require.Error(t, err)
		assert.False(t, mr.Exists("local:"+tokenstore.AuthTokenKey))
	})
}

func TestSignUp(t *testing.T) {
	t.Run("confirmation required returns no session", func(t *testing.T) {
		b, _, _, _ := setupBackend(t, &fakePasswords{}, true)

		result, err := b.SignUp(context.Background(), "new@example.com", "secret", map[string]interface{}{"display_name": "New"})
		require.NoError(t, err)
		assert.Equal(t, "u2", result.User.ID)
		assert.Nil(t, result.Session)
	})

	t.Run("signs in straight away otherwise", func(t *testing.T) {
		passwords := &fakePasswords{grant: &TokenGrant{UID: "u2", IDToken: signedToken(t, "u2", time.Now().Add(time.Hour)), RefreshToken: "r"}}
		b, _, _, _ := setupBackend(t, passwords, false)

		result, err := b.SignUp(context.Background(), "new@example.com", "secret", nil)
		require.NoError(t, err)
		require.NotNil(t, result.Session)
		assert.Equal(t, "u2", result.Session.User.ID)
	})
}

func TestSignOut_RevokesAndClears(t *testing.T) {
	passwords := &fakePasswords{grant: &TokenGrant{UID: "u1", IDToken: signedToken(t, "u1", time.Now().Add(time.Hour)), RefreshToken: "r"}}
	b, admin, pub, mr := setupBackend(t, passwords, false)
	ctx := context.Background()
	_, err := b.SignInWithPassword(ctx, "ada@example.com", "secret")
	require.NoError(t, err)

	require.NoError(t, b.SignOut(ctx))
	assert.Equal(t, []string{"u1"}, admin.revoked)
	assert.False(t, mr.Exists("local:"+tokenstore.AuthTokenKey))
	assert.False(t, mr.Exists("local:"+tokenstore.RefreshTokenKey))
	assert.Equal(t, []domain.AuthEvent{domain.EventSignedIn, domain.EventSignedOut}, pub.events)
}

func TestUpdatePassword(t *testing.T) {
	t.Run("needs a session", func(t *testing.T) {
		b, _, _, _ := setupBackend(t, &fakePasswords{}, false)
		assert.ErrorIs(t, b.UpdatePassword(context.Background(), "n3w"), domain.ErrNoSession)
	})

	t.Run("updates signed-in user", func(t *testing.T) {
		passwords := &fakePasswords{grant: &TokenGrant{UID: "u1", IDToken: signedToken(t, "u1", time.Now().Add(time.Hour)), RefreshToken: "r"}}
		b, admin, _, _ := setupBackend(t, passwords, false)
		ctx := context.Background()
		_, err := b.SignInWithPassword(ctx, "ada@example.com", "secret")
		require.NoError(t, err)

		require.NoError(t, b.UpdatePassword(ctx, "n3w-secret"))
		assert.Equal(t, "changed", admin.passwords["u1"])
	})
}

func TestResetPasswordForEmail(t *testing.T) {
	passwords := &fakePasswords{}
	b, _, _, _ := setupBackend(t, passwords, false)

	require.NoError(t, b.ResetPasswordForEmail(context.Background(), "ada@example.com"))
	assert.Equal(t, "ada@example.com", passwords.resetFor)
}

func TestFactory_ClientFor(t *testing.T) {
	f := &Factory{Stores: map[domain.StorageKind]tokenstore.Store{}}
	_, err := f.ClientFor(domain.StorageSession)
	assert.Error(t, err)
}

func TestTokenExpiry(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	got, ok := tokenExpiry(signedToken(t, "u1", exp))
	require.True(t, ok)
	assert.True(t, got.Equal(exp))

	_, ok = tokenExpiry("not-a-jwt")
	assert.False(t, ok)
	_, ok = tokenExpiry("")
	assert.False(t, ok)
}
