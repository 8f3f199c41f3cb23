package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"firebase.google.com/go/v4/auth"

	"github.com/GoSim-25-26J-441/marketplace-core/internal/auth/domain"
	"github.com/GoSim-25-26J-441/marketplace-core/internal/auth/events"
	"github.com/GoSim-25-26J-441/marketplace-core/internal/auth/tokenstore"
)

// AdminAuth is the subset of the Firebase Admin auth client used here.
type AdminAuth interface {
	CreateUser(ctx context.Context, user *auth.UserToCreate) (*auth.UserRecord, error)
	GetUser(ctx context.Context, uid string) (*auth.UserRecord, error)
	UpdateUser(ctx context.Context, uid string, user *auth.UserToUpdate) (*auth.UserRecord, error)
	RevokeRefreshTokens(ctx context.Context, uid string) error
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
}

// PasswordAuth performs the end-user password flows the Admin SDK lacks.
type PasswordAuth interface {
	SignInWithPassword(ctx context.Context, email, password string) (*TokenGrant, error)
	SendPasswordReset(ctx context.Context, email string) error
}

// TokenGrant is the token pair returned by a successful password sign-in.
type TokenGrant struct {
	UID          string
	IDToken      string
	RefreshToken string
}

// FirebaseBackend is the remote auth backend bound to one token store.
type FirebaseBackend struct {
	admin               AdminAuth
	passwords           PasswordAuth
	store               tokenstore.Store
	events              events.Publisher
	requireConfirmation bool
	now                 func() time.Time
}

// NewFirebaseBackend creates a backend that keeps its session in store.
func NewFirebaseBackend(admin AdminAuth, passwords PasswordAuth, store tokenstore.Store, publisher events.Publisher, requireConfirmation bool) *FirebaseBackend {
	return &FirebaseBackend{
		admin:               admin,
		passwords:           passwords,
		store:               store,
		events:              publisher,
		requireConfirmation: requireConfirmation,
		now:                 time.Now,
	}
}

// GetSession returns the stored session if its token is still valid, or nil.
func (b *FirebaseBackend) GetSession(ctx context.Context) (*domain.Session, error) {
	session, err := b.storedSession(ctx)
	if err != nil || session == nil {
		return nil, err
	}

	if exp, ok := tokenExpiry(session.AccessToken); ok && !exp.After(b.now()) {
		b.clear(ctx)
		return nil, nil
	}

	token, err := b.admin.VerifyIDToken(ctx, session.AccessToken)
	if err != nil {
		b.clear(ctx)
		return nil, fmt.Errorf("stored session rejected: %w", err)
	}

	record, err := b.admin.GetUser(ctx, token.UID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user %s: %w", token.UID, err)
	}
	session.User = toUser(record)
	return session, nil
}

// SignUp creates the account. A session is returned only when no email
// confirmation step is configured.
func (b *FirebaseBackend) SignUp(ctx context.Context, email, password string, metadata map[string]interface{}) (*domain.SignUpResult, error) {
	params := (&auth.UserToCreate{}).
		Email(email).
		Password(password).
		EmailVerified(false)
	if name, ok := metadata["display_name"].(string); ok && name != "" {
		params = params.DisplayName(name)
	}

	record, err := b.admin.CreateUser(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	result := &domain.SignUpResult{User: toUser(record)}
	if b.requireConfirmation {
		return result, nil
	}

	session, err := b.SignInWithPassword(ctx, email, password)
	if err != nil {
		return nil, err
	}
	result.Session = session
	return result, nil
}

// SignInWithPassword exchanges credentials for a session and stores it.
func (b *FirebaseBackend) SignInWithPassword(ctx context.Context, email, password string) (*domain.Session, error) {
	grant, err := b.passwords.SignInWithPassword(ctx, email, password)
	if err != nil {
		return nil, err
	}

	record, err := b.admin.GetUser(ctx, grant.UID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user %s: %w", grant.UID, err)
	}

	session := &domain.Session{
		AccessToken:  grant.IDToken,
		RefreshToken: grant.RefreshToken,
		User:         toUser(record),
	}
	if exp, ok := tokenExpiry(grant.IDToken); ok {
		session.ExpiresAt = exp
	} else {
		session.ExpiresAt = b.now().Add(time.Hour)
	}

	if err := b.persist(ctx, session); err != nil {
		return nil, err
	}
	b.publish(ctx, domain.EventSignedIn, session)
	return session, nil
}

// SignOut revokes refresh tokens and forgets the stored session.
func (b *FirebaseBackend) SignOut(ctx context.Context) error {
	session, err := b.storedSession(ctx)
	if err != nil {
		return err
	}
	if session != nil && session.User != nil {
		if err := b.admin.RevokeRefreshTokens(ctx, session.User.ID); err != nil {
			return fmt.Errorf("failed to revoke tokens: %w", err)
		}
	}
	if err := b.store.Delete(ctx, tokenstore.AuthTokenKey, tokenstore.RefreshTokenKey); err != nil {
		return err
	}
	b.publish(ctx, domain.EventSignedOut, nil)
	return nil
}

// ResetPasswordForEmail sends the password reset email.
func (b *FirebaseBackend) ResetPasswordForEmail(ctx context.Context, email string) error {
	return b.passwords.SendPasswordReset(ctx, email)
}

// UpdatePassword sets a new password for the signed-in user.
func (b *FirebaseBackend) UpdatePassword(ctx context.Context, newPassword string) error {
	session, err := b.storedSession(ctx)
	if err != nil {
		return err
	}
	if session == nil || session.User == nil {
		return domain.ErrNoSession
	}
	if _, err := b.admin.UpdateUser(ctx, session.User.ID, (&auth.UserToUpdate{}).Password(newPassword)); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	b.publish(ctx, domain.EventUserUpdated, session)
	return nil
}

// GetUser returns the backend's current record for the signed-in user.
func (b *FirebaseBackend) GetUser(ctx context.Context) (*domain.User, error) {
	session, err := b.storedSession(ctx)
	if err != nil {
		return nil, err
	}
	if session == nil || session.User == nil {
		return nil, domain.ErrNoSession
	}
	record, err := b.admin.GetUser(ctx, session.User.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user %s: %w", session.User.ID, err)
	}
	return toUser(record), nil
}

func (b *FirebaseBackend) storedSession(ctx context.Context) (*domain.Session, error) {
	raw, err := b.store.Get(ctx, tokenstore.AuthTokenKey)
	if errors.Is(err, tokenstore.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var session domain.Session
	if err := json.Unmarshal([]byte(raw), &session); err != nil {
		b.clear(ctx)
		return nil, nil
	}
	return &session, nil
}

func (b *FirebaseBackend) persist(ctx context.Context, session *domain.Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	if err := b.store.Set(ctx, tokenstore.AuthTokenKey, string(data)); err != nil {
		return err
	}
	return b.store.Set(ctx, tokenstore.RefreshTokenKey, session.RefreshToken)
}

func (b *FirebaseBackend) clear(ctx context.Context) {
	if err := b.store.Delete(ctx, tokenstore.AuthTokenKey, tokenstore.RefreshTokenKey); err != nil {
		log.Printf("[warn] component=auth-backend clear stored session: %v", err)
	}
}

func (b *FirebaseBackend) publish(ctx context.Context, event domain.AuthEvent, session *domain.Session) {
	if b.events == nil {
		return
	}
	change := domain.AuthChange{Event: event, Session: session, At: b.now()}
	if err := b.events.Publish(ctx, change); err != nil {
		log.Printf("[warn] component=auth-backend publish %s: %v", event, err)
	}
}

func toUser(record *auth.UserRecord) *domain.User {
	if record == nil || record.UserInfo == nil {
		return nil
	}
	user := &domain.User{
		ID:             record.UID,
		Email:          record.Email,
		EmailConfirmed: record.EmailVerified,
		Metadata:       map[string]interface{}{},
	}
	if record.DisplayName != "" {
		user.Metadata["display_name"] = record.DisplayName
	}
	for k, v := range record.CustomClaims {
		user.Metadata[k] = v
	}
	return user
}
