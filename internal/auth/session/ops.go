package session

import (
	"context"
	"strings"

	"github.com/GoSim-25-26J-441/marketplace-core/internal/auth/domain"
	"github.com/GoSim-25-26J-441/marketplace-core/internal/auth/tokenstore"
)

// SignUp creates the account and its profile row. When the backend returns a
// session straight away the new identity is adopted without a second fetch.
func (m *Manager) SignUp(ctx context.Context, email, password string, fields domain.ProfileFields) (*domain.SignUpResult, error) {
	if !fields.Role.Valid() {
		return nil, domain.ErrInvalidRole
	}
	m.begin()

	result, profile, err := m.signUp(ctx, email, password, fields)
	observe("sign_up", err)
	if err != nil {
		m.fail(ctx, "sign-up", err)
		return nil, err
	}

	if result.Session == nil {
		m.update(func(s *domain.AuthState) { s.Loading = false })
		return result, nil
	}

	m.update(func(s *domain.AuthState) {
		s.User = result.User
		s.Session = result.Session
		s.Profile = profile
		s.Loading = false
		m.generation++
		m.phase = domain.PhaseReady
	})
	return result, nil
}

func (m *Manager) signUp(ctx context.Context, email, password string, fields domain.ProfileFields) (*domain.SignUpResult, *domain.Profile, error) {
	backend, err := m.client(ctx)
	if err != nil {
		return nil, nil, err
	}
	result, err := backend.SignUp(ctx, email, password, signUpMetadata(fields))
	if err != nil {
		return nil, nil, err
	}
	profile, err := m.deps.Profiles.Create(ctx, result.User, fields)
	if err != nil {
		return nil, nil, err
	}
	return result, profile, nil
}

func signUpMetadata(fields domain.ProfileFields) map[string]interface{} {
	meta := map[string]interface{}{
		"role":         string(fields.Role),
		"account_type": fields.AccountType,
	}
	var parts []string
	for _, p := range []*string{fields.FirstName, fields.LastName} {
		if p != nil && *p != "" {
			parts = append(parts, *p)
		}
	}
	switch {
	case len(parts) > 0:
		meta["display_name"] = strings.Join(parts, " ")
	case fields.BusinessName != nil && *fields.BusinessName != "":
		meta["display_name"] = *fields.BusinessName
	}
	return meta
}

// SignIn authenticates with email and password. rememberMe picks the storage
// used for this login and for future bootstraps.
func (m *Manager) SignIn(ctx context.Context, email, password string, rememberMe bool) (*domain.Session, error) {
	m.begin()

	kind := domain.StorageSession
	if rememberMe {
		kind = domain.StorageLocal
	}

	session, err := m.signIn(ctx, kind, email, password)
	observe("sign_in", err)
	if err != nil {
		m.fail(ctx, "sign-in", err)
		return nil, err
	}

	if session == nil || session.User == nil {
		// identity arrives through the auth-change subscription
		m.update(func(s *domain.AuthState) { s.Loading = false })
		return session, nil
	}

	m.adoptSession(session)
	m.fetchProfile(ctx, session.User.ID)
	return session, nil
}

// signIn authenticates against the backend for kind. The storage marker and
// the bound backend only move once the credentials are accepted.
func (m *Manager) signIn(ctx context.Context, kind domain.StorageKind, email, password string) (*domain.Session, error) {
	backend, err := m.deps.Backends(kind)
	if err != nil {
		return nil, err
	}
	session, err := backend.SignInWithPassword(ctx, email, password)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.backend = backend
	m.mu.Unlock()
	m.nonCritical(ctx, "storage-marker", func() error {
		return m.deps.Persistent.Set(ctx, tokenstore.StorageMarkerKey, string(kind))
	})
	return session, nil
}

// SignOut ends the session. Identity is cleared only when the backend
// accepted the sign-out.
func (m *Manager) SignOut(ctx context.Context) error {
	m.begin()

	backend, err := m.client(ctx)
	if err == nil {
		err = backend.SignOut(ctx)
	}
	observe("sign_out", err)
	if err != nil {
		m.fail(ctx, "sign-out", err)
		return err
	}

	m.update(func(s *domain.AuthState) {
		s.User = nil
		s.Session = nil
		s.Profile = nil
		s.Error = ""
		s.Loading = false
		m.generation++
		m.phase = domain.PhaseAnonymous
	})
	return nil
}

// ResetPassword sends a password reset email.
func (m *Manager) ResetPassword(ctx context.Context, email string) error {
	return m.passThrough(ctx, "reset_password", func(b Backend) error {
		return b.ResetPasswordForEmail(ctx, email)
	})
}

// UpdatePassword changes the signed-in user's password.
func (m *Manager) UpdatePassword(ctx context.Context, newPassword string) error {
	return m.passThrough(ctx, "update_password", func(b Backend) error {
		return b.UpdatePassword(ctx, newPassword)
	})
}

func (m *Manager) passThrough(ctx context.Context, operation string, fn func(Backend) error) error {
	m.begin()
	backend, err := m.client(ctx)
	if err == nil {
		err = fn(backend)
	}
	observe(operation, err)
	if err != nil {
		m.fail(ctx, operation, err)
		return err
	}
	m.update(func(s *domain.AuthState) { s.Loading = false })
	return nil
}

// UpdateProfile writes patch to the current user's profile row and caches
// the stored result.
func (m *Manager) UpdateProfile(ctx context.Context, patch domain.ProfilePatch) (*domain.Profile, error) {
	userID, current, err := m.currentProfile()
	if err != nil {
		return nil, err
	}

	updated, err := m.deps.Profiles.Update(ctx, current.Role, userID, patch)
	observe("update_profile", err)
	if err != nil {
		m.fail(ctx, "update-profile", err)
		return nil, err
	}

	m.update(func(s *domain.AuthState) {
		if s.User != nil && s.User.ID == userID {
			s.Profile = updated
		}
		s.Error = ""
	})
	return updated, nil
}

// UploadAvatar stores file as the user's profile picture and returns its URL.
// Only avatar_url changes on the cached profile.
func (m *Manager) UploadAvatar(ctx context.Context, file domain.AvatarFile) (string, error) {
	userID, current, err := m.currentProfile()
	if err != nil {
		return "", err
	}
	if m.deps.Avatars == nil {
		return "", ErrAvatarsDisabled
	}

	url, err := m.deps.Avatars.Upload(ctx, userID, file)
	if err == nil {
		err = m.deps.Profiles.SetAvatarURL(ctx, current.Role, userID, url)
	}
	observe("upload_avatar", err)
	if err != nil {
		m.fail(ctx, "upload-avatar", err)
		return "", err
	}

	m.update(func(s *domain.AuthState) {
		if s.Profile == nil || s.Profile.UserID != userID {
			return
		}
		merged := *s.Profile
		merged.AvatarURL = &url
		s.Profile = &merged
		s.Error = ""
	})
	return url, nil
}

// RefreshProfile re-reads the current user's profile. No-op when anonymous.
func (m *Manager) RefreshProfile(ctx context.Context) {
	userID := m.State().UserID()
	if userID == "" {
		return
	}
	m.fetchProfile(ctx, userID)
}

// ForceAuthReset drops all auth state and rebuilds the application. Every
// step after clearing memory is best-effort.
func (m *Manager) ForceAuthReset(ctx context.Context) {
	m.mu.Lock()
	backend := m.backend
	m.mu.Unlock()

	m.update(func(s *domain.AuthState) {
		*s = domain.AuthState{}
		m.generation++
		m.phase = domain.PhaseAnonymous
	})

	if backend != nil {
		m.nonCritical(ctx, "force-reset-sign-out", func() error {
			return backend.SignOut(ctx)
		})
	}

	keys := []string{tokenstore.StorageMarkerKey, tokenstore.AuthTokenKey, tokenstore.RefreshTokenKey}
	for _, store := range []tokenstore.Store{m.deps.Persistent, m.deps.Scoped} {
		store := store
		m.nonCritical(ctx, "force-reset-clear-storage", func() error {
			return store.Delete(ctx, keys...)
		})
	}

	observe("force_reset", nil)
	m.log.Infof(ctx, "force-reset", "auth state cleared, reloading application")
	if m.reload != nil {
		m.reload()
	}
}

func (m *Manager) currentProfile() (string, *domain.Profile, error) {
	s := m.State()
	if s.User == nil {
		return "", nil, domain.ErrNotAuthenticated
	}
	if s.Profile == nil {
		return "", nil, domain.ErrProfileNotLoaded
	}
	return s.User.ID, s.Profile, nil
}

func (m *Manager) begin() {
	m.update(func(s *domain.AuthState) {
		s.Loading = true
		s.Error = ""
	})
}

func (m *Manager) fail(ctx context.Context, operation string, err error) {
	m.log.Error(ctx, operation, err)
	m.update(func(s *domain.AuthState) {
		s.Loading = false
		s.Error = err.Error()
	})
}
