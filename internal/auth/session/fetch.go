package session

import (
	"context"
	"errors"
	"time"

	"github.com/GoSim-25-26J-441/marketplace-core/internal/auth/domain"
	"github.com/GoSim-25-26J-441/marketplace-core/internal/metrics"
)

// ProfileLoadError is the message stored in AuthState.Error when a profile
// read fails or times out.
const ProfileLoadError = "failed to load profile"

var errProfileTimeout = errors.New("profile fetch timed out")

type profileResult struct {
	profile *domain.Profile
	err     error
}

// fetchProfile loads the profile for userID. Only one fetch runs at a time;
// calls made while one is outstanding return immediately. When the identity
// changed while the latch was held, the holder fetches again for the newest
// identity before giving up, since that identity's own call was dropped.
func (m *Manager) fetchProfile(ctx context.Context, userID string) {
	for userID != "" {
		if !m.fetching.CompareAndSwap(false, true) {
			metrics.ProfileFetches.WithLabelValues("skipped").Inc()
			return
		}
		m.loadProfile(ctx, userID)
		userID = m.awaitingProfile()
	}
}

// awaitingProfile returns the user whose profile is still outstanding.
func (m *Manager) awaitingProfile() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.phase != domain.PhaseAuthenticatingProfile || m.state.User == nil {
		return ""
	}
	return m.state.User.ID
}

// loadProfile runs one read and releases the fetch latch. The timeout stops
// the wait but leaves the store call running. Its result lands in a buffered
// channel that nobody reads.
func (m *Manager) loadProfile(ctx context.Context, userID string) {
	defer m.fetching.Store(false)

	m.mu.Lock()
	gen := m.generation
	m.mu.Unlock()

	done := make(chan profileResult, 1)
	go func(ctx context.Context) {
		profile, err := m.deps.Profiles.GetByUserID(ctx, userID)
		done <- profileResult{profile: profile, err: err}
	}(context.WithoutCancel(ctx))

	timer := time.NewTimer(m.profileTimeout)
	defer timer.Stop()

	var res profileResult
	select {
	case res = <-done:
	case <-timer.C:
		res.err = errProfileTimeout
	}

	if res.err != nil {
		outcome := "error"
		if errors.Is(res.err, errProfileTimeout) {
			outcome = "timeout"
		}
		metrics.ProfileFetches.WithLabelValues(outcome).Inc()
		m.log.Errorf(ctx, "fetch-profile", "user_id=%s error=%v", userID, res.err)
	} else {
		metrics.ProfileFetches.WithLabelValues("ok").Inc()
	}

	applied := false
	m.update(func(s *domain.AuthState) {
		if gen != m.generation {
			return
		}
		applied = true
		s.Loading = false
		if res.err != nil {
			s.Profile = nil
			s.Error = ProfileLoadError
		} else {
			s.Profile = res.profile
		}
		m.phase = domain.PhaseReady
	})

	if applied && res.err == nil {
		m.syncVerification(ctx, gen, res.profile)
	}
}

// syncVerification flips the profile's verification flag when the auth
// backend already reports the email as confirmed, then re-reads the profile.
func (m *Manager) syncVerification(ctx context.Context, gen uint64, profile *domain.Profile) {
	if profile == nil || profile.IsVerified {
		return
	}
	m.nonCritical(ctx, "sync-verification", func() error {
		backend, err := m.client(ctx)
		if err != nil {
			return err
		}
		user, err := backend.GetUser(ctx)
		if err != nil {
			return err
		}
		if user == nil || !user.EmailConfirmed {
			return nil
		}

		if err := m.deps.Profiles.MarkVerified(ctx, profile.Role, profile.UserID); err != nil {
			return err
		}
		refreshed, err := m.deps.Profiles.GetByUserID(ctx, profile.UserID)
		if err != nil {
			return err
		}

		m.update(func(s *domain.AuthState) {
			if gen == m.generation {
				s.Profile = refreshed
			}
		})
		return nil
	})
}
