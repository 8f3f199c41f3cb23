package session

import (
	"context"

	"github.com/GoSim-25-26J-441/marketplace-core/internal/auth/domain"
)

// handleAuthEvent reacts to auth-change notifications from the backend.
// Events arriving during a profile fetch are ignored. An empty session only
// clears identity on SIGNED_OUT; token rotation can briefly deliver one.
func (m *Manager) handleAuthEvent(ctx context.Context, change domain.AuthChange) {
	if m.fetching.Load() {
		m.log.Infof(ctx, "auth-event", "event=%s ignored, profile fetch in flight", change.Event)
		return
	}

	if change.Session != nil && change.Session.User != nil {
		m.adoptSession(change.Session)
		m.fetchProfile(ctx, change.Session.User.ID)
		return
	}

	if change.Event == domain.EventSignedOut {
		m.update(func(s *domain.AuthState) {
			s.User = nil
			s.Session = nil
			s.Profile = nil
			s.Error = ""
			s.Loading = false
			m.generation++
			m.phase = domain.PhaseAnonymous
		})
	}
}
