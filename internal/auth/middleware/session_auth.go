package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/GoSim-25-26J-441/marketplace-core/internal/auth"
	"github.com/GoSim-25-26J-441/marketplace-core/internal/auth/domain"
)

// StateReader exposes the current auth state.
type StateReader interface {
	State() domain.AuthState
}

// RequireRole lets the request through only when the session has a loaded
// profile with one of roles. With no roles any signed-in user passes.
func RequireRole(sessions StateReader, roles ...domain.Role) gin.HandlerFunc {
	allowed := make(map[domain.Role]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}

	return func(c *gin.Context) {
		state := sessions.State()
		if state.User == nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
			c.Abort()
			return
		}

		if len(allowed) > 0 {
			if state.Profile == nil || !allowed[state.Profile.Role] {
				c.JSON(http.StatusForbidden, gin.H{"error": "insufficient role"})
				c.Abort()
				return
			}
		}

		c.Set(auth.CtxUserID, state.User.ID)
		if state.Profile != nil {
			c.Set(auth.CtxRole, string(state.Profile.Role))
		}
		c.Next()
	}
}
