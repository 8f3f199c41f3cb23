package auth

import (
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	CtxUserID = "user_id"
	CtxRole   = "role"
)

// CurrentUserID extracts the user id set by the session middleware
func CurrentUserID(c *gin.Context) string {
	return strings.TrimSpace(c.GetString(CtxUserID))
}
