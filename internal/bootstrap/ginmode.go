package bootstrap

import (
	"strings"

	"github.com/gin-gonic/gin"
)

// ginModes maps APP_ENV values to gin modes. Anything else runs in debug.
var ginModes = map[string]string{
	"production": gin.ReleaseMode,
	"prod":       gin.ReleaseMode,
	"staging":    gin.ReleaseMode,
	"test":       gin.TestMode,
}

// SetGinMode selects the gin mode for env and returns it.
func SetGinMode(env string) string {
	mode, ok := ginModes[strings.ToLower(strings.TrimSpace(env))]
	if !ok {
		mode = gin.DebugMode
	}
	gin.SetMode(mode)
	return mode
}
