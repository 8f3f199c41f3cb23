package http

import "github.com/gin-gonic/gin"

// Register mounts the visitor-facing routes.
func (h *Handler) Register(rg *gin.RouterGroup) {
	rg.GET("/state", h.GetState)
	rg.PUT("/active", h.SetActive)
	rg.POST("/detect", h.Detect)
	rg.GET("/convert", h.Convert)
	rg.GET("/format", h.Format)
}

// RegisterAdmin mounts rate management. Callers guard rg with a role check.
func (h *Handler) RegisterAdmin(rg *gin.RouterGroup) {
	rg.PUT("", h.UpsertRate)
	rg.POST("/refresh", h.RefreshRates)
}
