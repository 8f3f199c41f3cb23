package http

import "github.com/gin-gonic/gin"

func (h *Handler) Register(rg *gin.RouterGroup) {
	rg.GET("/state", h.GetState)
	rg.POST("/sign-up", h.SignUp)
	rg.POST("/sign-in", h.SignIn)
	rg.POST("/sign-out", h.SignOut)
	rg.POST("/password/reset", h.ResetPassword)
	rg.PUT("/password", h.UpdatePassword)
	rg.PUT("/profile", h.UpdateProfile)
	rg.POST("/profile/avatar", h.UploadAvatar)
	rg.POST("/profile/refresh", h.RefreshProfile)
	rg.POST("/reset", h.ForceReset)
}
