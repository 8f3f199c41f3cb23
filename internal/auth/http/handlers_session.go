package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/GoSim-25-26J-441/marketplace-core/internal/auth/avatar"
	"github.com/GoSim-25-26J-441/marketplace-core/internal/auth/backend"
	"github.com/GoSim-25-26J-441/marketplace-core/internal/auth/domain"
)

// GetState returns the current auth state and lifecycle phase
func (h *Handler) GetState(c *gin.Context) {
	c.JSON(http.StatusOK, stateResponse{Phase: h.sessions.Phase(), AuthState: h.sessions.State()})
}

// SignUp creates an account and its role profile
func (h *Handler) SignUp(c *gin.Context) {
	var req signUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	accountType := req.AccountType
	if accountType == "" {
		accountType = domain.AccountIndividual
	}
	fields := domain.ProfileFields{
		Role:         domain.Role(strings.ToUpper(req.Role)),
		AccountType:  accountType,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Phone:        req.Phone,
		BusinessName: req.BusinessName,
		CompanyName:  req.CompanyName,
		TaxID:        req.TaxID,
	}

	result, err := h.sessions.SignUp(c.Request.Context(), req.Email, req.Password, fields)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"user":                  result.User,
		"confirmation_required": result.Session == nil,
		"state":                 h.sessions.State(),
	})
}

// SignIn authenticates with email and password
func (h *Handler) SignIn(c *gin.Context) {
	var req signInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if _, err := h.sessions.SignIn(c.Request.Context(), req.Email, req.Password, req.RememberMe); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": h.sessions.State()})
}

// SignOut ends the current session
func (h *Handler) SignOut(c *gin.Context) {
	if err := h.sessions.SignOut(c.Request.Context()); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": h.sessions.State()})
}

// ResetPassword sends a password reset email
func (h *Handler) ResetPassword(c *gin.Context) {
	var req emailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if err := h.sessions.ResetPassword(c.Request.Context(), req.Email); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"ok": true})
}

// UpdatePassword changes the signed-in user's password
func (h *Handler) UpdatePassword(c *gin.Context) {
	var req passwordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if err := h.sessions.UpdatePassword(c.Request.Context(), req.Password); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// UpdateProfile applies a partial update to the current profile
func (h *Handler) UpdateProfile(c *gin.Context) {
	var patch domain.ProfilePatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	profile, err := h.sessions.UpdateProfile(c.Request.Context(), patch)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"profile": profile})
}

// UploadAvatar accepts a multipart "file" field
func (h *Handler) UploadAvatar(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	f, err := header.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read upload"})
		return
	}
	defer f.Close()

	url, err := h.sessions.UploadAvatar(c.Request.Context(), domain.AvatarFile{
		Name:        header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Body:        f,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"avatar_url": url})
}

// RefreshProfile re-reads the current profile
func (h *Handler) RefreshProfile(c *gin.Context) {
	h.sessions.RefreshProfile(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"state": h.sessions.State()})
}

// ForceReset clears all auth state and restarts the runtime
func (h *Handler) ForceReset(c *gin.Context) {
	h.sessions.ForceAuthReset(c.Request.Context())
	c.JSON(http.StatusAccepted, gin.H{"ok": true})
}

func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrNotAuthenticated), errors.Is(err, domain.ErrNoSession),
		errors.Is(err, backend.ErrInvalidCredentials):
		status = http.StatusUnauthorized
	case errors.Is(err, domain.ErrProfileNotLoaded):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrProfileNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidRole), errors.Is(err, avatar.ErrEmptyFile),
		errors.Is(err, avatar.ErrUnsupportedType):
		status = http.StatusBadRequest
	case errors.Is(err, avatar.ErrTooLarge):
		status = http.StatusRequestEntityTooLarge
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
