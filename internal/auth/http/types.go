package http

import (
	"context"

	"github.com/GoSim-25-26J-441/marketplace-core/internal/auth/domain"
)

// Sessions is the session manager surface served over HTTP.
type Sessions interface {
	State() domain.AuthState
	Phase() domain.Phase
	SignUp(ctx context.Context, email, password string, fields domain.ProfileFields) (*domain.SignUpResult, error)
	SignIn(ctx context.Context, email, password string, rememberMe bool) (*domain.Session, error)
	SignOut(ctx context.Context) error
	ResetPassword(ctx context.Context, email string) error
	UpdatePassword(ctx context.Context, newPassword string) error
	UpdateProfile(ctx context.Context, patch domain.ProfilePatch) (*domain.Profile, error)
	UploadAvatar(ctx context.Context, file domain.AvatarFile) (string, error)
	RefreshProfile(ctx context.Context)
	ForceAuthReset(ctx context.Context)
}

type Handler struct {
	sessions Sessions
}

func New(sessions Sessions) *Handler {
	return &Handler{
		sessions: sessions,
	}
}

type stateResponse struct {
	Phase domain.Phase `json:"phase"`
	domain.AuthState
}

type signUpRequest struct {
	Email        string  `json:"email" binding:"required,email"`
	Password     string  `json:"password" binding:"required,min=6"`
	Role         string  `json:"role" binding:"required"`
	AccountType  string  `json:"account_type"`
	FirstName    *string `json:"first_name,omitempty"`
	LastName     *string `json:"last_name,omitempty"`
	Phone        *string `json:"phone,omitempty"`
	BusinessName *string `json:"business_name,omitempty"`
	CompanyName  *string `json:"company_name,omitempty"`
	TaxID        *string `json:"tax_id,omitempty"`
}

type signInRequest struct {
	Email      string `json:"email" binding:"required,email"`
	Password   string `json:"password" binding:"required"`
	RememberMe bool   `json:"remember_me"`
}

type emailRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type passwordRequest struct {
	Password string `json:"password" binding:"required,min=6"`
}
