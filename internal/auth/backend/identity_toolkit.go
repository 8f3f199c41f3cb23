package backend

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/identitytoolkit/v3"
	"google.golang.org/api/option"
)

// ErrInvalidCredentials is returned when email/password do not match an account.
var ErrInvalidCredentials = errors.New("invalid email or password")

// IdentityToolkit performs password sign-in and reset through the
// Identity Toolkit API using the project's web API key.
type IdentityToolkit struct {
	rp *identitytoolkit.RelyingpartyService
}

// NewIdentityToolkit creates the client
func NewIdentityToolkit(ctx context.Context, apiKey string, opts ...option.ClientOption) (*IdentityToolkit, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("FIREBASE_API_KEY is required")
	}
	svc, err := identitytoolkit.NewService(ctx, append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create identity toolkit client: %w", err)
	}
	return &IdentityToolkit{rp: svc.Relyingparty}, nil
}

// SignInWithPassword verifies credentials and returns the issued tokens.
func (t *IdentityToolkit) SignInWithPassword(ctx context.Context, email, password string) (*TokenGrant, error) {
	resp, err := t.rp.VerifyPassword(&identitytoolkit.IdentitytoolkitRelyingpartyVerifyPasswordRequest{
		Email:             email,
		Password:          password,
		ReturnSecureToken: true,
	}).Context(ctx).Do()
	if err != nil {
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) && apiErr.Code == http.StatusBadRequest {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to sign in: %w", err)
	}
	return &TokenGrant{
		UID:          resp.LocalId,
		IDToken:      resp.IdToken,
		RefreshToken: resp.RefreshToken,
	}, nil
}

// SendPasswordReset asks the backend to email a password reset link.
func (t *IdentityToolkit) SendPasswordReset(ctx context.Context, email string) error {
	_, err := t.rp.GetOobConfirmationCode(&identitytoolkit.Relyingparty{
		RequestType: "PASSWORD_RESET",
		Email:       email,
	}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to send password reset: %w", err)
	}
	return nil
}
