package domain

import (
	"io"
	"time"
)

// Role identifies which role-partitioned table holds a user's profile.
type Role string

const (
	RoleCustomer   Role = "CUSTOMER"
	RoleSupplier   Role = "SUPPLIER"
	RoleAdmin      Role = "ADMIN"
	RoleSuperAdmin Role = "SUPER_ADMIN"
)

// Valid reports whether r is one of the known marketplace roles.
func (r Role) Valid() bool {
	switch r {
	case RoleCustomer, RoleSupplier, RoleAdmin, RoleSuperAdmin:
		return true
	}
	return false
}

// AccountType constants
const (
	AccountIndividual = "individual"
	AccountCompany    = "company"
)

// User is the identity record assigned by the auth backend.
type User struct {
	ID             string                 `json:"id"`
	Email          string                 `json:"email"`
	EmailConfirmed bool                   `json:"email_confirmed"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
}

// Session is the token bundle backing a User.
type Session struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	User         *User     `json:"user"`
}

// Profile is the durable per-user record kept in one of the role tables.
type Profile struct {
	UserID       string    `json:"user_id" db:"user_id"`
	Email        string    `json:"email" db:"email"`
	Role         Role      `json:"role" db:"role"`
	AccountType  string    `json:"account_type" db:"account_type"`
	IsVerified   bool      `json:"is_verified" db:"is_verified"`
	AvatarURL    *string   `json:"avatar_url,omitempty" db:"avatar_url"`
	FirstName    *string   `json:"first_name,omitempty" db:"first_name"`
	LastName     *string   `json:"last_name,omitempty" db:"last_name"`
	Phone        *string   `json:"phone,omitempty" db:"phone"`
	BusinessName *string   `json:"business_name,omitempty" db:"business_name"`
	CompanyName  *string   `json:"company_name,omitempty" db:"company_name"`
	TaxID        *string   `json:"tax_id,omitempty" db:"tax_id"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// ProfileFields carries the sign-up form values used to create a profile row.
type ProfileFields struct {
	Role         Role
	AccountType  string
	FirstName    *string
	LastName     *string
	Phone        *string
	BusinessName *string
	CompanyName  *string
	TaxID        *string
}

// ProfilePatch represents data for updating a profile; nil fields are left as is.
type ProfilePatch struct {
	AccountType  *string `json:"account_type,omitempty"`
	FirstName    *string `json:"first_name,omitempty"`
	LastName     *string `json:"last_name,omitempty"`
	Phone        *string `json:"phone,omitempty"`
	BusinessName *string `json:"business_name,omitempty"`
	CompanyName  *string `json:"company_name,omitempty"`
	TaxID        *string `json:"tax_id,omitempty"`
}

// SignUpResult is what the auth backend returns from account creation.
// Session is nil when the backend requires email confirmation first.
type SignUpResult struct {
	User    *User
	Session *Session
}

// AuthState is the aggregate exposed to page code.
type AuthState struct {
	User    *User    `json:"user"`
	Session *Session `json:"session"`
	Profile *Profile `json:"profile"`
	Loading bool     `json:"loading"`
	Error   string   `json:"error,omitempty"`
}

// UserID returns the current user's id or "" when anonymous.
func (s AuthState) UserID() string {
	if s.User == nil {
		return ""
	}
	return s.User.ID
}

// Phase is the lifecycle position of the session manager.
type Phase string

const (
	PhaseUninitialized         Phase = "UNINITIALIZED"
	PhaseInitializing          Phase = "INITIALIZING"
	PhaseAnonymous             Phase = "ANONYMOUS"
	PhaseAuthenticatingProfile Phase = "AUTHENTICATING_PROFILE"
	PhaseReady                 Phase = "READY"
)

// StorageKind selects where the auth token bundle is kept between bootstraps.
type StorageKind string

const (
	StorageLocal   StorageKind = "local"
	StorageSession StorageKind = "session"
)

// AuthEvent names the notifications delivered by the auth backend.
type AuthEvent string

const (
	EventSignedIn       AuthEvent = "SIGNED_IN"
	EventSignedOut      AuthEvent = "SIGNED_OUT"
	EventTokenRefreshed AuthEvent = "TOKEN_REFRESHED"
	EventUserUpdated    AuthEvent = "USER_UPDATED"
)

// AuthChange is the payload carried on the auth event bus.
type AuthChange struct {
	Event   AuthEvent `json:"event"`
	Session *Session  `json:"session,omitempty"`
	At      time.Time `json:"at"`
}

// AvatarFile is an uploaded profile picture.
type AvatarFile struct {
	Name        string
	ContentType string
	Size        int64
	Body        io.Reader
}
