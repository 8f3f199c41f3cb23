package domain

import "errors"

var (
	ErrNotAuthenticated = errors.New("no user is logged in")
	ErrProfileNotFound  = errors.New("profile not found")
	ErrProfileNotLoaded = errors.New("profile not loaded")
	ErrInvalidRole      = errors.New("invalid role")
	ErrNoSession        = errors.New("no active session")
)
