package models

import "errors"

// Sentinel errors for common failure conditions
var (
	ErrNotFound       = errors.New("resource not found")
	ErrConflict       = errors.New("resource already exists")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrBadRequest     = errors.New("bad request")
	ErrInternalServer = errors.New("internal server error")

	// Login errors. Unknown identifier and bad password share one sentinel
	// so callers cannot probe which accounts exist.
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountDeactivated = errors.New("account is deactivated")

	// Two-factor enrollment and verification errors
	ErrAlreadyEnabled      = errors.New("two-factor authentication already enabled")
	ErrNotInitiated        = errors.New("two-factor setup not initiated")
	ErrSetupExpired        = errors.New("two-factor setup window expired")
	ErrInvalidCode         = errors.New("invalid two-factor code")
	ErrTwoFactorRequired   = errors.New("two-factor code required")
	ErrTwoFactorNotEnabled = errors.New("two-factor authentication not enabled")
)
