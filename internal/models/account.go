package models

import (
	"time"
)

// Account is the stored identity record. Login may resolve an account by
// email or by username, whichever the caller supplied.
type Account struct {
	ID           string
	Email        string
	Username     string // alternate login alias
	Name         string
	PasswordHash string
	IsActive     bool
	TwoFactor    TwoFactor
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// TwoFactor holds the enrollment state for an account. It moves through
// three shapes: not enrolled (no secret), pending (secret plus expiry set by
// Setup), and enabled (secret set, Enabled true, expiry cleared by Confirm).
// Only the TwoFactorService writes these fields; login reads them.
type TwoFactor struct {
	Secret           string     // base32 TOTP secret, empty when never enrolled
	Enabled          bool
	PendingExpiresAt *time.Time // confirmation deadline, nil outside the pending window
}

// Pending reports whether a confirmable enrollment window is open
// (ignoring whether it has expired).
func (t TwoFactor) Pending() bool {
	return !t.Enabled && t.Secret != "" && t.PendingExpiresAt != nil
}
