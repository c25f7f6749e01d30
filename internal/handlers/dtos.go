package handlers

import "time"

// LoginRequest authenticates by email or username. Code is required only
// once the account has two-factor authentication enabled.
type LoginRequest struct {
	Identifier string `json:"identifier" validate:"required,max=255"`
	Password   string `json:"password" validate:"required,max=128"`
	Code       string `json:"code" validate:"omitempty,len=6,numeric"`
}

// VerifyLoginCodeRequest is the two-factor-mandatory login entry point.
type VerifyLoginCodeRequest struct {
	Identifier string `json:"identifier" validate:"required,max=255"`
	Password   string `json:"password" validate:"required,max=128"`
	Code       string `json:"code" validate:"required,len=6,numeric"`
}

// RefreshRequest exchanges a refresh token for a new pair.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// TwoFactorSetupResponse carries everything the caller needs to enroll an
// authenticator: the raw secret for manual entry, the otpauth URI, the QR
// payload for scanning, and the confirmation deadline.
type TwoFactorSetupResponse struct {
	Secret          string    `json:"secret"`
	ProvisioningURI string    `json:"provisioning_uri"`
	QRCode          string    `json:"qr_code"` // data:image/png;base64 payload
	ExpiresAt       time.Time `json:"expires_at"`
}

// TwoFactorConfirmRequest submits the first code from the authenticator.
type TwoFactorConfirmRequest struct {
	Code string `json:"code" validate:"required,len=6,numeric"`
}

// TwoFactorConfirmResponse acknowledges enablement.
type TwoFactorConfirmResponse struct {
	TwoFactorEnabled bool      `json:"two_factor_enabled"`
	EnabledAt        time.Time `json:"enabled_at"`
}
