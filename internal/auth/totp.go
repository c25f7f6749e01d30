package auth

import (
	"fmt"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

const (
	totpPeriod     = 30 // seconds per time step (RFC 6238)
	totpSecretSize = 32 // 256 bits of entropy
	totpDigits     = 6
	totpSkew       = 1 // accept one step before and after for clock drift
)

// TOTPManager generates shared secrets and verifies time-based codes.
// It holds no per-account state; secrets live on the account record.
type TOTPManager struct {
	issuer string // issuer name shown in authenticator apps
}

// NewTOTPManager creates a new TOTP manager for the given issuer.
func NewTOTPManager(issuer string) *TOTPManager {
	return &TOTPManager{issuer: issuer}
}

// Issuer returns the issuer name embedded in provisioning URIs.
func (tm *TOTPManager) Issuer() string {
	return tm.issuer
}

// GenerateKey creates a fresh TOTP key for the given account label.
// The key carries both the base32 secret and the otpauth:// URL.
func (tm *TOTPManager) GenerateKey(accountName string) (*otp.Key, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      tm.issuer,
		AccountName: accountName,
		SecretSize:  totpSecretSize,
		Period:      totpPeriod,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate TOTP key: %w", err)
	}
	return key, nil
}

// GenerateCode computes the code for a secret at the given instant.
// Deterministic: the same secret and time step always yield the same code.
func (tm *TOTPManager) GenerateCode(secret string, at time.Time) (string, error) {
	code, err := totp.GenerateCodeCustom(secret, at, totp.ValidateOpts{
		Period:    totpPeriod,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate TOTP code: %w", err)
	}
	return code, nil
}

// VerifyCode checks a submitted code against a secret at the given instant,
// accepting one time step of drift in either direction. Comparison inside
// the otp library is constant time. Malformed codes (wrong length, not
// numeric) verify as false rather than surfacing an error.
func (tm *TOTPManager) VerifyCode(secret, code string, at time.Time) bool {
	if len(code) != totpDigits || !isDigits(code) {
		return false
	}

	valid, err := totp.ValidateCustom(code, secret, at, totp.ValidateOpts{
		Period:    totpPeriod,
		Skew:      totpSkew,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	if err != nil {
		return false
	}
	return valid
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
