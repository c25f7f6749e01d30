package models

import (
	"github.com/golang-jwt/jwt/v5"
)

// TokenClaims are the claims carried by access and refresh tokens.
type TokenClaims struct {
	Type      string `json:"type"` // "access" or "refresh"
	AccountID string `json:"account_id"`
	Email     string `json:"email,omitempty"`
	jwt.RegisteredClaims
}
