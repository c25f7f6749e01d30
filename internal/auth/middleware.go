package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/aegislabs/aegis/internal/models"
)

// contextKey is a custom type for context keys
type contextKey string

// AccountContextKey is the key for storing token claims in context
const AccountContextKey contextKey = "account"

// Middleware validates bearer access tokens and injects the claims into the
// request context. Refresh tokens are rejected here; they are only accepted
// by the refresh endpoint.
func Middleware(tm *TokenManager) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				http.Error(w, "missing authorization header", http.StatusUnauthorized)
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || parts[0] != "Bearer" {
				http.Error(w, "invalid authorization header format", http.StatusUnauthorized)
				return
			}

			claims, err := tm.ValidateToken(parts[1])
			if err != nil {
				http.Error(w, "invalid or expired token", http.StatusUnauthorized)
				return
			}

			if claims.Type == "refresh" {
				http.Error(w, "refresh tokens cannot be used for API access", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), AccountContextKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ClaimsFromRequest returns the token claims injected by Middleware,
// or nil when the request is unauthenticated.
func ClaimsFromRequest(r *http.Request) *models.TokenClaims {
	claims, _ := r.Context().Value(AccountContextKey).(*models.TokenClaims)
	return claims
}
