package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aegislabs/aegis/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func protectedHandler(t *testing.T, captured **models.TokenClaims) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*captured = ClaimsFromRequest(r)
		w.WriteHeader(http.StatusOK)
	})
}

func TestMiddleware_AllowsValidAccessToken(t *testing.T) {
	tm := NewTokenManager(testSecret, 15*time.Minute, 7*24*time.Hour)
	token, err := tm.GenerateAccessToken("acct-123", "alice@example.com")
	require.NoError(t, err)

	var claims *models.TokenClaims
	handler := Middleware(tm)(protectedHandler(t, &claims))

	req := httptest.NewRequest(http.MethodPost, "/2fa/setup", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, claims)
	assert.Equal(t, "acct-123", claims.AccountID)
	assert.Equal(t, "access", claims.Type)
}

func TestMiddleware_RejectsMissingAndMalformedHeaders(t *testing.T) {
	tm := NewTokenManager(testSecret, 15*time.Minute, 7*24*time.Hour)
	var claims *models.TokenClaims
	handler := Middleware(tm)(protectedHandler(t, &claims))

	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"no scheme", "sometoken"},
		{"wrong scheme", "Basic dXNlcjpwdw=="},
		{"garbage token", "Bearer not-a-jwt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/2fa/setup", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}
}

func TestMiddleware_RejectsRefreshToken(t *testing.T) {
	tm := NewTokenManager(testSecret, 15*time.Minute, 7*24*time.Hour)
	token, err := tm.GenerateRefreshToken("acct-123", "alice@example.com")
	require.NoError(t, err)

	var claims *models.TokenClaims
	handler := Middleware(tm)(protectedHandler(t, &claims))

	req := httptest.NewRequest(http.MethodPost, "/2fa/setup", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Nil(t, claims)
}

func TestClaimsFromRequest_Unauthenticated(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Nil(t, ClaimsFromRequest(req))
}
