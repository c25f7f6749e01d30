package handlers

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aegislabs/aegis/internal/auth"
	"github.com/aegislabs/aegis/internal/models"
	"github.com/aegislabs/aegis/internal/services"
	pkglogger "github.com/aegislabs/aegis/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testJWTSecret = "test-jwt-secret-of-sufficient-length"

func newAuthHandler(repo services.AccountRepository) *AuthHandler {
	logger := slog.Default()
	login := services.NewLoginService(
		repo,
		auth.NewTOTPManager("Aegis"),
		auth.NewTokenManager(testJWTSecret, 15*time.Minute, 7*24*time.Hour),
		logger,
		pkglogger.NewAuditLogger(logger),
	)
	return NewAuthHandler(login, logger)
}

func postJSON(t *testing.T, handler http.HandlerFunc, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Error
}

func TestAuthHandler_Login_Success(t *testing.T) {
	acct := services.NewTestAccount("acct-1", "alice@example.com", "alice", "correct-pw")
	h := newAuthHandler(services.NewInMemoryAccountRepository(acct))

	rec := postJSON(t, h.Login, "/auth/login", LoginRequest{
		Identifier: "alice@example.com",
		Password:   "correct-pw",
	})

	require.Equal(t, http.StatusOK, rec.Code)

	var resp services.AuthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	require.NotNil(t, resp.Account)
	assert.Equal(t, "alice@example.com", resp.Account.Email)
	// The account payload never carries credential material
	assert.NotContains(t, rec.Body.String(), "password")
}

func TestAuthHandler_Login_InvalidCredentials(t *testing.T) {
	acct := services.NewTestAccount("acct-1", "alice@example.com", "alice", "correct-pw")
	h := newAuthHandler(services.NewInMemoryAccountRepository(acct))

	wrongPassword := postJSON(t, h.Login, "/auth/login", LoginRequest{
		Identifier: "alice@example.com",
		Password:   "wrong-pw",
	})
	unknownAccount := postJSON(t, h.Login, "/auth/login", LoginRequest{
		Identifier: "nobody@example.com",
		Password:   "correct-pw",
	})

	// Both failures are byte-for-byte identical on the wire
	assert.Equal(t, http.StatusUnauthorized, wrongPassword.Code)
	assert.Equal(t, http.StatusUnauthorized, unknownAccount.Code)
	assert.Equal(t, wrongPassword.Body.String(), unknownAccount.Body.String())
	assert.Equal(t, "invalid_credentials", decodeError(t, wrongPassword))
}

func TestAuthHandler_Login_DeactivatedAccount(t *testing.T) {
	acct := services.NewTestAccount("acct-1", "alice@example.com", "alice", "correct-pw")
	acct.IsActive = false
	h := newAuthHandler(services.NewInMemoryAccountRepository(acct))

	rec := postJSON(t, h.Login, "/auth/login", LoginRequest{
		Identifier: "alice@example.com",
		Password:   "correct-pw",
	})

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "account_deactivated", decodeError(t, rec))
}

func TestAuthHandler_Login_TwoFactorRequired(t *testing.T) {
	acct := services.NewTestAccount("acct-1", "alice@example.com", "alice", "correct-pw")
	acct.TwoFactor = models.TwoFactor{Secret: "JBSWY3DPEHPK3PXPJBSWY3DPEHPK3PXP", Enabled: true}
	h := newAuthHandler(services.NewInMemoryAccountRepository(acct))

	rec := postJSON(t, h.Login, "/auth/login", LoginRequest{
		Identifier: "alice@example.com",
		Password:   "correct-pw",
	})

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "two_factor_required", decodeError(t, rec))
}

func TestAuthHandler_Login_WithValidCode(t *testing.T) {
	acct := services.NewTestAccount("acct-1", "alice@example.com", "alice", "correct-pw")
	totp := auth.NewTOTPManager("Aegis")
	key, err := totp.GenerateKey(acct.Email)
	require.NoError(t, err)
	acct.TwoFactor = models.TwoFactor{Secret: key.Secret(), Enabled: true}
	h := newAuthHandler(services.NewInMemoryAccountRepository(acct))

	code, err := totp.GenerateCode(key.Secret(), time.Now())
	require.NoError(t, err)

	rec := postJSON(t, h.Login, "/auth/login", LoginRequest{
		Identifier: "alice@example.com",
		Password:   "correct-pw",
		Code:       code,
	})

	require.Equal(t, http.StatusOK, rec.Code)

	var resp services.AuthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Account.TwoFactorEnabled)
}

func TestAuthHandler_Login_ValidationErrors(t *testing.T) {
	h := newAuthHandler(services.NewInMemoryAccountRepository())

	tests := []struct {
		name string
		req  LoginRequest
	}{
		{"missing identifier", LoginRequest{Password: "pw"}},
		{"missing password", LoginRequest{Identifier: "alice@example.com"}},
		{"short code", LoginRequest{Identifier: "alice@example.com", Password: "pw", Code: "123"}},
		{"non-numeric code", LoginRequest{Identifier: "alice@example.com", Password: "pw", Code: "12345a"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postJSON(t, h.Login, "/auth/login", tt.req)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestAuthHandler_Login_MalformedBody(t *testing.T) {
	h := newAuthHandler(services.NewInMemoryAccountRepository())

	req := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()
	h.Login(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAuthHandler_VerifyLoginCode_NotEnabled(t *testing.T) {
	acct := services.NewTestAccount("acct-1", "alice@example.com", "alice", "correct-pw")
	h := newAuthHandler(services.NewInMemoryAccountRepository(acct))

	rec := postJSON(t, h.VerifyLoginCode, "/auth/login/verify", VerifyLoginCodeRequest{
		Identifier: "alice@example.com",
		Password:   "correct-pw",
		Code:       "123456",
	})

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "two_factor_not_enabled", decodeError(t, rec))
}

func TestAuthHandler_VerifyLoginCode_Success(t *testing.T) {
	acct := services.NewTestAccount("acct-1", "alice@example.com", "alice", "correct-pw")
	totp := auth.NewTOTPManager("Aegis")
	key, err := totp.GenerateKey(acct.Email)
	require.NoError(t, err)
	acct.TwoFactor = models.TwoFactor{Secret: key.Secret(), Enabled: true}
	h := newAuthHandler(services.NewInMemoryAccountRepository(acct))

	code, err := totp.GenerateCode(key.Secret(), time.Now())
	require.NoError(t, err)

	rec := postJSON(t, h.VerifyLoginCode, "/auth/login/verify", VerifyLoginCodeRequest{
		Identifier: "alice@example.com",
		Password:   "correct-pw",
		Code:       code,
	})

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthHandler_VerifyLoginCode_RequiresCode(t *testing.T) {
	h := newAuthHandler(services.NewInMemoryAccountRepository())

	rec := postJSON(t, h.VerifyLoginCode, "/auth/login/verify", VerifyLoginCodeRequest{
		Identifier: "alice@example.com",
		Password:   "correct-pw",
	})

	// Unlike plain login, the code field is mandatory at the schema level
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAuthHandler_Refresh_Success(t *testing.T) {
	acct := services.NewTestAccount("acct-1", "alice@example.com", "alice", "correct-pw")
	h := newAuthHandler(services.NewInMemoryAccountRepository(acct))

	loginRec := postJSON(t, h.Login, "/auth/login", LoginRequest{
		Identifier: "alice@example.com",
		Password:   "correct-pw",
	})
	require.Equal(t, http.StatusOK, loginRec.Code)

	var loginResp services.AuthResponse
	require.NoError(t, json.Unmarshal(loginRec.Body.Bytes(), &loginResp))

	rec := postJSON(t, h.Refresh, "/auth/refresh", RefreshRequest{
		RefreshToken: loginResp.RefreshToken,
	})

	require.Equal(t, http.StatusOK, rec.Code)

	var resp services.AuthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.AccessToken)
}

func TestAuthHandler_Refresh_InvalidToken(t *testing.T) {
	h := newAuthHandler(services.NewInMemoryAccountRepository())

	rec := postJSON(t, h.Refresh, "/auth/refresh", RefreshRequest{
		RefreshToken: "not-a-jwt",
	})

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
