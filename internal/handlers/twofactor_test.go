package handlers

import (
	"bytes"
	"context"
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

func newTwoFactorHandler(repo services.AccountRepository) *TwoFactorHandler {
	logger := slog.Default()
	svc := services.NewTwoFactorService(
		repo,
		auth.NewTOTPManager("Aegis"),
		&services.MockEmailService{},
		logger,
		pkglogger.NewAuditLogger(logger),
		services.DefaultPendingWindow,
	)
	return NewTwoFactorHandler(svc, logger)
}

func authenticatedRequest(t *testing.T, path string, accountID string, body any) *http.Request {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(http.MethodPost, path, reader)
	req.Header.Set("Content-Type", "application/json")

	claims := &models.TokenClaims{Type: "access", AccountID: accountID, Email: "alice@example.com"}
	ctx := context.WithValue(req.Context(), auth.AccountContextKey, claims)
	return req.WithContext(ctx)
}

func TestTwoFactorHandler_Setup_Success(t *testing.T) {
	acct := services.NewTestAccount("acct-1", "alice@example.com", "alice", "correct-pw")
	repo := services.NewInMemoryAccountRepository(acct)
	h := newTwoFactorHandler(repo)

	rec := httptest.NewRecorder()
	h.Setup(rec, authenticatedRequest(t, "/2fa/setup", "acct-1", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var resp TwoFactorSetupResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Secret, 52)
	assert.Contains(t, resp.ProvisioningURI, "otpauth://totp/")
	assert.Contains(t, resp.QRCode, "data:image/png;base64,")
	assert.WithinDuration(t, time.Now().Add(10*time.Minute), resp.ExpiresAt, 5*time.Second)
}

func TestTwoFactorHandler_Setup_Unauthenticated(t *testing.T) {
	h := newTwoFactorHandler(services.NewInMemoryAccountRepository())

	req := httptest.NewRequest(http.MethodPost, "/2fa/setup", nil)
	rec := httptest.NewRecorder()
	h.Setup(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestTwoFactorHandler_Setup_AlreadyEnabled(t *testing.T) {
	acct := services.NewTestAccount("acct-1", "alice@example.com", "alice", "correct-pw")
	acct.TwoFactor = models.TwoFactor{Secret: "JBSWY3DPEHPK3PXPJBSWY3DPEHPK3PXP", Enabled: true}
	h := newTwoFactorHandler(services.NewInMemoryAccountRepository(acct))

	rec := httptest.NewRecorder()
	h.Setup(rec, authenticatedRequest(t, "/2fa/setup", "acct-1", nil))

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestTwoFactorHandler_Confirm_Success(t *testing.T) {
	acct := services.NewTestAccount("acct-1", "alice@example.com", "alice", "correct-pw")
	repo := services.NewInMemoryAccountRepository(acct)
	h := newTwoFactorHandler(repo)

	setupRec := httptest.NewRecorder()
	h.Setup(setupRec, authenticatedRequest(t, "/2fa/setup", "acct-1", nil))
	require.Equal(t, http.StatusOK, setupRec.Code)

	var setup TwoFactorSetupResponse
	require.NoError(t, json.Unmarshal(setupRec.Body.Bytes(), &setup))

	code, err := auth.NewTOTPManager("Aegis").GenerateCode(setup.Secret, time.Now())
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	h.Confirm(rec, authenticatedRequest(t, "/2fa/confirm", "acct-1", TwoFactorConfirmRequest{Code: code}))

	require.Equal(t, http.StatusOK, rec.Code)

	var resp TwoFactorConfirmResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.TwoFactorEnabled)
	assert.True(t, repo.Accounts["acct-1"].TwoFactor.Enabled)
}

func TestTwoFactorHandler_Confirm_InvalidCode(t *testing.T) {
	acct := services.NewTestAccount("acct-1", "alice@example.com", "alice", "correct-pw")
	h := newTwoFactorHandler(services.NewInMemoryAccountRepository(acct))

	setupRec := httptest.NewRecorder()
	h.Setup(setupRec, authenticatedRequest(t, "/2fa/setup", "acct-1", nil))
	require.Equal(t, http.StatusOK, setupRec.Code)

	rec := httptest.NewRecorder()
	h.Confirm(rec, authenticatedRequest(t, "/2fa/confirm", "acct-1", TwoFactorConfirmRequest{Code: "000000"}))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestTwoFactorHandler_Confirm_NotInitiated(t *testing.T) {
	acct := services.NewTestAccount("acct-1", "alice@example.com", "alice", "correct-pw")
	h := newTwoFactorHandler(services.NewInMemoryAccountRepository(acct))

	rec := httptest.NewRecorder()
	h.Confirm(rec, authenticatedRequest(t, "/2fa/confirm", "acct-1", TwoFactorConfirmRequest{Code: "123456"}))

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestTwoFactorHandler_Confirm_ValidationError(t *testing.T) {
	acct := services.NewTestAccount("acct-1", "alice@example.com", "alice", "correct-pw")
	h := newTwoFactorHandler(services.NewInMemoryAccountRepository(acct))

	tests := []struct {
		name string
		code string
	}{
		{"empty", ""},
		{"too short", "123"},
		{"non-numeric", "12345a"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.Confirm(rec, authenticatedRequest(t, "/2fa/confirm", "acct-1", TwoFactorConfirmRequest{Code: tt.code}))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestTwoFactorHandler_Confirm_Unauthenticated(t *testing.T) {
	h := newTwoFactorHandler(services.NewInMemoryAccountRepository())

	req := httptest.NewRequest(http.MethodPost, "/2fa/confirm", bytes.NewBufferString(`{"code":"123456"}`))
	rec := httptest.NewRecorder()
	h.Confirm(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
