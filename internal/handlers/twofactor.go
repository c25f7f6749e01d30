package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/aegislabs/aegis/internal/auth"
	"github.com/aegislabs/aegis/internal/services"
	pkghttp "github.com/aegislabs/aegis/pkg/http"
)

// TwoFactorHandler handles two-factor enrollment requests. Both endpoints
// operate on the authenticated account from the request context.
type TwoFactorHandler struct {
	twoFactor *services.TwoFactorService
	logger    *slog.Logger
}

// NewTwoFactorHandler creates a new two-factor handler
func NewTwoFactorHandler(twoFactor *services.TwoFactorService, logger *slog.Logger) *TwoFactorHandler {
	return &TwoFactorHandler{twoFactor: twoFactor, logger: logger}
}

// Setup handles POST /2fa/setup. Re-running setup restarts the pending
// window with a fresh secret; the previous secret becomes useless.
func (h *TwoFactorHandler) Setup(w http.ResponseWriter, r *http.Request) {
	claims := auth.ClaimsFromRequest(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "Unauthorized")
		return
	}

	setup, err := h.twoFactor.Setup(r.Context(), claims.AccountID)
	if err != nil {
		h.logger.Warn("two-factor setup failed",
			slog.String("account_id", claims.AccountID), slog.Any("error", err))
		pkghttp.WriteModelError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, TwoFactorSetupResponse{
		Secret:          setup.Secret,
		ProvisioningURI: setup.ProvisioningURI,
		QRCode:          setup.QRCode,
		ExpiresAt:       setup.ExpiresAt,
	})
}

// Confirm handles POST /2fa/confirm
func (h *TwoFactorHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	claims := auth.ClaimsFromRequest(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "Unauthorized")
		return
	}

	var req TwoFactorConfirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	if err := h.twoFactor.Confirm(r.Context(), claims.AccountID, req.Code); err != nil {
		h.logger.Warn("two-factor confirm failed",
			slog.String("account_id", claims.AccountID), slog.Any("error", err))
		pkghttp.WriteModelError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, TwoFactorConfirmResponse{
		TwoFactorEnabled: true,
		EnabledAt:        time.Now(),
	})
}
