package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/aegislabs/aegis/internal/services"
	pkghttp "github.com/aegislabs/aegis/pkg/http"
)

// AuthHandler handles login and token refresh requests
type AuthHandler struct {
	login  *services.LoginService
	logger *slog.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(login *services.LoginService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{login: login, logger: logger}
}

// Login handles POST /auth/login. Accounts without two-factor enrollment
// succeed on password alone; enrolled accounts must also supply a code.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	resp, err := h.login.Login(r.Context(), req.Identifier, req.Password, req.Code)
	if err != nil {
		pkghttp.WriteModelError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// VerifyLoginCode handles POST /auth/login/verify, the entry point for
// flows where two-factor authentication is mandatory.
func (h *AuthHandler) VerifyLoginCode(w http.ResponseWriter, r *http.Request) {
	var req VerifyLoginCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	resp, err := h.login.VerifyLoginCode(r.Context(), req.Identifier, req.Password, req.Code)
	if err != nil {
		pkghttp.WriteModelError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// Refresh handles POST /auth/refresh
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	resp, err := h.login.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		pkghttp.WriteModelError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(v)
}
