package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/aegislabs/aegis/internal/models"
)

// ErrorResponse is the standard API error envelope
type ErrorResponse struct {
	Error   string `json:"error"`   // machine-readable error code
	Message string `json:"message"` // human-readable message
}

// WriteError writes a JSON error response with the given status code
func WriteError(w http.ResponseWriter, statusCode int, errorCode, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	// Encoding errors are not exposed to the client
	_ = json.NewEncoder(w).Encode(ErrorResponse{
		Error:   errorCode,
		Message: message,
	})
}

func WriteBadRequest(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, "bad_request", message)
}

func WriteUnauthorized(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusUnauthorized, "unauthorized", message)
}

func WriteInternalError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusInternalServerError, "internal_error", message)
}

// WriteModelError maps a service sentinel onto the wire contract. Unknown
// identifier and bad password share one response on purpose; nothing in the
// status or message distinguishes them.
func WriteModelError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrInvalidCredentials):
		WriteError(w, http.StatusUnauthorized, "invalid_credentials", "Invalid credentials")
	case errors.Is(err, models.ErrAccountDeactivated):
		WriteError(w, http.StatusForbidden, "account_deactivated", "Account is deactivated")
	case errors.Is(err, models.ErrTwoFactorRequired):
		WriteError(w, http.StatusUnauthorized, "two_factor_required", "Two-factor code required")
	case errors.Is(err, models.ErrTwoFactorNotEnabled):
		WriteError(w, http.StatusConflict, "two_factor_not_enabled", "Two-factor authentication is not enabled")
	case errors.Is(err, models.ErrAlreadyEnabled):
		WriteError(w, http.StatusConflict, "two_factor_already_enabled", "Two-factor authentication is already enabled")
	case errors.Is(err, models.ErrNotInitiated):
		WriteError(w, http.StatusConflict, "two_factor_not_initiated", "Two-factor setup was not initiated")
	case errors.Is(err, models.ErrSetupExpired):
		WriteError(w, http.StatusGone, "two_factor_setup_expired", "Two-factor setup window expired, run setup again")
	case errors.Is(err, models.ErrInvalidCode):
		WriteError(w, http.StatusUnauthorized, "invalid_code", "Invalid two-factor code")
	case errors.Is(err, models.ErrNotFound):
		WriteError(w, http.StatusNotFound, "not_found", "Resource not found")
	case errors.Is(err, models.ErrUnauthorized):
		WriteUnauthorized(w, "Unauthorized")
	case errors.Is(err, models.ErrBadRequest):
		WriteBadRequest(w, "Bad request")
	default:
		WriteInternalError(w, "Internal server error")
	}
}
