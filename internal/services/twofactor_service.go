package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/aegislabs/aegis/internal/auth"
	"github.com/aegislabs/aegis/internal/models"
	pkglogger "github.com/aegislabs/aegis/pkg/logger"
)

// DefaultPendingWindow is how long a generated secret may be confirmed
// before Setup must be re-run.
const DefaultPendingWindow = 10 * time.Minute

// TwoFactorService drives the enrollment state machine: Setup opens a
// pending window with a fresh secret, Confirm verifies the first code and
// flips the account into the enabled state.
type TwoFactorService struct {
	accounts AccountRepository
	totp     *auth.TOTPManager
	email    EmailService
	logger   *slog.Logger
	audit    *pkglogger.AuditLogger
	window   time.Duration
	now      func() time.Time
}

// NewTwoFactorService creates a new TwoFactorService. A zero pendingWindow
// falls back to DefaultPendingWindow.
func NewTwoFactorService(
	accounts AccountRepository,
	totp *auth.TOTPManager,
	email EmailService,
	logger *slog.Logger,
	audit *pkglogger.AuditLogger,
	pendingWindow time.Duration,
) *TwoFactorService {
	if pendingWindow <= 0 {
		pendingWindow = DefaultPendingWindow
	}
	return &TwoFactorService{
		accounts: accounts,
		totp:     totp,
		email:    email,
		logger:   logger,
		audit:    audit,
		window:   pendingWindow,
		now:      time.Now,
	}
}

// TwoFactorSetup is returned by Setup so the caller can display the secret,
// the scannable QR payload, and the confirmation deadline.
type TwoFactorSetup struct {
	Secret          string
	ProvisioningURI string
	QRCode          string // data:image/png;base64 payload
	ExpiresAt       time.Time
}

// Setup begins (or restarts) enrollment for an account. A prior pending
// window is simply overwritten; only an already-enabled account is refused.
func (s *TwoFactorService) Setup(ctx context.Context, accountID string) (*TwoFactorSetup, error) {
	acct, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to fetch account for two-factor setup",
			slog.String("account_id", accountID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if acct.TwoFactor.Enabled {
		return nil, models.ErrAlreadyEnabled
	}

	key, err := s.totp.GenerateKey(acct.Email)
	if err != nil {
		s.logger.Error("failed to generate TOTP key", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	expiresAt := s.now().Add(s.window)

	if err := s.accounts.SetPendingTwoFactor(ctx, acct.ID, key.Secret(), expiresAt); err != nil {
		if errors.Is(err, models.ErrAlreadyEnabled) {
			// Lost a race against a concurrent Confirm.
			return nil, models.ErrAlreadyEnabled
		}
		s.logger.Error("failed to persist pending two-factor secret",
			slog.String("account_id", acct.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	qrCode, err := auth.QRCodePNG(key.URL())
	if err != nil {
		s.logger.Error("failed to render provisioning QR code", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.logger.Info("two-factor setup initiated",
		slog.String("account_id", acct.ID),
		slog.Time("expires_at", expiresAt))
	s.audit.LogEnrollment("two_factor_setup", acct.ID, true, "")

	return &TwoFactorSetup{
		Secret:          key.Secret(),
		ProvisioningURI: key.URL(),
		QRCode:          qrCode,
		ExpiresAt:       expiresAt,
	}, nil
}

// Confirm verifies the submitted code against the pending secret and, on
// success, enables two-factor authentication and closes the pending window.
// Every failure leaves the stored state untouched so the caller can retry
// within the window.
func (s *TwoFactorService) Confirm(ctx context.Context, accountID, code string) error {
	acct, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrNotFound
		}
		s.logger.Error("failed to fetch account for two-factor confirm",
			slog.String("account_id", accountID), slog.Any("error", err))
		return models.ErrInternalServer
	}

	if acct.TwoFactor.Enabled {
		return models.ErrAlreadyEnabled
	}

	if !acct.TwoFactor.Pending() {
		return models.ErrNotInitiated
	}

	if s.now().After(*acct.TwoFactor.PendingExpiresAt) {
		s.audit.LogEnrollment("two_factor_confirm", acct.ID, false, "setup_expired")
		return models.ErrSetupExpired
	}

	if !s.totp.VerifyCode(acct.TwoFactor.Secret, code, s.now()) {
		s.logger.Warn("invalid code during two-factor confirm", slog.String("account_id", acct.ID))
		s.audit.LogEnrollment("two_factor_confirm", acct.ID, false, "invalid_code")
		return models.ErrInvalidCode
	}

	if err := s.accounts.EnableTwoFactor(ctx, acct.ID, acct.TwoFactor.Secret); err != nil {
		switch {
		case errors.Is(err, models.ErrAlreadyEnabled):
			return models.ErrAlreadyEnabled
		case errors.Is(err, models.ErrNotInitiated):
			// A concurrent Setup rotated the secret after we verified.
			return models.ErrNotInitiated
		}
		s.logger.Error("failed to enable two-factor authentication",
			slog.String("account_id", acct.ID), slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.logger.Info("two-factor authentication enabled", slog.String("account_id", acct.ID))
	s.audit.LogEnrollment("two_factor_confirm", acct.ID, true, "")

	// Best effort: a failed alert never rolls back the enablement.
	if err := s.email.SendTwoFactorEnabledAlert(ctx, acct.Email, acct.Name, s.now()); err != nil {
		s.logger.Error("failed to send two-factor enabled alert",
			slog.String("account_id", acct.ID), slog.Any("error", err))
	}

	return nil
}
