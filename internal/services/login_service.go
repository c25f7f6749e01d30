package services

import (
	"context"
	"errors"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/aegislabs/aegis/internal/models"
	pkgauth "github.com/aegislabs/aegis/pkg/auth"
	pkglogger "github.com/aegislabs/aegis/pkg/logger"
)

// accountResolver is one identifier-lookup strategy. Resolvers are tried in
// order and the first one whose Matches returns true performs the lookup, so
// new identifier shapes can be added without touching the login flow.
type accountResolver struct {
	name    string
	matches func(identifier string) bool
	lookup  func(ctx context.Context, identifier string) (*models.Account, error)
}

// LoginService gates login behind the password check and, when enrollment
// was completed, a time-based code check, then delegates to the token issuer.
type LoginService struct {
	accounts  AccountRepository
	totp      CodeVerifier
	tokens    TokenIssuer
	resolvers []accountResolver
	logger    *slog.Logger
	audit     *pkglogger.AuditLogger
	now       func() time.Time
}

// CodeVerifier checks a submitted TOTP code against a stored secret.
type CodeVerifier interface {
	VerifyCode(secret, code string, at time.Time) bool
}

// NewLoginService creates a new LoginService.
func NewLoginService(
	accounts AccountRepository,
	totp CodeVerifier,
	tokens TokenIssuer,
	logger *slog.Logger,
	audit *pkglogger.AuditLogger,
) *LoginService {
	s := &LoginService{
		accounts: accounts,
		totp:     totp,
		tokens:   tokens,
		logger:   logger,
		audit:    audit,
		now:      time.Now,
	}

	s.resolvers = []accountResolver{
		{
			name: "email",
			matches: func(identifier string) bool {
				_, err := mail.ParseAddress(identifier)
				return err == nil
			},
			lookup: func(ctx context.Context, identifier string) (*models.Account, error) {
				return accounts.GetByEmail(ctx, strings.ToLower(identifier))
			},
		},
		{
			name:    "username",
			matches: func(string) bool { return true },
			lookup:  accounts.GetByUsername,
		},
	}

	return s
}

// AccountResponse is the account payload embedded in auth responses.
// The caller's plaintext password is deliberately never echoed back.
type AccountResponse struct {
	ID               string `json:"id"`
	Email            string `json:"email"`
	Username         string `json:"username"`
	Name             string `json:"name"`
	TwoFactorEnabled bool   `json:"two_factor_enabled"`
}

// AuthResponse carries the issued credential pair.
type AuthResponse struct {
	AccessToken  string           `json:"access_token"`
	RefreshToken string           `json:"refresh_token"`
	Account      *AccountResponse `json:"account"`
}

// Login authenticates an identifier/password pair and, when two-factor
// authentication is enabled on the account, requires a valid code before
// issuing tokens. Accounts that never enrolled succeed on password alone.
func (s *LoginService) Login(ctx context.Context, identifier, password, code string) (*AuthResponse, error) {
	acct, err := s.authenticate(ctx, identifier, password)
	if err != nil {
		return nil, err
	}

	if acct.TwoFactor.Enabled {
		if code == "" {
			return nil, models.ErrTwoFactorRequired
		}
		if !s.totp.VerifyCode(acct.TwoFactor.Secret, code, s.now()) {
			s.logger.Warn("invalid two-factor code at login", slog.String("account_id", acct.ID))
			s.audit.LogAuthAttempt("login_failed", acct.ID, false, "invalid_code")
			return nil, models.ErrInvalidCode
		}
	}

	return s.issueTokens(acct)
}

// VerifyLoginCode is the entry point for flows where the caller already
// knows two-factor authentication is mandatory. It behaves like Login but
// refuses accounts that never completed enrollment instead of silently
// succeeding on password alone.
func (s *LoginService) VerifyLoginCode(ctx context.Context, identifier, password, code string) (*AuthResponse, error) {
	acct, err := s.authenticate(ctx, identifier, password)
	if err != nil {
		return nil, err
	}

	if !acct.TwoFactor.Enabled {
		return nil, models.ErrTwoFactorNotEnabled
	}

	if code == "" {
		return nil, models.ErrTwoFactorRequired
	}

	if !s.totp.VerifyCode(acct.TwoFactor.Secret, code, s.now()) {
		s.logger.Warn("invalid two-factor code at login", slog.String("account_id", acct.ID))
		s.audit.LogAuthAttempt("login_failed", acct.ID, false, "invalid_code")
		return nil, models.ErrInvalidCode
	}

	return s.issueTokens(acct)
}

// Refresh validates a refresh token and issues a fresh pair.
func (s *LoginService) Refresh(ctx context.Context, refreshToken string) (*AuthResponse, error) {
	if refreshToken = strings.TrimSpace(refreshToken); refreshToken == "" {
		return nil, models.ErrUnauthorized
	}

	claims, err := s.tokens.ValidateToken(refreshToken)
	if err != nil {
		s.logger.Info("refresh token validation failed", slog.Any("error", err))
		return nil, models.ErrUnauthorized
	}

	if claims.Type != "refresh" {
		s.logger.Warn("refresh attempt with non-refresh token", slog.String("account_id", claims.AccountID))
		return nil, models.ErrUnauthorized
	}

	acct, err := s.accounts.GetByID(ctx, claims.AccountID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrUnauthorized
		}
		s.logger.Error("failed to fetch account for token refresh",
			slog.String("account_id", claims.AccountID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if !acct.IsActive {
		return nil, models.ErrUnauthorized
	}

	return s.issueTokens(acct)
}

// authenticate resolves the account and verifies password and account
// state. Unknown identifier and bad password collapse into the same
// sentinel so responses do not reveal which accounts exist.
func (s *LoginService) authenticate(ctx context.Context, identifier, password string) (*models.Account, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || password == "" {
		s.audit.LogAuthAttempt("login_failed", "", false, "invalid_credentials")
		return nil, models.ErrInvalidCredentials
	}

	acct, err := s.resolveAccount(ctx, identifier)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			// Same failure as a bad password; do not reveal which.
			s.logger.Info("login failed: invalid credentials")
			s.audit.LogAuthAttempt("login_failed", "", false, "invalid_credentials")
			return nil, models.ErrInvalidCredentials
		}
		s.logger.Error("failed to resolve account", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if !acct.IsActive {
		s.logger.Info("login blocked: account deactivated", slog.String("account_id", acct.ID))
		s.audit.LogAuthAttempt("login_failed", acct.ID, false, "account_deactivated")
		return nil, models.ErrAccountDeactivated
	}

	if err := pkgauth.ComparePassword(acct.PasswordHash, password); err != nil {
		s.logger.Info("login failed: invalid credentials")
		s.audit.LogAuthAttempt("login_failed", acct.ID, false, "invalid_credentials")
		return nil, models.ErrInvalidCredentials
	}

	return acct, nil
}

func (s *LoginService) resolveAccount(ctx context.Context, identifier string) (*models.Account, error) {
	for _, r := range s.resolvers {
		if !r.matches(identifier) {
			continue
		}
		return r.lookup(ctx, identifier)
	}
	return nil, models.ErrNotFound
}

func (s *LoginService) issueTokens(acct *models.Account) (*AuthResponse, error) {
	accessToken, err := s.tokens.GenerateAccessToken(acct.ID, acct.Email)
	if err != nil {
		s.logger.Error("failed to generate access token",
			slog.String("account_id", acct.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	refreshToken, err := s.tokens.GenerateRefreshToken(acct.ID, acct.Email)
	if err != nil {
		s.logger.Error("failed to generate refresh token",
			slog.String("account_id", acct.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.logger.Info("login succeeded", slog.String("account_id", acct.ID))
	s.audit.LogAuthAttempt("login_success", acct.ID, true, "")

	return &AuthResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		Account: &AccountResponse{
			ID:               acct.ID,
			Email:            acct.Email,
			Username:         acct.Username,
			Name:             acct.Name,
			TwoFactorEnabled: acct.TwoFactor.Enabled,
		},
	}, nil
}
