package services

import (
	"context"
	"time"

	"github.com/aegislabs/aegis/internal/models"
)

// AccountRepository is the account store contract the services depend on.
// The two-factor writers must be atomic conditional updates: the state
// precondition and the write happen in one operation, so concurrent Setup
// and Confirm calls serialize at the store instead of racing a
// read-check-then-write sequence.
type AccountRepository interface {
	GetByID(ctx context.Context, id string) (*models.Account, error)
	GetByEmail(ctx context.Context, email string) (*models.Account, error)
	GetByUsername(ctx context.Context, username string) (*models.Account, error)
	SetPendingTwoFactor(ctx context.Context, accountID, secret string, expiresAt time.Time) error
	EnableTwoFactor(ctx context.Context, accountID, secret string) error
}

// TokenIssuer mints the credential pair returned after a verified login.
type TokenIssuer interface {
	GenerateAccessToken(accountID, email string) (string, error)
	GenerateRefreshToken(accountID, email string) (string, error)
	ValidateToken(tokenString string) (*models.TokenClaims, error)
}
