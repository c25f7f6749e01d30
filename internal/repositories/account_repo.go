package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/aegislabs/aegis/internal/database"
	"github.com/aegislabs/aegis/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

const accountColumns = `id, email, username, name, password_hash, is_active,
	two_fa_secret, two_fa_enabled, two_fa_pending_expires_at, created_at, updated_at`

// AccountRepository provides persistent access to account records,
// including the atomic two-factor state transitions the services rely on.
type AccountRepository struct {
	pool *pgxpool.Pool
}

func NewAccountRepository(db *database.DB) *AccountRepository {
	return &AccountRepository{pool: db.Pool}
}

// rowScanner covers both pgx.Row and pgx.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAccountRow(scanner rowScanner) (*models.Account, error) {
	var acct models.Account
	var secret *string
	var pendingExpiresAt *time.Time

	err := scanner.Scan(
		&acct.ID, &acct.Email, &acct.Username, &acct.Name,
		&acct.PasswordHash, &acct.IsActive,
		&secret, &acct.TwoFactor.Enabled, &pendingExpiresAt,
		&acct.CreatedAt, &acct.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	if secret != nil {
		acct.TwoFactor.Secret = *secret
	}
	acct.TwoFactor.PendingExpiresAt = pendingExpiresAt

	return &acct, nil
}

func (r *AccountRepository) GetByID(ctx context.Context, id string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	return scanAccountRow(r.pool.QueryRow(ctx, query, id))
}

func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE email = $1`
	return scanAccountRow(r.pool.QueryRow(ctx, query, email))
}

func (r *AccountRepository) GetByUsername(ctx context.Context, username string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE username = $1`
	return scanAccountRow(r.pool.QueryRow(ctx, query, username))
}

func (r *AccountRepository) Create(ctx context.Context, acct *models.Account) (*models.Account, error) {
	acct.ID = uuid.New().String()

	now := time.Now()
	acct.CreatedAt = now
	acct.UpdatedAt = now
	acct.IsActive = true

	query := `
		INSERT INTO accounts (id, email, username, name, password_hash, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.pool.Exec(ctx, query,
		acct.ID, acct.Email, acct.Username, acct.Name,
		acct.PasswordHash, acct.IsActive, acct.CreatedAt, acct.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return acct, nil
}

// SetPendingTwoFactor opens (or restarts) the pending enrollment window in a
// single conditional update. The WHERE clause is the precondition check:
// the write only lands while two-factor is not enabled, so a concurrent
// Confirm cannot be clobbered after it wins.
func (r *AccountRepository) SetPendingTwoFactor(ctx context.Context, accountID, secret string, expiresAt time.Time) error {
	query := `
		UPDATE accounts
		SET two_fa_secret = $2, two_fa_pending_expires_at = $3, updated_at = now()
		WHERE id = $1 AND two_fa_enabled = FALSE
	`

	tag, err := r.pool.Exec(ctx, query, accountID, secret, expiresAt)
	if err != nil {
		return database.MapPostgresError(err)
	}

	if tag.RowsAffected() == 0 {
		return r.twoFactorConflict(ctx, accountID)
	}
	return nil
}

// EnableTwoFactor flips the account into the enabled state and clears the
// pending window. The update is guarded on the exact pending secret: if a
// concurrent Setup rotated the secret after this Confirm verified its code,
// the stale confirmation is refused instead of enabling the wrong secret.
func (r *AccountRepository) EnableTwoFactor(ctx context.Context, accountID, secret string) error {
	query := `
		UPDATE accounts
		SET two_fa_enabled = TRUE, two_fa_pending_expires_at = NULL, updated_at = now()
		WHERE id = $1 AND two_fa_enabled = FALSE AND two_fa_secret = $2
	`

	tag, err := r.pool.Exec(ctx, query, accountID, secret)
	if err != nil {
		return database.MapPostgresError(err)
	}

	if tag.RowsAffected() == 0 {
		return r.twoFactorConflict(ctx, accountID)
	}
	return nil
}

// ClearExpiredPendingTwoFactor drops pending secrets whose confirmation
// window closed before the given cutoff. Returns the number of rows swept.
func (r *AccountRepository) ClearExpiredPendingTwoFactor(ctx context.Context, before time.Time) (int64, error) {
	query := `
		UPDATE accounts
		SET two_fa_secret = NULL, two_fa_pending_expires_at = NULL, updated_at = now()
		WHERE two_fa_enabled = FALSE AND two_fa_pending_expires_at < $1
	`

	tag, err := r.pool.Exec(ctx, query, before)
	if err != nil {
		return 0, database.MapPostgresError(err)
	}
	return tag.RowsAffected(), nil
}

// twoFactorConflict re-reads the row to report why a conditional two-factor
// update matched nothing.
func (r *AccountRepository) twoFactorConflict(ctx context.Context, accountID string) error {
	acct, err := r.GetByID(ctx, accountID)
	if err != nil {
		return err // ErrNotFound or a driver error
	}
	if acct.TwoFactor.Enabled {
		return models.ErrAlreadyEnabled
	}
	// Not enabled and the guarded write still missed: the pending secret
	// changed underneath us.
	return fmt.Errorf("two-factor state changed concurrently: %w", models.ErrNotInitiated)
}
