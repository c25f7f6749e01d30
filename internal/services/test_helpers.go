package services

import (
	"context"
	"time"

	"github.com/aegislabs/aegis/internal/models"
	"golang.org/x/crypto/bcrypt"
)

// MockAccountRepository implements AccountRepository with overridable funcs
type MockAccountRepository struct {
	GetByIDFunc             func(ctx context.Context, id string) (*models.Account, error)
	GetByEmailFunc          func(ctx context.Context, email string) (*models.Account, error)
	GetByUsernameFunc       func(ctx context.Context, username string) (*models.Account, error)
	SetPendingTwoFactorFunc func(ctx context.Context, accountID, secret string, expiresAt time.Time) error
	EnableTwoFactorFunc     func(ctx context.Context, accountID, secret string) error
}

func (m *MockAccountRepository) GetByID(ctx context.Context, id string) (*models.Account, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockAccountRepository) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	if m.GetByEmailFunc != nil {
		return m.GetByEmailFunc(ctx, email)
	}
	return nil, models.ErrNotFound
}

func (m *MockAccountRepository) GetByUsername(ctx context.Context, username string) (*models.Account, error) {
	if m.GetByUsernameFunc != nil {
		return m.GetByUsernameFunc(ctx, username)
	}
	return nil, models.ErrNotFound
}

func (m *MockAccountRepository) SetPendingTwoFactor(ctx context.Context, accountID, secret string, expiresAt time.Time) error {
	if m.SetPendingTwoFactorFunc != nil {
		return m.SetPendingTwoFactorFunc(ctx, accountID, secret, expiresAt)
	}
	return nil
}

func (m *MockAccountRepository) EnableTwoFactor(ctx context.Context, accountID, secret string) error {
	if m.EnableTwoFactorFunc != nil {
		return m.EnableTwoFactorFunc(ctx, accountID, secret)
	}
	return nil
}

// InMemoryAccountRepository backs AccountRepository with a map and applies
// the same conditional-update semantics as the real store. Used where tests
// drive multi-step flows (Setup then Confirm then Login).
type InMemoryAccountRepository struct {
	Accounts map[string]*models.Account // keyed by ID
}

func NewInMemoryAccountRepository(accounts ...*models.Account) *InMemoryAccountRepository {
	r := &InMemoryAccountRepository{Accounts: make(map[string]*models.Account)}
	for _, acct := range accounts {
		r.Accounts[acct.ID] = acct
	}
	return r
}

func (r *InMemoryAccountRepository) GetByID(_ context.Context, id string) (*models.Account, error) {
	if acct, ok := r.Accounts[id]; ok {
		copied := *acct
		return &copied, nil
	}
	return nil, models.ErrNotFound
}

func (r *InMemoryAccountRepository) GetByEmail(_ context.Context, email string) (*models.Account, error) {
	for _, acct := range r.Accounts {
		if acct.Email == email {
			copied := *acct
			return &copied, nil
		}
	}
	return nil, models.ErrNotFound
}

func (r *InMemoryAccountRepository) GetByUsername(_ context.Context, username string) (*models.Account, error) {
	for _, acct := range r.Accounts {
		if acct.Username == username {
			copied := *acct
			return &copied, nil
		}
	}
	return nil, models.ErrNotFound
}

func (r *InMemoryAccountRepository) SetPendingTwoFactor(_ context.Context, accountID, secret string, expiresAt time.Time) error {
	acct, ok := r.Accounts[accountID]
	if !ok {
		return models.ErrNotFound
	}
	if acct.TwoFactor.Enabled {
		return models.ErrAlreadyEnabled
	}
	acct.TwoFactor.Secret = secret
	acct.TwoFactor.PendingExpiresAt = &expiresAt
	return nil
}

func (r *InMemoryAccountRepository) EnableTwoFactor(_ context.Context, accountID, secret string) error {
	acct, ok := r.Accounts[accountID]
	if !ok {
		return models.ErrNotFound
	}
	if acct.TwoFactor.Enabled {
		return models.ErrAlreadyEnabled
	}
	if acct.TwoFactor.Secret != secret {
		return models.ErrNotInitiated
	}
	acct.TwoFactor.Enabled = true
	acct.TwoFactor.PendingExpiresAt = nil
	return nil
}

// MockEmailService records sent alerts
type MockEmailService struct {
	SentTo []string
	Err    error
}

func (m *MockEmailService) SendTwoFactorEnabledAlert(_ context.Context, email, _ string, _ time.Time) error {
	if m.Err != nil {
		return m.Err
	}
	m.SentTo = append(m.SentTo, email)
	return nil
}

// NewTestAccount builds an active account with a hashed password.
// bcrypt.MinCost keeps the suite fast.
func NewTestAccount(id, email, username, password string) *models.Account {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		panic(err)
	}
	now := time.Now()
	return &models.Account{
		ID:           id,
		Email:        email,
		Username:     username,
		Name:         "Test Account",
		PasswordHash: string(hash),
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}
