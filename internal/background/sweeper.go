package background

import (
	"context"
	"log/slog"
	"time"
)

// PendingTwoFactorStore is the slice of the account store the sweeper needs.
type PendingTwoFactorStore interface {
	ClearExpiredPendingTwoFactor(ctx context.Context, before time.Time) (int64, error)
}

// Sweeper periodically clears pending two-factor secrets whose confirmation
// window has closed. Confirm checks expiry on its own, so this is hygiene:
// it keeps dead secrets from lingering on account rows.
type Sweeper struct {
	store    PendingTwoFactorStore
	logger   *slog.Logger
	interval time.Duration
	stopCh   chan struct{}
}

// NewSweeper creates a new sweeper.
func NewSweeper(store PendingTwoFactorStore, logger *slog.Logger, interval time.Duration) *Sweeper {
	return &Sweeper{
		store:    store,
		logger:   logger,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start runs the sweep loop until Stop is called or the context ends.
func (s *Sweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	// Run immediately on startup
	s.sweep(ctx)

	for {
		select {
		case <-ticker.C:
			s.sweep(ctx)
		case <-s.stopCh:
			s.logger.Info("pending two-factor sweeper stopped")
			return
		case <-ctx.Done():
			s.logger.Info("pending two-factor sweeper context cancelled")
			return
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	sweepCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	cleared, err := s.store.ClearExpiredPendingTwoFactor(sweepCtx, time.Now())
	if err != nil {
		s.logger.Error("failed to clear expired pending two-factor secrets", slog.Any("error", err))
		return
	}

	if cleared > 0 {
		s.logger.Info("expired pending two-factor secrets cleared", slog.Int64("rows", cleared))
	}
}

// Stop signals the sweeper to stop.
func (s *Sweeper) Stop() {
	close(s.stopCh)
}
