package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/quickmart/shop-backend/internal/models"
	"github.com/quickmart/shop-backend/internal/repo"
)

// Sweeper periodically reclaims reservations held by abandoned carts: any
// cart untouched past the expiry window has its item reservations released
// and its item list cleared. Saved-for-later entries hold no reservation and
// are left alone.
type Sweeper struct {
	Repo     *repo.GormRepo
	Expiry   time.Duration
	Interval time.Duration
	Log      *slog.Logger

	// Now is swappable for tests; nil means time.Now.
	Now func() time.Time
}

func (s *Sweeper) Start(ctx context.Context) {
	interval := s.Interval
	if interval == 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Sweep(ctx); err != nil {
				s.Log.Error("sweep failed", "error", err)
			}
		}
	}
}

// Sweep runs one pass and reports how many carts were reclaimed. Running it
// again on already-cleared carts is a no-op. A failure on one cart is logged
// and does not stop the pass.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	expiry := s.Expiry
	if expiry == 0 {
		expiry = 15 * time.Minute
	}

	carts, err := s.Repo.StaleCarts(ctx, now().Add(-expiry))
	if err != nil {
		return 0, err
	}

	swept := 0
	for _, cart := range carts {
		if err := s.sweepCart(ctx, &cart); err != nil {
			s.Log.Error("failed to reclaim cart", "cart_id", cart.ID, "error", err)
			continue
		}
		swept++
	}

	if swept > 0 {
		s.Log.Info("released reservations for abandoned carts", "carts", swept)
	}
	return swept, nil
}

func (s *Sweeper) sweepCart(ctx context.Context, cart *models.Cart) error {
	for _, item := range cart.Items {
		if err := s.Repo.Release(ctx, item.ProductID, item.Quantity); err != nil {
			return err
		}
	}
	return s.Repo.ClearCartItems(ctx, cart.ID)
}
