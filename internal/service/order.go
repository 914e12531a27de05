package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/quickmart/shop-backend/internal/logging"
	"github.com/quickmart/shop-backend/internal/models"
	"github.com/quickmart/shop-backend/internal/mykafka"
	"github.com/quickmart/shop-backend/internal/repo"
)

// OrderService owns the order state machine: Processing (payment Pending) is
// the only non-terminal state; Paid and Failed are terminal. MarkPaid and
// MarkFailed are re-entrant so the webhook and the client-side verify path
// may race without mutual exclusion.
type OrderService struct {
	Repo        *repo.GormRepo
	Currency    string
	DedupWindow time.Duration
	Events      *mykafka.Producer
}

// CreateFromCart snapshots the user's cart into an immutable order, freezing
// unit prices. A pending order created within the dedup window is returned
// as-is, guarding against duplicate checkout clicks. The cart keeps its
// items and reservations until the payment settles.
func (s *OrderService) CreateFromCart(ctx context.Context, userID uuid.UUID) (*models.Order, error) {
	cart, err := s.Repo.GetCartByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEmptyCart
		}
		return nil, err
	}
	if len(cart.Items) == 0 {
		return nil, ErrEmptyCart
	}

	window := s.DedupWindow
	if window == 0 {
		window = 10 * time.Minute
	}
	existing, err := s.Repo.FindRecentPendingOrder(ctx, userID, time.Now().Add(-window))
	if err == nil {
		logging.FromContext(ctx).Info("returning existing pending order",
			"order_id", existing.ID, "user_id", userID)
		return existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	ids := make([]uuid.UUID, 0, len(cart.Items))
	for _, it := range cart.Items {
		ids = append(ids, it.ProductID)
	}
	products, err := s.Repo.ProductsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	total := decimal.Zero
	items := make([]models.OrderItem, 0, len(cart.Items))
	for _, it := range cart.Items {
		p, ok := products[it.ProductID]
		if !ok || !p.IsActive {
			// Charging for fewer items than the cart showed is worse than
			// failing the checkout.
			return nil, fmt.Errorf("%w: product %s", ErrProductUnavailable, it.ProductID)
		}
		total = total.Add(p.Price.Mul(decimal.NewFromInt(it.Quantity)))
		items = append(items, models.OrderItem{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			UnitPrice: p.Price,
		})
	}

	order := &models.Order{
		UserID:        userID,
		Items:         items,
		TotalAmount:   total,
		PaymentStatus: models.PaymentPending,
		OrderStatus:   models.OrderProcessing,
	}
	if err := s.Repo.CreateOrder(ctx, order); err != nil {
		return nil, err
	}

	s.publish(ctx, order.ID, map[string]any{
		"type":     "order_created",
		"order_id": order.ID,
		"user_id":  userID,
		"total":    order.TotalAmount,
	})
	return order, nil
}

// MarkPaid settles an order as paid after validating the provider-reported
// amount and currency. On a mismatch the order is failed and its
// reservations released instead. Safe to call any number of times: only the
// Pending->Paid winner commits stock and clears the cart.
func (s *OrderService) MarkPaid(ctx context.Context, orderID uuid.UUID, amountMinor int64, currency string) (*models.Order, error) {
	order, err := s.Repo.GetOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("order: %w", ErrNotFound)
		}
		return nil, err
	}
	if order.PaymentStatus != models.PaymentPending {
		return order, nil
	}

	if amountMinor != order.AmountMinor() {
		logging.FromContext(ctx).Warn("payment amount mismatch",
			"order_id", orderID, "expected", order.AmountMinor(), "received", amountMinor)
		failed, failErr := s.MarkFailed(ctx, orderID)
		if failErr != nil {
			return nil, failErr
		}
		return failed, ErrAmountMismatch
	}
	if !strings.EqualFold(currency, s.Currency) {
		logging.FromContext(ctx).Warn("payment currency mismatch",
			"order_id", orderID, "expected", s.Currency, "received", currency)
		failed, failErr := s.MarkFailed(ctx, orderID)
		if failErr != nil {
			return nil, failErr
		}
		return failed, ErrCurrencyMismatch
	}

	won, err := s.Repo.TransitionOrder(ctx, orderID, models.PaymentPaid, models.OrderPaid)
	if err != nil {
		return nil, err
	}
	if !won {
		// Lost the settlement race; the winner applied the stock effects.
		return s.Repo.GetOrder(ctx, orderID)
	}

	for _, item := range order.Items {
		if err := s.Repo.Commit(ctx, item.ProductID, item.Quantity); err != nil {
			logging.FromContext(ctx).Error("stock commit failed",
				"order_id", orderID, "product_id", item.ProductID, "error", err)
		}
	}
	if err := s.Repo.ClearCart(ctx, order.UserID); err != nil {
		logging.FromContext(ctx).Error("cart clear failed",
			"order_id", orderID, "user_id", order.UserID, "error", err)
	}

	order.PaymentStatus = models.PaymentPaid
	order.OrderStatus = models.OrderPaid
	s.publish(ctx, order.ID, map[string]any{
		"type":     "order_paid",
		"order_id": order.ID,
		"user_id":  order.UserID,
	})
	return order, nil
}

// MarkFailed settles an order as failed and returns its reserved stock to
// the pool. Paid is terminal: calling MarkFailed on a paid order is a no-op
// reporting the existing state. A failed order cannot be retried in place.
func (s *OrderService) MarkFailed(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.Repo.GetOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("order: %w", ErrNotFound)
		}
		return nil, err
	}
	if order.PaymentStatus != models.PaymentPending {
		return order, nil
	}

	won, err := s.Repo.TransitionOrder(ctx, orderID, models.PaymentFailed, models.OrderFailed)
	if err != nil {
		return nil, err
	}
	if !won {
		return s.Repo.GetOrder(ctx, orderID)
	}

	for _, item := range order.Items {
		if err := s.Repo.Release(ctx, item.ProductID, item.Quantity); err != nil {
			logging.FromContext(ctx).Error("stock release failed",
				"order_id", orderID, "product_id", item.ProductID, "error", err)
		}
	}

	order.PaymentStatus = models.PaymentFailed
	order.OrderStatus = models.OrderFailed
	s.publish(ctx, order.ID, map[string]any{
		"type":     "order_failed",
		"order_id": order.ID,
		"user_id":  order.UserID,
	})
	return order, nil
}

func (s *OrderService) GetOrder(ctx context.Context, userID, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.Repo.GetOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("order: %w", ErrNotFound)
		}
		return nil, err
	}
	if order.UserID != userID {
		return nil, ErrForbidden
	}
	return order, nil
}

func (s *OrderService) ListMine(ctx context.Context, userID uuid.UUID) ([]models.Order, error) {
	return s.Repo.ListOrdersByUser(ctx, userID)
}

func (s *OrderService) ListAll(ctx context.Context, offset, limit int) ([]models.Order, int64, error) {
	return s.Repo.ListAllOrders(ctx, offset, limit)
}

func (s *OrderService) publish(ctx context.Context, orderID uuid.UUID, event map[string]any) {
	if s.Events == nil {
		return
	}
	if err := s.Events.PublishEvent(ctx, "order_events", orderID.String(), event); err != nil {
		logging.FromContext(ctx).Error("kafka publish error", "topic", "order_events", "error", err)
	}
}
