package repo

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/quickmart/shop-backend/internal/models"
)

func (r *GormRepo) CreateOrder(ctx context.Context, order *models.Order) error {
	return r.DB.WithContext(ctx).Create(order).Error
}

func (r *GormRepo) GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := r.DB.WithContext(ctx).
		Preload("Items").
		First(&order, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// FindRecentPendingOrder backs the checkout idempotency guard: a pending
// order created within the dedup window is returned instead of a new one.
func (r *GormRepo) FindRecentPendingOrder(ctx context.Context, userID uuid.UUID, since time.Time) (*models.Order, error) {
	var order models.Order
	if err := r.DB.WithContext(ctx).
		Preload("Items").
		Where("user_id = ? AND payment_status = ? AND created_at >= ?",
			userID, models.PaymentPending, since).
		Order("created_at DESC").
		First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// GetOrderByIntent resolves a webhook event back to its order when the
// metadata order id is absent or unparsable.
func (r *GormRepo) GetOrderByIntent(ctx context.Context, intentID string) (*models.Order, error) {
	var order models.Order
	if err := r.DB.WithContext(ctx).
		Preload("Items").
		First(&order, "payment_intent_id = ?", intentID).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *GormRepo) SetPaymentIntent(ctx context.Context, orderID uuid.UUID, intentID string) error {
	return r.DB.WithContext(ctx).Model(&models.Order{}).
		Where("id = ?", orderID).
		Update("payment_intent_id", intentID).Error
}

// TransitionOrder moves a pending order to a terminal state. The guard is in
// the WHERE clause, so of two racing settlement paths exactly one observes
// reported=true and applies the stock effects; the loser reads back the
// terminal state and no-ops.
func (r *GormRepo) TransitionOrder(ctx context.Context, orderID uuid.UUID, paymentStatus, orderStatus string) (bool, error) {
	res := r.DB.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND payment_status = ?", orderID, models.PaymentPending).
		Updates(map[string]interface{}{
			"payment_status": paymentStatus,
			"order_status":   orderStatus,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *GormRepo) ListOrdersByUser(ctx context.Context, userID uuid.UUID) ([]models.Order, error) {
	var orders []models.Order
	if err := r.DB.WithContext(ctx).
		Preload("Items").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *GormRepo) ListAllOrders(ctx context.Context, offset, limit int) ([]models.Order, int64, error) {
	q := r.DB.WithContext(ctx).Model(&models.Order{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var orders []models.Order
	if err := q.Preload("Items").
		Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&orders).Error; err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}
