package repo

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/quickmart/shop-backend/internal/models"
)

// Reserve holds qty units of a product for a cart line. The admission check
// and the counter bump are one conditional UPDATE, so two carts racing for
// the last units cannot both win: the WHERE clause re-evaluates
// stock - reserved_stock under the row lock the database already takes.
func (r *GormRepo) Reserve(ctx context.Context, productID uuid.UUID, qty int64) error {
	res := r.DB.WithContext(ctx).Model(&models.Product{}).
		Where("id = ? AND is_active = ? AND stock - reserved_stock >= ?", productID, true, qty).
		Update("reserved_stock", gorm.Expr("reserved_stock + ?", qty))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}

	var count int64
	if err := r.DB.WithContext(ctx).Model(&models.Product{}).
		Where("id = ? AND is_active = ?", productID, true).
		Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return gorm.ErrRecordNotFound
	}
	return ErrInsufficientStock
}

// Release returns qty reserved units to the pool, flooring at zero. Releasing
// more than is currently reserved is a defensive clamp, not an error, and a
// missing product is silently ignored.
func (r *GormRepo) Release(ctx context.Context, productID uuid.UUID, qty int64) error {
	return r.DB.WithContext(ctx).Model(&models.Product{}).
		Where("id = ?", productID).
		Update("reserved_stock",
			gorm.Expr("CASE WHEN reserved_stock > ? THEN reserved_stock - ? ELSE 0 END", qty, qty)).
		Error
}

// Commit converts a reservation into a permanent deduction after payment
// success: stock and reserved_stock both drop by qty, each floored at zero,
// in a single UPDATE.
func (r *GormRepo) Commit(ctx context.Context, productID uuid.UUID, qty int64) error {
	return r.DB.WithContext(ctx).Model(&models.Product{}).
		Where("id = ?", productID).
		Updates(map[string]interface{}{
			"stock":          gorm.Expr("CASE WHEN stock > ? THEN stock - ? ELSE 0 END", qty, qty),
			"reserved_stock": gorm.Expr("CASE WHEN reserved_stock > ? THEN reserved_stock - ? ELSE 0 END", qty, qty),
		}).Error
}
