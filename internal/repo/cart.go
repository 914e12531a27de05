package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/quickmart/shop-backend/internal/models"
)

// GetOrCreateCart returns the user's cart, creating an empty one on first
// access. Each user has exactly one cart (unique index on user_id).
func (r *GormRepo) GetOrCreateCart(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	var cart models.Cart
	err := r.DB.WithContext(ctx).
		Where(models.Cart{UserID: userID}).
		FirstOrCreate(&cart).Error
	if err != nil {
		return nil, err
	}
	return r.LoadCart(ctx, cart.ID)
}

func (r *GormRepo) GetCartByUser(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	var cart models.Cart
	if err := r.DB.WithContext(ctx).
		Preload("Items").
		Preload("SavedForLater").
		First(&cart, "user_id = ?", userID).Error; err != nil {
		return nil, err
	}
	return &cart, nil
}

func (r *GormRepo) LoadCart(ctx context.Context, cartID uuid.UUID) (*models.Cart, error) {
	var cart models.Cart
	if err := r.DB.WithContext(ctx).
		Preload("Items").
		Preload("SavedForLater").
		First(&cart, "id = ?", cartID).Error; err != nil {
		return nil, err
	}
	return &cart, nil
}

func (r *GormRepo) FindCartItem(ctx context.Context, cartID, productID uuid.UUID) (*models.CartItem, error) {
	var item models.CartItem
	if err := r.DB.WithContext(ctx).
		First(&item, "cart_id = ? AND product_id = ?", cartID, productID).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *GormRepo) CreateCartItem(ctx context.Context, item *models.CartItem) error {
	return r.DB.WithContext(ctx).Create(item).Error
}

func (r *GormRepo) SetCartItemQuantity(ctx context.Context, itemID uuid.UUID, qty int64) error {
	return r.DB.WithContext(ctx).Model(&models.CartItem{}).
		Where("id = ?", itemID).
		Update("quantity", qty).Error
}

func (r *GormRepo) DeleteCartItem(ctx context.Context, itemID uuid.UUID) error {
	return r.DB.WithContext(ctx).Delete(&models.CartItem{}, "id = ?", itemID).Error
}

func (r *GormRepo) FindSavedItem(ctx context.Context, cartID, productID uuid.UUID) (*models.SavedItem, error) {
	var saved models.SavedItem
	if err := r.DB.WithContext(ctx).
		First(&saved, "cart_id = ? AND product_id = ?", cartID, productID).Error; err != nil {
		return nil, err
	}
	return &saved, nil
}

func (r *GormRepo) CreateSavedItem(ctx context.Context, saved *models.SavedItem) error {
	return r.DB.WithContext(ctx).
		Where(models.SavedItem{CartID: saved.CartID, ProductID: saved.ProductID}).
		FirstOrCreate(saved).Error
}

func (r *GormRepo) DeleteSavedItem(ctx context.Context, savedID uuid.UUID) error {
	return r.DB.WithContext(ctx).Delete(&models.SavedItem{}, "id = ?", savedID).Error
}

// ClearCartItems empties the active item list only; saved-for-later entries
// hold no reservation and survive a sweep.
func (r *GormRepo) ClearCartItems(ctx context.Context, cartID uuid.UUID) error {
	return r.DB.WithContext(ctx).Delete(&models.CartItem{}, "cart_id = ?", cartID).Error
}

// ClearCart empties both lists. Used after a successful payment. The cart
// row itself is never deleted.
func (r *GormRepo) ClearCart(ctx context.Context, userID uuid.UUID) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var cart models.Cart
		if err := tx.First(&cart, "user_id = ?", userID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return nil
			}
			return err
		}
		if err := tx.Delete(&models.CartItem{}, "cart_id = ?", cart.ID).Error; err != nil {
			return err
		}
		return tx.Delete(&models.SavedItem{}, "cart_id = ?", cart.ID).Error
	})
}

// TouchCart bumps the cart's last-modified time, which is what the expiry
// sweeper keys off.
func (r *GormRepo) TouchCart(ctx context.Context, cartID uuid.UUID) error {
	return r.DB.WithContext(ctx).Model(&models.Cart{}).
		Where("id = ?", cartID).
		Update("updated_at", time.Now()).Error
}

// StaleCarts returns carts untouched since the cutoff that still hold items,
// with items preloaded so the sweeper can release their reservations.
func (r *GormRepo) StaleCarts(ctx context.Context, cutoff time.Time) ([]models.Cart, error) {
	var carts []models.Cart
	if err := r.DB.WithContext(ctx).
		Preload("Items").
		Where("updated_at < ? AND EXISTS (SELECT 1 FROM cart_items WHERE cart_items.cart_id = carts.id)", cutoff).
		Find(&carts).Error; err != nil {
		return nil, err
	}
	return carts, nil
}
