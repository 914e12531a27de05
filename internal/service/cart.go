package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/quickmart/shop-backend/internal/logging"
	"github.com/quickmart/shop-backend/internal/models"
	"github.com/quickmart/shop-backend/internal/mykafka"
	"github.com/quickmart/shop-backend/internal/repo"
	"github.com/quickmart/shop-backend/internal/transport"
)

// CartService is the cart aggregate. Every item mutation is paired with the
// matching inventory ledger adjustment: the sum of a user's line quantities
// for a product is exactly that cart's share of the product's reserved stock.
type CartService struct {
	Repo   *repo.GormRepo
	Events *mykafka.Producer
}

func (s *CartService) GetCart(ctx context.Context, userID uuid.UUID) (*transport.CartResponse, error) {
	cart, err := s.Repo.GetOrCreateCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.resolve(ctx, cart)
}

func (s *CartService) AddItem(ctx context.Context, userID, productID uuid.UUID, qty int64) (*transport.CartResponse, error) {
	if qty < 1 {
		return nil, fmt.Errorf("%w: quantity must be >= 1", ErrValidation)
	}

	cart, err := s.Repo.GetOrCreateCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	// Reserve first: the ledger's conditional update is the admission check.
	// Whether the line is new or existing, only the delta is reserved.
	if err := s.reserve(ctx, productID, qty); err != nil {
		return nil, err
	}

	item, err := s.Repo.FindCartItem(ctx, cart.ID, productID)
	switch {
	case err == nil:
		err = s.Repo.SetCartItemQuantity(ctx, item.ID, item.Quantity+qty)
	case errors.Is(err, gorm.ErrRecordNotFound):
		err = s.Repo.CreateCartItem(ctx, &models.CartItem{
			CartID:    cart.ID,
			ProductID: productID,
			Quantity:  qty,
		})
	}
	if err != nil {
		// The reservation must not outlive a failed line write.
		s.compensate(ctx, productID, qty)
		return nil, err
	}

	if err := s.Repo.TouchCart(ctx, cart.ID); err != nil {
		return nil, err
	}
	s.publish(ctx, userID, map[string]any{
		"type":       "cart_item_added",
		"user_id":    userID,
		"product_id": productID,
		"quantity":   qty,
	})
	return s.reload(ctx, cart.ID)
}

func (s *CartService) UpdateItem(ctx context.Context, userID, productID uuid.UUID, newQty int64) (*transport.CartResponse, error) {
	if newQty < 1 {
		return nil, fmt.Errorf("%w: quantity must be >= 1", ErrValidation)
	}

	cart, item, err := s.findLine(ctx, userID, productID)
	if err != nil {
		return nil, err
	}

	diff := newQty - item.Quantity
	if diff > 0 {
		if err := s.reserve(ctx, productID, diff); err != nil {
			return nil, err
		}
	} else if diff < 0 {
		if err := s.Repo.Release(ctx, productID, -diff); err != nil {
			return nil, err
		}
	}

	if diff != 0 {
		if err := s.Repo.SetCartItemQuantity(ctx, item.ID, newQty); err != nil {
			// Undo the ledger adjustment: the line still holds the old
			// quantity, so the reservation must match it again.
			s.compensate(ctx, productID, diff)
			return nil, err
		}
		if err := s.Repo.TouchCart(ctx, cart.ID); err != nil {
			return nil, err
		}
	}
	s.publish(ctx, userID, map[string]any{
		"type":       "cart_item_updated",
		"user_id":    userID,
		"product_id": productID,
		"quantity":   newQty,
	})
	return s.reload(ctx, cart.ID)
}

func (s *CartService) RemoveItem(ctx context.Context, userID, productID uuid.UUID) (*transport.CartResponse, error) {
	cart, item, err := s.findLine(ctx, userID, productID)
	if err != nil {
		return nil, err
	}

	if err := s.Repo.Release(ctx, productID, item.Quantity); err != nil {
		return nil, err
	}
	if err := s.Repo.DeleteCartItem(ctx, item.ID); err != nil {
		return nil, err
	}
	if err := s.Repo.TouchCart(ctx, cart.ID); err != nil {
		return nil, err
	}
	s.publish(ctx, userID, map[string]any{
		"type":       "cart_item_removed",
		"user_id":    userID,
		"product_id": productID,
	})
	return s.reload(ctx, cart.ID)
}

// SaveForLater releases the line's reservation and moves it to the saved
// list. The quantity is discarded; moving back re-reserves exactly one unit.
func (s *CartService) SaveForLater(ctx context.Context, userID, productID uuid.UUID) (*transport.CartResponse, error) {
	cart, item, err := s.findLine(ctx, userID, productID)
	if err != nil {
		return nil, err
	}

	if err := s.Repo.Release(ctx, productID, item.Quantity); err != nil {
		return nil, err
	}
	if err := s.Repo.DeleteCartItem(ctx, item.ID); err != nil {
		return nil, err
	}
	if err := s.Repo.CreateSavedItem(ctx, &models.SavedItem{
		CartID:    cart.ID,
		ProductID: productID,
	}); err != nil {
		return nil, err
	}
	if err := s.Repo.TouchCart(ctx, cart.ID); err != nil {
		return nil, err
	}
	s.publish(ctx, userID, map[string]any{
		"type":       "cart_item_saved",
		"user_id":    userID,
		"product_id": productID,
	})
	return s.reload(ctx, cart.ID)
}

func (s *CartService) MoveToCart(ctx context.Context, userID, productID uuid.UUID) (*transport.CartResponse, error) {
	cart, err := s.Repo.GetCartByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("cart: %w", ErrNotFound)
		}
		return nil, err
	}

	saved, err := s.Repo.FindSavedItem(ctx, cart.ID, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrItemNotFound
		}
		return nil, err
	}

	if err := s.Repo.Reserve(ctx, productID, 1); err != nil {
		switch {
		case errors.Is(err, repo.ErrInsufficientStock):
			return nil, ErrOutOfStock
		case errors.Is(err, gorm.ErrRecordNotFound):
			return nil, fmt.Errorf("product: %w", ErrNotFound)
		}
		return nil, err
	}

	if err := s.Repo.DeleteSavedItem(ctx, saved.ID); err != nil {
		s.compensate(ctx, productID, 1)
		return nil, err
	}

	item, err := s.Repo.FindCartItem(ctx, cart.ID, productID)
	switch {
	case err == nil:
		err = s.Repo.SetCartItemQuantity(ctx, item.ID, item.Quantity+1)
	case errors.Is(err, gorm.ErrRecordNotFound):
		err = s.Repo.CreateCartItem(ctx, &models.CartItem{
			CartID:    cart.ID,
			ProductID: productID,
			Quantity:  1,
		})
	}
	if err != nil {
		// No line ended up backing the unit we reserved.
		s.compensate(ctx, productID, 1)
		return nil, err
	}

	if err := s.Repo.TouchCart(ctx, cart.ID); err != nil {
		return nil, err
	}
	s.publish(ctx, userID, map[string]any{
		"type":       "cart_item_restored",
		"user_id":    userID,
		"product_id": productID,
	})
	return s.reload(ctx, cart.ID)
}

// compensate undoes a ledger adjustment whose backing line write failed:
// qty > 0 releases units that were reserved, qty < 0 re-reserves units that
// were released. A failure here is logged, not returned; the caller is
// already propagating the write error.
func (s *CartService) compensate(ctx context.Context, productID uuid.UUID, qty int64) {
	var err error
	if qty > 0 {
		err = s.Repo.Release(ctx, productID, qty)
	} else {
		err = s.Repo.Reserve(ctx, productID, -qty)
	}
	if err != nil {
		logging.FromContext(ctx).Error("compensating stock adjustment failed",
			"product_id", productID, "quantity", qty, "error", err)
	}
}

func (s *CartService) reserve(ctx context.Context, productID uuid.UUID, qty int64) error {
	err := s.Repo.Reserve(ctx, productID, qty)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repo.ErrInsufficientStock):
		return ErrInsufficientStock
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("product: %w", ErrNotFound)
	}
	return err
}

func (s *CartService) findLine(ctx context.Context, userID, productID uuid.UUID) (*models.Cart, *models.CartItem, error) {
	cart, err := s.Repo.GetCartByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, fmt.Errorf("cart: %w", ErrNotFound)
		}
		return nil, nil, err
	}
	item, err := s.Repo.FindCartItem(ctx, cart.ID, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrItemNotFound
		}
		return nil, nil, err
	}
	return cart, item, nil
}

func (s *CartService) reload(ctx context.Context, cartID uuid.UUID) (*transport.CartResponse, error) {
	cart, err := s.Repo.LoadCart(ctx, cartID)
	if err != nil {
		return nil, err
	}
	return s.resolve(ctx, cart)
}

// resolve attaches product details to every line for display. Lines whose
// product has disappeared are dropped from the view only; checkout decides
// separately what to do with them.
func (s *CartService) resolve(ctx context.Context, cart *models.Cart) (*transport.CartResponse, error) {
	ids := make([]uuid.UUID, 0, len(cart.Items)+len(cart.SavedForLater))
	for _, it := range cart.Items {
		ids = append(ids, it.ProductID)
	}
	for _, sv := range cart.SavedForLater {
		ids = append(ids, sv.ProductID)
	}

	resp := &transport.CartResponse{
		ID:            cart.ID,
		Items:         []transport.CartLine{},
		SavedForLater: []transport.SavedLine{},
		UpdatedAt:     cart.UpdatedAt,
	}
	if len(ids) == 0 {
		return resp, nil
	}

	products, err := s.Repo.ProductsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	for _, it := range cart.Items {
		p, ok := products[it.ProductID]
		if !ok {
			continue
		}
		resp.Items = append(resp.Items, transport.CartLine{
			ProductID:      p.ID,
			Name:           p.Name,
			Price:          p.Price,
			Images:         p.Images,
			Quantity:       it.Quantity,
			Stock:          p.Stock,
			ReservedStock:  p.ReservedStock,
			AvailableStock: p.AvailableStock(),
		})
	}
	for _, sv := range cart.SavedForLater {
		p, ok := products[sv.ProductID]
		if !ok {
			continue
		}
		resp.SavedForLater = append(resp.SavedForLater, transport.SavedLine{
			ProductID:      p.ID,
			Name:           p.Name,
			Price:          p.Price,
			Images:         p.Images,
			AvailableStock: p.AvailableStock(),
		})
	}
	return resp, nil
}

func (s *CartService) publish(ctx context.Context, userID uuid.UUID, event map[string]any) {
	if s.Events == nil {
		return
	}
	if err := s.Events.PublishEvent(ctx, "cart_events", userID.String(), event); err != nil {
		logging.FromContext(ctx).Error("kafka publish error", "topic", "cart_events", "error", err)
	}
}
