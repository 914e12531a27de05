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

type CatalogService struct {
	Repo   *repo.GormRepo
	Events *mykafka.Producer
}

func (s *CatalogService) GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	p, err := s.Repo.GetProduct(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("product: %w", ErrNotFound)
		}
		return nil, err
	}
	return p, nil
}

func (s *CatalogService) ListProducts(ctx context.Context, f repo.ProductFilter, offset, limit int) ([]models.Product, int64, error) {
	return s.Repo.ListProducts(ctx, f, offset, limit)
}

func (s *CatalogService) CreateProduct(ctx context.Context, req transport.ProductRequest) (*models.Product, error) {
	if req.Name == "" {
		return nil, fmt.Errorf("%w: name required", ErrValidation)
	}
	if req.Price.IsNegative() {
		return nil, fmt.Errorf("%w: price must be >= 0", ErrValidation)
	}
	if req.Stock < 0 {
		return nil, fmt.Errorf("%w: stock must be >= 0", ErrValidation)
	}

	p := &models.Product{
		Name:              req.Name,
		Description:       req.Description,
		Category:          req.Category,
		Images:            req.Images,
		Price:             req.Price,
		Stock:             req.Stock,
		LowStockThreshold: req.LowStockThreshold,
		IsActive:          true,
	}
	if p.LowStockThreshold == 0 {
		p.LowStockThreshold = 5
	}
	if err := s.Repo.CreateProduct(ctx, p); err != nil {
		return nil, err
	}
	s.publish(ctx, p.ID, map[string]any{
		"type":       "product_created",
		"product_id": p.ID,
		"name":       p.Name,
	})
	return p, nil
}

// UpdateProduct applies an admin edit. Reserved stock is deliberately not
// clamped when stock is lowered beneath it: available stock floors at zero
// and the imbalance resolves through later commits and releases.
func (s *CatalogService) UpdateProduct(ctx context.Context, id uuid.UUID, req transport.ProductRequest) (*models.Product, error) {
	p, err := s.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Price.IsNegative() {
		return nil, fmt.Errorf("%w: price must be >= 0", ErrValidation)
	}
	if req.Stock < 0 {
		return nil, fmt.Errorf("%w: stock must be >= 0", ErrValidation)
	}

	p.Name = req.Name
	p.Description = req.Description
	p.Category = req.Category
	p.Images = req.Images
	p.Price = req.Price
	p.Stock = req.Stock
	if req.LowStockThreshold > 0 {
		p.LowStockThreshold = req.LowStockThreshold
	}
	if err := s.Repo.SaveProduct(ctx, p); err != nil {
		return nil, err
	}
	s.publish(ctx, p.ID, map[string]any{
		"type":       "product_updated",
		"product_id": p.ID,
		"name":       p.Name,
	})
	if p.Stock <= p.LowStockThreshold {
		s.publish(ctx, p.ID, map[string]any{
			"type":       "product_low_stock",
			"product_id": p.ID,
			"stock":      p.Stock,
		})
	}
	return p, nil
}

// DeactivateProduct soft-deletes: the product stops being sellable but the
// row survives for order history.
func (s *CatalogService) DeactivateProduct(ctx context.Context, id uuid.UUID) error {
	if err := s.Repo.DeactivateProduct(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("product: %w", ErrNotFound)
		}
		return err
	}
	s.publish(ctx, id, map[string]any{
		"type":       "product_deactivated",
		"product_id": id,
	})
	return nil
}

func (s *CatalogService) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	if err := s.Repo.DeleteProduct(ctx, id); err != nil {
		return err
	}
	s.publish(ctx, id, map[string]any{
		"type":       "product_deleted",
		"product_id": id,
	})
	return nil
}

func (s *CatalogService) LowStock(ctx context.Context) ([]models.Product, error) {
	return s.Repo.LowStockProducts(ctx)
}

func (s *CatalogService) publish(ctx context.Context, productID uuid.UUID, event map[string]any) {
	if s.Events == nil {
		return
	}
	if err := s.Events.PublishEvent(ctx, "product_events", productID.String(), event); err != nil {
		logging.FromContext(ctx).Error("kafka publish error", "topic", "product_events", "error", err)
	}
}
