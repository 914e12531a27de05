package service

import (
	"context"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/quickmart/shop-backend/internal/models"
	"github.com/quickmart/shop-backend/internal/repo"
)

func newTestRepo(t *testing.T) *repo.GormRepo {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.Product{},
		&models.Cart{},
		&models.CartItem{},
		&models.SavedItem{},
		&models.Order{},
		&models.OrderItem{},
	))
	return &repo.GormRepo{DB: db}
}

func newProduct(t *testing.T, r *repo.GormRepo, price string, stock int64) *models.Product {
	t.Helper()
	p := &models.Product{
		Name:     "widget",
		Price:    decimal.RequireFromString(price),
		Stock:    stock,
		IsActive: true,
	}
	require.NoError(t, r.DB.Create(p).Error)
	return p
}

func getProduct(t *testing.T, r *repo.GormRepo, id uuid.UUID) *models.Product {
	t.Helper()
	var p models.Product
	require.NoError(t, r.DB.First(&p, "id = ?", id).Error)
	return &p
}

func getOrder(t *testing.T, r *repo.GormRepo, id uuid.UUID) *models.Order {
	t.Helper()
	order, err := r.GetOrder(context.Background(), id)
	require.NoError(t, err)
	return order
}
