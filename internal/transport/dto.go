package transport

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type AddItemRequest struct {
	ProductID uuid.UUID `json:"product_id"`
	Quantity  int64     `json:"quantity"`
}

type UpdateItemRequest struct {
	ProductID uuid.UUID `json:"product_id"`
	Quantity  int64     `json:"quantity"`
}

// CartLine is a cart item with its product details resolved for display.
type CartLine struct {
	ProductID      uuid.UUID       `json:"product_id"`
	Name           string          `json:"name"`
	Price          decimal.Decimal `json:"price"`
	Images         []string        `json:"images"`
	Quantity       int64           `json:"quantity"`
	Stock          int64           `json:"stock"`
	ReservedStock  int64           `json:"reserved_stock"`
	AvailableStock int64           `json:"available_stock"`
}

type SavedLine struct {
	ProductID      uuid.UUID       `json:"product_id"`
	Name           string          `json:"name"`
	Price          decimal.Decimal `json:"price"`
	Images         []string        `json:"images"`
	AvailableStock int64           `json:"available_stock"`
}

type CartResponse struct {
	ID            uuid.UUID   `json:"id"`
	Items         []CartLine  `json:"items"`
	SavedForLater []SavedLine `json:"saved_for_later"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

type CreateIntentRequest struct {
	OrderID uuid.UUID `json:"order_id"`
}

type CreateIntentResponse struct {
	ClientSecret string `json:"client_secret"`
}

type VerifyRequest struct {
	OrderID uuid.UUID `json:"order_id"`
}

type PaymentStatusResponse struct {
	Message       string `json:"message"`
	PaymentStatus string `json:"payment_status"`
	OrderStatus   string `json:"order_status"`
}

type ProductRequest struct {
	Name              string          `json:"name"`
	Description       string          `json:"description"`
	Category          string          `json:"category"`
	Images            []string        `json:"images"`
	Price             decimal.Decimal `json:"price"`
	Stock             int64           `json:"stock"`
	LowStockThreshold int64           `json:"low_stock_threshold"`
}

type ProductResponse struct {
	ID                uuid.UUID       `json:"id"`
	Name              string          `json:"name"`
	Description       string          `json:"description"`
	Category          string          `json:"category"`
	Images            []string        `json:"images"`
	Price             decimal.Decimal `json:"price"`
	Stock             int64           `json:"stock"`
	ReservedStock     int64           `json:"reserved_stock"`
	AvailableStock    int64           `json:"available_stock"`
	LowStockThreshold int64           `json:"low_stock_threshold"`
	IsActive          bool            `json:"is_active"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

type PageMeta struct {
	Page       int   `json:"page"`
	Size       int   `json:"size"`
	Total      int64 `json:"total"`
	TotalPages int64 `json:"total_pages"`
}
