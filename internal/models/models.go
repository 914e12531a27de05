package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	PaymentPending = "Pending"
	PaymentPaid    = "Paid"
	PaymentFailed  = "Failed"

	OrderProcessing = "Processing"
	OrderPaid       = "Paid"
	OrderFailed     = "Failed"
)

type Product struct {
	ID                uuid.UUID       `gorm:"primaryKey"               json:"id"`
	Name              string          `gorm:"not null"                 json:"name"`
	Description       string          `json:"description"`
	Category          string          `gorm:"index"                    json:"category"`
	Images            []string        `gorm:"serializer:json"          json:"images"`
	Price             decimal.Decimal `gorm:"type:numeric;not null"    json:"price"`
	Stock             int64           `gorm:"not null;check:stock>=0"  json:"stock"`
	ReservedStock     int64           `gorm:"not null;default:0;check:reserved_stock>=0" json:"reserved_stock"`
	LowStockThreshold int64           `gorm:"default:5"                json:"low_stock_threshold"`
	IsActive          bool            `gorm:"default:true"             json:"is_active"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// AvailableStock is what admission checks run against. It floors at zero:
// reserved_stock may transiently exceed stock after an admin stock edit.
func (p *Product) AvailableStock() int64 {
	if avail := p.Stock - p.ReservedStock; avail > 0 {
		return avail
	}
	return 0
}

func (p *Product) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

func (Product) TableName() string {
	return "products"
}

type Cart struct {
	ID            uuid.UUID   `gorm:"primaryKey"               json:"id"`
	UserID        uuid.UUID   `gorm:"uniqueIndex;not null"     json:"user_id"`
	Items         []CartItem  `gorm:"foreignKey:CartID"        json:"items"`
	SavedForLater []SavedItem `gorm:"foreignKey:CartID"        json:"saved_for_later"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

func (c *Cart) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

func (Cart) TableName() string {
	return "carts"
}

type CartItem struct {
	ID        uuid.UUID `gorm:"primaryKey"                                  json:"id"`
	CartID    uuid.UUID `gorm:"uniqueIndex:idx_cart_product;not null"       json:"cart_id"`
	ProductID uuid.UUID `gorm:"uniqueIndex:idx_cart_product;not null"       json:"product_id"`
	Quantity  int64     `gorm:"default:1;check:quantity>0"                  json:"quantity"`
}

func (i *CartItem) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

func (CartItem) TableName() string {
	return "cart_items"
}

// SavedItem holds no reservation and no quantity: moving an entry back into
// the cart always re-reserves exactly one unit.
type SavedItem struct {
	ID        uuid.UUID `gorm:"primaryKey"                                  json:"id"`
	CartID    uuid.UUID `gorm:"uniqueIndex:idx_cart_saved_product;not null" json:"cart_id"`
	ProductID uuid.UUID `gorm:"uniqueIndex:idx_cart_saved_product;not null" json:"product_id"`
}

func (s *SavedItem) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

func (SavedItem) TableName() string {
	return "saved_items"
}

type Order struct {
	ID              uuid.UUID       `gorm:"primaryKey"            json:"id"`
	UserID          uuid.UUID       `gorm:"index;not null"        json:"user_id"`
	Items           []OrderItem     `gorm:"foreignKey:OrderID"    json:"items"`
	TotalAmount     decimal.Decimal `gorm:"type:numeric;not null" json:"total_amount"`
	PaymentIntentID string          `gorm:"index"                 json:"payment_intent_id"`
	PaymentStatus   string          `gorm:"not null;default:Pending"    json:"payment_status"`
	OrderStatus     string          `gorm:"not null;default:Processing" json:"order_status"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// AmountMinor is the order total in minor units of the settlement currency,
// the amount the payment provider is asked to charge.
func (o *Order) AmountMinor() int64 {
	return o.TotalAmount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}

func (Order) TableName() string {
	return "orders"
}

type OrderItem struct {
	ID        uuid.UUID       `gorm:"primaryKey"            json:"id"`
	OrderID   uuid.UUID       `gorm:"index;not null"        json:"order_id"`
	ProductID uuid.UUID       `gorm:"not null"              json:"product_id"`
	Quantity  int64           `gorm:"check:quantity>0"      json:"quantity"`
	UnitPrice decimal.Decimal `gorm:"type:numeric;not null" json:"unit_price"`
}

func (i *OrderItem) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

func (OrderItem) TableName() string {
	return "order_items"
}
