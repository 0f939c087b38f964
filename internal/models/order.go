package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusPaid      OrderStatus = "paid"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// PaymentStatus tracks whether an order has been paid for.
type PaymentStatus string

const (
	PaymentStatusUnpaid PaymentStatus = "unpaid"
	PaymentStatusPaid   PaymentStatus = "paid"
)

// OrderItem represents a single item within an order.
type OrderItem struct {
	ID        string          `json:"id" gorm:"primaryKey;type:varchar(36)"`
	OrderID   string          `json:"order_id" gorm:"type:varchar(36);index;not null"`
	ProductID string          `json:"product_id" gorm:"type:varchar(36);index;not null"`
	Product   *Product        `json:"product,omitempty" gorm:"foreignKey:ProductID"`
	Quantity  int             `json:"quantity" gorm:"not null;check:quantity>0"`
	Price     decimal.Decimal `json:"price" gorm:"type:decimal(10,2);not null"` // Price at the time of order
	Subtotal  decimal.Decimal `json:"subtotal" gorm:"-"`
}

func (i *OrderItem) BeforeCreate(tx *gorm.DB) error {
	if i.ID == "" {
		i.ID = uuid.New().String()
	}
	i.Subtotal = i.LineTotal()
	return nil
}

func (i *OrderItem) AfterFind(tx *gorm.DB) error {
	i.Subtotal = i.LineTotal()
	return nil
}

// LineTotal is quantity × snapshot price.
func (i OrderItem) LineTotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Order represents a customer order.
type Order struct {
	ID              string          `json:"id" gorm:"primaryKey;type:varchar(36)"`
	UserID          string          `json:"user_id" gorm:"type:varchar(36);index;not null"`
	Status          OrderStatus     `json:"status" gorm:"type:varchar(20);index;not null;default:pending"`
	PaymentStatus   PaymentStatus   `json:"payment_status" gorm:"type:varchar(20);not null;default:unpaid"`
	ShippingAddress string          `json:"shipping_address" gorm:"type:text;not null"`
	PaymentMethod   string          `json:"payment_method" gorm:"type:varchar(50);not null"`
	TotalPrice      decimal.Decimal `json:"total_price" gorm:"type:decimal(12,2);not null;default:0"`
	Items           []OrderItem     `json:"items" gorm:"foreignKey:OrderID"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.ID == "" {
		o.ID = uuid.New().String()
	}
	return nil
}

// IsOwnedBy reports whether userID owns the order.
func (o *Order) IsOwnedBy(userID string) bool {
	return o.UserID == userID
}
