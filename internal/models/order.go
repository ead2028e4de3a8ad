package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderStatus is the fulfilment state set by administrators.
type OrderStatus string

const (
	OrderStatusPreparing  OrderStatus = "PREPARING"
	OrderStatusDelivering OrderStatus = "DELIVERING"
	OrderStatusDelivered  OrderStatus = "DELIVERED"
	OrderStatusCanceled   OrderStatus = "CANCELED"
)

// Valid reports whether s is one of the known statuses.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPreparing, OrderStatusDelivering, OrderStatusDelivered, OrderStatusCanceled:
		return true
	}
	return false
}

const (
	PaymentStatusCreated = "CREATED"
	PaymentStatusPaid    = "PAID"
)

type Order struct {
	BaseModel
	UserID         uuid.UUID       `gorm:"type:char(36);index" json:"user_id"`
	Address        string          `json:"address"`
	PhoneNumber    string          `gorm:"size:32" json:"phone_number"`
	Status         OrderStatus     `gorm:"size:16;index" json:"status"`
	GatewayOrderID string          `gorm:"size:64;index" json:"gateway_order_id"`
	Amount         decimal.Decimal `gorm:"type:decimal(12,2)" json:"amount"`
	Currency       string          `gorm:"size:8" json:"currency"`
	PaymentID      string          `gorm:"size:64" json:"payment_id"`
	PaymentStatus  string          `gorm:"size:16" json:"payment_status"`
	Items          []OrderItem     `json:"items"`
}

// OrderItem is an immutable snapshot of a cart line at order time.
type OrderItem struct {
	BaseModel
	OrderID     uuid.UUID       `gorm:"type:char(36);index" json:"order_id"`
	ProductID   uuid.UUID       `gorm:"type:char(36);index" json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	Price       decimal.Decimal `gorm:"type:decimal(12,2)" json:"price"`
}

// LineTotal returns price times quantity.
func (i OrderItem) LineTotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}
