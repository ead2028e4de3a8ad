package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product is a catalog entry. Quantity is the sellable stock.
type Product struct {
	BaseModel
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `gorm:"type:decimal(12,2)" json:"price"`
	Quantity    int             `json:"quantity"`
	Image       string          `json:"image"`
	Comments    []Comment       `gorm:"foreignKey:ProductID" json:"comments,omitempty"`
}

type Comment struct {
	BaseModel
	Content   string    `gorm:"type:text" json:"content"`
	Score     int       `json:"score"`
	ProductID uuid.UUID `gorm:"type:char(36);index" json:"product_id"`
	UserID    uuid.UUID `gorm:"type:char(36);index" json:"user_id"`
}
