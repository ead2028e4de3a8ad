package models

import "github.com/google/uuid"

// Cart is the single shopping cart of a user.
type Cart struct {
	BaseModel
	UserID uuid.UUID  `gorm:"type:char(36);uniqueIndex" json:"user_id"`
	Items  []CartItem `gorm:"constraint:OnDelete:CASCADE" json:"items"`
}

type CartItem struct {
	BaseModel
	CartID    uuid.UUID `gorm:"type:char(36);uniqueIndex:idx_cart_product" json:"cart_id"`
	ProductID uuid.UUID `gorm:"type:char(36);uniqueIndex:idx_cart_product" json:"product_id"`
	Product   *Product  `json:"product,omitempty"`
	Quantity  int       `json:"quantity"`
}
