package models

import "github.com/google/uuid"

// Cart is the single mutable cart kept per user. Items snapshot the unit
// price at the time they were added; Total is recomputed on every mutation.
type Cart struct {
	BaseModel
	UserID          uuid.UUID  `gorm:"type:uuid;uniqueIndex" json:"user_id"`
	Items           []CartItem `json:"items"`
	CouponCode      string     `json:"coupon_code"`
	DiscountPercent float64    `json:"discount_percent"`
	Total           float64    `json:"total"`
}

// CartItem is one (product, quantity, unit price) line in a cart.
type CartItem struct {
	BaseModel
	CartID    uuid.UUID `gorm:"type:uuid;index" json:"cart_id"`
	ProductID uuid.UUID `gorm:"type:uuid;index" json:"product_id"`
	Product   *Product  `json:"product,omitempty"`
	Quantity  int       `json:"quantity"`
	UnitPrice float64   `json:"unit_price"`
}
