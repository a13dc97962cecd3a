package models

import (
	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Product is a catalog item with stock bookkeeping and reviews.
type Product struct {
	BaseModel
	Name              string          `json:"name"`
	Description       string          `json:"description"`
	Price             float64         `json:"price"`
	PromoPrice        float64         `json:"promo_price"`
	Discount          float64         `json:"discount"`
	Images            pq.StringArray  `gorm:"type:text[]" json:"images"`
	Stock             int             `json:"stock"`
	LowStockThreshold int             `gorm:"default:5" json:"low_stock_threshold"`
	CategoryID        uuid.UUID       `gorm:"type:uuid;index" json:"category_id"`
	Category          *Category       `json:"category,omitempty"`
	IsActive          bool            `gorm:"default:true" json:"is_active"`
	Ratings           float64         `json:"ratings"`
	RatingCount       int             `json:"rating_count"`
	Reviews           []Review        `json:"reviews,omitempty"`
	StockMovements    []StockMovement `json:"stock_movements,omitempty"`
}

// UnitPrice is the catalog price used when no promotion applies: the
// promotional price when one is set, the base price otherwise.
func (p *Product) UnitPrice() float64 {
	if p.PromoPrice > 0 {
		return p.PromoPrice
	}
	return p.Price
}

// Review is a customer rating with comment, one per user per product.
type Review struct {
	BaseModel
	ProductID  uuid.UUID `gorm:"type:uuid;index" json:"product_id"`
	UserID     uuid.UUID `gorm:"type:uuid;index" json:"user_id"`
	AuthorName string    `json:"author_name"`
	Rating     int       `json:"rating"`
	Comment    string    `json:"comment"`
}

// Stock movement types.
const (
	MovementEntry       = "entry"
	MovementExit        = "exit"
	MovementAdjustment  = "adjustment"
	MovementReservation = "reservation"
)

// StockMovement is an audit record of a quantity change to a product's stock.
type StockMovement struct {
	BaseModel
	ProductID uuid.UUID  `gorm:"type:uuid;index" json:"product_id"`
	Type      string     `json:"type"`
	Quantity  int        `json:"quantity"`
	Resulting int        `json:"resulting"`
	Reason    string     `json:"reason"`
	UserID    *uuid.UUID `gorm:"type:uuid" json:"user_id"`
}
