package models

import (
	"time"

	"github.com/google/uuid"
)

// Promotion target types.
const (
	TargetProduct  = "product"
	TargetCategory = "category"
)

// Promotion discount types.
const (
	DiscountPercentage = "percentage"
	DiscountAmount     = "amount"
)

// Promotion is a time-windowed discount rule targeting a product or a
// whole category, optionally triggered by a coupon code.
type Promotion struct {
	BaseModel
	Name         string    `json:"name"`
	TargetType   string    `gorm:"index:idx_promotions_target" json:"target_type"`
	TargetID     uuid.UUID `gorm:"type:uuid;index:idx_promotions_target" json:"target_id"`
	DiscountType string    `json:"discount_type"`
	Value        float64   `json:"value"`
	StartsAt     time.Time `gorm:"index" json:"starts_at"`
	EndsAt       time.Time `gorm:"index" json:"ends_at"`
	IsActive     bool      `gorm:"default:true" json:"is_active"`
	Code         string    `gorm:"index" json:"code"`
	Description  string    `json:"description"`
}

// ValidAt reports whether the promotion applies at the given instant.
func (p *Promotion) ValidAt(t time.Time) bool {
	return p.IsActive && !t.Before(p.StartsAt) && !t.After(p.EndsAt)
}

// DiscountedPrice returns the price after this promotion alone. Percentages
// are capped at 100, fixed amounts floor the result at zero.
func (p *Promotion) DiscountedPrice(price float64) float64 {
	switch p.DiscountType {
	case DiscountPercentage:
		pct := p.Value
		if pct > 100 {
			pct = 100
		}
		return price * (1 - pct/100)
	case DiscountAmount:
		if p.Value >= price {
			return 0
		}
		return price - p.Value
	}
	return price
}
