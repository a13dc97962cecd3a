package models

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// Coupon discount types.
const (
	CouponPercentage = "percentage"
	CouponFixed      = "fixed"
)

// Coupon is a code-based discount applied directly to a cart total. Simpler
// than a Promotion: no target, just a value, a window and a usage budget.
type Coupon struct {
	BaseModel
	Code        string    `gorm:"uniqueIndex" json:"code"`
	Description string    `json:"description"`
	Type        string    `gorm:"default:percentage" json:"type"`
	Value       float64   `json:"value"`
	MinAmount   float64   `json:"min_amount"`
	StartsAt    time.Time `json:"starts_at"`
	EndsAt      time.Time `json:"ends_at"`
	MaxUses     *int      `json:"max_uses"`
	UsedCount   int       `json:"used_count"`
	IsActive    bool      `gorm:"default:true" json:"is_active"`
}

// NormalizeCouponCode maps user input to the stored code form.
func NormalizeCouponCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// BeforeSave normalizes the code to uppercase.
func (c *Coupon) BeforeSave(tx *gorm.DB) error {
	c.Code = NormalizeCouponCode(c.Code)
	return nil
}

// Exhausted reports whether the usage limit has been reached.
func (c *Coupon) Exhausted() bool {
	return c.MaxUses != nil && c.UsedCount >= *c.MaxUses
}
