package services

import (
	"errors"
	"math"
	"time"

	"gorm.io/gorm"

	"github.com/example/pharmacart/internal/models"
	"github.com/example/pharmacart/internal/utils"
)

// Coupon rejection reasons surfaced to the cart flow.
var (
	ErrCouponInactive  = errors.New("coupon is no longer active")
	ErrCouponExpired   = errors.New("coupon has expired or is not yet valid")
	ErrCouponExhausted = errors.New("coupon has reached its usage limit")
	ErrCouponMinAmount = errors.New("cart total is below the coupon minimum amount")
)

// PriceQuote is the outcome of resolving all applicable promotions for a
// product: the customer gets the best single promotion, never a stack.
type PriceQuote struct {
	OriginalPrice   float64            `json:"original_price"`
	Promotions      []models.Promotion `json:"promotions"`
	BestPromotion   *models.Promotion  `json:"best_promotion,omitempty"`
	BestPrice       float64            `json:"best_price"`
	Discount        float64            `json:"discount"`
	DiscountPercent float64            `json:"discount_percent"`
}

// PricingService implements promotion resolution and cart total arithmetic.
type PricingService struct {
	db *gorm.DB
}

// NewPricingService constructs a PricingService.
func NewPricingService(db *gorm.DB) *PricingService {
	return &PricingService{db: db}
}

// ResolveQuote picks the lowest discounted price among the promotions valid
// at the given instant. Amounts are rounded to two decimals for display and
// the percentage-off is derived from the rounded figures.
func ResolveQuote(price float64, promos []models.Promotion, now time.Time) PriceQuote {
	quote := PriceQuote{
		OriginalPrice: price,
		Promotions:    []models.Promotion{},
		BestPrice:     utils.Round2(price),
	}

	bestPrice := price
	bestIdx := -1
	for _, p := range promos {
		if !p.ValidAt(now) {
			continue
		}
		quote.Promotions = append(quote.Promotions, p)
		if reduced := p.DiscountedPrice(price); reduced < bestPrice {
			bestPrice = reduced
			bestIdx = len(quote.Promotions) - 1
		}
	}

	if bestIdx == -1 {
		return quote
	}

	quote.BestPromotion = &quote.Promotions[bestIdx]
	quote.BestPrice = utils.Round2(bestPrice)
	quote.Discount = utils.Round2(price - quote.BestPrice)
	if price > 0 {
		quote.DiscountPercent = math.Round(quote.Discount / price * 100)
	}
	return quote
}

// ResolvePrice loads the active promotions targeting the product or its
// category and resolves the best price.
func (s *PricingService) ResolvePrice(product *models.Product) (PriceQuote, error) {
	return ResolveQuoteFor(s.db, product, time.Now())
}

// ResolveQuoteFor is ResolvePrice over an explicit connection, usable inside
// transactions.
func ResolveQuoteFor(db *gorm.DB, product *models.Product, now time.Time) (PriceQuote, error) {
	var promos []models.Promotion
	err := db.
		Where("is_active = ? AND starts_at <= ? AND ends_at >= ?", true, now, now).
		Where(
			db.Where("target_type = ? AND target_id = ?", models.TargetProduct, product.ID).
				Or("target_type = ? AND target_id = ?", models.TargetCategory, product.CategoryID),
		).
		Find(&promos).Error
	if err != nil {
		return PriceQuote{}, err
	}

	quote := ResolveQuote(product.Price, promos, now)

	// A standing promo price on the product itself competes with the
	// promotion rules; the customer gets whichever is lower.
	if standing := product.UnitPrice(); standing < quote.BestPrice {
		quote.BestPromotion = nil
		quote.BestPrice = utils.Round2(standing)
		quote.Discount = utils.Round2(product.Price - quote.BestPrice)
		if product.Price > 0 {
			quote.DiscountPercent = math.Round(quote.Discount / product.Price * 100)
		}
	}

	return quote, nil
}

// CheckCoupon validates a coupon against the current time and order amount.
func CheckCoupon(coupon *models.Coupon, orderAmount float64, now time.Time) error {
	if !coupon.IsActive {
		return ErrCouponInactive
	}
	if now.Before(coupon.StartsAt) || now.After(coupon.EndsAt) {
		return ErrCouponExpired
	}
	if coupon.Exhausted() {
		return ErrCouponExhausted
	}
	if orderAmount < coupon.MinAmount {
		return ErrCouponMinAmount
	}
	return nil
}

// CouponRate converts a coupon into a percentage reduction of the given
// subtotal. Fixed-amount coupons become the equivalent percentage, capped
// at 100 so totals never go negative.
func CouponRate(coupon *models.Coupon, subtotal float64) float64 {
	switch coupon.Type {
	case models.CouponFixed:
		if subtotal <= 0 {
			return 0
		}
		rate := coupon.Value / subtotal * 100
		if rate > 100 {
			return 100
		}
		return rate
	default:
		return coupon.Value
	}
}

// CartSubtotal sums unit price times quantity over the cart lines.
func CartSubtotal(cart *models.Cart) float64 {
	var subtotal float64
	for _, item := range cart.Items {
		subtotal += item.UnitPrice * float64(item.Quantity)
	}
	return subtotal
}

// RecalculateCart recomputes the cart total from its lines and the applied
// coupon rate. Must run after every cart mutation.
func RecalculateCart(cart *models.Cart) {
	total := CartSubtotal(cart)
	if cart.DiscountPercent > 0 {
		total *= 1 - cart.DiscountPercent/100
	}
	cart.Total = utils.Round2(total)
}

// ApplyCoupon validates the coupon against the cart and, when valid, stores
// its code and rate on the cart and recomputes the total.
func ApplyCoupon(cart *models.Cart, coupon *models.Coupon, now time.Time) error {
	subtotal := CartSubtotal(cart)
	if err := CheckCoupon(coupon, subtotal, now); err != nil {
		return err
	}

	cart.CouponCode = coupon.Code
	cart.DiscountPercent = CouponRate(coupon, subtotal)
	RecalculateCart(cart)
	return nil
}
