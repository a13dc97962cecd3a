package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/pharmacart/internal/models"
	"github.com/example/pharmacart/internal/services"
	"github.com/example/pharmacart/internal/utils"
)

// PromotionHandler manages promotions, coupons and price resolution.
type PromotionHandler struct {
	db      *gorm.DB
	pricing *services.PricingService
}

// NewPromotionHandler constructs PromotionHandler.
func NewPromotionHandler(db *gorm.DB, pricing *services.PricingService) *PromotionHandler {
	return &PromotionHandler{db: db, pricing: pricing}
}

type promotionRequest struct {
	Name         string    `json:"name" validate:"required"`
	TargetType   string    `json:"target_type" validate:"required,oneof=product category"`
	TargetID     string    `json:"target_id" validate:"required,uuid"`
	DiscountType string    `json:"discount_type" validate:"required,oneof=percentage amount"`
	Value        float64   `json:"value" validate:"required,gt=0"`
	StartsAt     time.Time `json:"starts_at" validate:"required"`
	EndsAt       time.Time `json:"ends_at" validate:"required"`
	Code         string    `json:"code"`
	Description  string    `json:"description"`
}

func (h *PromotionHandler) checkTarget(targetType string, targetID uuid.UUID) error {
	var err error
	switch targetType {
	case models.TargetProduct:
		err = h.db.First(&models.Product{}, "id = ?", targetID).Error
	case models.TargetCategory:
		err = h.db.First(&models.Category{}, "id = ?", targetID).Error
	}
	if err == gorm.ErrRecordNotFound {
		return fiber.NewError(fiber.StatusNotFound, targetType+" not found")
	}
	return err
}

func validatePromotionWindow(startsAt, endsAt time.Time) error {
	if !endsAt.After(startsAt) {
		return fiber.NewError(fiber.StatusBadRequest, "ends_at must be after starts_at")
	}
	return nil
}

func clampPromotionValue(discountType string, value float64) (float64, error) {
	if discountType == models.DiscountPercentage && value > 100 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "percentage cannot exceed 100")
	}
	return value, nil
}

// ListPromotions returns all promotions, optionally only the currently
// active ones.
func (h *PromotionHandler) ListPromotions(c *fiber.Ctx) error {
	pg := utils.ParsePagination(c)
	query := h.db.Model(&models.Promotion{})

	if c.Query("active") == "true" {
		now := time.Now()
		query = query.Where("is_active = ? AND starts_at <= ? AND ends_at >= ?", true, now, now)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return err
	}

	var promotions []models.Promotion
	if err := query.Order("starts_at desc").
		Limit(pg.Limit).Offset(pg.Offset).
		Find(&promotions).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    promotions,
		"pagination": fiber.Map{
			"current_page":   pg.Page,
			"items_per_page": pg.Limit,
			"total_items":    total,
		},
	})
}

// CreatePromotion creates a promotion after checking its target exists, its
// window is sane and its code is unused.
func (h *PromotionHandler) CreatePromotion(c *fiber.Ctx) error {
	var req promotionRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := utils.ValidateStruct(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	if err := validatePromotionWindow(req.StartsAt, req.EndsAt); err != nil {
		return err
	}
	value, err := clampPromotionValue(req.DiscountType, req.Value)
	if err != nil {
		return err
	}

	targetID, _ := uuid.Parse(req.TargetID)
	if err := h.checkTarget(req.TargetType, targetID); err != nil {
		return err
	}

	if req.Code != "" {
		var count int64
		if err := h.db.Model(&models.Promotion{}).
			Where("code = ?", req.Code).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return fiber.NewError(fiber.StatusConflict, "promotion code already in use")
		}
	}

	promotion := models.Promotion{
		Name:         req.Name,
		TargetType:   req.TargetType,
		TargetID:     targetID,
		DiscountType: req.DiscountType,
		Value:        value,
		StartsAt:     req.StartsAt,
		EndsAt:       req.EndsAt,
		IsActive:     true,
		Code:         req.Code,
		Description:  req.Description,
	}
	if err := h.db.Create(&promotion).Error; err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": promotion})
}

type promotionUpdateRequest struct {
	Name        *string    `json:"name"`
	Value       *float64   `json:"value"`
	StartsAt    *time.Time `json:"starts_at"`
	EndsAt      *time.Time `json:"ends_at"`
	IsActive    *bool      `json:"is_active"`
	Description *string    `json:"description"`
}

// UpdatePromotion partially updates a promotion.
func (h *PromotionHandler) UpdatePromotion(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	var promotion models.Promotion
	if err := h.db.First(&promotion, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return fiber.NewError(fiber.StatusNotFound, "promotion not found")
		}
		return err
	}

	var req promotionUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if req.Name != nil {
		promotion.Name = *req.Name
	}
	if req.Value != nil {
		value, err := clampPromotionValue(promotion.DiscountType, *req.Value)
		if err != nil {
			return err
		}
		if value <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "value must be positive")
		}
		promotion.Value = value
	}
	if req.StartsAt != nil {
		promotion.StartsAt = *req.StartsAt
	}
	if req.EndsAt != nil {
		promotion.EndsAt = *req.EndsAt
	}
	if err := validatePromotionWindow(promotion.StartsAt, promotion.EndsAt); err != nil {
		return err
	}
	if req.IsActive != nil {
		promotion.IsActive = *req.IsActive
	}
	if req.Description != nil {
		promotion.Description = *req.Description
	}

	if err := h.db.Save(&promotion).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": promotion})
}

// DeletePromotion removes a promotion.
func (h *PromotionHandler) DeletePromotion(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	result := h.db.Delete(&models.Promotion{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fiber.NewError(fiber.StatusNotFound, "promotion not found")
	}

	return c.JSON(fiber.Map{"success": true, "message": "promotion deleted"})
}

// GetProductPromotions resolves the active promotions and best price for a
// product.
func (h *PromotionHandler) GetProductPromotions(c *fiber.Ctx) error {
	productID, err := uuid.Parse(c.Params("productId"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid product id")
	}

	var product models.Product
	if err := h.db.First(&product, "id = ?", productID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return fiber.NewError(fiber.StatusNotFound, "product not found")
		}
		return err
	}

	quote, err := h.pricing.ResolvePrice(&product)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": quote})
}

type applyPromoCodeRequest struct {
	Code      string `json:"code" validate:"required"`
	ProductID string `json:"product_id" validate:"required,uuid"`
}

// ApplyPromoCode resolves a promotion code against a product, checking the
// promotion actually targets it or its category.
func (h *PromotionHandler) ApplyPromoCode(c *fiber.Ctx) error {
	var req applyPromoCodeRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := utils.ValidateStruct(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	productID, _ := uuid.Parse(req.ProductID)
	var product models.Product
	if err := h.db.First(&product, "id = ?", productID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return fiber.NewError(fiber.StatusNotFound, "product not found")
		}
		return err
	}

	var promotion models.Promotion
	if err := h.db.Where("code = ?", req.Code).First(&promotion).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return fiber.NewError(fiber.StatusNotFound, "promotion not found")
		}
		return err
	}

	if !promotion.IsActive || !promotion.ValidAt(time.Now()) {
		return fiber.NewError(fiber.StatusBadRequest, "promotion is not active")
	}

	applies := (promotion.TargetType == models.TargetProduct && promotion.TargetID == product.ID) ||
		(promotion.TargetType == models.TargetCategory && promotion.TargetID == product.CategoryID)
	if !applies {
		return fiber.NewError(fiber.StatusBadRequest, "promotion does not apply to this product")
	}

	discounted := promotion.DiscountedPrice(product.Price)
	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"promotion":        promotion,
			"original_price":   product.Price,
			"discounted_price": utils.Round2(discounted),
		},
	})
}

type couponRequest struct {
	Code        string    `json:"code" validate:"required"`
	Description string    `json:"description"`
	Type        string    `json:"type" validate:"required,oneof=percentage fixed"`
	Value       float64   `json:"value" validate:"required,gt=0"`
	MinAmount   float64   `json:"min_amount" validate:"gte=0"`
	StartsAt    time.Time `json:"starts_at" validate:"required"`
	EndsAt      time.Time `json:"ends_at" validate:"required"`
	MaxUses     *int      `json:"max_uses"`
}

// ListCoupons returns all coupons.
func (h *PromotionHandler) ListCoupons(c *fiber.Ctx) error {
	pg := utils.ParsePagination(c)

	var total int64
	if err := h.db.Model(&models.Coupon{}).Count(&total).Error; err != nil {
		return err
	}

	var coupons []models.Coupon
	if err := h.db.Order("created_at desc").
		Limit(pg.Limit).Offset(pg.Offset).
		Find(&coupons).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    coupons,
		"pagination": fiber.Map{
			"current_page":   pg.Page,
			"items_per_page": pg.Limit,
			"total_items":    total,
		},
	})
}

// CreateCoupon creates a coupon with a unique uppercase code.
func (h *PromotionHandler) CreateCoupon(c *fiber.Ctx) error {
	var req couponRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := utils.ValidateStruct(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	if err := validatePromotionWindow(req.StartsAt, req.EndsAt); err != nil {
		return err
	}
	if req.Type == models.CouponPercentage && req.Value > 100 {
		return fiber.NewError(fiber.StatusBadRequest, "percentage cannot exceed 100")
	}
	if req.MaxUses != nil && *req.MaxUses <= 0 {
		return fiber.NewError(fiber.StatusBadRequest, "max_uses must be positive")
	}

	code := models.NormalizeCouponCode(req.Code)
	var count int64
	if err := h.db.Model(&models.Coupon{}).Where("code = ?", code).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return fiber.NewError(fiber.StatusConflict, "coupon code already in use")
	}

	coupon := models.Coupon{
		Code:        code,
		Description: req.Description,
		Type:        req.Type,
		Value:       req.Value,
		MinAmount:   req.MinAmount,
		StartsAt:    req.StartsAt,
		EndsAt:      req.EndsAt,
		MaxUses:     req.MaxUses,
		IsActive:    true,
	}
	if err := h.db.Create(&coupon).Error; err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": coupon})
}

// DeactivateCoupon disables a coupon without deleting its usage history.
func (h *PromotionHandler) DeactivateCoupon(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	result := h.db.Model(&models.Coupon{}).Where("id = ?", id).Update("is_active", false)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fiber.NewError(fiber.StatusNotFound, "coupon not found")
	}

	return c.JSON(fiber.Map{"success": true, "message": "coupon deactivated"})
}
