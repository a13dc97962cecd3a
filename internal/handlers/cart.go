package handlers

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/pharmacart/internal/middleware"
	"github.com/example/pharmacart/internal/models"
	"github.com/example/pharmacart/internal/services"
	"github.com/example/pharmacart/internal/utils"
)

// CartHandler manages the per-user shopping cart.
type CartHandler struct {
	db      *gorm.DB
	pricing *services.PricingService
}

// NewCartHandler constructs CartHandler.
func NewCartHandler(db *gorm.DB, pricing *services.PricingService) *CartHandler {
	return &CartHandler{db: db, pricing: pricing}
}

// loadCart fetches the user's cart with lines, creating an empty one on
// first use.
func (h *CartHandler) loadCart(userID uuid.UUID) (*models.Cart, error) {
	var cart models.Cart
	err := h.db.Preload("Items.Product").
		Where("user_id = ?", userID).
		First(&cart).Error
	if err == gorm.ErrRecordNotFound {
		cart = models.Cart{UserID: userID}
		if err := h.db.Create(&cart).Error; err != nil {
			return nil, err
		}
		return &cart, nil
	}
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

// saveCartTotals persists the recomputed coupon and total columns.
func (h *CartHandler) saveCartTotals(cart *models.Cart) error {
	services.RecalculateCart(cart)
	return h.db.Model(&models.Cart{}).Where("id = ?", cart.ID).
		Updates(map[string]interface{}{
			"coupon_code":      cart.CouponCode,
			"discount_percent": cart.DiscountPercent,
			"total":            cart.Total,
		}).Error
}

// GetCart returns the current user's cart.
func (h *CartHandler) GetCart(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	cart, err := h.loadCart(userID)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": cart})
}

type addItemRequest struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
	Quantity  int    `json:"quantity" validate:"required,gt=0"`
}

// AddItem adds a product to the cart, merging quantities when the line
// already exists. The unit price is resolved through active promotions.
func (h *CartHandler) AddItem(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	var req addItemRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := utils.ValidateStruct(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	productID, _ := uuid.Parse(req.ProductID)
	var product models.Product
	if err := h.db.First(&product, "id = ? AND is_active = ?", productID, true).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return fiber.NewError(fiber.StatusNotFound, "product not found")
		}
		return err
	}

	cart, err := h.loadCart(userID)
	if err != nil {
		return err
	}

	var line *models.CartItem
	for i := range cart.Items {
		if cart.Items[i].ProductID == product.ID {
			line = &cart.Items[i]
			break
		}
	}

	wanted := req.Quantity
	if line != nil {
		wanted += line.Quantity
	}
	if wanted > product.Stock {
		return fiber.NewError(fiber.StatusBadRequest,
			fmt.Sprintf("not enough stock available: %d left", product.Stock))
	}

	quote, err := h.pricing.ResolvePrice(&product)
	if err != nil {
		return err
	}

	if line != nil {
		line.Quantity = wanted
		line.UnitPrice = quote.BestPrice
		if err := h.db.Model(&models.CartItem{}).Where("id = ?", line.ID).
			Updates(map[string]interface{}{
				"quantity":   line.Quantity,
				"unit_price": line.UnitPrice,
			}).Error; err != nil {
			return err
		}
	} else {
		item := models.CartItem{
			CartID:    cart.ID,
			ProductID: product.ID,
			Quantity:  req.Quantity,
			UnitPrice: quote.BestPrice,
		}
		if err := h.db.Create(&item).Error; err != nil {
			return err
		}
		cart.Items = append(cart.Items, item)
	}

	if err := h.saveCartTotals(cart); err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": cart})
}

type updateItemRequest struct {
	Quantity int `json:"quantity" validate:"gte=0"`
}

// UpdateItem changes a line quantity. Zero removes the line.
func (h *CartHandler) UpdateItem(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	productID, err := uuid.Parse(c.Params("productId"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid product id")
	}

	var req updateItemRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if req.Quantity < 0 {
		return fiber.NewError(fiber.StatusBadRequest, "quantity cannot be negative")
	}

	cart, err := h.loadCart(userID)
	if err != nil {
		return err
	}

	idx := -1
	for i := range cart.Items {
		if cart.Items[i].ProductID == productID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fiber.NewError(fiber.StatusNotFound, "item not in cart")
	}

	if req.Quantity == 0 {
		if err := h.db.Delete(&models.CartItem{}, "id = ?", cart.Items[idx].ID).Error; err != nil {
			return err
		}
		cart.Items = append(cart.Items[:idx], cart.Items[idx+1:]...)
	} else {
		var product models.Product
		if err := h.db.First(&product, "id = ?", productID).Error; err != nil {
			return err
		}
		if req.Quantity > product.Stock {
			return fiber.NewError(fiber.StatusBadRequest,
				fmt.Sprintf("not enough stock available: %d left", product.Stock))
		}
		cart.Items[idx].Quantity = req.Quantity
		if err := h.db.Model(&models.CartItem{}).Where("id = ?", cart.Items[idx].ID).
			Update("quantity", req.Quantity).Error; err != nil {
			return err
		}
	}

	if err := h.saveCartTotals(cart); err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": cart})
}

// RemoveItem drops a line from the cart.
func (h *CartHandler) RemoveItem(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	productID, err := uuid.Parse(c.Params("productId"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid product id")
	}

	cart, err := h.loadCart(userID)
	if err != nil {
		return err
	}

	idx := -1
	for i := range cart.Items {
		if cart.Items[i].ProductID == productID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fiber.NewError(fiber.StatusNotFound, "item not in cart")
	}

	if err := h.db.Delete(&models.CartItem{}, "id = ?", cart.Items[idx].ID).Error; err != nil {
		return err
	}
	cart.Items = append(cart.Items[:idx], cart.Items[idx+1:]...)

	if err := h.saveCartTotals(cart); err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": cart})
}

// ClearCart removes all lines and resets the applied coupon.
func (h *CartHandler) ClearCart(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	cart, err := h.loadCart(userID)
	if err != nil {
		return err
	}

	if err := h.db.Delete(&models.CartItem{}, "cart_id = ?", cart.ID).Error; err != nil {
		return err
	}
	cart.Items = nil
	cart.CouponCode = ""
	cart.DiscountPercent = 0

	if err := h.saveCartTotals(cart); err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": cart})
}

type applyCouponRequest struct {
	Code string `json:"code" validate:"required"`
}

// ApplyCoupon validates a coupon against the cart and stores its discount.
func (h *CartHandler) ApplyCoupon(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	var req applyCouponRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := utils.ValidateStruct(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	cart, err := h.loadCart(userID)
	if err != nil {
		return err
	}
	if len(cart.Items) == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "cart is empty")
	}

	var coupon models.Coupon
	if err := h.db.Where("code = ?", models.NormalizeCouponCode(req.Code)).
		First(&coupon).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return fiber.NewError(fiber.StatusNotFound, "coupon not found")
		}
		return err
	}

	if err := services.ApplyCoupon(cart, &coupon, time.Now()); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	if err := h.saveCartTotals(cart); err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": cart})
}

// RemoveCoupon drops the applied coupon from the cart.
func (h *CartHandler) RemoveCoupon(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	cart, err := h.loadCart(userID)
	if err != nil {
		return err
	}

	cart.CouponCode = ""
	cart.DiscountPercent = 0

	if err := h.saveCartTotals(cart); err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": cart})
}
