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

// OrderHandler manages order placement and fulfilment.
type OrderHandler struct {
	db      *gorm.DB
	pricing *services.PricingService
}

// NewOrderHandler constructs OrderHandler.
func NewOrderHandler(db *gorm.DB, pricing *services.PricingService) *OrderHandler {
	return &OrderHandler{db: db, pricing: pricing}
}

type orderItemRequest struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
	Quantity  int    `json:"quantity" validate:"required,gt=0"`
}

type createOrderRequest struct {
	Items           []orderItemRequest `json:"items"`
	PaymentMethod   string             `json:"payment_method" validate:"required,oneof=card paypal cash"`
	DeliveryAddress string             `json:"delivery_address" validate:"required"`
	CouponCode      string             `json:"coupon_code"`
}

// CreateOrder places an order either from an explicit item list or, when the
// list is empty, from the user's cart. Stock is decremented inside the same
// transaction; the cart is cleared only when the order commits.
func (h *OrderHandler) CreateOrder(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	var req createOrderRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := utils.ValidateStruct(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	now := time.Now()
	var order models.Order

	err := h.db.Transaction(func(tx *gorm.DB) error {
		type orderLine struct {
			productID uuid.UUID
			quantity  int
		}
		var lines []orderLine
		var fromCart bool
		var cart models.Cart
		couponCode := models.NormalizeCouponCode(req.CouponCode)

		if len(req.Items) > 0 {
			for _, item := range req.Items {
				id, err := uuid.Parse(item.ProductID)
				if err != nil {
					return fiber.NewError(fiber.StatusBadRequest, "invalid product_id")
				}
				lines = append(lines, orderLine{productID: id, quantity: item.Quantity})
			}
		} else {
			if err := tx.Preload("Items").
				Where("user_id = ?", userID).
				First(&cart).Error; err != nil {
				if err == gorm.ErrRecordNotFound {
					return fiber.NewError(fiber.StatusBadRequest, "cart is empty")
				}
				return err
			}
			if len(cart.Items) == 0 {
				return fiber.NewError(fiber.StatusBadRequest, "cart is empty")
			}
			for _, item := range cart.Items {
				lines = append(lines, orderLine{productID: item.ProductID, quantity: item.Quantity})
			}
			if couponCode == "" {
				couponCode = cart.CouponCode
			}
			fromCart = true
		}

		var items []models.OrderItem
		var subtotal float64
		for _, line := range lines {
			var product models.Product
			if err := tx.First(&product, "id = ? AND is_active = ?", line.productID, true).Error; err != nil {
				if err == gorm.ErrRecordNotFound {
					return fiber.NewError(fiber.StatusNotFound, "product not found")
				}
				return err
			}
			if product.Stock < line.quantity {
				return fiber.NewError(fiber.StatusBadRequest,
					fmt.Sprintf("not enough stock for %s: %d left", product.Name, product.Stock))
			}

			quote, err := services.ResolveQuoteFor(tx, &product, now)
			if err != nil {
				return err
			}

			if _, err := services.ApplyMovement(tx, product.ID, models.MovementExit,
				line.quantity, "order sale", &userID); err != nil {
				if err == services.ErrInsufficientStock {
					return fiber.NewError(fiber.StatusBadRequest,
						fmt.Sprintf("not enough stock for %s: %d left", product.Name, product.Stock))
				}
				return err
			}

			lineTotal := utils.Round2(quote.BestPrice * float64(line.quantity))
			items = append(items, models.OrderItem{
				ProductID:   product.ID,
				ProductName: product.Name,
				Quantity:    line.quantity,
				UnitPrice:   quote.BestPrice,
				LineTotal:   lineTotal,
			})
			subtotal += lineTotal
		}

		total := subtotal
		if couponCode != "" {
			var coupon models.Coupon
			if err := tx.Where("code = ?", couponCode).First(&coupon).Error; err != nil {
				if err == gorm.ErrRecordNotFound {
					return fiber.NewError(fiber.StatusBadRequest, "coupon not found")
				}
				return err
			}
			if err := services.CheckCoupon(&coupon, subtotal, now); err != nil {
				return fiber.NewError(fiber.StatusBadRequest, err.Error())
			}
			rate := services.CouponRate(&coupon, subtotal)
			total = subtotal * (1 - rate/100)
			if err := tx.Model(&coupon).
				Update("used_count", gorm.Expr("used_count + 1")).Error; err != nil {
				return err
			}
		}

		order = models.Order{
			UserID:          userID,
			Items:           items,
			Total:           utils.Round2(total),
			Status:          models.OrderPending,
			PaymentStatus:   models.OrderPaymentPending,
			PaymentMethod:   req.PaymentMethod,
			DeliveryAddress: req.DeliveryAddress,
			CouponCode:      couponCode,
			OrderedAt:       now,
		}
		if err := tx.Create(&order).Error; err != nil {
			return err
		}

		if fromCart {
			if err := tx.Delete(&models.CartItem{}, "cart_id = ?", cart.ID).Error; err != nil {
				return err
			}
			if err := tx.Model(&cart).Updates(map[string]interface{}{
				"coupon_code":      "",
				"discount_percent": 0,
				"total":            0,
			}).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"data":    order,
		"number":  order.Number(),
	})
}

// ListMyOrders returns the current user's orders, newest first.
func (h *OrderHandler) ListMyOrders(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	pg := utils.ParsePagination(c)
	query := h.db.Model(&models.Order{}).Where("user_id = ?", userID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return err
	}

	var orders []models.Order
	if err := query.Preload("Items").
		Order("ordered_at desc").
		Limit(pg.Limit).Offset(pg.Offset).
		Find(&orders).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    orders,
		"pagination": fiber.Map{
			"current_page":   pg.Page,
			"items_per_page": pg.Limit,
			"total_items":    total,
		},
	})
}

// GetOrder loads a single order. Customers can only see their own.
func (h *OrderHandler) GetOrder(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	var order models.Order
	if err := h.db.Preload("Items").Preload("Courier").
		First(&order, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return fiber.NewError(fiber.StatusNotFound, "order not found")
		}
		return err
	}

	role, _ := middleware.GetCurrentRole(c)
	if order.UserID != userID && !role.Can(models.CapManageOrders) {
		return fiber.NewError(fiber.StatusForbidden, "access denied")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    order,
		"number":  order.Number(),
	})
}

// ListOrders returns all orders with optional status and payment filters.
func (h *OrderHandler) ListOrders(c *fiber.Ctx) error {
	pg := utils.ParsePagination(c)
	query := h.db.Model(&models.Order{})

	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if payment := c.Query("payment_status"); payment != "" {
		query = query.Where("payment_status = ?", payment)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return err
	}

	var orders []models.Order
	if err := query.Preload("Items").Preload("User").Preload("Courier").
		Order("ordered_at desc").
		Limit(pg.Limit).Offset(pg.Offset).
		Find(&orders).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    orders,
		"pagination": fiber.Map{
			"current_page":   pg.Page,
			"items_per_page": pg.Limit,
			"total_items":    total,
		},
	})
}

// CountOrders returns the total order count.
func (h *OrderHandler) CountOrders(c *fiber.Ctx) error {
	var total int64
	if err := h.db.Model(&models.Order{}).Count(&total).Error; err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": fiber.Map{"count": total}})
}

type updateStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=pending shipped delivered cancelled"`
}

// UpdateStatus moves an order along its lifecycle. Shipping sets a delivery
// estimate a week out; cancelling a pending order returns stock.
func (h *OrderHandler) UpdateStatus(c *fiber.Ctx) error {
	actorID, _ := middleware.GetCurrentUserID(c)

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	var req updateStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := utils.ValidateStruct(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	var order models.Order
	err = h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Preload("Items").First(&order, "id = ?", id).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return fiber.NewError(fiber.StatusNotFound, "order not found")
			}
			return err
		}

		if !models.CanTransition(order.Status, req.Status) {
			return fiber.NewError(fiber.StatusBadRequest,
				"cannot move order from "+order.Status+" to "+req.Status)
		}

		now := time.Now()
		updates := map[string]interface{}{"status": req.Status}

		switch req.Status {
		case models.OrderShipped:
			eta := now.Add(7 * 24 * time.Hour)
			updates["estimated_delivery"] = &eta
		case models.OrderDelivered:
			updates["delivered_at"] = &now
		case models.OrderCancelled:
			for _, item := range order.Items {
				if _, err := services.ApplyMovement(tx, item.ProductID, models.MovementEntry,
					item.Quantity, "order cancelled", &actorID); err != nil {
					return err
				}
			}
		}

		return tx.Model(&order).Updates(updates).Error
	})
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": order})
}

type assignCourierRequest struct {
	CourierID string `json:"courier_id" validate:"required,uuid"`
}

// AssignCourier attaches a courier to a pending order and marks it shipped
// with a two-day delivery estimate.
func (h *OrderHandler) AssignCourier(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	var req assignCourierRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := utils.ValidateStruct(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	courierID, _ := uuid.Parse(req.CourierID)
	var courier models.User
	if err := h.db.First(&courier, "id = ?", courierID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return fiber.NewError(fiber.StatusNotFound, "courier not found")
		}
		return err
	}
	if courier.Role != models.RoleCourier {
		return fiber.NewError(fiber.StatusBadRequest, "user is not a courier")
	}
	if !courier.IsActive {
		return fiber.NewError(fiber.StatusBadRequest, "courier account is disabled")
	}

	var order models.Order
	if err := h.db.First(&order, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return fiber.NewError(fiber.StatusNotFound, "order not found")
		}
		return err
	}
	if order.Status != models.OrderPending {
		return fiber.NewError(fiber.StatusBadRequest, "only pending orders can be assigned")
	}

	eta := time.Now().Add(2 * 24 * time.Hour)
	if err := h.db.Model(&order).Updates(map[string]interface{}{
		"courier_id":         courier.ID,
		"status":             models.OrderShipped,
		"estimated_delivery": &eta,
	}).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": order})
}
