package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/pharmacart/internal/middleware"
	"github.com/example/pharmacart/internal/models"
	"github.com/example/pharmacart/internal/utils"
)

// DeliveryHandler exposes the courier-facing order views.
type DeliveryHandler struct {
	db *gorm.DB
}

// NewDeliveryHandler constructs DeliveryHandler.
func NewDeliveryHandler(db *gorm.DB) *DeliveryHandler {
	return &DeliveryHandler{db: db}
}

// loadAssigned fetches an order and checks it belongs to the courier.
func (h *DeliveryHandler) loadAssigned(c *fiber.Ctx, preloads ...string) (*models.Order, error) {
	courierID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return nil, fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	query := h.db
	for _, preload := range preloads {
		query = query.Preload(preload)
	}

	var order models.Order
	if err := query.First(&order, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fiber.NewError(fiber.StatusNotFound, "order not found")
		}
		return nil, err
	}
	if order.CourierID == nil || *order.CourierID != courierID {
		return nil, fiber.NewError(fiber.StatusForbidden, "order is not assigned to you")
	}
	return &order, nil
}

// ListAssignedOrders returns the courier's open deliveries.
func (h *DeliveryHandler) ListAssignedOrders(c *fiber.Ctx) error {
	courierID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	pg := utils.ParsePagination(c)
	query := h.db.Model(&models.Order{}).Where("courier_id = ?", courierID)

	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	} else {
		query = query.Where("status = ?", models.OrderShipped)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return err
	}

	var orders []models.Order
	if err := query.Preload("Items").
		Order("ordered_at asc").
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

// GetAssignedOrder loads a single assigned order with its lines.
func (h *DeliveryHandler) GetAssignedOrder(c *fiber.Ctx) error {
	order, err := h.loadAssigned(c, "Items")
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": order})
}

// GetClientInfo returns the recipient's contact details for an assigned
// order, trimmed to what a courier needs.
func (h *DeliveryHandler) GetClientInfo(c *fiber.Ctx) error {
	order, err := h.loadAssigned(c)
	if err != nil {
		return err
	}

	var client models.User
	if err := h.db.Select("id", "name", "phone").
		First(&client, "id = ?", order.UserID).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"name":             client.Name,
			"phone":            client.Phone,
			"delivery_address": order.DeliveryAddress,
			"payment_method":   order.PaymentMethod,
			"payment_status":   order.PaymentStatus,
			"total":            order.Total,
		},
	})
}

// ConfirmDelivery marks a shipped order delivered. For unpaid cash orders
// the collected payment is recorded in the same transaction.
func (h *DeliveryHandler) ConfirmDelivery(c *fiber.Ctx) error {
	order, err := h.loadAssigned(c)
	if err != nil {
		return err
	}
	if order.Status != models.OrderShipped {
		return fiber.NewError(fiber.StatusBadRequest, "order is not out for delivery")
	}

	now := time.Now()
	err = h.db.Transaction(func(tx *gorm.DB) error {
		if order.PaymentMethod == models.PaymentCash &&
			order.PaymentStatus != models.OrderPaymentPaid {
			payment := models.Payment{
				OrderID: order.ID,
				Amount:  order.Total,
				Method:  models.PaymentCash,
				Status:  models.PaymentStatusPaid,
				PaidAt:  &now,
			}
			if err := tx.Create(&payment).Error; err != nil {
				return err
			}
		}

		return tx.Model(order).Updates(map[string]interface{}{
			"status":       models.OrderDelivered,
			"delivered_at": &now,
		}).Error
	})
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": order})
}
