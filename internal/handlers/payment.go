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

// PaymentHandler records and reconciles order payments.
type PaymentHandler struct {
	db *gorm.DB
}

// NewPaymentHandler constructs PaymentHandler.
func NewPaymentHandler(db *gorm.DB) *PaymentHandler {
	return &PaymentHandler{db: db}
}

type processPaymentRequest struct {
	OrderID       string `json:"order_id" validate:"required,uuid"`
	Method        string `json:"method" validate:"required,oneof=card paypal cash"`
	TransactionID string `json:"transaction_id"`
}

// ProcessPayment records a payment for an order. Card and paypal payments
// need a gateway transaction id and settle immediately; cash stays pending
// until the courier collects it.
func (h *PaymentHandler) ProcessPayment(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	var req processPaymentRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := utils.ValidateStruct(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	orderID, _ := uuid.Parse(req.OrderID)
	var order models.Order
	if err := h.db.First(&order, "id = ?", orderID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return fiber.NewError(fiber.StatusNotFound, "order not found")
		}
		return err
	}
	if order.UserID != userID {
		return fiber.NewError(fiber.StatusForbidden, "access denied")
	}
	if order.Status == models.OrderCancelled {
		return fiber.NewError(fiber.StatusBadRequest, "order is cancelled")
	}
	if order.PaymentStatus == models.OrderPaymentPaid {
		return fiber.NewError(fiber.StatusBadRequest, "order is already paid")
	}

	payment := models.Payment{
		OrderID: order.ID,
		Amount:  order.Total,
		Method:  req.Method,
		Status:  models.PaymentStatusPending,
	}

	switch req.Method {
	case models.PaymentCard, models.PaymentPaypal:
		if req.TransactionID == "" {
			return fiber.NewError(fiber.StatusBadRequest, "transaction_id is required")
		}
		now := time.Now()
		payment.TransactionID = req.TransactionID
		payment.Status = models.PaymentStatusPaid
		payment.PaidAt = &now
	case models.PaymentCash:
		// Settled on delivery.
	}

	if err := h.db.Create(&payment).Error; err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": payment})
}

// GetPayment loads a payment with its order.
func (h *PaymentHandler) GetPayment(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	var payment models.Payment
	if err := h.db.Preload("Order").First(&payment, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return fiber.NewError(fiber.StatusNotFound, "payment not found")
		}
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": payment})
}

// ListPayments returns payments with optional status and method filters.
func (h *PaymentHandler) ListPayments(c *fiber.Ctx) error {
	pg := utils.ParsePagination(c)
	query := h.db.Model(&models.Payment{})

	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if method := c.Query("method"); method != "" {
		query = query.Where("method = ?", method)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return err
	}

	var payments []models.Payment
	if err := query.Order("created_at desc").
		Limit(pg.Limit).Offset(pg.Offset).
		Find(&payments).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    payments,
		"pagination": fiber.Map{
			"current_page":   pg.Page,
			"items_per_page": pg.Limit,
			"total_items":    total,
		},
	})
}

// ValidateCashPayment marks a pending cash payment as collected.
func (h *PaymentHandler) ValidateCashPayment(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	var payment models.Payment
	if err := h.db.First(&payment, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return fiber.NewError(fiber.StatusNotFound, "payment not found")
		}
		return err
	}
	if payment.Method != models.PaymentCash {
		return fiber.NewError(fiber.StatusBadRequest, "only cash payments can be validated")
	}
	if payment.Status != models.PaymentStatusPending {
		return fiber.NewError(fiber.StatusBadRequest, "payment is not pending")
	}

	now := time.Now()
	payment.Status = models.PaymentStatusPaid
	payment.PaidAt = &now
	if err := h.db.Save(&payment).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": payment})
}

// CancelPayment cancels a pending payment.
func (h *PaymentHandler) CancelPayment(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	var payment models.Payment
	if err := h.db.First(&payment, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return fiber.NewError(fiber.StatusNotFound, "payment not found")
		}
		return err
	}
	if payment.Status == models.PaymentStatusPaid {
		return fiber.NewError(fiber.StatusBadRequest, "paid payments cannot be cancelled")
	}

	payment.Status = models.PaymentStatusCancelled
	if err := h.db.Save(&payment).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": payment})
}
