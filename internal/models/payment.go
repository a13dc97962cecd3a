package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Payment methods.
const (
	PaymentCard   = "card"
	PaymentPaypal = "paypal"
	PaymentCash   = "cash"
)

// Payment statuses.
const (
	PaymentStatusPending   = "pending"
	PaymentStatusPaid      = "paid"
	PaymentStatusCancelled = "cancelled"
)

// Payment records one payment attempt against an order.
type Payment struct {
	BaseModel
	OrderID       uuid.UUID  `gorm:"type:uuid;index" json:"order_id"`
	Order         *Order     `json:"order,omitempty"`
	Amount        float64    `json:"amount"`
	Method        string     `json:"method"`
	Status        string     `gorm:"default:pending" json:"status"`
	TransactionID string     `json:"transaction_id"`
	PaidAt        *time.Time `json:"paid_at"`
}

// AfterSave propagates the payment status to the parent order.
func (p *Payment) AfterSave(tx *gorm.DB) error {
	var orderStatus string
	switch p.Status {
	case PaymentStatusPaid:
		orderStatus = OrderPaymentPaid
	case PaymentStatusCancelled:
		orderStatus = OrderPaymentCancelled
	default:
		return nil
	}
	return tx.Model(&Order{}).
		Where("id = ?", p.OrderID).
		Update("payment_status", orderStatus).Error
}
