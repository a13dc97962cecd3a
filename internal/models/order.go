package models

import (
	"time"

	"github.com/google/uuid"
)

// Order statuses.
const (
	OrderPending   = "pending"
	OrderShipped   = "shipped"
	OrderDelivered = "delivered"
	OrderCancelled = "cancelled"
)

// Order payment statuses.
const (
	OrderPaymentPending   = "pending"
	OrderPaymentPaid      = "paid"
	OrderPaymentCancelled = "cancelled"
)

// Order is an immutable snapshot of purchased lines. Totals are frozen at
// creation; only status, payment status and courier assignment may change.
type Order struct {
	BaseModel
	UserID            uuid.UUID   `gorm:"type:uuid;index" json:"user_id"`
	User              *User       `json:"user,omitempty"`
	Items             []OrderItem `json:"items,omitempty"`
	Total             float64     `json:"total"`
	Status            string      `gorm:"default:pending" json:"status"`
	PaymentStatus     string      `gorm:"default:pending" json:"payment_status"`
	PaymentMethod     string      `json:"payment_method"`
	DeliveryAddress   string      `json:"delivery_address"`
	CouponCode        string      `json:"coupon_code"`
	OrderedAt         time.Time   `json:"ordered_at"`
	EstimatedDelivery *time.Time  `json:"estimated_delivery"`
	DeliveredAt       *time.Time  `json:"delivered_at"`
	CourierID         *uuid.UUID  `gorm:"type:uuid;index" json:"courier_id"`
	Courier           *User       `gorm:"foreignKey:CourierID" json:"courier,omitempty"`
}

// Number is the short order reference shown to customers.
func (o *Order) Number() string {
	id := o.ID.String()
	return "ORD-" + id[len(id)-6:]
}

// orderTransitions lists the allowed forward moves of the order lifecycle.
// Delivered and cancelled are terminal.
var orderTransitions = map[string][]string{
	OrderPending: {OrderShipped, OrderCancelled},
	OrderShipped: {OrderDelivered},
}

// CanTransition reports whether an order in status from may move to to.
func CanTransition(from, to string) bool {
	for _, next := range orderTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// OrderItem is one frozen (product, quantity, unit price) line.
type OrderItem struct {
	BaseModel
	OrderID     uuid.UUID `gorm:"type:uuid;index" json:"order_id"`
	ProductID   uuid.UUID `gorm:"type:uuid;index" json:"product_id"`
	Product     *Product  `json:"product,omitempty"`
	ProductName string    `json:"product_name"`
	Quantity    int       `json:"quantity"`
	UnitPrice   float64   `json:"unit_price"`
	LineTotal   float64   `json:"line_total"`
}
