package handlers

import (
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/example/pharmacart/internal/models"
	"github.com/example/pharmacart/internal/services"
)

func orderTestApp(t *testing.T, role models.Role) (*fiber.App, *gorm.DB, *models.User) {
	t.Helper()
	db := setupTestDB(t)
	user := seedUser(t, db, role)
	app := newTestApp(user.ID, user.Role)

	handler := NewOrderHandler(db, services.NewPricingService(db))
	app.Post("/orders", handler.CreateOrder)
	app.Get("/orders/mine", handler.ListMyOrders)
	app.Get("/orders/:id", handler.GetOrder)
	app.Put("/orders/:id/status", handler.UpdateStatus)
	app.Put("/orders/:id/courier", handler.AssignCourier)

	return app, db, user
}

func seedCartWith(t *testing.T, db *gorm.DB, user *models.User, product *models.Product, qty int) *models.Cart {
	t.Helper()
	cart := &models.Cart{UserID: user.ID}
	require.NoError(t, db.Create(cart).Error)
	item := &models.CartItem{
		CartID:    cart.ID,
		ProductID: product.ID,
		Quantity:  qty,
		UnitPrice: product.Price,
	}
	require.NoError(t, db.Create(item).Error)
	return cart
}

func TestCreateOrderFromCart(t *testing.T) {
	app, db, user := orderTestApp(t, models.RoleCustomer)
	product := seedCatalog(t, db, 30, 10)
	seedCartWith(t, db, user, product, 2)

	resp := doJSON(t, app, "POST", "/orders", fiber.Map{
		"payment_method":   "card",
		"delivery_address": "12 Rue de la Paix",
	})
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, true, body["success"])
	assert.Contains(t, body["number"], "ORD-")

	var order models.Order
	require.NoError(t, db.Preload("Items").First(&order, "user_id = ?", user.ID).Error)
	require.Len(t, order.Items, 1)
	assert.Equal(t, 2, order.Items[0].Quantity)
	assert.Equal(t, 30.0, order.Items[0].UnitPrice)
	assert.Equal(t, 60.0, order.Total)
	assert.Equal(t, models.OrderPending, order.Status)
	assert.Equal(t, models.OrderPaymentPending, order.PaymentStatus)

	// Stock was sold and the movement recorded.
	var stored models.Product
	require.NoError(t, db.First(&stored, "id = ?", product.ID).Error)
	assert.Equal(t, 8, stored.Stock)

	var movement models.StockMovement
	require.NoError(t, db.First(&movement, "product_id = ?", product.ID).Error)
	assert.Equal(t, models.MovementExit, movement.Type)
	assert.Equal(t, -2, movement.Quantity)

	// The cart was emptied on success.
	var lineCount int64
	require.NoError(t, db.Model(&models.CartItem{}).Count(&lineCount).Error)
	assert.Zero(t, lineCount)
}

func TestCreateOrderInsufficientStockLeavesEverythingUnchanged(t *testing.T) {
	app, db, user := orderTestApp(t, models.RoleCustomer)
	product := seedCatalog(t, db, 30, 1)
	seedCartWith(t, db, user, product, 3)

	resp := doJSON(t, app, "POST", "/orders", fiber.Map{
		"payment_method":   "card",
		"delivery_address": "12 Rue de la Paix",
	})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Contains(t, body["message"], "1 left")

	var orderCount int64
	require.NoError(t, db.Model(&models.Order{}).Count(&orderCount).Error)
	assert.Zero(t, orderCount)

	var stored models.Product
	require.NoError(t, db.First(&stored, "id = ?", product.ID).Error)
	assert.Equal(t, 1, stored.Stock)

	var lineCount int64
	require.NoError(t, db.Model(&models.CartItem{}).Count(&lineCount).Error)
	assert.Equal(t, int64(1), lineCount, "cart must survive a failed order")
}

func TestCreateOrderAppliesCartCoupon(t *testing.T) {
	app, db, user := orderTestApp(t, models.RoleCustomer)
	product := seedCatalog(t, db, 50, 10)
	cart := seedCartWith(t, db, user, product, 2)

	coupon := models.Coupon{
		Code:     "SAVE10",
		Type:     models.CouponPercentage,
		Value:    10,
		StartsAt: time.Now().Add(-time.Hour),
		EndsAt:   time.Now().Add(time.Hour),
		IsActive: true,
	}
	require.NoError(t, db.Create(&coupon).Error)
	require.NoError(t, db.Model(cart).Update("coupon_code", "SAVE10").Error)

	resp := doJSON(t, app, "POST", "/orders", fiber.Map{
		"payment_method":   "cash",
		"delivery_address": "12 Rue de la Paix",
	})
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var order models.Order
	require.NoError(t, db.First(&order, "user_id = ?", user.ID).Error)
	assert.Equal(t, 90.0, order.Total)
	assert.Equal(t, "SAVE10", order.CouponCode)

	var used models.Coupon
	require.NoError(t, db.First(&used, "code = ?", "SAVE10").Error)
	assert.Equal(t, 1, used.UsedCount)
}

func TestCreateOrderFromExplicitItems(t *testing.T) {
	app, db, user := orderTestApp(t, models.RoleCustomer)
	product := seedCatalog(t, db, 15, 5)

	resp := doJSON(t, app, "POST", "/orders", fiber.Map{
		"items": []fiber.Map{
			{"product_id": product.ID.String(), "quantity": 3},
		},
		"payment_method":   "paypal",
		"delivery_address": "12 Rue de la Paix",
	})
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var order models.Order
	require.NoError(t, db.Preload("Items").First(&order, "user_id = ?", user.ID).Error)
	assert.Equal(t, 45.0, order.Total)
}

func TestUpdateStatusShippedSetsEstimate(t *testing.T) {
	app, db, admin := orderTestApp(t, models.RoleAdmin)
	product := seedCatalog(t, db, 10, 5)

	order := models.Order{
		UserID:          admin.ID,
		Total:           10,
		Status:          models.OrderPending,
		PaymentStatus:   models.OrderPaymentPending,
		PaymentMethod:   models.PaymentCard,
		DeliveryAddress: "12 Rue de la Paix",
		OrderedAt:       time.Now(),
		Items: []models.OrderItem{
			{ProductID: product.ID, ProductName: product.Name, Quantity: 1, UnitPrice: 10, LineTotal: 10},
		},
	}
	require.NoError(t, db.Create(&order).Error)

	resp := doJSON(t, app, "PUT", "/orders/"+order.ID.String()+"/status", fiber.Map{
		"status": "shipped",
	})
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var stored models.Order
	require.NoError(t, db.First(&stored, "id = ?", order.ID).Error)
	assert.Equal(t, models.OrderShipped, stored.Status)
	require.NotNil(t, stored.EstimatedDelivery)
	assert.WithinDuration(t, time.Now().Add(7*24*time.Hour), *stored.EstimatedDelivery, time.Minute)
}

func TestUpdateStatusRejectsBackwardMove(t *testing.T) {
	app, db, admin := orderTestApp(t, models.RoleAdmin)

	order := models.Order{
		UserID:          admin.ID,
		Total:           10,
		Status:          models.OrderShipped,
		PaymentStatus:   models.OrderPaymentPending,
		PaymentMethod:   models.PaymentCard,
		DeliveryAddress: "12 Rue de la Paix",
		OrderedAt:       time.Now(),
	}
	require.NoError(t, db.Create(&order).Error)

	for _, status := range []string{"pending", "cancelled"} {
		resp := doJSON(t, app, "PUT", "/orders/"+order.ID.String()+"/status", fiber.Map{
			"status": status,
		})
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode, status)
	}

	var stored models.Order
	require.NoError(t, db.First(&stored, "id = ?", order.ID).Error)
	assert.Equal(t, models.OrderShipped, stored.Status)
}

func TestCancelPendingOrderRestocks(t *testing.T) {
	app, db, admin := orderTestApp(t, models.RoleAdmin)
	product := seedCatalog(t, db, 10, 3)

	order := models.Order{
		UserID:          admin.ID,
		Total:           20,
		Status:          models.OrderPending,
		PaymentStatus:   models.OrderPaymentPending,
		PaymentMethod:   models.PaymentCard,
		DeliveryAddress: "12 Rue de la Paix",
		OrderedAt:       time.Now(),
		Items: []models.OrderItem{
			{ProductID: product.ID, ProductName: product.Name, Quantity: 2, UnitPrice: 10, LineTotal: 20},
		},
	}
	require.NoError(t, db.Create(&order).Error)

	resp := doJSON(t, app, "PUT", "/orders/"+order.ID.String()+"/status", fiber.Map{
		"status": "cancelled",
	})
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var stored models.Product
	require.NoError(t, db.First(&stored, "id = ?", product.ID).Error)
	assert.Equal(t, 5, stored.Stock)
}

func TestAssignCourierShipsOrder(t *testing.T) {
	app, db, admin := orderTestApp(t, models.RoleAdmin)
	courier := seedUser(t, db, models.RoleCourier)

	order := models.Order{
		UserID:          admin.ID,
		Total:           10,
		Status:          models.OrderPending,
		PaymentStatus:   models.OrderPaymentPending,
		PaymentMethod:   models.PaymentCash,
		DeliveryAddress: "12 Rue de la Paix",
		OrderedAt:       time.Now(),
	}
	require.NoError(t, db.Create(&order).Error)

	resp := doJSON(t, app, "PUT", "/orders/"+order.ID.String()+"/courier", fiber.Map{
		"courier_id": courier.ID.String(),
	})
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var stored models.Order
	require.NoError(t, db.First(&stored, "id = ?", order.ID).Error)
	assert.Equal(t, models.OrderShipped, stored.Status)
	require.NotNil(t, stored.CourierID)
	assert.Equal(t, courier.ID, *stored.CourierID)
	assert.NotNil(t, stored.EstimatedDelivery)
}

func TestAssignNonCourierRejected(t *testing.T) {
	app, db, admin := orderTestApp(t, models.RoleAdmin)
	customer := seedUser(t, db, models.RoleCustomer)

	order := models.Order{
		UserID:          admin.ID,
		Total:           10,
		Status:          models.OrderPending,
		PaymentStatus:   models.OrderPaymentPending,
		PaymentMethod:   models.PaymentCash,
		DeliveryAddress: "12 Rue de la Paix",
		OrderedAt:       time.Now(),
	}
	require.NoError(t, db.Create(&order).Error)

	resp := doJSON(t, app, "PUT", "/orders/"+order.ID.String()+"/courier", fiber.Map{
		"courier_id": customer.ID.String(),
	})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}
