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

func cartTestApp(t *testing.T) (*fiber.App, *gorm.DB, *models.User) {
	t.Helper()
	db := setupTestDB(t)
	user := seedUser(t, db, models.RoleCustomer)
	app := newTestApp(user.ID, user.Role)

	handler := NewCartHandler(db, services.NewPricingService(db))
	app.Get("/cart", handler.GetCart)
	app.Post("/cart/items", handler.AddItem)
	app.Put("/cart/items/:productId", handler.UpdateItem)
	app.Delete("/cart/items/:productId", handler.RemoveItem)
	app.Delete("/cart", handler.ClearCart)
	app.Post("/cart/coupon", handler.ApplyCoupon)

	return app, db, user
}

func TestGetCartCreatesEmptyCart(t *testing.T) {
	app, db, user := cartTestApp(t)

	resp := doJSON(t, app, "GET", "/cart", nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var cart models.Cart
	require.NoError(t, db.First(&cart, "user_id = ?", user.ID).Error)
	assert.Zero(t, cart.Total)
}

func TestAddItemComputesTotal(t *testing.T) {
	app, db, user := cartTestApp(t)
	product := seedCatalog(t, db, 25, 10)

	resp := doJSON(t, app, "POST", "/cart/items", fiber.Map{
		"product_id": product.ID.String(),
		"quantity":   2,
	})
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var cart models.Cart
	require.NoError(t, db.Preload("Items").First(&cart, "user_id = ?", user.ID).Error)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 2, cart.Items[0].Quantity)
	assert.Equal(t, 25.0, cart.Items[0].UnitPrice)
	assert.Equal(t, 50.0, cart.Total)
}

func TestAddItemMergesExistingLine(t *testing.T) {
	app, db, user := cartTestApp(t)
	product := seedCatalog(t, db, 10, 10)

	doJSON(t, app, "POST", "/cart/items", fiber.Map{
		"product_id": product.ID.String(),
		"quantity":   2,
	})
	resp := doJSON(t, app, "POST", "/cart/items", fiber.Map{
		"product_id": product.ID.String(),
		"quantity":   3,
	})
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var cart models.Cart
	require.NoError(t, db.Preload("Items").First(&cart, "user_id = ?", user.ID).Error)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 5, cart.Items[0].Quantity)
	assert.Equal(t, 50.0, cart.Total)
}

func TestAddItemUsesPromotionPrice(t *testing.T) {
	app, db, user := cartTestApp(t)
	product := seedCatalog(t, db, 100, 10)

	promo := models.Promotion{
		Name:         "flash sale",
		TargetType:   models.TargetProduct,
		TargetID:     product.ID,
		DiscountType: models.DiscountPercentage,
		Value:        20,
		StartsAt:     time.Now().Add(-time.Hour),
		EndsAt:       time.Now().Add(time.Hour),
		IsActive:     true,
	}
	require.NoError(t, db.Create(&promo).Error)

	resp := doJSON(t, app, "POST", "/cart/items", fiber.Map{
		"product_id": product.ID.String(),
		"quantity":   1,
	})
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var cart models.Cart
	require.NoError(t, db.Preload("Items").First(&cart, "user_id = ?", user.ID).Error)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 80.0, cart.Items[0].UnitPrice)
	assert.Equal(t, 80.0, cart.Total)
}

func TestAddItemInsufficientStockLeavesCartUnchanged(t *testing.T) {
	app, db, _ := cartTestApp(t)
	product := seedCatalog(t, db, 10, 2)

	resp := doJSON(t, app, "POST", "/cart/items", fiber.Map{
		"product_id": product.ID.String(),
		"quantity":   5,
	})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Contains(t, body["message"], "2 left")

	var count int64
	require.NoError(t, db.Model(&models.CartItem{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestUpdateItemInsufficientStockReportsAvailable(t *testing.T) {
	app, db, user := cartTestApp(t)
	product := seedCatalog(t, db, 10, 3)

	doJSON(t, app, "POST", "/cart/items", fiber.Map{
		"product_id": product.ID.String(),
		"quantity":   2,
	})
	resp := doJSON(t, app, "PUT", "/cart/items/"+product.ID.String(), fiber.Map{
		"quantity": 9,
	})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Contains(t, body["message"], "3 left")

	var cart models.Cart
	require.NoError(t, db.Preload("Items").First(&cart, "user_id = ?", user.ID).Error)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 2, cart.Items[0].Quantity)
}

func TestUpdateItemZeroRemovesLine(t *testing.T) {
	app, db, user := cartTestApp(t)
	product := seedCatalog(t, db, 10, 10)

	doJSON(t, app, "POST", "/cart/items", fiber.Map{
		"product_id": product.ID.String(),
		"quantity":   2,
	})
	resp := doJSON(t, app, "PUT", "/cart/items/"+product.ID.String(), fiber.Map{
		"quantity": 0,
	})
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var cart models.Cart
	require.NoError(t, db.Preload("Items").First(&cart, "user_id = ?", user.ID).Error)
	assert.Empty(t, cart.Items)
	assert.Zero(t, cart.Total)
}

func TestApplyCouponRecalculatesTotal(t *testing.T) {
	app, db, user := cartTestApp(t)
	product := seedCatalog(t, db, 50, 10)

	coupon := models.Coupon{
		Code:     "SAVE10",
		Type:     models.CouponPercentage,
		Value:    10,
		StartsAt: time.Now().Add(-time.Hour),
		EndsAt:   time.Now().Add(time.Hour),
		IsActive: true,
	}
	require.NoError(t, db.Create(&coupon).Error)

	doJSON(t, app, "POST", "/cart/items", fiber.Map{
		"product_id": product.ID.String(),
		"quantity":   2,
	})
	resp := doJSON(t, app, "POST", "/cart/coupon", fiber.Map{"code": "save10"})
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var cart models.Cart
	require.NoError(t, db.First(&cart, "user_id = ?", user.ID).Error)
	assert.Equal(t, "SAVE10", cart.CouponCode)
	assert.Equal(t, 90.0, cart.Total)
}

func TestApplyExpiredCouponRejected(t *testing.T) {
	app, db, user := cartTestApp(t)
	product := seedCatalog(t, db, 50, 10)

	coupon := models.Coupon{
		Code:     "OLD",
		Type:     models.CouponPercentage,
		Value:    50,
		StartsAt: time.Now().Add(-48 * time.Hour),
		EndsAt:   time.Now().Add(-24 * time.Hour),
		IsActive: true,
	}
	require.NoError(t, db.Create(&coupon).Error)

	doJSON(t, app, "POST", "/cart/items", fiber.Map{
		"product_id": product.ID.String(),
		"quantity":   1,
	})
	resp := doJSON(t, app, "POST", "/cart/coupon", fiber.Map{"code": "OLD"})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	var cart models.Cart
	require.NoError(t, db.First(&cart, "user_id = ?", user.ID).Error)
	assert.Empty(t, cart.CouponCode)
	assert.Equal(t, 50.0, cart.Total)
}

func TestClearCartResetsCoupon(t *testing.T) {
	app, db, user := cartTestApp(t)
	product := seedCatalog(t, db, 20, 5)

	doJSON(t, app, "POST", "/cart/items", fiber.Map{
		"product_id": product.ID.String(),
		"quantity":   1,
	})
	resp := doJSON(t, app, "DELETE", "/cart", nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var cart models.Cart
	require.NoError(t, db.Preload("Items").First(&cart, "user_id = ?", user.ID).Error)
	assert.Empty(t, cart.Items)
	assert.Empty(t, cart.CouponCode)
	assert.Zero(t, cart.Total)
}
