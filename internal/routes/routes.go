package routes

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/example/pharmacart/internal/config"
	"github.com/example/pharmacart/internal/handlers"
	"github.com/example/pharmacart/internal/middleware"
	"github.com/example/pharmacart/internal/models"
	"github.com/example/pharmacart/internal/services"
)

// Register wires up all HTTP routes.
func Register(app *fiber.App, db *gorm.DB, cfg *config.Config, limiterStore fiber.Storage) {
	pricing := services.NewPricingService(db)
	stock := services.NewStockService(db)

	authHandler := handlers.NewAuthHandler(db, cfg)
	userHandler := handlers.NewUserHandler(db)
	categoryHandler := handlers.NewCategoryHandler(db)
	productHandler := handlers.NewProductHandler(db, pricing, stock)
	cartHandler := handlers.NewCartHandler(db, pricing)
	orderHandler := handlers.NewOrderHandler(db, pricing)
	paymentHandler := handlers.NewPaymentHandler(db)
	deliveryHandler := handlers.NewDeliveryHandler(db)
	promotionHandler := handlers.NewPromotionHandler(db, pricing)
	statsHandler := handlers.NewStatisticsHandler(db)

	authed := middleware.AuthMiddleware(db, cfg)

	api := app.Group("/api")

	// Auth routes
	auth := api.Group("/auth",
		middleware.RateLimit("auth", cfg.AuthRateLimit, cfg.RateLimitWindow, limiterStore))
	auth.Post("/register", authHandler.Register)
	auth.Post("/login", authHandler.Login)
	auth.Post("/refresh", authHandler.Refresh)
	auth.Get("/verify-email/:token", authHandler.VerifyEmail)
	auth.Post("/forgot-password", authHandler.ForgotPassword)
	auth.Post("/reset-password", authHandler.ResetPassword)

	// User routes
	users := api.Group("/users")
	users.Get("/me", authed, userHandler.Me)
	users.Put("/me", authed, userHandler.UpdateMe)
	users.Get("/", authed, middleware.RequireCapability(models.CapManageUsers), userHandler.ListUsers)
	users.Get("/count", authed, middleware.RequireCapability(models.CapManageUsers), userHandler.CountUsers)
	users.Put("/:id/disable", authed, middleware.RequireCapability(models.CapManageUsers), userHandler.DisableUser)
	users.Put("/:id/enable", authed, middleware.RequireCapability(models.CapManageUsers), userHandler.EnableUser)

	// Catalog routes
	categories := api.Group("/categories")
	categories.Get("/", categoryHandler.ListCategories)
	categories.Get("/:id", categoryHandler.GetCategory)
	categories.Post("/", authed, middleware.RequireCapability(models.CapManageCatalog), categoryHandler.CreateCategory)
	categories.Put("/:id", authed, middleware.RequireCapability(models.CapManageCatalog), categoryHandler.UpdateCategory)
	categories.Delete("/:id", authed, middleware.RequireCapability(models.CapManageCatalog), categoryHandler.DeleteCategory)

	products := api.Group("/products")
	products.Get("/", productHandler.ListProducts)
	products.Get("/search", productHandler.SearchProducts)
	products.Get("/:id", productHandler.GetProduct)
	products.Post("/", authed, middleware.RequireCapability(models.CapManageCatalog), productHandler.CreateProduct)
	products.Put("/:id", authed, middleware.RequireCapability(models.CapManageCatalog), productHandler.UpdateProduct)
	products.Delete("/:id", authed, middleware.RequireCapability(models.CapManageCatalog), productHandler.DeactivateProduct)
	products.Post("/:id/reviews", authed, productHandler.AddReview)
	products.Post("/:id/stock", authed, middleware.RequireCapability(models.CapManageCatalog), productHandler.RecordStockMovement)
	products.Get("/:id/stock", authed, middleware.RequireCapability(models.CapManageCatalog), productHandler.ListStockMovements)

	// Cart routes
	cart := api.Group("/cart", authed,
		middleware.RateLimit("cart", cfg.CartRateLimit, cfg.RateLimitWindow, limiterStore))
	cart.Get("/", cartHandler.GetCart)
	cart.Post("/items", cartHandler.AddItem)
	cart.Put("/items/:productId", cartHandler.UpdateItem)
	cart.Delete("/items/:productId", cartHandler.RemoveItem)
	cart.Delete("/", cartHandler.ClearCart)
	cart.Post("/coupon", cartHandler.ApplyCoupon)
	cart.Delete("/coupon", cartHandler.RemoveCoupon)

	// Order routes
	orders := api.Group("/orders", authed,
		middleware.RateLimit("orders", cfg.OrderRateLimit, cfg.RateLimitWindow, limiterStore))
	orders.Post("/", orderHandler.CreateOrder)
	orders.Get("/mine", orderHandler.ListMyOrders)
	orders.Get("/", middleware.RequireCapability(models.CapManageOrders), orderHandler.ListOrders)
	orders.Get("/count", middleware.RequireCapability(models.CapManageOrders), orderHandler.CountOrders)
	orders.Get("/:id", orderHandler.GetOrder)
	orders.Put("/:id/status", middleware.RequireCapability(models.CapManageOrders), orderHandler.UpdateStatus)
	orders.Put("/:id/courier", middleware.RequireCapability(models.CapManageOrders), orderHandler.AssignCourier)

	// Payment routes
	payments := api.Group("/payments", authed,
		middleware.RateLimit("payments", cfg.PayRateLimit, cfg.RateLimitWindow, limiterStore))
	payments.Post("/", paymentHandler.ProcessPayment)
	payments.Get("/", middleware.RequireCapability(models.CapManagePayments), paymentHandler.ListPayments)
	payments.Get("/:id", middleware.RequireCapability(models.CapManagePayments), paymentHandler.GetPayment)
	payments.Put("/:id/validate", middleware.RequireCapability(models.CapManagePayments), paymentHandler.ValidateCashPayment)
	payments.Put("/:id/cancel", middleware.RequireCapability(models.CapManagePayments), paymentHandler.CancelPayment)

	// Delivery routes (courier only)
	delivery := api.Group("/delivery", authed,
		middleware.RequireCapability(models.CapDeliverOrders),
		middleware.RateLimit("delivery", cfg.DeliverLimit, cfg.RateLimitWindow, limiterStore))
	delivery.Get("/orders", deliveryHandler.ListAssignedOrders)
	delivery.Get("/orders/:id", deliveryHandler.GetAssignedOrder)
	delivery.Get("/orders/:id/client", deliveryHandler.GetClientInfo)
	delivery.Put("/orders/:id/confirm", deliveryHandler.ConfirmDelivery)

	// Promotion routes
	promotions := api.Group("/promotions",
		middleware.RateLimit("promotions", cfg.PromoRateLimit, cfg.RateLimitWindow, limiterStore))
	promotions.Get("/product/:productId", promotionHandler.GetProductPromotions)
	promotions.Post("/apply", promotionHandler.ApplyPromoCode)
	promotions.Get("/", authed, middleware.RequireCapability(models.CapManagePromotions), promotionHandler.ListPromotions)
	promotions.Post("/", authed, middleware.RequireCapability(models.CapManagePromotions), promotionHandler.CreatePromotion)
	promotions.Put("/:id", authed, middleware.RequireCapability(models.CapManagePromotions), promotionHandler.UpdatePromotion)
	promotions.Delete("/:id", authed, middleware.RequireCapability(models.CapManagePromotions), promotionHandler.DeletePromotion)
	promotions.Get("/coupons", authed, middleware.RequireCapability(models.CapManagePromotions), promotionHandler.ListCoupons)
	promotions.Post("/coupons", authed, middleware.RequireCapability(models.CapManagePromotions), promotionHandler.CreateCoupon)
	promotions.Put("/coupons/:id/deactivate", authed, middleware.RequireCapability(models.CapManagePromotions), promotionHandler.DeactivateCoupon)

	// Statistics routes (admin only)
	stats := api.Group("/statistics", authed, middleware.RequireCapability(models.CapViewReports))
	stats.Get("/dashboard", statsHandler.Dashboard)
	stats.Get("/best-sellers", statsHandler.BestSellers)
	stats.Get("/monthly-sales", statsHandler.MonthlySales)
	stats.Get("/category-sales", statsHandler.CategorySales)
}
