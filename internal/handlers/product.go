package handlers

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/example/pharmacart/internal/middleware"
	"github.com/example/pharmacart/internal/models"
	"github.com/example/pharmacart/internal/services"
	"github.com/example/pharmacart/internal/utils"
)

// ProductHandler manages the product catalog, reviews and stock bookkeeping.
type ProductHandler struct {
	db      *gorm.DB
	pricing *services.PricingService
	stock   *services.StockService
}

// NewProductHandler constructs ProductHandler.
func NewProductHandler(db *gorm.DB, pricing *services.PricingService, stock *services.StockService) *ProductHandler {
	return &ProductHandler{db: db, pricing: pricing, stock: stock}
}

// ListProducts returns paginated active products with optional filters.
func (h *ProductHandler) ListProducts(c *fiber.Ctx) error {
	pg := utils.ParsePagination(c)
	query := h.db.Model(&models.Product{}).Where("is_active = ?", true)

	if v := c.Query("category_id"); v != "" {
		if id, err := uuid.Parse(v); err == nil {
			query = query.Where("category_id = ?", id)
		}
	}

	if search := strings.TrimSpace(c.Query("search")); search != "" {
		q := "%" + strings.ToLower(search) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(description) LIKE ?", q, q)
	}

	if minPrice := c.Query("min_price"); minPrice != "" {
		if val, err := strconv.ParseFloat(minPrice, 64); err == nil {
			query = query.Where("price >= ?", val)
		}
	}

	if maxPrice := c.Query("max_price"); maxPrice != "" {
		if val, err := strconv.ParseFloat(maxPrice, 64); err == nil {
			query = query.Where("price <= ?", val)
		}
	}

	if c.Query("in_stock") == "true" {
		query = query.Where("stock > 0")
	}

	if c.Query("on_sale") == "true" {
		query = query.Where("discount > 0 OR promo_price > 0")
	}

	if c.Query("low_stock") == "true" {
		query = query.Where("stock <= low_stock_threshold")
	}

	switch c.Query("sort") {
	case "price-asc":
		query = query.Order("price asc")
	case "price-desc":
		query = query.Order("price desc")
	case "rating":
		query = query.Order("ratings desc")
	default:
		query = query.Order("created_at desc")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return err
	}

	var products []models.Product
	if err := query.Preload("Category").
		Limit(pg.Limit).Offset(pg.Offset).
		Find(&products).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    products,
		"pagination": fiber.Map{
			"current_page":   pg.Page,
			"items_per_page": pg.Limit,
			"total_items":    total,
		},
	})
}

// SearchProducts performs a case-insensitive search over name and description.
func (h *ProductHandler) SearchProducts(c *fiber.Ctx) error {
	term := strings.TrimSpace(c.Query("q"))
	if term == "" {
		return fiber.NewError(fiber.StatusBadRequest, "search term is required")
	}

	limit := 10
	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	q := "%" + strings.ToLower(term) + "%"
	var products []models.Product
	if err := h.db.Where("is_active = ?", true).
		Where("LOWER(name) LIKE ? OR LOWER(description) LIKE ?", q, q).
		Preload("Category").
		Limit(limit).
		Find(&products).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": products})
}

// GetProduct loads a product with its category, reviews and the resolved
// promotion price.
func (h *ProductHandler) GetProduct(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	var product models.Product
	if err := h.db.Preload("Category").
		Preload("Reviews").
		First(&product, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return fiber.NewError(fiber.StatusNotFound, "product not found")
		}
		return err
	}

	quote, err := h.pricing.ResolvePrice(&product)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    product,
		"pricing": quote,
	})
}

type productRequest struct {
	Name        string   `json:"name" validate:"required"`
	Description string   `json:"description" validate:"required"`
	Price       float64  `json:"price" validate:"required,gt=0"`
	PromoPrice  float64  `json:"promo_price" validate:"gte=0"`
	Discount    float64  `json:"discount" validate:"gte=0,lte=100"`
	Images      []string `json:"images"`
	Stock       int      `json:"stock" validate:"gte=0"`
	CategoryID  string   `json:"category_id" validate:"required,uuid"`
}

// CreateProduct creates a catalog item.
func (h *ProductHandler) CreateProduct(c *fiber.Ctx) error {
	var req productRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if err := utils.ValidateStruct(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	categoryID, _ := uuid.Parse(req.CategoryID)
	var category models.Category
	if err := h.db.First(&category, "id = ?", categoryID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return fiber.NewError(fiber.StatusNotFound, "category not found")
		}
		return err
	}

	product := models.Product{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		PromoPrice:  req.PromoPrice,
		Discount:    req.Discount,
		Images:      pq.StringArray(req.Images),
		Stock:       req.Stock,
		CategoryID:  category.ID,
		IsActive:    req.Stock > 0,
	}

	if err := h.db.Create(&product).Error; err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": product})
}

type productUpdateRequest struct {
	Name        *string  `json:"name"`
	Description *string  `json:"description"`
	Price       *float64 `json:"price"`
	PromoPrice  *float64 `json:"promo_price"`
	Discount    *float64 `json:"discount"`
	Images      []string `json:"images"`
	CategoryID  *string  `json:"category_id"`
	IsActive    *bool    `json:"is_active"`
}

// UpdateProduct partially updates a product. Stock is not writable here;
// stock changes go through movements.
func (h *ProductHandler) UpdateProduct(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	var product models.Product
	if err := h.db.First(&product, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return fiber.NewError(fiber.StatusNotFound, "product not found")
		}
		return err
	}

	var req productUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if req.Name != nil {
		product.Name = *req.Name
	}
	if req.Description != nil {
		product.Description = *req.Description
	}
	if req.Price != nil {
		if *req.Price <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "price must be positive")
		}
		product.Price = *req.Price
	}
	if req.PromoPrice != nil {
		product.PromoPrice = *req.PromoPrice
	}
	if req.Discount != nil {
		if *req.Discount < 0 || *req.Discount > 100 {
			return fiber.NewError(fiber.StatusBadRequest, "discount must be between 0 and 100")
		}
		product.Discount = *req.Discount
	}
	if req.Images != nil {
		product.Images = pq.StringArray(req.Images)
	}
	if req.CategoryID != nil {
		categoryID, err := uuid.Parse(*req.CategoryID)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid category_id")
		}
		var category models.Category
		if err := h.db.First(&category, "id = ?", categoryID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return fiber.NewError(fiber.StatusNotFound, "category not found")
			}
			return err
		}
		product.CategoryID = category.ID
	}
	if req.IsActive != nil {
		product.IsActive = *req.IsActive
	}

	if err := h.db.Save(&product).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": product})
}

// DeactivateProduct soft-removes a product from the storefront.
func (h *ProductHandler) DeactivateProduct(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	result := h.db.Model(&models.Product{}).Where("id = ?", id).Update("is_active", false)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fiber.NewError(fiber.StatusNotFound, "product not found")
	}

	return c.JSON(fiber.Map{"success": true, "message": "product deactivated"})
}

type reviewRequest struct {
	Rating  int    `json:"rating" validate:"required,gte=1,lte=5"`
	Comment string `json:"comment" validate:"required"`
}

// AddReview appends a review, one per user, and refreshes the average rating.
func (h *ProductHandler) AddReview(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	productID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	var req reviewRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if err := utils.ValidateStruct(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	var product models.Product
	if err := h.db.First(&product, "id = ?", productID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return fiber.NewError(fiber.StatusNotFound, "product not found")
		}
		return err
	}

	var existing models.Review
	if err := h.db.Where("product_id = ? AND user_id = ?", productID, userID).
		First(&existing).Error; err == nil {
		return fiber.NewError(fiber.StatusBadRequest, "you have already reviewed this product")
	} else if err != gorm.ErrRecordNotFound {
		return err
	}

	var user models.User
	if err := h.db.First(&user, "id = ?", userID).Error; err != nil {
		return err
	}

	err = h.db.Transaction(func(tx *gorm.DB) error {
		review := models.Review{
			ProductID:  product.ID,
			UserID:     user.ID,
			AuthorName: user.Name,
			Rating:     req.Rating,
			Comment:    req.Comment,
		}
		if err := tx.Create(&review).Error; err != nil {
			return err
		}

		// Derived average kept on the product row.
		newCount := product.RatingCount + 1
		newAverage := (product.Ratings*float64(product.RatingCount) + float64(req.Rating)) / float64(newCount)
		return tx.Model(&product).Updates(map[string]interface{}{
			"ratings":      utils.Round2(newAverage),
			"rating_count": newCount,
		}).Error
	})
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "message": "review added"})
}

type stockMovementRequest struct {
	Type     string `json:"type" validate:"required,oneof=entry exit adjustment reservation"`
	Quantity int    `json:"quantity" validate:"required"`
	Reason   string `json:"reason"`
}

// RecordStockMovement applies a named stock movement to a product.
func (h *ProductHandler) RecordStockMovement(c *fiber.Ctx) error {
	actorID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	productID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	var req stockMovementRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if err := utils.ValidateStruct(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	if req.Type != models.MovementAdjustment && req.Quantity < 0 {
		return fiber.NewError(fiber.StatusBadRequest, "quantity must be positive")
	}

	product, err := h.stock.Apply(productID, req.Type, req.Quantity, req.Reason, &actorID)
	if err != nil {
		switch err {
		case gorm.ErrRecordNotFound:
			return fiber.NewError(fiber.StatusNotFound, "product not found")
		case services.ErrInsufficientStock:
			return fiber.NewError(fiber.StatusBadRequest, "not enough stock available")
		case services.ErrUnknownMovement:
			return fiber.NewError(fiber.StatusBadRequest, "unknown movement type")
		}
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": product})
}

// ListStockMovements returns the audit trail for a product.
func (h *ProductHandler) ListStockMovements(c *fiber.Ctx) error {
	productID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	var movements []models.StockMovement
	if err := h.db.Where("product_id = ?", productID).
		Order("created_at desc").
		Find(&movements).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": movements})
}
