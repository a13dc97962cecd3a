package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/example/pharmacart/internal/models"
	"github.com/example/pharmacart/internal/utils"
)

// StatisticsHandler serves the admin reporting endpoints.
type StatisticsHandler struct {
	db *gorm.DB
}

// NewStatisticsHandler constructs StatisticsHandler.
func NewStatisticsHandler(db *gorm.DB) *StatisticsHandler {
	return &StatisticsHandler{db: db}
}

// Dashboard returns the headline numbers: revenue over paid orders, entity
// counts, orders broken down by status and the order conversion rate.
func (h *StatisticsHandler) Dashboard(c *fiber.Ctx) error {
	var revenue float64
	if err := h.db.Model(&models.Order{}).
		Where("payment_status = ?", models.OrderPaymentPaid).
		Select("COALESCE(SUM(total), 0)").
		Scan(&revenue).Error; err != nil {
		return err
	}

	var orderCount, userCount, productCount int64
	if err := h.db.Model(&models.Order{}).Count(&orderCount).Error; err != nil {
		return err
	}
	if err := h.db.Model(&models.User{}).
		Where("role = ?", models.RoleCustomer).
		Count(&userCount).Error; err != nil {
		return err
	}
	if err := h.db.Model(&models.Product{}).
		Where("is_active = ?", true).
		Count(&productCount).Error; err != nil {
		return err
	}

	type statusRow struct {
		Status string
		Count  int64
	}
	var rows []statusRow
	if err := h.db.Model(&models.Order{}).
		Select("status, COUNT(*) as count").
		Group("status").
		Scan(&rows).Error; err != nil {
		return err
	}
	byStatus := make(map[string]int64, len(rows))
	for _, row := range rows {
		byStatus[row.Status] = row.Count
	}

	var buyerCount int64
	if err := h.db.Model(&models.Order{}).
		Distinct("user_id").
		Count(&buyerCount).Error; err != nil {
		return err
	}
	var conversion float64
	if userCount > 0 {
		conversion = utils.Round2(float64(buyerCount) / float64(userCount) * 100)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"revenue":          utils.Round2(revenue),
			"orders":           orderCount,
			"customers":        userCount,
			"products":         productCount,
			"orders_by_status": byStatus,
			"conversion_rate":  conversion,
		},
	})
}

// BestSellers returns the five most sold products across shipped and
// delivered orders.
func (h *StatisticsHandler) BestSellers(c *fiber.Ctx) error {
	type sellerRow struct {
		ProductID   string  `json:"product_id"`
		ProductName string  `json:"product_name"`
		TotalSold   int64   `json:"total_sold"`
		Revenue     float64 `json:"revenue"`
	}

	var rows []sellerRow
	err := h.db.Model(&models.OrderItem{}).
		Select("order_items.product_id, order_items.product_name, SUM(order_items.quantity) as total_sold, SUM(order_items.line_total) as revenue").
		Joins("JOIN orders ON orders.id = order_items.order_id").
		Where("orders.status IN ?", []string{models.OrderShipped, models.OrderDelivered}).
		Group("order_items.product_id, order_items.product_name").
		Order("total_sold desc").
		Limit(5).
		Scan(&rows).Error
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": rows})
}

// MonthlySales returns paid revenue per month of the current year.
func (h *StatisticsHandler) MonthlySales(c *fiber.Ctx) error {
	year := time.Now().Year()
	if v := c.QueryInt("year"); v > 0 {
		year = v
	}

	type monthRow struct {
		Month int
		Total float64
	}
	var rows []monthRow
	err := h.db.Model(&models.Order{}).
		Select("CAST(date_part('month', ordered_at) AS int) as month, COALESCE(SUM(total), 0) as total").
		Where("payment_status = ?", models.OrderPaymentPaid).
		Where("date_part('year', ordered_at) = ?", year).
		Group("month").
		Order("month").
		Scan(&rows).Error
	if err != nil {
		return err
	}

	// Twelve buckets even when a month had no sales.
	sales := make([]float64, 12)
	for _, row := range rows {
		if row.Month >= 1 && row.Month <= 12 {
			sales[row.Month-1] = utils.Round2(row.Total)
		}
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    fiber.Map{"year": year, "monthly_sales": sales},
	})
}

// CategorySales returns the revenue share per category over paid orders.
func (h *StatisticsHandler) CategorySales(c *fiber.Ctx) error {
	type categoryRow struct {
		CategoryID   string  `json:"category_id"`
		CategoryName string  `json:"category_name"`
		Revenue      float64 `json:"revenue"`
		Share        float64 `json:"share"`
	}

	var rows []categoryRow
	err := h.db.Model(&models.OrderItem{}).
		Select("categories.id as category_id, categories.name as category_name, SUM(order_items.line_total) as revenue").
		Joins("JOIN orders ON orders.id = order_items.order_id").
		Joins("JOIN products ON products.id = order_items.product_id").
		Joins("JOIN categories ON categories.id = products.category_id").
		Where("orders.payment_status = ?", models.OrderPaymentPaid).
		Group("categories.id, categories.name").
		Order("revenue desc").
		Scan(&rows).Error
	if err != nil {
		return err
	}

	var total float64
	for _, row := range rows {
		total += row.Revenue
	}
	for i := range rows {
		rows[i].Revenue = utils.Round2(rows[i].Revenue)
		if total > 0 {
			rows[i].Share = utils.Round2(rows[i].Revenue / total * 100)
		}
	}

	return c.JSON(fiber.Map{"success": true, "data": rows})
}
