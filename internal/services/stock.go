package services

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/pharmacart/internal/models"
)

var (
	// ErrInsufficientStock rejects movements that would drop stock below zero.
	ErrInsufficientStock = errors.New("not enough stock available")
	// ErrUnknownMovement rejects movement types outside the closed set.
	ErrUnknownMovement = errors.New("unknown stock movement type")
)

// StockService records stock movements against products. Every change to a
// product's stock goes through a named movement so the history stays
// auditable.
type StockService struct {
	db *gorm.DB
}

// NewStockService constructs a StockService.
func NewStockService(db *gorm.DB) *StockService {
	return &StockService{db: db}
}

// Apply records a movement in its own transaction. See ApplyMovement.
func (s *StockService) Apply(productID uuid.UUID, movementType string, qty int, reason string, actorID *uuid.UUID) (*models.Product, error) {
	var product *models.Product
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var txErr error
		product, txErr = ApplyMovement(tx, productID, movementType, qty, reason, actorID)
		return txErr
	})
	if err != nil {
		return nil, err
	}
	return product, nil
}

// ApplyMovement records a stock movement inside an existing transaction:
// it adjusts the product's stock, appends the audit record and flips the
// product's availability. Stock reaching zero deactivates the product;
// restoring it above zero reactivates it unconditionally.
func ApplyMovement(tx *gorm.DB, productID uuid.UUID, movementType string, qty int, reason string, actorID *uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := tx.First(&product, "id = ?", productID).Error; err != nil {
		return nil, err
	}

	delta, err := movementDelta(movementType, qty)
	if err != nil {
		return nil, err
	}

	newStock := product.Stock + delta
	if newStock < 0 {
		return nil, ErrInsufficientStock
	}

	movement := models.StockMovement{
		ProductID: product.ID,
		Type:      movementType,
		Quantity:  delta,
		Resulting: newStock,
		Reason:    reason,
		UserID:    actorID,
	}
	if err := tx.Create(&movement).Error; err != nil {
		return nil, err
	}

	updates := map[string]interface{}{
		"stock":     newStock,
		"is_active": newStock > 0,
	}
	if err := tx.Model(&models.Product{}).Where("id = ?", product.ID).Updates(updates).Error; err != nil {
		return nil, err
	}

	product.Stock = newStock
	product.IsActive = newStock > 0
	return &product, nil
}

// movementDelta maps a movement type and magnitude onto a signed stock
// delta. Adjustments carry their own sign; the other types take a positive
// magnitude.
func movementDelta(movementType string, qty int) (int, error) {
	switch movementType {
	case models.MovementEntry:
		return qty, nil
	case models.MovementExit, models.MovementReservation:
		return -qty, nil
	case models.MovementAdjustment:
		return qty, nil
	}
	return 0, ErrUnknownMovement
}
