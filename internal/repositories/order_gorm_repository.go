package repositories

import (
	"errors"
	"fmt"

	"storefront/internal/models"

	"gorm.io/gorm"
)

// GORMOrderRepository is a GORM implementation of OrderRepository.
type GORMOrderRepository struct {
	db *gorm.DB
}

// NewGORMOrderRepository creates a new instance of GORMOrderRepository.
func NewGORMOrderRepository(db *gorm.DB) *GORMOrderRepository {
	return &GORMOrderRepository{
		db: db,
	}
}

// Create stores a new order row.
func (r *GORMOrderRepository) Create(order *models.Order) error {
	if err := r.db.Create(order).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("purchase %s: %w", order.PurchaseID, ErrDuplicateOrder)
		}
		return fmt.Errorf("failed to create order: %w", err)
	}
	return nil
}

// GetByPurchaseID retrieves an order by its purchase ID.
func (r *GORMOrderRepository) GetByPurchaseID(purchaseID string) (*models.Order, error) {
	var order models.Order
	if err := r.db.First(&order, "purchase_id = ?", purchaseID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("purchase %s: %w", purchaseID, ErrOrderNotFound)
		}
		return nil, fmt.Errorf("failed to get order %s: %w", purchaseID, err)
	}
	return &order, nil
}

// GetByGatewayOrderID retrieves an order by the gateway's identifier.
func (r *GORMOrderRepository) GetByGatewayOrderID(gatewayOrderID string) (*models.Order, error) {
	var order models.Order
	if err := r.db.First(&order, "gateway_order_id = ?", gatewayOrderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("gateway order %s: %w", gatewayOrderID, ErrOrderNotFound)
		}
		return nil, fmt.Errorf("failed to get order by gateway ID %s: %w", gatewayOrderID, err)
	}
	return &order, nil
}

// UpdateStatus applies the transition with a guarded UPDATE so that only a
// row in a legal source state for the target status is overwritten, even
// under concurrent webhook and polling reconciliation. RowsAffected == 0
// distinguishes "illegal transition" from "missing" via a follow-up lookup.
func (r *GORMOrderRepository) UpdateStatus(purchaseID string, status models.PaymentStatus, gatewayOrderID string) (bool, error) {
	updates := map[string]interface{}{"payment_status": status}
	if gatewayOrderID != "" {
		updates["gateway_order_id"] = gatewayOrderID
	}

	res := r.db.Model(&models.Order{}).
		Where("purchase_id = ? AND payment_status IN ?", purchaseID,
			models.TransitionSources(status)).
		Updates(updates)
	if res.Error != nil {
		return false, fmt.Errorf("failed to update status for order %s: %w", purchaseID, res.Error)
	}
	if res.RowsAffected > 0 {
		return true, nil
	}

	if _, err := r.GetByPurchaseID(purchaseID); err != nil {
		return false, err
	}
	// Row exists but the transition is not legal from its current status;
	// redelivered webhooks against a terminal order land here.
	return false, nil
}
