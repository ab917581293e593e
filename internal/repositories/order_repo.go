package repositories

import (
	"storefront/internal/models"
)

// OrderRepository defines the interface for order data access. It is the
// single source of local truth for an order's payment status.
type OrderRepository interface {
	// Create stores a new order. Fails with ErrDuplicateOrder if the
	// purchase ID has already been issued.
	Create(order *models.Order) error
	GetByPurchaseID(purchaseID string) (*models.Order, error)
	// GetByGatewayOrderID resolves an order when only the gateway's
	// identifier is known, e.g. from a webhook payload.
	GetByGatewayOrderID(gatewayOrderID string) (*models.Order, error)
	// UpdateStatus applies a status transition only while the current status
	// is non-terminal; on a terminal order it is a no-op and returns false.
	// A non-empty gatewayOrderID is recorded alongside the transition.
	// The guard makes webhook redelivery and verify/webhook races safe: the
	// first resolution wins and is never overwritten.
	UpdateStatus(purchaseID string, status models.PaymentStatus, gatewayOrderID string) (bool, error)
}
