package repositories

import (
	"fmt"
	"sync"
	"time"

	"storefront/internal/models"
)

// MockOrderRepository is an in-memory implementation of OrderRepository.
// It serves as the default store when no database DSN is configured and as
// a fixture in tests.
type MockOrderRepository struct {
	orders map[string]models.Order
	mu     sync.RWMutex
}

// NewMockOrderRepository creates a new instance of MockOrderRepository.
func NewMockOrderRepository() *MockOrderRepository {
	return &MockOrderRepository{
		orders: make(map[string]models.Order),
	}
}

// Create stores a new order keyed by purchase ID.
func (r *MockOrderRepository) Create(order *models.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.orders[order.PurchaseID]; exists {
		return fmt.Errorf("purchase %s: %w", order.PurchaseID, ErrDuplicateOrder)
	}
	if order.CreatedAt.IsZero() {
		order.CreatedAt = time.Now()
	}
	order.UpdatedAt = order.CreatedAt
	r.orders[order.PurchaseID] = *order
	return nil
}

// GetByPurchaseID returns an order by its purchase ID.
func (r *MockOrderRepository) GetByPurchaseID(purchaseID string) (*models.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	order, ok := r.orders[purchaseID]
	if !ok {
		return nil, fmt.Errorf("purchase %s: %w", purchaseID, ErrOrderNotFound)
	}
	return &order, nil
}

// GetByGatewayOrderID returns the order holding the given gateway order ID.
func (r *MockOrderRepository) GetByGatewayOrderID(gatewayOrderID string) (*models.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, order := range r.orders {
		if order.GatewayOrderID == gatewayOrderID {
			o := order
			return &o, nil
		}
	}
	return nil, fmt.Errorf("gateway order %s: %w", gatewayOrderID, ErrOrderNotFound)
}

// UpdateStatus applies a status transition under the state-machine guard.
// It returns false without touching the record when the transition is not
// legal from the order's current status, most importantly when the order
// has already reached paid or failed.
func (r *MockOrderRepository) UpdateStatus(purchaseID string, status models.PaymentStatus, gatewayOrderID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	order, ok := r.orders[purchaseID]
	if !ok {
		return false, fmt.Errorf("purchase %s: %w", purchaseID, ErrOrderNotFound)
	}
	if !order.PaymentStatus.CanTransitionTo(status) {
		return false, nil
	}

	order.PaymentStatus = status
	if gatewayOrderID != "" {
		order.GatewayOrderID = gatewayOrderID
	}
	order.UpdatedAt = time.Now()
	r.orders[purchaseID] = order
	return true, nil
}
