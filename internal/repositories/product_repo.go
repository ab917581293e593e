package repositories

import (
	"storefront/internal/models"
)

// ProductRepository defines read-only access to the product catalog. The
// catalog is loaded by the surrounding application at startup; nothing in
// the order flow mutates it.
type ProductRepository interface {
	GetAll() ([]models.Product, error)
	GetByID(id string) (*models.Product, error)
}
