package repositories

import (
	"errors"
	"fmt"

	"storefront/internal/models"

	"gorm.io/gorm"
)

// GORMProductCatalog is a GORM-backed ProductRepository. The order flow only
// ever reads from it; Seed exists so the application (or a test) can load
// the static catalog into the database at startup.
type GORMProductCatalog struct {
	db *gorm.DB
}

// NewGORMProductCatalog creates a new instance of GORMProductCatalog.
func NewGORMProductCatalog(db *gorm.DB) *GORMProductCatalog {
	return &GORMProductCatalog{
		db: db,
	}
}

// GetAll retrieves all products from the database.
func (r *GORMProductCatalog) GetAll() ([]models.Product, error) {
	var products []models.Product
	if err := r.db.Find(&products).Error; err != nil {
		return nil, fmt.Errorf("failed to get all products: %w", err)
	}
	return products, nil
}

// GetByID retrieves a single product by its ID from the database.
func (r *GORMProductCatalog) GetByID(id string) (*models.Product, error) {
	var product models.Product
	if err := r.db.First(&product, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("product with ID %s: %w", id, ErrProductNotFound)
		}
		return nil, fmt.Errorf("failed to get product by ID %s: %w", id, err)
	}
	return &product, nil
}

// Seed upserts the given products, replacing any previous catalog rows with
// the same IDs. Intended for startup loading of the static catalog.
func (r *GORMProductCatalog) Seed(products []models.Product) error {
	for i := range products {
		if err := r.db.Save(&products[i]).Error; err != nil {
			return fmt.Errorf("failed to seed product %s: %w", products[i].ID, err)
		}
	}
	return nil
}
