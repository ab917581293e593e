package repositories

import (
	"encoding/json"
	"fmt"
	"os"

	"storefront/internal/models"
)

// JSONProductCatalog is an in-memory, read-only ProductRepository backed by
// a static JSON file. It is built once and safe for concurrent reads.
type JSONProductCatalog struct {
	products map[string]models.Product
	ordered  []models.Product
}

// LoadJSONCatalog reads the product catalog from a JSON file on disk.
func LoadJSONCatalog(path string) (*JSONProductCatalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file %s: %w", path, err)
	}

	var products []models.Product
	if err := json.Unmarshal(data, &products); err != nil {
		return nil, fmt.Errorf("failed to parse catalog file %s: %w", path, err)
	}

	return NewJSONCatalog(products), nil
}

// NewJSONCatalog builds a catalog from an already-loaded product list.
func NewJSONCatalog(products []models.Product) *JSONProductCatalog {
	byID := make(map[string]models.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}
	return &JSONProductCatalog{
		products: byID,
		ordered:  products,
	}
}

// GetAll returns all products in catalog-file order.
func (c *JSONProductCatalog) GetAll() ([]models.Product, error) {
	out := make([]models.Product, len(c.ordered))
	copy(out, c.ordered)
	return out, nil
}

// GetByID returns a product by its ID.
func (c *JSONProductCatalog) GetByID(id string) (*models.Product, error) {
	product, ok := c.products[id]
	if !ok {
		return nil, fmt.Errorf("product with ID %s: %w", id, ErrProductNotFound)
	}
	return &product, nil
}
