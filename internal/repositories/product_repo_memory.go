package repositories

import (
	"context"
	"sort"
	"sync"

	"productapi/internal/models"
)

// InMemoryProductRepository is a map-backed implementation of ProductRepository.
// IDs come from a monotonic counter and are never reused.
type InMemoryProductRepository struct {
	products map[uint]models.Product
	lastID   uint
	mu       sync.RWMutex
}

// NewInMemoryProductRepository creates a new instance of InMemoryProductRepository.
func NewInMemoryProductRepository() *InMemoryProductRepository {
	return &InMemoryProductRepository{
		products: make(map[uint]models.Product),
	}
}

// FindMany returns the products matching filter, ordered by ID.
func (r *InMemoryProductRepository) FindMany(_ context.Context, filter models.ProductFilter) ([]models.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	productList := make([]models.Product, 0, len(r.products))
	for _, p := range r.products {
		if filter.Matches(p) {
			productList = append(productList, p)
		}
	}
	sort.Slice(productList, func(i, j int) bool { return productList[i].ID < productList[j].ID })
	return productList, nil
}

// FindByID returns a product by its ID.
func (r *InMemoryProductRepository) FindByID(_ context.Context, id uint) (*models.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	product, ok := r.products[id]
	if !ok {
		return nil, ErrProductNotFound
	}
	return &product, nil
}

// Create adds a new product and assigns its ID.
func (r *InMemoryProductRepository) Create(_ context.Context, product *models.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.lastID++
	product.ID = r.lastID
	r.products[product.ID] = *product
	return nil
}

// Update modifies an existing product. CreatedAt keeps its stored value.
func (r *InMemoryProductRepository) Update(_ context.Context, product *models.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.products[product.ID]
	if !ok {
		return ErrProductNotFound
	}
	existing.Name = product.Name
	existing.Description = product.Description
	existing.Price = product.Price
	r.products[product.ID] = existing
	return nil
}

// Delete removes a product by its ID.
func (r *InMemoryProductRepository) Delete(_ context.Context, id uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.products[id]; !ok {
		return ErrProductNotFound
	}
	delete(r.products, id)
	return nil
}
