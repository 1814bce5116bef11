package repositories

import (
	"context"
	"errors"

	"productapi/internal/models"
)

// ErrProductNotFound is returned when no product carries the requested ID.
var ErrProductNotFound = errors.New("product not found")

// ProductRepository defines the interface for product data access.
type ProductRepository interface {
	Create(ctx context.Context, product *models.Product) error
	FindByID(ctx context.Context, id uint) (*models.Product, error)
	FindMany(ctx context.Context, filter models.ProductFilter) ([]models.Product, error)
	Update(ctx context.Context, product *models.Product) error
	Delete(ctx context.Context, id uint) error
}
