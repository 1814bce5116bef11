package services

import (
	"context"
	"fmt"
	"time"

	"productapi/internal/models"
	"productapi/internal/repositories"

	"go.uber.org/zap"
)

// EventPublisher delivers product lifecycle events to downstream consumers.
type EventPublisher interface {
	PublishProductEvent(event models.ProductEvent) error
}

// ProductService handles business logic related to products.
type ProductService struct {
	repo      repositories.ProductRepository
	publisher EventPublisher
	logger    *zap.Logger
	now       func() time.Time
}

// Option configures a ProductService.
type Option func(*ProductService)

// WithPublisher makes the service emit events after successful writes.
func WithPublisher(p EventPublisher) Option {
	return func(s *ProductService) { s.publisher = p }
}

// WithClock overrides the time source used for createdAt and event timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *ProductService) { s.now = now }
}

// NewProductService creates a new ProductService.
func NewProductService(repo repositories.ProductRepository, logger *zap.Logger, opts ...Option) *ProductService {
	s := &ProductService{
		repo:   repo,
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ListProducts returns the products within the filter's price bounds.
func (s *ProductService) ListProducts(ctx context.Context, filter models.ProductFilter) ([]models.Product, error) {
	return s.repo.FindMany(ctx, filter)
}

// GetProduct retrieves a single product by its ID.
func (s *ProductService) GetProduct(ctx context.Context, id uint) (*models.Product, error) {
	return s.repo.FindByID(ctx, id)
}

// CreateProduct persists a new product. The repository assigns the ID and
// createdAt is stamped here, truncated to the database's precision.
func (s *ProductService) CreateProduct(ctx context.Context, in models.CreateProductInput) (*models.Product, error) {
	product := &models.Product{
		Name:        in.Name,
		Description: in.Description,
		CreatedAt:   s.now().UTC().Truncate(time.Microsecond),
	}
	if in.Price != nil {
		product.Price = *in.Price
	}

	if err := s.repo.Create(ctx, product); err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}

	s.publish(models.EventProductCreated, product.ID, product)
	return product, nil
}

// UpdateProduct merges the supplied fields into the stored product.
// The read and the write are not atomic.
func (s *ProductService) UpdateProduct(ctx context.Context, id uint, in models.UpdateProductInput) (*models.Product, error) {
	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	in.Apply(product)
	if err := s.repo.Update(ctx, product); err != nil {
		return nil, fmt.Errorf("update product %d: %w", id, err)
	}

	s.publish(models.EventProductUpdated, product.ID, product)
	return product, nil
}

// DeleteProduct deletes a product by its ID.
func (s *ProductService) DeleteProduct(ctx context.Context, id uint) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete product %d: %w", id, err)
	}

	s.publish(models.EventProductDeleted, id, nil)
	return nil
}

func (s *ProductService) publish(eventType string, id uint, product *models.Product) {
	if s.publisher == nil {
		return
	}

	event := models.ProductEvent{
		Type:       eventType,
		ProductID:  id,
		Product:    product,
		OccurredAt: s.now().UTC(),
	}
	if err := s.publisher.PublishProductEvent(event); err != nil {
		s.logger.Warn("failed to publish product event",
			zap.String("type", eventType),
			zap.Uint("product_id", id),
			zap.Error(err),
		)
	}
}
