package services_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"productapi/internal/models"
	"productapi/internal/repositories"
	"productapi/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// MockProductRepository is a mock implementation of repositories.ProductRepository
type MockProductRepository struct {
	mock.Mock
}

func (m *MockProductRepository) FindMany(ctx context.Context, filter models.ProductFilter) ([]models.Product, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Product), args.Error(1)
}

func (m *MockProductRepository) FindByID(ctx context.Context, id uint) (*models.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Product), args.Error(1)
}

func (m *MockProductRepository) Create(ctx context.Context, product *models.Product) error {
	args := m.Called(ctx, product)
	return args.Error(0)
}

func (m *MockProductRepository) Update(ctx context.Context, product *models.Product) error {
	args := m.Called(ctx, product)
	return args.Error(0)
}

func (m *MockProductRepository) Delete(ctx context.Context, id uint) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockPublisher is a mock implementation of services.EventPublisher
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishProductEvent(event models.ProductEvent) error {
	args := m.Called(event)
	return args.Error(0)
}

var fixedNow = time.Date(2024, 3, 1, 12, 30, 0, 123456789, time.UTC)

func newService(repo *MockProductRepository, opts ...services.Option) *services.ProductService {
	opts = append([]services.Option{services.WithClock(func() time.Time { return fixedNow })}, opts...)
	return services.NewProductService(repo, zap.NewNop(), opts...)
}

func ptr[T any](v T) *T { return &v }

func TestProductService_ListProducts(t *testing.T) {
	mockRepo := new(MockProductRepository)
	service := newService(mockRepo)

	filter := models.ProductFilter{MinPrice: ptr(10.0)}
	expectedProducts := []models.Product{
		{ID: 1, Name: "Product A", Price: 10.0},
		{ID: 2, Name: "Product B", Price: 20.0},
	}

	mockRepo.On("FindMany", mock.Anything, filter).Return(expectedProducts, nil).Once()

	products, err := service.ListProducts(context.Background(), filter)

	assert.NoError(t, err)
	assert.Equal(t, expectedProducts, products)
	mockRepo.AssertExpectations(t)
}

func TestProductService_GetProduct(t *testing.T) {
	mockRepo := new(MockProductRepository)
	service := newService(mockRepo)

	expectedProduct := &models.Product{ID: 1, Name: "Product A", Price: 10.0}

	mockRepo.On("FindByID", mock.Anything, uint(1)).Return(expectedProduct, nil).Once()
	product, err := service.GetProduct(context.Background(), 1)
	assert.NoError(t, err)
	assert.Equal(t, expectedProduct, product)

	mockRepo.On("FindByID", mock.Anything, uint(99)).Return(nil, repositories.ErrProductNotFound).Once()
	product, err = service.GetProduct(context.Background(), 99)
	assert.ErrorIs(t, err, repositories.ErrProductNotFound)
	assert.Nil(t, product)
	mockRepo.AssertExpectations(t)
}

func TestProductService_CreateProduct(t *testing.T) {
	mockRepo := new(MockProductRepository)
	publisher := new(MockPublisher)
	service := newService(mockRepo, services.WithPublisher(publisher))

	in := models.CreateProductInput{Name: "New Product", Description: "Shiny", Price: ptr(50.0)}

	mockRepo.On("Create", mock.Anything, mock.AnythingOfType("*models.Product")).
		Run(func(args mock.Arguments) {
			args.Get(1).(*models.Product).ID = 7
		}).
		Return(nil).Once()
	publisher.On("PublishProductEvent", mock.MatchedBy(func(e models.ProductEvent) bool {
		return e.Type == models.EventProductCreated && e.ProductID == 7 && e.Product != nil
	})).Return(nil).Once()

	product, err := service.CreateProduct(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, uint(7), product.ID)
	assert.Equal(t, "New Product", product.Name)
	assert.Equal(t, "Shiny", product.Description)
	assert.Equal(t, 50.0, product.Price)
	assert.Equal(t, fixedNow.Truncate(time.Microsecond), product.CreatedAt)
	mockRepo.AssertExpectations(t)
	publisher.AssertExpectations(t)
}

func TestProductService_CreateProductRepositoryError(t *testing.T) {
	mockRepo := new(MockProductRepository)
	publisher := new(MockPublisher)
	service := newService(mockRepo, services.WithPublisher(publisher))

	mockRepo.On("Create", mock.Anything, mock.Anything).Return(fmt.Errorf("database error")).Once()

	product, err := service.CreateProduct(context.Background(), models.CreateProductInput{Name: "X", Description: "Y", Price: ptr(1.0)})
	assert.Error(t, err)
	assert.Nil(t, product)
	assert.Contains(t, err.Error(), "database error")
	publisher.AssertNotCalled(t, "PublishProductEvent", mock.Anything)
}

func TestProductService_UpdateProductMergesSuppliedFields(t *testing.T) {
	mockRepo := new(MockProductRepository)
	service := newService(mockRepo)

	created := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	stored := &models.Product{ID: 1, Name: "Product A", Description: "Original", Price: 10.0, CreatedAt: created}

	mockRepo.On("FindByID", mock.Anything, uint(1)).Return(stored, nil).Once()
	mockRepo.On("Update", mock.Anything, mock.MatchedBy(func(p *models.Product) bool {
		return p.ID == 1 && p.Name == "Product A" && p.Description == "Original" && p.Price == 12.0 && p.CreatedAt.Equal(created)
	})).Return(nil).Once()

	product, err := service.UpdateProduct(context.Background(), 1, models.UpdateProductInput{Price: ptr(12.0)})
	require.NoError(t, err)
	assert.Equal(t, 12.0, product.Price)
	assert.Equal(t, "Original", product.Description)
	mockRepo.AssertExpectations(t)
}

func TestProductService_UpdateProductNotFound(t *testing.T) {
	mockRepo := new(MockProductRepository)
	service := newService(mockRepo)

	mockRepo.On("FindByID", mock.Anything, uint(99)).Return(nil, repositories.ErrProductNotFound).Once()

	product, err := service.UpdateProduct(context.Background(), 99, models.UpdateProductInput{Name: ptr("Ghost")})
	assert.ErrorIs(t, err, repositories.ErrProductNotFound)
	assert.Nil(t, product)
	mockRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestProductService_DeleteProduct(t *testing.T) {
	mockRepo := new(MockProductRepository)
	publisher := new(MockPublisher)
	service := newService(mockRepo, services.WithPublisher(publisher))

	mockRepo.On("FindByID", mock.Anything, uint(1)).Return(&models.Product{ID: 1}, nil).Once()
	mockRepo.On("Delete", mock.Anything, uint(1)).Return(nil).Once()
	publisher.On("PublishProductEvent", mock.MatchedBy(func(e models.ProductEvent) bool {
		return e.Type == models.EventProductDeleted && e.ProductID == 1 && e.Product == nil
	})).Return(nil).Once()

	assert.NoError(t, service.DeleteProduct(context.Background(), 1))

	mockRepo.On("FindByID", mock.Anything, uint(99)).Return(nil, repositories.ErrProductNotFound).Once()
	assert.ErrorIs(t, service.DeleteProduct(context.Background(), 99), repositories.ErrProductNotFound)

	mockRepo.AssertExpectations(t)
	publisher.AssertExpectations(t)
}

func TestProductService_PublishFailureDoesNotFailWrite(t *testing.T) {
	mockRepo := new(MockProductRepository)
	publisher := new(MockPublisher)
	service := newService(mockRepo, services.WithPublisher(publisher))

	mockRepo.On("Create", mock.Anything, mock.Anything).Return(nil).Once()
	publisher.On("PublishProductEvent", mock.Anything).Return(fmt.Errorf("broker unavailable")).Once()

	product, err := service.CreateProduct(context.Background(), models.CreateProductInput{Name: "X", Description: "Y", Price: ptr(1.0)})
	assert.NoError(t, err)
	assert.NotNil(t, product)
	publisher.AssertExpectations(t)
}
