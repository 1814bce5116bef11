package handlers

import (
	"errors"
	"math"
	"strconv"

	"productapi/internal/models"
	"productapi/internal/repositories"
	"productapi/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Response messages. Server errors carry a fixed message per operation and
// never expose the cause.
const (
	msgNotFound      = "Product not found"
	msgInvalidBody   = "Invalid request body"
	msgInvalidFilter = "Invalid price filter"
	msgValidation    = "Validation failed"
	msgDeleted       = "Delete success"
	msgCreateFailed  = "Error creating product"
	msgListFailed    = "Error fetching products"
	msgFetchFailed   = "Error fetching product"
	msgUpdateFailed  = "Error updating product"
	msgDeleteFailed  = "Error deleting product"
)

// ProductHandler handles HTTP requests for products.
type ProductHandler struct {
	service  *services.ProductService
	validate *validator.Validate
	logger   *zap.Logger
}

// NewProductHandler creates a new ProductHandler.
func NewProductHandler(service *services.ProductService, logger *zap.Logger) *ProductHandler {
	return &ProductHandler{
		service:  service,
		validate: newValidator(),
		logger:   logger,
	}
}

// RegisterRoutes registers the product routes. writeGuards run before the
// mutating handlers only.
func (h *ProductHandler) RegisterRoutes(router fiber.Router, writeGuards ...fiber.Handler) {
	productRoutes := router.Group("/products")

	write := func(handler fiber.Handler) []fiber.Handler {
		return append(append([]fiber.Handler{}, writeGuards...), handler)
	}

	productRoutes.Post("/", write(h.HandleCreateProduct)...)
	productRoutes.Get("/", h.HandleGetProducts)
	productRoutes.Get("/:id", h.HandleGetProduct)
	productRoutes.Put("/:id", write(h.HandleUpdateProduct)...)
	productRoutes.Delete("/:id", write(h.HandleDeleteProduct)...)
}

// HandleCreateProduct creates a new product.
func (h *ProductHandler) HandleCreateProduct(c *fiber.Ctx) error {
	var in models.CreateProductInput
	if err := c.BodyParser(&in); err != nil {
		return h.badRequest(c, err)
	}
	if err := h.validate.Struct(in); err != nil {
		return validationFailed(c, err)
	}

	product, err := h.service.CreateProduct(c.UserContext(), in)
	if err != nil {
		return h.serverError(c, msgCreateFailed, err)
	}
	return c.Status(fiber.StatusCreated).JSON(product)
}

// HandleGetProducts lists products, optionally bounded by minPrice and maxPrice.
func (h *ProductHandler) HandleGetProducts(c *fiber.Ctx) error {
	var filter models.ProductFilter
	var err error
	if filter.MinPrice, err = parsePriceBound(c.Query("minPrice")); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msgInvalidFilter})
	}
	if filter.MaxPrice, err = parsePriceBound(c.Query("maxPrice")); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msgInvalidFilter})
	}

	products, err := h.service.ListProducts(c.UserContext(), filter)
	if err != nil {
		return h.serverError(c, msgListFailed, err)
	}
	return c.JSON(products)
}

// HandleGetProduct retrieves a single product by its ID.
func (h *ProductHandler) HandleGetProduct(c *fiber.Ctx) error {
	id, ok := productID(c)
	if !ok {
		return notFound(c)
	}

	product, err := h.service.GetProduct(c.UserContext(), id)
	if err != nil {
		if errors.Is(err, repositories.ErrProductNotFound) {
			return notFound(c)
		}
		return h.serverError(c, msgFetchFailed, err)
	}
	return c.JSON(product)
}

// HandleUpdateProduct applies a partial update to an existing product.
func (h *ProductHandler) HandleUpdateProduct(c *fiber.Ctx) error {
	id, ok := productID(c)
	if !ok {
		return notFound(c)
	}

	var in models.UpdateProductInput
	if err := c.BodyParser(&in); err != nil {
		return h.badRequest(c, err)
	}
	if err := h.validate.Struct(in); err != nil {
		return validationFailed(c, err)
	}

	product, err := h.service.UpdateProduct(c.UserContext(), id, in)
	if err != nil {
		if errors.Is(err, repositories.ErrProductNotFound) {
			return notFound(c)
		}
		return h.serverError(c, msgUpdateFailed, err)
	}
	return c.Status(fiber.StatusOK).JSON(product)
}

// HandleDeleteProduct deletes a product by its ID.
func (h *ProductHandler) HandleDeleteProduct(c *fiber.Ctx) error {
	id, ok := productID(c)
	if !ok {
		return notFound(c)
	}

	if err := h.service.DeleteProduct(c.UserContext(), id); err != nil {
		if errors.Is(err, repositories.ErrProductNotFound) {
			return notFound(c)
		}
		return h.serverError(c, msgDeleteFailed, err)
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"message": msgDeleted})
}

// productID parses the :id parameter. Anything that is not a positive
// integer cannot name a stored product.
func productID(c *fiber.Ctx) (uint, bool) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 0)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// parsePriceBound treats an empty query value as "no bound".
func parsePriceBound(raw string) (*float64, error) {
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, err
	}
	if math.IsNaN(v) {
		return nil, errors.New("price bound is NaN")
	}
	return &v, nil
}

func notFound(c *fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": msgNotFound})
}

func validationFailed(c *fiber.Ctx, err error) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error":  msgValidation,
		"fields": formatValidationError(err),
	})
}

func (h *ProductHandler) badRequest(c *fiber.Ctx, err error) error {
	h.logger.Debug("rejecting request body", zap.String("path", c.Path()), zap.Error(err))
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msgInvalidBody})
}

func (h *ProductHandler) serverError(c *fiber.Ctx, msg string, err error) error {
	h.logger.Error(msg,
		zap.String("method", c.Method()),
		zap.String("path", c.Path()),
		zap.Error(err),
	)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": msg})
}
