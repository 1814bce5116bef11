package server

import (
	"context"
	"errors"
	"time"

	"productapi/internal/handlers"
	"productapi/internal/metrics"
	"productapi/internal/middleware"
	"productapi/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"
)

// HealthCheck reports whether the backing store is reachable.
type HealthCheck func(ctx context.Context) error

// Deps are the collaborators the HTTP server is assembled from.
type Deps struct {
	Products *services.ProductService
	// Tokens guards the write routes when non-nil.
	Tokens  *services.TokenService
	Health  HealthCheck
	Metrics *metrics.Metrics
	Logger  *zap.Logger
}

// New builds the Fiber app with middleware, product routes under /api and
// the /health and /metrics endpoints.
func New(d Deps) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "productapi",
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler(d.Logger),
	})

	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(middleware.RequestLogger(d.Logger))
	if d.Metrics != nil {
		app.Use(d.Metrics.Middleware())
		app.Get("/metrics", d.Metrics.Handler())
	}

	app.Get("/health", healthHandler(d.Health))

	var writeGuards []fiber.Handler
	if d.Tokens != nil {
		writeGuards = append(writeGuards, middleware.AuthRequired(d.Tokens, d.Logger))
	}

	api := app.Group("/api")
	handlers.NewProductHandler(d.Products, d.Logger).RegisterRoutes(api, writeGuards...)

	return app
}

func healthHandler(check HealthCheck) fiber.Handler {
	return func(c *fiber.Ctx) error {
		status := fiber.Map{"time": time.Now().UTC().Format(time.RFC3339)}
		if check != nil {
			ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
			defer cancel()
			if err := check(ctx); err != nil {
				status["status"] = "unhealthy"
				status["error"] = err.Error()
				return c.Status(fiber.StatusServiceUnavailable).JSON(status)
			}
		}
		status["status"] = "healthy"
		return c.JSON(status)
	}
}

// errorHandler renders errors that escape the handlers, including unmatched
// routes and recovered panics, as JSON.
func errorHandler(log *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		msg := "Internal server error"

		var fe *fiber.Error
		if errors.As(err, &fe) {
			code = fe.Code
			msg = fe.Message
		} else {
			log.Error("unhandled error", zap.String("path", c.Path()), zap.Error(err))
		}
		return c.Status(code).JSON(fiber.Map{"error": msg})
	}
}
