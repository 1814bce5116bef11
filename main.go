package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"productapi/internal/config"
	"productapi/internal/database"
	"productapi/internal/logger"
	"productapi/internal/metrics"
	"productapi/internal/models"
	"productapi/internal/repositories"
	"productapi/internal/server"
	"productapi/internal/services"
	"productapi/pkg/rabbitmq"
	"productapi/pkg/summation"

	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func main() {
	// A missing .env is fine; real environment variables still apply.
	_ = godotenv.Load()

	if err := newCLI(os.Stdout).Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newCLI(out io.Writer) *cli.App {
	return &cli.App{
		Name:   "productapi",
		Usage:  "product catalog HTTP service",
		Writer: out,
		Action: serve,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "run the HTTP API",
				Action: serve,
			},
			{
				Name:  "sum",
				Usage: "sum the integers from 1 to n",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "n", Required: true, Usage: "upper bound"},
					&cli.StringFlag{Name: "method", Value: "all", Usage: "loop, formula, range or all"},
				},
				Action: sum,
			},
			{
				Name:  "token",
				Usage: "mint a bearer token for the write routes",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "subject", Value: "catalog-admin"},
				},
				Action: issueToken,
			},
			{
				Name:   "events",
				Usage:  "log product events from RabbitMQ until interrupted",
				Action: tailEvents,
			},
		},
	}
}

func sum(c *cli.Context) error {
	n := c.Int("n")
	method := c.String("method")

	variants := summation.Variants()
	if method != "all" {
		v, ok := summation.Lookup(method)
		if !ok {
			return fmt.Errorf("unknown method %q", method)
		}
		variants = []summation.Variant{v}
	}

	for _, v := range variants {
		fmt.Fprintf(c.App.Writer, "%s: %d\n", v.Name, v.Func(n))
	}
	return nil
}

func loadConfig() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(viper.New())
	if err != nil {
		return nil, nil, err
	}
	log, err := logger.New(logger.Config{Level: cfg.LogLevel, Env: cfg.Env})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return cfg, log, nil
}

func issueToken(c *cli.Context) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	if !cfg.Auth.Enabled() {
		return fmt.Errorf("AUTH_JWT_SECRET is not set")
	}

	token, err := services.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL).IssueToken(c.String("subject"))
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, token)
	return nil
}

func tailEvents(c *cli.Context) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	defer log.Sync()

	if !cfg.RabbitMQ.Enabled() {
		return fmt.Errorf("RABBITMQ_URL is not set")
	}

	mqClient, err := rabbitmq.NewClient(rabbitmq.Config{URL: cfg.RabbitMQ.URL, Queue: cfg.RabbitMQ.Queue, Logger: log})
	if err != nil {
		return err
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-quit
		mqClient.Close()
	}()

	return mqClient.ConsumeProductEvents(func(event models.ProductEvent) error {
		log.Info("product event",
			zap.String("type", event.Type),
			zap.Uint("product_id", event.ProductID),
			zap.Time("occurred_at", event.OccurredAt),
		)
		return nil
	})
}

// serve bootstraps every collaborator, then blocks until SIGINT or SIGTERM.
// Failing to reach the database is fatal.
func serve(c *cli.Context) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	defer log.Sync()

	var (
		repo   repositories.ProductRepository
		db     *gorm.DB
		health server.HealthCheck
	)
	switch cfg.Database.Driver {
	case "memory":
		repo = repositories.NewInMemoryProductRepository()
		log.Warn("using in-memory product store; data is lost on exit")
	default:
		db, err = database.Open(cfg.Database, log)
		if err != nil {
			log.Fatal("Database connection failed", zap.String("driver", cfg.Database.Driver), zap.Error(err))
		}
		log.Info("Database connected successfully", zap.String("driver", cfg.Database.Driver))
		repo = repositories.NewGORMProductRepository(db)
		health = func(ctx context.Context) error { return database.Ping(ctx, db) }
	}

	var redisClient *redis.Client
	if cfg.Redis.Enabled() {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		repo = repositories.NewCachedProductRepository(repo, redisClient, cfg.Redis.CacheTTL, log)
		log.Info("product cache enabled", zap.String("addr", cfg.Redis.Addr), zap.Duration("ttl", cfg.Redis.CacheTTL))
	}

	var opts []services.Option
	var mqClient *rabbitmq.Client
	if cfg.RabbitMQ.Enabled() {
		mqClient, err = rabbitmq.NewClient(rabbitmq.Config{URL: cfg.RabbitMQ.URL, Queue: cfg.RabbitMQ.Queue, Logger: log})
		if err != nil {
			log.Fatal("Failed to initialize RabbitMQ client", zap.Error(err))
		}
		opts = append(opts, services.WithPublisher(mqClient))
	}

	var tokens *services.TokenService
	if cfg.Auth.Enabled() {
		tokens = services.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	}

	app := server.New(server.Deps{
		Products: services.NewProductService(repo, log, opts...),
		Tokens:   tokens,
		Health:   health,
		Metrics:  metrics.New(),
		Logger:   log,
	})

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Info("Server is running", zap.String("addr", cfg.ListenAddr()))
		if err := app.Listen(cfg.ListenAddr()); err != nil {
			log.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	<-quit
	log.Info("Shutting down server...")

	if err := app.ShutdownWithTimeout(cfg.ShutdownTimeout); err != nil {
		log.Error("Error during Fiber shutdown", zap.Error(err))
	}
	if mqClient != nil {
		if err := mqClient.Close(); err != nil {
			log.Error("Error closing RabbitMQ client", zap.Error(err))
		}
	}
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			log.Error("Error closing Redis client", zap.Error(err))
		}
	}
	if db != nil {
		if err := database.Close(db); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}

	log.Info("Server gracefully stopped")
	return nil
}
