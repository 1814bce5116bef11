package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config is the process configuration, read from the environment.
type Config struct {
	Port            string
	Env             string
	LogLevel        string
	ShutdownTimeout time.Duration
	Database        DatabaseConfig
	Redis           RedisConfig
	RabbitMQ        RabbitMQConfig
	Auth            AuthConfig
}

// DatabaseConfig selects and addresses the product store.
type DatabaseConfig struct {
	Driver   string // postgres, sqlite or memory
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
	Path     string // sqlite file
}

// DSN renders the Postgres connection string.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=%s",
		c.Host, c.User, c.Password, c.Name, c.Port, c.SSLMode)
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	CacheTTL time.Duration
}

// Enabled reports whether a Redis address was configured.
func (c RedisConfig) Enabled() bool { return c.Addr != "" }

type RabbitMQConfig struct {
	URL   string
	Queue string
}

func (c RabbitMQConfig) Enabled() bool { return c.URL != "" }

type AuthConfig struct {
	JWTSecret string
	TokenTTL  time.Duration
}

func (c AuthConfig) Enabled() bool { return c.JWTSecret != "" }

// SetDefaults registers every key with its fallback value.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "3000")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("SHUTDOWN_TIMEOUT", "10s")

	v.SetDefault("DB_DRIVER", "postgres")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "product_db")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("DB_PATH", "products.db")

	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("CACHE_TTL", "10m")

	v.SetDefault("RABBITMQ_URL", "")
	v.SetDefault("RABBITMQ_QUEUE", "product_events")

	v.SetDefault("AUTH_JWT_SECRET", "")
	v.SetDefault("AUTH_TOKEN_TTL", "24h")
}

// Load reads the configuration from v, falling back to the defaults.
func Load(v *viper.Viper) (*Config, error) {
	SetDefaults(v)
	v.AutomaticEnv()

	cfg := &Config{
		Port:            v.GetString("PORT"),
		Env:             v.GetString("APP_ENV"),
		LogLevel:        v.GetString("LOG_LEVEL"),
		ShutdownTimeout: v.GetDuration("SHUTDOWN_TIMEOUT"),
		Database: DatabaseConfig{
			Driver:   v.GetString("DB_DRIVER"),
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetInt("DB_PORT"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASSWORD"),
			Name:     v.GetString("DB_NAME"),
			SSLMode:  v.GetString("DB_SSLMODE"),
			Path:     v.GetString("DB_PATH"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("REDIS_ADDR"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
			CacheTTL: v.GetDuration("CACHE_TTL"),
		},
		RabbitMQ: RabbitMQConfig{
			URL:   v.GetString("RABBITMQ_URL"),
			Queue: v.GetString("RABBITMQ_QUEUE"),
		},
		Auth: AuthConfig{
			JWTSecret: v.GetString("AUTH_JWT_SECRET"),
			TokenTTL:  v.GetDuration("AUTH_TOKEN_TTL"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Database.Driver {
	case "postgres", "sqlite", "memory":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.Database.Driver)
	}
	if c.Database.Port <= 0 {
		return fmt.Errorf("invalid DB_PORT %d", c.Database.Port)
	}
	if c.Port == "" {
		return fmt.Errorf("PORT must not be empty")
	}
	return nil
}

// ListenAddr is the address handed to fiber.App.Listen.
func (c *Config) ListenAddr() string {
	return ":" + c.Port
}
