// Package config loads the service configuration from the environment and
// an optional config file.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Session store backends.
const (
	StoreMemory   = "memory"
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
	StoreRedis    = "redis"
)

// Config is the resolved service configuration.
type Config struct {
	AppPort             string
	APIBaseURL          string
	APITimeout          time.Duration // zero means no timeout
	JWTSecret           string
	SessionTTL          time.Duration
	SessionStore        string
	DatabaseDSN         string
	RedisAddr           string
	RabbitMQURL         string // empty disables order events
	RabbitMQExchange    string
	ClearCartAfterOrder bool
}

// Load reads the configuration. Environment variables take precedence over
// config.yaml, which is looked up in the working directory and in
// /etc/campusshop when present.
func Load() (*Config, error) {
	v := viper.New()
	v.SetDefault("APP_PORT", ":8080")
	v.SetDefault("API_BASE_URL", "http://localhost:9090/api")
	v.SetDefault("API_TIMEOUT", "0s")
	v.SetDefault("JWT_SECRET", "change_me_in_production")
	v.SetDefault("SESSION_TTL", "24h")
	v.SetDefault("SESSION_STORE", StoreMemory)
	v.SetDefault("DATABASE_DSN", "campusshop.db")
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("RABBITMQ_URL", "")
	v.SetDefault("RABBITMQ_EXCHANGE", "shop_events")
	v.SetDefault("CLEAR_CART_AFTER_ORDER", false)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/campusshop")
	v.AutomaticEnv() // Load environment variables

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		AppPort:             v.GetString("APP_PORT"),
		APIBaseURL:          strings.TrimRight(v.GetString("API_BASE_URL"), "/"),
		APITimeout:          v.GetDuration("API_TIMEOUT"),
		JWTSecret:           v.GetString("JWT_SECRET"),
		SessionTTL:          v.GetDuration("SESSION_TTL"),
		SessionStore:        strings.ToLower(v.GetString("SESSION_STORE")),
		DatabaseDSN:         v.GetString("DATABASE_DSN"),
		RedisAddr:           v.GetString("REDIS_ADDR"),
		RabbitMQURL:         v.GetString("RABBITMQ_URL"),
		RabbitMQExchange:    v.GetString("RABBITMQ_EXCHANGE"),
		ClearCartAfterOrder: v.GetBool("CLEAR_CART_AFTER_ORDER"),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the values that cannot be defaulted.
func (c *Config) Validate() error {
	switch c.SessionStore {
	case StoreMemory, StoreSQLite, StorePostgres, StoreRedis:
	default:
		return fmt.Errorf("unknown SESSION_STORE %q", c.SessionStore)
	}
	if c.APIBaseURL == "" {
		return errors.New("API_BASE_URL must not be empty")
	}
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET must not be empty")
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive, got %s", c.SessionTTL)
	}
	if c.APITimeout < 0 {
		return fmt.Errorf("API_TIMEOUT must not be negative, got %s", c.APITimeout)
	}
	if (c.SessionStore == StoreSQLite || c.SessionStore == StorePostgres) && c.DatabaseDSN == "" {
		return errors.New("DATABASE_DSN is required for database session stores")
	}
	return nil
}

// EventsEnabled reports whether order events are published.
func (c *Config) EventsEnabled() bool {
	return c.RabbitMQURL != ""
}
