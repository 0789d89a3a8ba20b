// Package config provides application configuration loading from environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// DefaultPoolSize bounds the database connection pool.
const DefaultPoolSize = 5

// Config holds all configuration for the application.
type Config struct {
	DBHost     string
	DBPort     int
	DBName     string
	DBUsername string
	DBPassword string
	DBPoolSize int

	HTTPAddr string
	LogLevel string

	// Bootstrap admin created on first start when no users exist.
	AdminUsername string
	AdminPassword string
	AdminEmail    string
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		DBHost:        os.Getenv("DB_HOST"),
		DBName:        os.Getenv("DB_NAME"),
		DBUsername:    os.Getenv("DB_USERNAME"),
		DBPassword:    os.Getenv("DB_PASSWORD"),
		LogLevel:      os.Getenv("LOG_LEVEL"),
		AdminUsername: os.Getenv("ADMIN_USERNAME"),
		AdminPassword: os.Getenv("ADMIN_PASSWORD"),
		AdminEmail:    os.Getenv("ADMIN_EMAIL"),
	}

	cfg.DBPort = 5432
	if portStr := os.Getenv("DB_PORT"); portStr != "" {
		if p, err := strconv.Atoi(portStr); err == nil && p > 0 && p <= 65535 {
			cfg.DBPort = p
		}
	}

	cfg.DBPoolSize = DefaultPoolSize
	if sizeStr := os.Getenv("DB_POOL_SIZE"); sizeStr != "" {
		if n, err := strconv.Atoi(sizeStr); err == nil && n > 0 {
			cfg.DBPoolSize = n
		}
	}

	cfg.HTTPAddr = ":8080"
	if addr := os.Getenv("HTTP_ADDR"); addr != "" {
		cfg.HTTPAddr = addr
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validate checks that all required configuration is present.
func (c *Config) validate() error {
	var errs []string

	if c.DBHost == "" {
		errs = append(errs, "DB_HOST is required")
	}
	if c.DBName == "" {
		errs = append(errs, "DB_NAME is required")
	}
	if c.DBUsername == "" {
		errs = append(errs, "DB_USERNAME is required")
	}
	if c.DBPassword == "" {
		errs = append(errs, "DB_PASSWORD is required")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

// DatabaseURL builds the Postgres connection string from the DB_* settings.
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s",
		c.DBUsername, c.DBPassword, c.DBHost, c.DBPort, c.DBName)
}
