// Package config provides configuration loading and management for the storefront service.
// It handles environment variable parsing and provides default values for all settings.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// init loads environment variables from .env files during package initialization.
// godotenv.Load() does not override already-set environment variables,
// so OS env > .env.local > .env.
func init() {
	// Load .env.local first so its values win over the shared .env
	if _, err := os.Stat(".env.local"); err == nil {
		if err := godotenv.Load(".env.local"); err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to load .env.local file: %v\n", err)
		}
	}

	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to load .env file: %v\n", err)
		}
	}
}

// Config captures environment-driven settings for the storefront service.
type Config struct {
	Env  string // Deployment environment (dev, staging, prod)
	Port string // HTTP server port

	// Remote product/auth API
	UpstreamURL     string        // Base URL of the DummyJSON-compatible API
	UpstreamTimeout time.Duration // Transport timeout for upstream calls
	ProductsPerPage int           // Default page size for products.list

	RPCURL string // Base URL of a running storefrontd, used by the shop command

	DatabaseDSN string // PostgreSQL DSN for client-local storage (memory when empty)
	NATSURL     string // NATS server URL for order events (no-op when empty)

	// Order report export
	S3Endpoint  string
	S3Region    string
	S3Bucket    string
	S3AccessKey string
	S3SecretKey string

	// CORS configuration
	CORSAllowedOrigins []string // Allowed origins for CORS (empty means deny all)

	// Rate limiting on /rpc (0 disables)
	RateLimitRPS   int
	RateLimitBurst int
}

// Default configuration values used when environment variables are not set
const (
	defaultPort            = "8080"
	defaultEnv             = "dev"
	defaultUpstreamURL     = "https://dummyjson.com"
	defaultUpstreamTimeout = 10 * time.Second
	defaultProductsPerPage = 12
	defaultS3Region        = "us-east-1"
)

// Load reads environment variables and produces a Config suitable for wiring the service.
// Returns an error if a numeric or duration setting cannot be parsed.
func Load() (Config, error) {
	cfg := Config{
		Env:             getEnv("SF_ENV", defaultEnv),
		Port:            getEnv("SF_PORT", defaultPort),
		UpstreamURL:     strings.TrimRight(getEnv("SF_UPSTREAM_URL", defaultUpstreamURL), "/"),
		UpstreamTimeout: defaultUpstreamTimeout,
		ProductsPerPage: defaultProductsPerPage,
		S3Region:        getEnv("SF_S3_REGION", defaultS3Region),
	}

	cfg.RPCURL = strings.TrimRight(getEnv("SF_RPC_URL", "http://localhost:"+cfg.Port), "/")

	// Handle optional variables
	if dsn, exists := os.LookupEnv("SF_DB_DSN"); exists {
		cfg.DatabaseDSN = dsn
	}

	if natsURL, exists := os.LookupEnv("SF_NATS_URL"); exists {
		cfg.NATSURL = natsURL
	}

	if s3Endpoint, exists := os.LookupEnv("SF_S3_ENDPOINT"); exists {
		cfg.S3Endpoint = s3Endpoint
	}

	if s3Bucket, exists := os.LookupEnv("SF_S3_BUCKET"); exists {
		cfg.S3Bucket = s3Bucket
	}

	if s3AccessKey, exists := os.LookupEnv("SF_S3_ACCESS_KEY"); exists {
		cfg.S3AccessKey = s3AccessKey
	}

	if s3SecretKey, exists := os.LookupEnv("SF_S3_SECRET_KEY"); exists {
		cfg.S3SecretKey = s3SecretKey
	}

	if timeout, exists := os.LookupEnv("SF_UPSTREAM_TIMEOUT"); exists && timeout != "" {
		d, err := time.ParseDuration(timeout)
		if err != nil || d <= 0 {
			return cfg, fmt.Errorf("SF_UPSTREAM_TIMEOUT must be a positive duration, got %q", timeout)
		}
		cfg.UpstreamTimeout = d
	}

	var err error
	if cfg.ProductsPerPage, err = getInt("SF_PRODUCTS_PER_PAGE", defaultProductsPerPage); err != nil {
		return cfg, err
	}
	if cfg.ProductsPerPage <= 0 {
		return cfg, fmt.Errorf("SF_PRODUCTS_PER_PAGE must be positive")
	}

	if cfg.RateLimitRPS, err = getInt("SF_RATE_LIMIT_RPS", 0); err != nil {
		return cfg, err
	}
	if cfg.RateLimitBurst, err = getInt("SF_RATE_LIMIT_BURST", cfg.RateLimitRPS); err != nil {
		return cfg, err
	}

	// Handle CORS configuration
	if corsOrigins, exists := os.LookupEnv("SF_CORS_ALLOWED_ORIGINS"); exists && corsOrigins != "" {
		cfg.CORSAllowedOrigins = strings.Split(corsOrigins, ",")
		// Trim whitespace from each origin
		for i, origin := range cfg.CORSAllowedOrigins {
			cfg.CORSAllowedOrigins[i] = strings.TrimSpace(origin)
		}
	}

	return cfg, nil
}

// ExportEnabled reports whether enough S3 settings are present to upload order reports.
func (c Config) ExportEnabled() bool {
	return c.S3Endpoint != "" && c.S3Bucket != ""
}

// getEnv retrieves an environment variable value, returning a fallback if not set or empty
func getEnv(key, fallback string) string {
	if v, exists := os.LookupEnv(key); exists && v != "" {
		return v
	}
	return fallback
}

// getInt parses an integer environment variable, returning fallback when unset
func getInt(key string, fallback int) (int, error) {
	v, exists := os.LookupEnv(key)
	if !exists || v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%s must be a non-negative integer, got %q", key, v)
	}
	return n, nil
}
