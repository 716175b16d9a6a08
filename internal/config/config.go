// Package config provides application configuration from environment
// variables and the optional YAML agents file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all server configuration.
type Config struct {
	Port     string
	LogLevel string

	// APIKey is the static service key required in the X-API-Key header.
	// Empty means authentication is disabled (local development).
	APIKey string

	// StoreBackend selects the session store: "memory", "file" or "redis".
	StoreBackend  string
	SessionDir    string
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// SessionTTL is the sliding idle expiry for sessions.
	SessionTTL time.Duration

	// MaxGenerationAttempts caps generator batches per generate call.
	MaxGenerationAttempts int

	// CheckConcurrency bounds the availability-check fan-out.
	CheckConcurrency int

	// OpenRouterAPIKey authenticates model calls.
	OpenRouterAPIKey  string
	OpenRouterBaseURL string

	// AgentsFile optionally overrides the per-agent model table.
	AgentsFile string
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	logLevel := getEnv("LOG_LEVEL", "info")
	if os.Getenv("DEBUG") == "1" {
		logLevel = "debug"
	}

	cfg := &Config{
		Port:                  getEnv("PORT", "8080"),
		LogLevel:              logLevel,
		APIKey:                os.Getenv("DOMAIN_API_KEY"),
		StoreBackend:          getEnv("SESSION_STORE", "memory"),
		SessionDir:            getEnv("SESSION_DIR", "./data/sessions"),
		RedisAddr:             getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:         os.Getenv("REDIS_PASSWORD"),
		RedisDB:               getEnvInt("REDIS_DB", 0),
		SessionTTL:            getEnvDuration("SESSION_TTL", time.Hour),
		MaxGenerationAttempts: getEnvInt("MAX_GENERATION_ATTEMPTS", 5),
		CheckConcurrency:      getEnvInt("CHECK_CONCURRENCY", 4),
		OpenRouterAPIKey:      os.Getenv("OPENROUTER_API_KEY"),
		OpenRouterBaseURL:     os.Getenv("OPENROUTER_BASE_URL"),
		AgentsFile:            os.Getenv("AGENTS_CONFIG"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	switch c.StoreBackend {
	case "memory", "file", "redis":
	default:
		return fmt.Errorf("SESSION_STORE must be memory, file or redis, got %q", c.StoreBackend)
	}
	if c.StoreBackend == "file" && c.SessionDir == "" {
		return fmt.Errorf("SESSION_DIR is required for the file store")
	}
	if c.MaxGenerationAttempts < 1 {
		return fmt.Errorf("MAX_GENERATION_ATTEMPTS must be positive")
	}
	if c.CheckConcurrency < 1 {
		return fmt.Errorf("CHECK_CONCURRENCY must be positive")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
