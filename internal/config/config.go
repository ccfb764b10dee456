package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds application configuration.
type Config struct {
	// Server
	ServerAddr string
	ServerPort int

	// Database
	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// Multi-tenancy
	MainDomain string

	// Tokens
	JWTSecret     string
	JWTIssuer     string
	TokenTTL      time.Duration
	ResetTokenTTL time.Duration

	// HTTP limits
	MaxRequestBodySize int64
	RateLimit          RateLimitConfig
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	Enabled bool

	AuthRequestsPerMinute  int
	ResetRequestsPerWindow int
	ResetWindowMinutes     int
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		// Server defaults
		ServerAddr: getEnv("SERVER_ADDR", "0.0.0.0"),
		ServerPort: getEnvInt("SERVER_PORT", 8080),

		// Database defaults
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnvInt("DB_PORT", 5432),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", "postgres"),
		DBName:     getEnv("DB_NAME", "campus"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		// Multi-tenancy
		MainDomain: getEnv("MAIN_DOMAIN", "xyz.com"),

		// Token defaults
		JWTSecret:     getEnv("JWT_SECRET", ""),
		JWTIssuer:     getEnv("JWT_ISSUER", "campus"),
		TokenTTL:      getEnvDuration("AUTH_TOKEN_TTL", 24*time.Hour),
		ResetTokenTTL: getEnvDuration("RESET_TOKEN_TTL", time.Hour),

		MaxRequestBodySize: int64(getEnvInt("MAX_REQUEST_BODY_SIZE", 1<<20)),

		RateLimit: RateLimitConfig{
			Enabled:                getEnvBool("RATE_LIMIT_ENABLED", true),
			AuthRequestsPerMinute:  getEnvInt("RATE_LIMIT_AUTH_PER_MINUTE", 10),
			ResetRequestsPerWindow: getEnvInt("RATE_LIMIT_RESET_PER_WINDOW", 3),
			ResetWindowMinutes:     getEnvInt("RATE_LIMIT_RESET_WINDOW_MINUTES", 15),
		},
	}

	// Validate required fields
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.MainDomain == "" {
		return nil, fmt.Errorf("MAIN_DOMAIN is required")
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
