package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Cache / rate-limit store backends
const (
	StoreTypeMemory = "memory"
	StoreTypeRedis  = "redis"
)

type Config struct {
	// Server settings
	ServerAddr string
	BaseURL    string

	// Claim settings
	ClaimTTL time.Duration // how long an issued claim code stays redeemable

	// JWT settings
	JWTSecret     string
	JWTExpiration time.Duration

	// Database
	DatabaseDriver string // "sqlite" or "postgres"
	DatabaseDSN    string // Database connection string (DSN or path)

	// Metrics
	MetricsEnabled bool

	// Rate limiting (applied to the anonymous hardware endpoints)
	RateLimitEnabled   bool
	RateLimitPerMinute int
	RateLimitStore     string // "memory" or "redis"

	// Device presence cache
	PresenceCacheType string        // "memory" or "redis"
	PresenceTTL       time.Duration // how long after a heartbeat a device counts as online

	// Redis (shared by rate limiter and presence cache when selected)
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Audit logging
	EnableAuditLogging bool
	AuditLogBufferSize int
}

func Load() *Config {
	// Load .env file if exists (ignore error if not found)
	_ = godotenv.Load()

	// Determine database driver and DSN
	driver := getEnv("DATABASE_DRIVER", "sqlite")
	var dsn string
	if driver == "sqlite" {
		dsn = getEnv("DATABASE_DSN", getEnv("DATABASE_PATH", "pulsr.db"))
	} else {
		dsn = getEnv("DATABASE_DSN", "")
	}

	return &Config{
		ServerAddr: getEnv("SERVER_ADDR", ":8080"),
		BaseURL:    getEnv("BASE_URL", "http://localhost:8080"),

		ClaimTTL: getEnvDuration("CLAIM_TTL", 24*time.Hour),

		JWTSecret:     getEnv("JWT_SECRET", "your-256-bit-secret-change-in-production"),
		JWTExpiration: getEnvDuration("JWT_EXPIRATION", time.Hour),

		DatabaseDriver: driver,
		DatabaseDSN:    dsn,

		MetricsEnabled: getEnvBool("METRICS_ENABLED", false),

		RateLimitEnabled:   getEnvBool("RATE_LIMIT_ENABLED", true),
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 30),
		RateLimitStore:     getEnv("RATE_LIMIT_STORE", StoreTypeMemory),

		PresenceCacheType: getEnv("PRESENCE_CACHE_TYPE", StoreTypeMemory),
		PresenceTTL:       getEnvDuration("PRESENCE_TTL", 90*time.Second),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		EnableAuditLogging: getEnvBool("ENABLE_AUDIT_LOGGING", true),
		AuditLogBufferSize: getEnvInt("AUDIT_LOG_BUFFER_SIZE", 1000),
	}
}

// Validate checks settings that have no sane fallback
func (c *Config) Validate() error {
	if c.DatabaseDriver != "sqlite" && c.DatabaseDriver != "postgres" {
		return fmt.Errorf("unsupported database driver: %s", c.DatabaseDriver)
	}
	if c.DatabaseDriver == "postgres" && c.DatabaseDSN == "" {
		return fmt.Errorf("DATABASE_DSN is required for the postgres driver")
	}
	if c.ClaimTTL <= 0 {
		return fmt.Errorf("CLAIM_TTL must be positive, got %s", c.ClaimTTL)
	}
	if c.PresenceTTL <= 0 {
		return fmt.Errorf("PRESENCE_TTL must be positive, got %s", c.PresenceTTL)
	}
	if c.RateLimitStore != StoreTypeMemory && c.RateLimitStore != StoreTypeRedis {
		return fmt.Errorf("unsupported rate limit store: %s", c.RateLimitStore)
	}
	if c.PresenceCacheType != StoreTypeMemory && c.PresenceCacheType != StoreTypeRedis {
		return fmt.Errorf("unsupported presence cache type: %s", c.PresenceCacheType)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1"
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var i int
		if _, err := fmt.Sscanf(value, "%d", &i); err == nil {
			return i
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
