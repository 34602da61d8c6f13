package configs

import (
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig
	Backend  BackendConfig
	Session  SessionConfig
	Database DatabaseConfig
	Redis    RedisConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port      string
	OpsPort   string
	Env       string
	LogLevel  string
	DisplayTZ string
}

// BackendConfig points at the simulation API and its event stream
type BackendConfig struct {
	URL     string
	Timeout time.Duration
}

// SessionConfig controls browser sessions and credential persistence
type SessionConfig struct {
	Store        string // memory, postgres or redis
	Secret       string
	TTL          time.Duration
	IdleTimeout  time.Duration
	CookieSecure bool
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	URL string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	URL string
}

// Session store kinds
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreRedis    = "redis"
)

// Load loads configuration from environment variables
func Load() *Config {
	env := getEnv("GO_ENV", "development")
	return &Config{
		Server: ServerConfig{
			Port:      getEnv("PORT", "8080"),
			OpsPort:   getEnv("OPS_PORT", "8081"),
			Env:       env,
			LogLevel:  getEnv("LOG_LEVEL", "info"),
			DisplayTZ: getEnv("DISPLAY_TZ", "UTC"),
		},
		Backend: BackendConfig{
			URL:     getEnv("BACKEND_URL", "http://localhost:3001"),
			Timeout: getDuration("BACKEND_TIMEOUT", 10*time.Second),
		},
		Session: SessionConfig{
			Store:        getEnv("SESSION_STORE", StoreMemory),
			Secret:       getEnv("SESSION_SECRET", ""),
			TTL:          getDuration("SESSION_TTL", 24*time.Hour),
			IdleTimeout:  getDuration("SESSION_IDLE", 30*time.Minute),
			CookieSecure: getBool("COOKIE_SECURE", env == "production"),
		},
		Database: DatabaseConfig{
			URL: getEnv("DATABASE_URL", ""),
		},
		Redis: RedisConfig{
			URL: getEnv("REDIS_URL", ""),
		},
	}
}

// IsProduction reports whether the server runs with production settings
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
