// Package config provides environment-based configuration for the
// tracking service. All values load from environment variables with
// documented defaults; main loads .env files via godotenv before Load.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is the full service configuration.
type Config struct {
	// Server
	ServerAddr          string
	EnablePlayground    bool
	EnableIntrospection bool
	MaxQueryDepth       int
	MaxQueryComplexity  int
	CORSOrigins         []string
	RateLimitRPS        float64
	RateLimitBurst      int
	ShutdownDrain       time.Duration

	// Cold tier (ScyllaDB/Cassandra)
	ScyllaHosts    []string
	ScyllaKeyspace string
	ScyllaUsername string
	ScyllaPassword string
	ScyllaTimeout  time.Duration

	// Hot tier (Redis)
	RedisURL      string
	RedisPoolSize int

	// Analytics
	AnalyticsPath string

	// Reconciliation
	RebuildSchedule string

	// Authorization hook; empty disables the hook
	AuthJWTSecret string

	// Logging
	LogLevel  string
	LogFormat string
}

// Load reads the configuration from the environment.
func Load() Config {
	return Config{
		ServerAddr:          GetEnv("SERVER_ADDR", "0.0.0.0:8080"),
		EnablePlayground:    GetEnvBool("ENABLE_PLAYGROUND", true),
		EnableIntrospection: GetEnvBool("ENABLE_INTROSPECTION", true),
		MaxQueryDepth:       GetEnvInt("MAX_QUERY_DEPTH", 10),
		MaxQueryComplexity:  GetEnvInt("MAX_QUERY_COMPLEXITY", 1000),
		CORSOrigins:         SplitAndTrimCSV(GetEnv("CORS_ORIGINS", "*")),
		RateLimitRPS:        GetEnvFloat("RATE_LIMIT_RPS", 100),
		RateLimitBurst:      GetEnvInt("RATE_LIMIT_BURST", 200),
		ShutdownDrain:       ParseDurationOrDefault(os.Getenv("SHUTDOWN_DRAIN"), 30*time.Second),

		ScyllaHosts:    SplitAndTrimCSV(GetEnv("SCYLLA_HOSTS", "127.0.0.1:9042")),
		ScyllaKeyspace: GetEnv("SCYLLA_KEYSPACE", "drone_ops"),
		ScyllaUsername: GetEnv("SCYLLA_USERNAME", ""),
		ScyllaPassword: GetEnv("SCYLLA_PASSWORD", ""),
		ScyllaTimeout:  ParseDurationOrDefault(os.Getenv("SCYLLA_TIMEOUT"), 5*time.Second),

		RedisURL:      GetEnv("REDIS_URL", "redis://127.0.0.1:6379"),
		RedisPoolSize: GetEnvInt("REDIS_POOL_SIZE", 10),

		AnalyticsPath: GetEnv("ANALYTICS_PATH", ""),

		RebuildSchedule: GetEnv("REBUILD_SCHEDULE", "@every 5m"),

		AuthJWTSecret: GetEnv("AUTH_JWT_SECRET", ""),

		LogLevel:  GetEnv("LOG_LEVEL", "info"),
		LogFormat: GetEnv("LOG_FORMAT", "json"),
	}
}

// GetEnv retrieves an environment variable with optional default.
func GetEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

// GetEnvBool retrieves a boolean environment variable with optional default.
// Accepts: "true", "1", "yes", "y" (case-insensitive) as true.
func GetEnvBool(key string, defaultValue bool) bool {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return defaultValue
	}
	lower := strings.ToLower(val)
	return lower == "true" || lower == "1" || lower == "yes" || lower == "y"
}

// GetEnvInt retrieves an integer environment variable with optional default.
func GetEnvInt(key string, defaultValue int) int {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return defaultValue
	}
	return parsed
}

// GetEnvFloat retrieves a float environment variable with optional default.
func GetEnvFloat(key string, defaultValue float64) float64 {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return defaultValue
	}
	return parsed
}

// SplitAndTrimCSV splits a CSV string and trims each part.
// Empty values are filtered out.
func SplitAndTrimCSV(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

// ParseDurationOrDefault parses a duration string or returns the default.
func ParseDurationOrDefault(raw string, defaultDuration time.Duration) time.Duration {
	if raw == "" {
		return defaultDuration
	}
	if parsed, err := time.ParseDuration(raw); err == nil {
		return parsed
	}
	return defaultDuration
}
