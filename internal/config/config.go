package config

import (
	"os"
	"strconv"
	"strings"
)

// MemoryDatabase selects the in-process store instead of PostgreSQL.
const MemoryDatabase = "memory"

// Config holds runtime configuration loaded from environment variables.
type Config struct {
	DatabaseURL          string
	JWTSecret            string
	JWTIssuer            string
	AccessTTLSeconds     int64
	RefreshTTLSeconds    int64
	Port                 string
	CorsOrigins          []string
	RedisAddr            string
	RedisPassword        string
	RedisDB              int
	MetricsDiskPath      string
	MetricsSampleSeconds int
	SignupPoints         int
	LogLevel             string
	LogFormat            string
	LogOutput            string
}

func Load() Config {
	return Config{
		DatabaseURL:          mustEnv("DATABASE_URL"),
		JWTSecret:            mustEnv("JWT_SECRET"),
		JWTIssuer:            envOr("JWT_ISSUER", "zenith"),
		AccessTTLSeconds:     int64(envOrInt("ACCESS_TTL_SECONDS", 14400)),
		RefreshTTLSeconds:    int64(envOrInt("REFRESH_TTL_SECONDS", 1209600)),
		Port:                 envOr("PORT", "8080"),
		CorsOrigins:          parseCSV(envOr("CORS_ORIGINS", "")),
		RedisAddr:            envOr("REDIS_ADDR", ""),
		RedisPassword:        envOr("REDIS_PASSWORD", ""),
		RedisDB:              envOrInt("REDIS_DB", 0),
		MetricsDiskPath:      envOr("METRICS_DISK_PATH", "/"),
		MetricsSampleSeconds: envOrInt("METRICS_SAMPLE_INTERVAL", 5),
		SignupPoints:         envOrInt("SIGNUP_POINTS", 100),
		LogLevel:             envOr("LOG_LEVEL", "info"),
		LogFormat:            envOr("LOG_FORMAT", "json"),
		LogOutput:            envOr("LOG_OUTPUT", "stdout"),
	}
}

// UsesMemoryStore reports whether the process should run without PostgreSQL.
func (c Config) UsesMemoryStore() bool {
	return strings.EqualFold(c.DatabaseURL, MemoryDatabase)
}

func mustEnv(key string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		panic("missing env var: " + key)
	}
	return value
}

func envOr(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func envOrInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func parseCSV(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	items := make([]string, 0, len(parts))
	for _, part := range parts {
		value := strings.TrimSpace(part)
		if value != "" {
			items = append(items, value)
		}
	}
	return items
}
