package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	LogLevel        slog.Level
	HTTPAddr        string        `validate:"required"`
	ReadTimeout     time.Duration `validate:"gt=0"`
	WriteTimeout    time.Duration `validate:"gt=0"`
	ShutdownTimeout time.Duration `validate:"gt=0"`

	BusAPIURL              string        `validate:"required,url"`
	BusAPITimeout          time.Duration `validate:"gt=0"`
	RouteTimeout           time.Duration `validate:"gt=0"`
	CatalogCacheTTL        time.Duration `validate:"gte=0"`
	CatalogCacheSize       int           `validate:"gt=0"`
	CatalogRefreshInterval time.Duration `validate:"gte=0"`

	StopsBatchSize     int `validate:"gt=0"`
	LinesBatchSize     int `validate:"gt=0"`
	EndpointsBatchSize int `validate:"gt=0"`

	LocationPermission bool
	DefaultLocation    string
	LocationTimeout    time.Duration `validate:"gt=0"`

	RendererSendBuffer int `validate:"gt=0"`

	RedisEnabled  bool
	RedisAddr     string `validate:"required_if=RedisEnabled true"`
	RedisPassword string
	RedisDB       int `validate:"gte=0"`

	RateLimitPerWindow int           `validate:"gt=0"`
	RateLimitWindow    time.Duration `validate:"gt=0"`
	RateLimitWhitelist []string

	CORSAllowedOrigins []string
}

// Load reads configuration from .env, the environment and the optional YAML
// file named by CONFIG_FILE. Values in the file override the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	apiURL := os.Getenv("BUS_API_URL")
	if apiURL == "" && os.Getenv("CONFIG_FILE") == "" {
		return nil, fmt.Errorf("BUS_API_URL environment variable is required")
	}

	cfg := &Config{
		LogLevel:        getLogLevelEnv("LOG_LEVEL", slog.LevelInfo),
		HTTPAddr:        getEnv("HTTP_ADDR", ":8080"),
		ReadTimeout:     getDurationEnv("READ_TIMEOUT", 10*time.Second),
		WriteTimeout:    getDurationEnv("WRITE_TIMEOUT", 10*time.Second),
		ShutdownTimeout: getDurationEnv("SHUTDOWN_TIMEOUT", 30*time.Second),

		BusAPIURL:              apiURL,
		BusAPITimeout:          getDurationEnv("BUS_API_TIMEOUT", 30*time.Second),
		RouteTimeout:           getDurationEnv("ROUTE_TIMEOUT", 15*time.Second),
		CatalogCacheTTL:        getDurationEnv("CATALOG_CACHE_TTL", 5*time.Minute),
		CatalogCacheSize:       getIntEnv("CATALOG_CACHE_SIZE", 4),
		CatalogRefreshInterval: getDurationEnv("CATALOG_REFRESH_INTERVAL", 30*time.Minute),

		StopsBatchSize:     getIntEnv("STOPS_BATCH_SIZE", 300),
		LinesBatchSize:     getIntEnv("LINES_BATCH_SIZE", 10),
		EndpointsBatchSize: getIntEnv("ENDPOINTS_BATCH_SIZE", 500),

		LocationPermission: getBoolEnv("LOCATION_PERMISSION", false),
		DefaultLocation:    getEnv("DEFAULT_LOCATION", ""),
		LocationTimeout:    getDurationEnv("LOCATION_TIMEOUT", 10*time.Second),

		RendererSendBuffer: getIntEnv("RENDERER_SEND_BUFFER", 8),

		RedisEnabled:  getBoolEnv("REDIS_ENABLED", false),
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getIntEnv("REDIS_DB", 0),

		RateLimitPerWindow: getIntEnv("RATE_LIMIT_PER_WINDOW", 120),
		RateLimitWindow:    getDurationEnv("RATE_LIMIT_WINDOW", time.Minute),
		RateLimitWhitelist: getCSVEnv("RATE_LIMIT_WHITELIST"),

		CORSAllowedOrigins: getCSVEnv("CORS_ALLOWED_ORIGINS"),
	}

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := applyFile(cfg, path); err != nil {
			return nil, err
		}
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func validate(cfg *Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getDurationEnv(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}

func getIntEnv(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func getBoolEnv(key string, defaultVal bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultVal
}

func getLogLevelEnv(key string, defaultVal slog.Level) slog.Level {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	return parseLogLevel(v, defaultVal)
}

func parseLogLevel(v string, defaultVal slog.Level) slog.Level {
	switch strings.ToLower(v) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return defaultVal
	}
}

func getCSVEnv(key string) []string {
	return splitCSV(os.Getenv(key))
}

func splitCSV(v string) []string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}

	parts := strings.Split(v, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t != "" {
			result = append(result, t)
		}
	}
	return result
}
