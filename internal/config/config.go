package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds application configuration
type Config struct {
	DatabaseURL string
	ServerPort  string
	FrontendURL string

	JWTSecret       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	AIProvider  string
	AIKey       string
	AIModel     string
	AIBaseURL   string
	AIMaxTokens int

	RedisURL         string
	RabbitMQURL      string
	RabbitMQPrefetch int

	MaxMessageLength   int
	RecentWindowSize   int
	PromptCharBudget   int
	SessionIdleTimeout time.Duration
	MessageRetention   time.Duration
	SessionRetention   time.Duration
	HousekeepInterval  time.Duration

	FilterRulesPath string
	ChatRateLimit   string

	EnableHSTS      bool
	ServerDebugMode bool
	WorkerDebugMode bool
	OTELEnabled     bool
	OTELEndpoint    string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		DatabaseURL: getEnv("DATABASE_URL", ""),
		ServerPort:  getEnv("SERVER_PORT", "8080"),
		FrontendURL: getEnv("FRONTEND_URL", "http://localhost:3000"),

		JWTSecret:       getEnv("JWT_SECRET", ""),
		AccessTokenTTL:  getEnvDuration("ACCESS_TOKEN_TTL", 15*time.Minute),
		RefreshTokenTTL: getEnvDuration("REFRESH_TOKEN_TTL", 30*24*time.Hour),

		AIProvider:  getEnv("AI_PROVIDER", "openai"),
		AIKey:       getEnv("AI_API_KEY", ""),
		AIModel:     getEnv("AI_MODEL", ""),
		AIBaseURL:   getEnv("AI_BASE_URL", ""),
		AIMaxTokens: getEnvInt("AI_MAX_TOKENS", 300),

		RedisURL:         getEnv("REDIS_URL", "redis://localhost:6379/0"),
		RabbitMQURL:      getEnv("RABBITMQ_URL", ""),
		RabbitMQPrefetch: getEnvInt("RABBITMQ_PREFETCH", 1),

		MaxMessageLength:   getEnvInt("MAX_MESSAGE_LENGTH", 2000),
		RecentWindowSize:   getEnvInt("RECENT_WINDOW_SIZE", 10),
		PromptCharBudget:   getEnvInt("PROMPT_CHAR_BUDGET", 6000),
		SessionIdleTimeout: getEnvDuration("SESSION_IDLE_TIMEOUT", 30*time.Minute),
		MessageRetention:   getEnvDuration("MESSAGE_RETENTION", 7*24*time.Hour),
		SessionRetention:   getEnvDuration("SESSION_RETENTION", 30*24*time.Hour),
		HousekeepInterval:  getEnvDuration("HOUSEKEEP_INTERVAL", 5*time.Minute),

		FilterRulesPath: getEnv("FILTER_RULES_PATH", ""),
		ChatRateLimit:   getEnv("CHAT_RATE_LIMIT", "10-M"),

		EnableHSTS:      getEnvBool("ENABLE_HSTS", false),
		ServerDebugMode: getEnvBool("SERVER_DEBUG_MODE", false),
		WorkerDebugMode: getEnvBool("WORKER_DEBUG_MODE", false),
		OTELEnabled:     getEnvBool("OTEL_ENABLED", false),
		OTELEndpoint:    getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
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
