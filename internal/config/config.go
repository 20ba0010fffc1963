package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	ServerPort        string
	GinMode           string
	LogLevel          string
	LogFormat         string
	RedisURL          string
	JWTSecret         string
	JWTExpiry         time.Duration
	PortalTokenExpiry time.Duration
	BcryptCost        int
	// AllowedOrigins controls HTTP CORS and WebSocket origin validation.
	// Empty slice means all origins are permitted (dev default).
	AllowedOrigins []string

	// BackendURL is the base URL of the REST backend that owns students,
	// questions and results.
	BackendURL     string
	BackendTimeout time.Duration

	GeminiAPIKey string
	GeminiModel  string

	AdminUsername string
	// AdminPassword is only used when AdminPasswordHash is empty; it is hashed
	// once at startup and never compared in plain text.
	AdminPassword     string
	AdminPasswordHash string

	ExamConfigPath   string
	SessionIdleTTL   time.Duration
	LoginRateLimit   int
	GenerationJobTTL time.Duration
}

// Load reads configuration from environment variables with sensible defaults.
// It loads .env file if present but does not fail if missing.
func Load() *Config {
	_ = godotenv.Load() // .env is optional

	return &Config{
		ServerPort:        getEnv("SERVER_PORT", "8090"),
		GinMode:           getEnv("GIN_MODE", "debug"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		LogFormat:         getEnv("LOG_FORMAT", "pretty"),
		RedisURL:          getEnv("REDIS_URL", "redis://localhost:6379/0"),
		JWTSecret:         getEnv("JWT_SECRET", "change-this-to-a-secure-random-string"),
		JWTExpiry:         time.Duration(getEnvInt("JWT_EXPIRY_HOURS", 12)) * time.Hour,
		PortalTokenExpiry: time.Duration(getEnvInt("PORTAL_TOKEN_EXPIRY_HOURS", 4)) * time.Hour,
		BcryptCost:        getEnvInt("BCRYPT_COST", 10),
		AllowedOrigins:    parseOrigins(getEnv("ALLOWED_ORIGINS", "")),
		BackendURL:        strings.TrimRight(getEnv("BACKEND_URL", "http://localhost:8080/api"), "/"),
		BackendTimeout:    time.Duration(getEnvInt("BACKEND_TIMEOUT_SECONDS", 10)) * time.Second,
		GeminiAPIKey:      getEnv("GEMINI_API_KEY", ""),
		GeminiModel:       getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		AdminUsername:     getEnv("ADMIN_USERNAME", "admin"),
		AdminPassword:     getEnv("ADMIN_PASSWORD", "password"),
		AdminPasswordHash: getEnv("ADMIN_PASSWORD_HASH", ""),
		ExamConfigPath:    getEnv("EXAM_CONFIG_FILE", "exam.yaml"),
		SessionIdleTTL:    time.Duration(getEnvInt("SESSION_IDLE_TTL_MINUTES", 30)) * time.Minute,
		LoginRateLimit:    getEnvInt("LOGIN_RATE_LIMIT_PER_MINUTE", 30),
		GenerationJobTTL:  time.Duration(getEnvInt("GENERATION_JOB_TTL_HOURS", 24)) * time.Hour,
	}
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

// parseOrigins splits a comma-separated origins string into a trimmed slice.
// Returns nil (allow-all) if the input is empty.
func parseOrigins(raw string) []string {
	return splitList(raw)
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
