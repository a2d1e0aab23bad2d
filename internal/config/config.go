package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	Port string
	Env  string

	// Backend API the review data is read from
	BackendURL   string
	FetchTimeout time.Duration

	// Redis (optional; empty keeps screens in memory)
	RedisURL string

	// Screen tokens
	ScreenTokenSecret string
	ScreenTTL         time.Duration

	// Review screen
	TrendDays      int
	DefaultLocale  string
	StartRateLimit int

	// Frontend
	FrontendURL string
}

func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	cfg := &Config{
		Port:              getEnvOrDefault("PORT", "8080"),
		Env:               getEnvOrDefault("ENV", "development"),
		BackendURL:        mustGetEnv("BACKEND_URL"),
		FetchTimeout:      getEnvAsDurationOrDefault("FETCH_TIMEOUT", 10*time.Second),
		RedisURL:          getEnvOrDefault("REDIS_URL", ""),
		ScreenTokenSecret: mustGetEnv("SCREEN_TOKEN_SECRET"),
		ScreenTTL:         getEnvAsDurationOrDefault("SCREEN_TTL", 30*time.Minute),
		TrendDays:         getEnvAsIntOrDefault("TREND_DAYS", 7),
		DefaultLocale:     getEnvOrDefault("DEFAULT_LOCALE", "ja"),
		StartRateLimit:    getEnvAsIntOrDefault("START_RATE_LIMIT", 20),
		FrontendURL:       getEnvOrDefault("FRONTEND_URL", "http://localhost:5173"),
	}

	if cfg.TrendDays < 1 {
		cfg.TrendDays = 7
	}

	return cfg
}

func mustGetEnv(key string) string {
	val := os.Getenv(key)
	if val == "" {
		panic(fmt.Sprintf("required environment variable %s is not set", key))
	}
	return val
}

func getEnvOrDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func getEnvAsIntOrDefault(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return n
}

// getEnvAsDurationOrDefault accepts Go durations ("15s") or whole seconds.
func getEnvAsDurationOrDefault(key string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	if d, err := time.ParseDuration(val); err == nil && d > 0 {
		return d
	}
	if n, err := strconv.Atoi(val); err == nil && n > 0 {
		return time.Duration(n) * time.Second
	}
	return defaultVal
}
