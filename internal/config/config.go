package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// ErrMissingDatabaseURL is returned when DATABASE_URL is not set. It is fatal at startup.
var ErrMissingDatabaseURL = errors.New("DATABASE_URL environment variable not set")

type Config struct {
	DatabaseURL        string
	DBMaxConns         int32
	ServerPort         string
	AllowedOrigins     string
	OpenAIAPIKey       string
	OpenAIModel        string
	RedisAddress       string
	RefreshInterval    time.Duration
	RefreshConcurrency int
	InsightTimeout     time.Duration
	CurrencySymbol     string
	LogLevel           string
}

// Load reads .env (when present) and the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from a lookup function.
func FromEnv(getenv func(string) string) (*Config, error) {
	cfg := &Config{
		DatabaseURL:    getenv("DATABASE_URL"),
		ServerPort:     stringOr(getenv("SERVER_PORT"), "8080"),
		AllowedOrigins: getenv("ALLOWED_ORIGINS"),
		OpenAIAPIKey:   getenv("OPENAI_API_KEY"),
		OpenAIModel:    stringOr(getenv("OPENAI_MODEL"), "gpt-4o-mini"),
		RedisAddress:   getenv("REDIS_ADDRESS"),
		CurrencySymbol: stringOr(getenv("CURRENCY_SYMBOL"), "₹"),
		LogLevel:       stringOr(getenv("LOG_LEVEL"), "info"),
	}
	if cfg.DatabaseURL == "" {
		return nil, ErrMissingDatabaseURL
	}

	var err error
	if cfg.RefreshInterval, err = durationOr(getenv("REFRESH_INTERVAL"), 5*time.Minute); err != nil {
		return nil, fmt.Errorf("invalid REFRESH_INTERVAL: %w", err)
	}
	if cfg.InsightTimeout, err = durationOr(getenv("INSIGHT_TIMEOUT"), 8*time.Second); err != nil {
		return nil, fmt.Errorf("invalid INSIGHT_TIMEOUT: %w", err)
	}
	if cfg.RefreshConcurrency, err = positiveIntOr(getenv("REFRESH_CONCURRENCY"), 1); err != nil {
		return nil, fmt.Errorf("invalid REFRESH_CONCURRENCY: %w", err)
	}
	maxConns, err := positiveIntOr(getenv("DB_MAX_CONNS"), 10)
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MAX_CONNS: %w", err)
	}
	cfg.DBMaxConns = int32(maxConns)

	return cfg, nil
}

func stringOr(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func durationOr(v string, def time.Duration) (time.Duration, error) {
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("must be positive, got %s", v)
	}
	return d, nil
}

func positiveIntOr(v string, def int) (int, error) {
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, err
	}
	if n < 1 {
		return 0, fmt.Errorf("must be at least 1, got %d", n)
	}
	return n, nil
}
