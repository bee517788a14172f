package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is the process configuration read from the environment.
type Config struct {
	Port      string
	RedisAddr string
	LogLevel  slog.Level

	IngressJWTSecret     string
	IngressRatePerMinute int64

	WorkerConcurrency   int
	DispatchConcurrency int
	FCMSendRate         float64
	FCMSendTimeout      time.Duration
	WelcomeDelay        time.Duration
	UserPageSize        int

	PremiumExpiryCron string
	PremiumExpiryTZ   string
	DailyDigestCron   string
	DailyDigestTZ     string
}

// Load reads .env when present and then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	var errs []error
	cfg := &Config{
		Port:      getEnv("PORT", "8080"),
		RedisAddr: getEnv("REDIS_ADDR", "localhost:6379"),

		IngressJWTSecret:     os.Getenv("INGRESS_JWT_SECRET"),
		IngressRatePerMinute: int64(getEnvInt("INGRESS_RATE_PER_MINUTE", 600, &errs)),

		WorkerConcurrency:   getEnvInt("WORKER_CONCURRENCY", 10, &errs),
		DispatchConcurrency: getEnvInt("DISPATCH_CONCURRENCY", 16, &errs),
		FCMSendRate:         getEnvFloat("FCM_SEND_RATE", 100, &errs),
		FCMSendTimeout:      getEnvDuration("FCM_SEND_TIMEOUT", 10*time.Second, &errs),
		WelcomeDelay:        getEnvDuration("WELCOME_DELAY", 5*time.Second, &errs),
		UserPageSize:        getEnvInt("USER_PAGE_SIZE", 500, &errs),

		PremiumExpiryCron: getEnv("PREMIUM_EXPIRY_CRON", "0 9 * * *"),
		PremiumExpiryTZ:   getEnv("PREMIUM_EXPIRY_TZ", "Africa/Lusaka"),
		DailyDigestCron:   getEnv("DAILY_DIGEST_CRON", "0 18 * * *"),
		DailyDigestTZ:     getEnv("DAILY_DIGEST_TZ", "Africa/Lusaka"),
	}

	level, err := parseLevel(getEnv("LOG_LEVEL", "info"))
	if err != nil {
		errs = append(errs, err)
	}
	cfg.LogLevel = level

	if cfg.IngressJWTSecret == "" {
		errs = append(errs, errors.New("INGRESS_JWT_SECRET is required"))
	}

	if err := errors.Join(errs...); err != nil {
		slog.Error("Invalid configuration", "error", err)
		return nil, err
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int, errs *[]error) int {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		*errs = append(*errs, fmt.Errorf("%s must be a positive integer, got %q", key, raw))
		return fallback
	}
	return value
}

func getEnvFloat(key string, fallback float64, errs *[]error) float64 {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil || value <= 0 {
		*errs = append(*errs, fmt.Errorf("%s must be a positive number, got %q", key, raw))
		return fallback
	}
	return value
}

func getEnvDuration(key string, fallback time.Duration, errs *[]error) time.Duration {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback
	}
	value, err := time.ParseDuration(raw)
	if err != nil || value <= 0 {
		*errs = append(*errs, fmt.Errorf("%s must be a positive duration, got %q", key, raw))
		return fallback
	}
	return value
}

func parseLevel(raw string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(raw)); err != nil {
		return slog.LevelInfo, fmt.Errorf("LOG_LEVEL: %w", err)
	}
	return level, nil
}
