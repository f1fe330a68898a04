package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultPort                = "8080"
	defaultDatabaseURL         = "hotel.db"
	defaultJWTSecret           = "change-me-jwt-secret"
	defaultJWTTTL              = "24h"
	defaultWebhookSecret       = "whsec_dev_secret"
	defaultPaymentTimeout      = "10s"
	defaultPaymentMaxAttempts  = "3"
	defaultPaymentRetryBackoff = "200ms"
	defaultPendingTTL          = "15m"
	defaultReaperInterval      = "1m"
	defaultReaperBatchSize     = "100"
	defaultMaxNights           = "365"
	defaultWebhookDedupTTL     = "5m"
	defaultRateLimitCapacity   = "10"
	defaultRateLimitInterval   = "1m"
)

type Config struct {
	AppEnv      string
	Port        string
	DatabaseURL string

	JWTSecret string
	JWTTTL    time.Duration

	// An empty StripeSecretKey selects the in-process sandbox gateway.
	StripeSecretKey     string
	StripeWebhookSecret string
	PaymentTimeout      time.Duration
	PaymentMaxAttempts  int
	PaymentRetryBackoff time.Duration

	PendingTTL      time.Duration
	ReaperInterval  time.Duration
	ReaperBatchSize int
	MaxNights       int

	RabbitMQURL string

	Redis           RedisConfig
	WebhookDedupTTL time.Duration
	RateLimit       RateLimitConfig
}

type RateLimitConfig struct {
	Enabled  bool
	Capacity int
	Interval time.Duration
}

// Load reads .env when present, then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{}
	appEnv := strings.TrimSpace(os.Getenv("APP_ENV"))
	if appEnv == "" {
		appEnv = strings.TrimSpace(os.Getenv("ENV"))
	}
	if appEnv == "" {
		appEnv = "dev"
	}
	cfg.AppEnv = strings.ToLower(appEnv)

	cfg.Port = strings.TrimSpace(getEnv("PORT", defaultPort))
	cfg.DatabaseURL = strings.TrimSpace(getEnv("DATABASE_URL", defaultDatabaseURL))
	cfg.JWTSecret = strings.TrimSpace(getEnv("JWT_SECRET", defaultJWTSecret))
	cfg.StripeSecretKey = strings.TrimSpace(os.Getenv("STRIPE_SECRET_KEY"))
	cfg.StripeWebhookSecret = strings.TrimSpace(getEnv("STRIPE_WEBHOOK_SECRET", defaultWebhookSecret))
	cfg.RabbitMQURL = strings.TrimSpace(getEnv("RABBITMQ_URL", os.Getenv("AMQP_URL")))
	cfg.Redis = loadRedisConfig()

	var err error
	if cfg.JWTTTL, err = parseDurationEnv("JWT_TTL", defaultJWTTTL); err != nil {
		return nil, err
	}
	if cfg.PaymentTimeout, err = parseDurationEnv("PAYMENT_TIMEOUT", defaultPaymentTimeout); err != nil {
		return nil, err
	}
	if cfg.PaymentMaxAttempts, err = parseIntEnv("PAYMENT_MAX_ATTEMPTS", defaultPaymentMaxAttempts); err != nil {
		return nil, err
	}
	if cfg.PaymentRetryBackoff, err = parseDurationEnv("PAYMENT_RETRY_BACKOFF", defaultPaymentRetryBackoff); err != nil {
		return nil, err
	}
	if cfg.PendingTTL, err = parseDurationEnv("BOOKING_PENDING_TTL", defaultPendingTTL); err != nil {
		return nil, err
	}
	if cfg.ReaperInterval, err = parseDurationEnv("BOOKING_REAPER_INTERVAL", defaultReaperInterval); err != nil {
		return nil, err
	}
	if cfg.ReaperBatchSize, err = parseIntEnv("BOOKING_REAPER_BATCH_SIZE", defaultReaperBatchSize); err != nil {
		return nil, err
	}
	if cfg.MaxNights, err = parseIntEnv("BOOKING_MAX_NIGHTS", defaultMaxNights); err != nil {
		return nil, err
	}
	if cfg.WebhookDedupTTL, err = parseDurationEnv("WEBHOOK_DEDUP_TTL", defaultWebhookDedupTTL); err != nil {
		return nil, err
	}

	cfg.RateLimit.Enabled = parseBoolEnv("RATE_LIMIT_ENABLED", "true")
	if cfg.RateLimit.Capacity, err = parseIntEnv("RATE_LIMIT_CAPACITY", defaultRateLimitCapacity); err != nil {
		return nil, err
	}
	if cfg.RateLimit.Interval, err = parseDurationEnv("RATE_LIMIT_INTERVAL", defaultRateLimitInterval); err != nil {
		return nil, err
	}

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	log.Printf("config: env=%s stripe=%t rabbitmq=%t redis=%t pending_ttl=%s",
		cfg.AppEnv, cfg.StripeSecretKey != "", cfg.RabbitMQURL != "", cfg.Redis.Addr != "", cfg.PendingTTL)

	return cfg, nil
}

// IsProduction reports whether the process runs with production settings.
func (c *Config) IsProduction() bool {
	return isProdLike(c.AppEnv)
}

func validateConfig(cfg *Config) error {
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL must not be empty")
	}
	if cfg.JWTTTL <= 0 {
		return fmt.Errorf("JWT_TTL must be > 0")
	}
	if cfg.PaymentTimeout <= 0 {
		return fmt.Errorf("PAYMENT_TIMEOUT must be > 0")
	}
	if cfg.PaymentMaxAttempts < 1 {
		return fmt.Errorf("PAYMENT_MAX_ATTEMPTS must be >= 1")
	}
	if cfg.PaymentRetryBackoff < 0 {
		return fmt.Errorf("PAYMENT_RETRY_BACKOFF must be >= 0")
	}
	if cfg.PendingTTL <= 0 {
		return fmt.Errorf("BOOKING_PENDING_TTL must be > 0")
	}
	if cfg.ReaperInterval <= 0 {
		return fmt.Errorf("BOOKING_REAPER_INTERVAL must be > 0")
	}
	if cfg.ReaperBatchSize < 1 {
		return fmt.Errorf("BOOKING_REAPER_BATCH_SIZE must be >= 1")
	}
	if cfg.MaxNights < 1 {
		return fmt.Errorf("BOOKING_MAX_NIGHTS must be >= 1")
	}
	if cfg.RateLimit.Enabled && (cfg.RateLimit.Capacity < 1 || cfg.RateLimit.Interval <= 0) {
		return fmt.Errorf("RATE_LIMIT_CAPACITY and RATE_LIMIT_INTERVAL must be positive")
	}

	if isProdLike(cfg.AppEnv) {
		if isEmptyOrDefault(cfg.JWTSecret, defaultJWTSecret) {
			return fmt.Errorf("in prod/release JWT_SECRET must be set and not default")
		}
		if cfg.StripeSecretKey == "" {
			return fmt.Errorf("in prod/release STRIPE_SECRET_KEY must be set")
		}
		if isEmptyOrDefault(cfg.StripeWebhookSecret, defaultWebhookSecret) {
			return fmt.Errorf("in prod/release STRIPE_WEBHOOK_SECRET must be set and not default")
		}
	}

	return nil
}

func isProdLike(env string) bool {
	env = strings.ToLower(strings.TrimSpace(env))
	return env == "prod" || env == "production" || env == "release"
}

func isEmptyOrDefault(v, def string) bool {
	trimmed := strings.TrimSpace(v)
	return trimmed == "" || trimmed == def
}

func parseDurationEnv(name, fallback string) (time.Duration, error) {
	value := strings.TrimSpace(getEnv(name, fallback))
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", name, value, err)
	}
	return d, nil
}

func parseIntEnv(name, fallback string) (int, error) {
	value := strings.TrimSpace(getEnv(name, fallback))
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", name, value, err)
	}
	return n, nil
}

func parseBoolEnv(name, fallback string) bool {
	value := strings.ToLower(strings.TrimSpace(getEnv(name, fallback)))
	return value == "1" || value == "true" || value == "yes" || value == "on"
}

func getEnv(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}
