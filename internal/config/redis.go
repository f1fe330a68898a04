package config

import (
	"context"
	"crypto/tls"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig is optional: an empty Addr leaves webhook claims and rate
// limiting disabled.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TLS      bool
}

// REDIS_HOST and REDIS_PORT win over REDIS_ADDR when both are set.
func loadRedisConfig() RedisConfig {
	addr := strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	host := strings.TrimSpace(os.Getenv("REDIS_HOST"))
	port := strings.TrimSpace(os.Getenv("REDIS_PORT"))
	if host != "" && port != "" {
		addr = host + ":" + port
	}

	cfg := RedisConfig{
		Addr:     addr,
		Password: os.Getenv("REDIS_PASSWORD"),
		TLS:      parseBoolEnv("REDIS_TLS", "false"),
	}
	if n, err := strconv.Atoi(strings.TrimSpace(os.Getenv("REDIS_DB"))); err == nil {
		cfg.DB = n
	}
	return cfg
}

// NewRedisClient returns nil when Redis is not configured or does not answer
// a ping; callers degrade to running without it.
func NewRedisClient(cfg RedisConfig) *redis.Client {
	if cfg.Addr == "" {
		return nil
	}

	var tlsConf *tls.Config
	if cfg.TLS {
		tlsConf = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(&redis.Options{
		Addr:      cfg.Addr,
		Password:  cfg.Password,
		DB:        cfg.DB,
		TLSConfig: tlsConf,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil
	}
	return client
}
