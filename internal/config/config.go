package config

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"time"

	"github.com/efreitasn/pottycalc/internal/domain"
)

// Store backends.
const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
)

// Config holds all runtime configuration for the pricing service.
type Config struct {
	Port            int
	LogLevel        string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	StoreBackend string
	RedisAddr    string

	RateLimitRPS   float64
	RateLimitBurst int
	MaxBodyBytes   int64

	Limits domain.Limits
}

// Load reads configuration from environment variables, applies defaults,
// and validates values. It returns an error for any invalid value.
func Load() (*Config, error) {
	port, err := getInt("PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("invalid PORT: %w", err)
	}
	if port < 1 || port > 65535 {
		return nil, fmt.Errorf("invalid PORT: %d, must be between 1 and 65535", port)
	}

	logLevel := getStr("LOG_LEVEL", "info")
	if !isValidLogLevel(logLevel) {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %q, must be one of: debug, info, warn, error", logLevel)
	}

	readTimeout, err := getDuration("READ_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid READ_TIMEOUT: %w", err)
	}

	writeTimeout, err := getDuration("WRITE_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid WRITE_TIMEOUT: %w", err)
	}

	idleTimeout, err := getDuration("IDLE_TIMEOUT", 60*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid IDLE_TIMEOUT: %w", err)
	}

	shutdownTimeout, err := getDuration("SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid SHUTDOWN_TIMEOUT: %w", err)
	}

	backend := getStr("STORE_BACKEND", StoreMemory)
	if backend != StoreMemory && backend != StoreRedis {
		return nil, fmt.Errorf("invalid STORE_BACKEND: %q, must be one of: memory, redis", backend)
	}
	redisAddr := getStr("REDIS_ADDR", "localhost:6379")

	rps, err := getFloat("RATE_LIMIT_RPS", 20)
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_RPS: %w", err)
	}
	if rps < 0 || math.IsNaN(rps) || math.IsInf(rps, 0) {
		return nil, fmt.Errorf("invalid RATE_LIMIT_RPS: %v, must be >= 0 (0 disables)", rps)
	}

	burst, err := getInt("RATE_LIMIT_BURST", 40)
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_BURST: %w", err)
	}
	if burst < 1 {
		return nil, fmt.Errorf("invalid RATE_LIMIT_BURST: %d, must be >= 1", burst)
	}

	maxBody, err := getInt64("MAX_BODY_BYTES", 1<<20)
	if err != nil {
		return nil, fmt.Errorf("invalid MAX_BODY_BYTES: %w", err)
	}
	if maxBody < 1 {
		return nil, fmt.Errorf("invalid MAX_BODY_BYTES: %d, must be >= 1", maxBody)
	}

	limits := domain.DefaultLimits()
	if limits.MaxQuantity, err = getInt64("MAX_QUANTITY", limits.MaxQuantity); err != nil {
		return nil, fmt.Errorf("invalid MAX_QUANTITY: %w", err)
	}
	if limits.MaxRate, err = getInt64("MAX_RATE", limits.MaxRate); err != nil {
		return nil, fmt.Errorf("invalid MAX_RATE: %w", err)
	}
	if err := limits.Validate(); err != nil {
		return nil, fmt.Errorf("invalid limits: %w", err)
	}

	return &Config{
		Port:            port,
		LogLevel:        logLevel,
		ReadTimeout:     readTimeout,
		WriteTimeout:    writeTimeout,
		IdleTimeout:     idleTimeout,
		ShutdownTimeout: shutdownTimeout,
		StoreBackend:    backend,
		RedisAddr:       redisAddr,
		RateLimitRPS:    rps,
		RateLimitBurst:  burst,
		MaxBodyBytes:    maxBody,
		Limits:          limits,
	}, nil
}

func getStr(key, defaultVal string) string {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	return v
}

func getInt(key string, defaultVal int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	return strconv.Atoi(v)
}

func getInt64(key string, defaultVal int64) (int64, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	return strconv.ParseInt(v, 10, 64)
}

func getFloat(key string, defaultVal float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	return strconv.ParseFloat(v, 64)
}

func getDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	return time.ParseDuration(v)
}

func isValidLogLevel(level string) bool {
	switch level {
	case "debug", "info", "warn", "error":
		return true
	}
	return false
}
