package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	AppEnv             string
	Port               string
	LogLevel           string
	LogFormat          string
	FeedsFile          string
	PublishInterval    time.Duration
	MaxConnections     int
	ClientMessageRate  float64
	ClientMessageBurst int
}

func Load() (*Config, error) {
	cfg := &Config{
		AppEnv:    getEnv("APP_ENV", "development"),
		Port:      getEnv("PORT", "8080"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),
		FeedsFile: getEnv("FEEDS_FILE", ""),
	}

	interval, err := time.ParseDuration(getEnv("PUBLISH_INTERVAL", "1s"))
	if err != nil {
		return nil, fmt.Errorf("PUBLISH_INTERVAL must be a valid duration: %w", err)
	}
	if interval < 10*time.Millisecond {
		return nil, fmt.Errorf("PUBLISH_INTERVAL must be at least 10ms, got %s", interval)
	}
	cfg.PublishInterval = interval

	maxConns, err := strconv.Atoi(getEnv("MAX_CONNECTIONS", "1000"))
	if err != nil {
		return nil, fmt.Errorf("MAX_CONNECTIONS must be an integer: %w", err)
	}
	if maxConns < 0 {
		return nil, fmt.Errorf("MAX_CONNECTIONS must not be negative, got %d", maxConns)
	}
	cfg.MaxConnections = maxConns

	rate, err := strconv.ParseFloat(getEnv("CLIENT_MESSAGE_RATE", "20"), 64)
	if err != nil {
		return nil, fmt.Errorf("CLIENT_MESSAGE_RATE must be a number: %w", err)
	}
	if rate <= 0 {
		return nil, fmt.Errorf("CLIENT_MESSAGE_RATE must be positive, got %v", rate)
	}
	cfg.ClientMessageRate = rate

	burst, err := strconv.Atoi(getEnv("CLIENT_MESSAGE_BURST", "40"))
	if err != nil {
		return nil, fmt.Errorf("CLIENT_MESSAGE_BURST must be an integer: %w", err)
	}
	if burst < 1 {
		return nil, fmt.Errorf("CLIENT_MESSAGE_BURST must be at least 1, got %d", burst)
	}
	cfg.ClientMessageBurst = burst

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
