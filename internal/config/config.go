package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Host               string
	Port               string
	RequestTimeout     time.Duration
	SlideFetchTimeout  time.Duration
	GradingTimeout     time.Duration
	MaxRequestBodySize int64

	// StorageBackend selects the slide fetcher: "http" or "azure".
	StorageBackend string
	// Azure shared-key credentials, required when StorageBackend is "azure".
	AzureAccountName string
	AzureAccountKey  string

	// MaxSlideDimension caps the longer edge of a fetched slide; larger
	// slides are downscaled before grading to bound memory and runtime.
	MaxSlideDimension int
}

func (c *Config) ServerAddress() string {
	// Trim any whitespace from host and port
	host := strings.TrimSpace(c.Host)
	port := strings.TrimSpace(c.Port)
	return net.JoinHostPort(host, port)
}

func LoadFromEnv() (*Config, error) {
	// Set defaults
	cfg := &Config{
		Host:               getEnvOrDefault("HOST", "0.0.0.0"),
		Port:               getEnvOrDefault("PORT", "8080"),
		RequestTimeout:     parseDurationOrDefault("REQUEST_TIMEOUT", 30*time.Second),
		SlideFetchTimeout:  parseDurationOrDefault("SLIDE_FETCH_TIMEOUT", 15*time.Second),
		GradingTimeout:     parseDurationOrDefault("GRADING_TIMEOUT", 20*time.Second),
		MaxRequestBodySize: parseIntOrDefault("MAX_REQUEST_BODY_SIZE", 10*1024*1024), // 10MB
		StorageBackend:     getEnvOrDefault("STORAGE_BACKEND", "http"),
		AzureAccountName:   os.Getenv("AZURE_ACCOUNT_NAME"),
		AzureAccountKey:    os.Getenv("AZURE_ACCOUNT_KEY"),
		MaxSlideDimension:  int(parseIntOrDefault("MAX_SLIDE_DIMENSION", 4096)),
	}

	// Validate port is numeric and in range
	p, err := strconv.Atoi(strings.TrimSpace(cfg.Port))
	if err != nil || p < 1 || p > 65535 {
		return nil, fmt.Errorf("invalid PORT: %q", cfg.Port)
	}
	if cfg.MaxRequestBodySize <= 0 {
		return nil, fmt.Errorf("MAX_REQUEST_BODY_SIZE must be > 0 (got %d)", cfg.MaxRequestBodySize)
	}
	if cfg.RequestTimeout <= 0 || cfg.SlideFetchTimeout <= 0 || cfg.GradingTimeout <= 0 {
		return nil, fmt.Errorf("timeouts must be > 0 (got request=%s, fetch=%s, grading=%s)",
			cfg.RequestTimeout, cfg.SlideFetchTimeout, cfg.GradingTimeout)
	}
	switch cfg.StorageBackend {
	case "http", "azure":
	default:
		return nil, fmt.Errorf("invalid STORAGE_BACKEND: %q (want http or azure)", cfg.StorageBackend)
	}
	if cfg.StorageBackend == "azure" && (cfg.AzureAccountName == "" || cfg.AzureAccountKey == "") {
		return nil, fmt.Errorf("AZURE_ACCOUNT_NAME and AZURE_ACCOUNT_KEY are required when STORAGE_BACKEND=azure")
	}
	if cfg.MaxSlideDimension < 64 {
		return nil, fmt.Errorf("MAX_SLIDE_DIMENSION must be >= 64 (got %d)", cfg.MaxSlideDimension)
	}
	return cfg, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(strings.TrimSpace(value)); err == nil && duration > 0 {
			return duration
		}
	}
	return defaultValue
}

func parseIntOrDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}
