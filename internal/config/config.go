// Package config loads client configuration from environment variables.
package config

import (
	"os"
	"strconv"
	"time"
)

// ClientConfig holds configuration for the job control client.
type ClientConfig struct {
	// Address of the cluster RPC endpoint (host:port).
	Address string
	// RPCTimeout is the per-call deadline applied to every RPC.
	RPCTimeout time.Duration
	// MaxWaitAttempts bounds every goal-state polling loop.
	MaxWaitAttempts int
	// WaitInterval is the sleep between polling attempts.
	WaitInterval time.Duration
	// ConflictBackoff paces re-fetch-and-retry after a version conflict.
	// Zero means retry immediately.
	ConflictBackoff time.Duration
	// MetricsAddr, when set, exposes a Prometheus scrape endpoint.
	MetricsAddr string
}

// LoadClientConfig loads client configuration from environment variables.
func LoadClientConfig() ClientConfig {
	return ClientConfig{
		Address:         GetEnv("JOBCTL_ADDRESS", "localhost:5292"),
		RPCTimeout:      GetDurationEnv("JOBCTL_RPC_TIMEOUT", 10*time.Second),
		MaxWaitAttempts: GetIntEnv("JOBCTL_MAX_WAIT_ATTEMPTS", 60),
		WaitInterval:    GetDurationEnv("JOBCTL_WAIT_INTERVAL", 1*time.Second),
		ConflictBackoff: GetDurationEnv("JOBCTL_CONFLICT_BACKOFF", 100*time.Millisecond),
		MetricsAddr:     GetEnv("JOBCTL_METRICS_ADDR", ""),
	}
}

// GetEnv returns the environment variable value or a default.
func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// GetIntEnv returns an integer environment variable or a default.
func GetIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// GetDurationEnv returns a duration environment variable or a default.
func GetDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
