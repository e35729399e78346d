// Package config provides configuration loading from environment variables.
package config

import (
	"time"
)

// ServiceConfig holds configuration for the steward service process.
type ServiceConfig struct {
	Host              string
	Port              string
	MetricsPort       string
	APIKey            string
	LogLevel          string        // debug, info, warn, error
	LogFormat         string        // json or text
	ShutdownDrainWait time.Duration // Time to wait for load balancer to drain (0 to skip)
}

// LoadServiceConfig loads service configuration from environment variables.
// The API key may be supplied directly (API_KEY) or via a secret file
// (API_KEY_FILE); the file takes precedence when both are set.
func LoadServiceConfig() *ServiceConfig {
	apiKey := GetSecretFile(GetEnv("API_KEY_FILE", ""))
	if apiKey == "" {
		apiKey = GetEnv("API_KEY", "")
	}

	return &ServiceConfig{
		Host:              GetEnv("SERVER_HOST", "0.0.0.0"),
		Port:              GetEnv("SERVER_PORT", "8080"),
		MetricsPort:       GetEnv("METRICS_PORT", "9090"),
		APIKey:            apiKey,
		LogLevel:          GetEnv("LOG_LEVEL", "info"),
		LogFormat:         GetEnv("LOG_FORMAT", "json"),
		ShutdownDrainWait: GetDurationEnv("SHUTDOWN_DRAIN_WAIT", 5*time.Second),
	}
}
