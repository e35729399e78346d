package docker

import (
	"steward/internal/config"
)

// Config holds configuration for the Docker driver.
type Config struct {
	StopTimeout int // Grace period in seconds before a stopped container is killed
}

// LoadConfigFromEnv loads driver configuration from environment variables.
func LoadConfigFromEnv() Config {
	return Config{
		StopTimeout: config.GetIntEnv("DOCKER_STOP_TIMEOUT", 10),
	}
}
