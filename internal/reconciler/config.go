package reconciler

import (
	"time"

	"steward/internal/config"
)

// Config holds reconciler configuration.
type Config struct {
	TickInterval  time.Duration // Fixed period between reconcile passes
	OpTimeout     time.Duration // Deadline applied to each runtime driver call (0 disables)
	RemoveRetries int           // Extra remove attempts during Removing teardown
}

// LoadConfigFromEnv loads reconciler configuration from environment variables.
func LoadConfigFromEnv() Config {
	return Config{
		TickInterval:  config.GetDurationEnv("TICK_INTERVAL", 10*time.Second),
		OpTimeout:     config.GetDurationEnv("RECONCILE_OP_TIMEOUT", 30*time.Second),
		RemoveRetries: config.GetIntEnv("RECONCILE_REMOVE_RETRIES", 2),
	}
}
