// Package store provides the container.Store backends: a durable SQLite
// store for normal operation and an in-memory store for ephemeral runs and
// tests.
package store

import (
	"context"
	"fmt"

	"steward/internal/config"
	"steward/internal/container"
)

// Supported backends.
const (
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// Config holds record store configuration.
type Config struct {
	Backend string // "sqlite" (default) or "memory"
	Path    string // database file path for the sqlite backend
}

// LoadConfigFromEnv loads store configuration from environment variables.
func LoadConfigFromEnv() Config {
	return Config{
		Backend: config.GetEnv("STORE_BACKEND", BackendSQLite),
		Path:    config.GetEnv("DATABASE_PATH", "steward.db"),
	}
}

// NewStore creates the record store backend selected by the config. The
// sqlite backend opens its database and applies pending migrations before
// returning.
func NewStore(ctx context.Context, cfg Config) (container.Store, error) {
	switch cfg.Backend {
	case BackendSQLite, "":
		return NewSQLite(ctx, cfg.Path)
	case BackendMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unsupported store backend %q", cfg.Backend)
	}
}
