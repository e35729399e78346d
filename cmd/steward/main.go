// steward is the container lifecycle service: an HTTP API over a persistent
// record store, plus a reconciliation loop that converges records with the
// container runtime.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"steward/internal/api"
	"steward/internal/config"
	"steward/internal/container"
	"steward/internal/health"
	"steward/internal/observability"
	"steward/internal/reconciler"
	"steward/internal/runtime/docker"
	"steward/internal/store"
)

func main() {
	svcCfg := config.LoadServiceConfig()
	slog.SetDefault(newLogger(svcCfg.LogLevel, svcCfg.LogFormat))

	if err := run(svcCfg); err != nil {
		slog.Error("Service failed", "error", err)
		os.Exit(1)
	}
}

// newLogger builds the process logger. JSON output is the default; text is
// for local development.
func newLogger(level, format string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: lvl}
	if strings.ToLower(format) == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}

func run(svcCfg *config.ServiceConfig) error {
	ctx := context.Background()

	// Load configuration
	storeCfg := store.LoadConfigFromEnv()
	driverCfg := docker.LoadConfigFromEnv()
	reconCfg := reconciler.LoadConfigFromEnv()

	// Setup metrics
	metrics, metricsHandler, err := observability.NewMetrics(ctx)
	if err != nil {
		return err
	}

	// Open the record store (runs migrations on the sqlite backend)
	recordStore, err := store.NewStore(ctx, storeCfg)
	if err != nil {
		return err
	}
	defer recordStore.Close()

	slog.Info("Record store ready", "backend", storeCfg.Backend)

	// Connect to the container runtime
	driver, err := docker.NewDriver(ctx, driverCfg)
	if err != nil {
		return err
	}
	defer driver.Close()

	slog.Info("Connected to Docker daemon")

	// Create health checker
	healthChecker := health.NewChecker(recordStore, driver)

	// Create container service
	containerService := container.NewService(recordStore, metrics)

	// Create and start the reconciler
	recon := reconciler.New(recordStore, driver, reconCfg, metrics)
	reconErr := make(chan error, 1)
	go func() {
		reconErr <- recon.Start()
	}()

	// Create API router
	router := api.NewRouter(api.RouterConfig{
		ContainerService: containerService,
		Metrics:          metrics,
		HealthChecker:    healthChecker,
		APIKey:           svcCfg.APIKey,
	})

	if svcCfg.APIKey != "" {
		slog.Info("API authentication enabled")
	} else {
		slog.Warn("API authentication disabled - no API_KEY configured")
	}

	// Create API server
	apiServer := &http.Server{
		Addr:         net.JoinHostPort(svcCfg.Host, svcCfg.Port),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Create metrics server
	metricsMux := http.NewServeMux()
	metricsMux.Handle("GET /metrics", metricsHandler)
	metricsServer := &http.Server{
		Addr:         net.JoinHostPort(svcCfg.Host, svcCfg.MetricsPort),
		Handler:      metricsMux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	// Channel to capture server errors
	serverErr := make(chan error, 1)

	// Start API server
	go func() {
		slog.Info("Starting API server", "addr", apiServer.Addr)
		if err := apiServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Start metrics server
	go func() {
		slog.Info("Starting metrics server", "addr", metricsServer.Addr)
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// shutdown closes both servers gracefully
	shutdown := func(timeout time.Duration) {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		if err := apiServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("API server shutdown error", "error", err)
		}
		if err := metricsServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Metrics server shutdown error", "error", err)
		}
	}

	// Wait for interrupt signal, server error, or reconciler failure
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		slog.Info("Received shutdown signal", "signal", sig)
	case err := <-serverErr:
		slog.Error("Server failed to start", "error", err)
		recon.Shutdown()
		shutdown(5 * time.Second)
		return err
	case err := <-reconErr:
		slog.Error("Reconciler failed to start", "error", err)
		shutdown(5 * time.Second)
		return err
	}

	// Phase 1: Mark service as unhealthy for load balancer draining
	healthChecker.SetShuttingDown()

	// Wait for load balancers to stop sending traffic
	if svcCfg.ShutdownDrainWait > 0 {
		slog.Info("Waiting for traffic to drain", "duration", svcCfg.ShutdownDrainWait)
		time.Sleep(svcCfg.ShutdownDrainWait)
	}

	// Phase 2: Graceful shutdown - stop accepting new connections, finish in-flight requests
	slog.Info("Starting graceful shutdown")
	shutdown(25 * time.Second)

	// Phase 3: Stop the reconciler; an in-flight tick is allowed to finish
	slog.Info("Stopping reconciler")
	recon.Shutdown()
	select {
	case err := <-reconErr:
		if err != nil {
			slog.Warn("Reconciler exited with error", "error", err)
		}
	case <-time.After(30 * time.Second):
		slog.Warn("Timed out waiting for reconciler to stop")
	}

	// Workloads keep running in the runtime; records persist in the store.
	// The next start of the service resumes reconciliation where it left off.
	slog.Info("Workloads continue running independently")
	slog.Info("Shutdown complete")
	return nil
}
