package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/comparador/backend/config"
	"github.com/comparador/backend/internal/app"
	httpDelivery "github.com/comparador/backend/internal/delivery/http"
	"github.com/comparador/backend/internal/infrastructure/telemetry"
)

const shutdownTimeout = 15 * time.Second

func main() {
	if err := run(); err != nil {
		slog.Error("Server stopped with error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := app.NewLogger(cfg, os.Stdout)
	slog.SetDefault(logger)

	logger.Info("Starting Comparador backend",
		slog.String("version", "1.0.0"),
		slog.String("environment", cfg.Server.Environment),
		slog.String("port", cfg.Server.Port),
		slog.Duration("cache_ttl", cfg.Cache.TTL),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tracing, err := telemetry.SetupTracing(ctx, cfg.Telemetry.ServiceName, cfg.Server.Environment, cfg.Telemetry.OTLPEndpoint, logger)
	if err != nil {
		return fmt.Errorf("failed to set up tracing: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := telemetry.NewMetrics(registry)

	// Initialize search services
	services, err := app.NewServices(cfg, logger, metrics)
	if err != nil {
		return err
	}
	logger.Info("Markets registered", slog.Any("markets", services.Aggregator.ListMarkets()))

	handler := httpDelivery.NewHandler(services.Aggregator, services.Cache)
	router := httpDelivery.SetupRouter(cfg, handler, metrics, registry, logger)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:           httpDelivery.Instrument(router),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("Server listening", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			shutdown(logger, services, tracing)
			return fmt.Errorf("failed to start server: %w", err)
		}
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown failed", slog.String("error", err.Error()))
	}

	shutdown(logger, services, tracing)
	logger.Info("Server stopped")
	return nil
}

// shutdown releases the browser and flushes pending spans
func shutdown(logger *slog.Logger, services *app.Services, tracing *telemetry.Tracing) {
	if err := services.Close(); err != nil {
		logger.Error("Failed to close market providers", slog.String("error", err.Error()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := tracing.Shutdown(ctx); err != nil {
		logger.Error("Failed to flush traces", slog.String("error", err.Error()))
	}
}
