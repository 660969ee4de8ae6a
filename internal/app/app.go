// Package app wires configuration into the search services shared by the
// HTTP server and the command line client.
package app

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/comparador/backend/config"
	"github.com/comparador/backend/internal/domain"
	"github.com/comparador/backend/internal/infrastructure/angeloni"
	"github.com/comparador/backend/internal/infrastructure/cache"
	"github.com/comparador/backend/internal/infrastructure/minhacooper"
	"github.com/comparador/backend/internal/infrastructure/telemetry"
	"github.com/comparador/backend/internal/usecase"
)

// Services holds the long-lived search dependencies
type Services struct {
	Cache      *cache.MemoryCache
	Aggregator *usecase.Aggregator
}

// NewLogger builds the service logger from configuration
func NewLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	return telemetry.NewLogger(w, cfg.Log.Level, cfg.Log.Format, cfg.Telemetry.ServiceName, cfg.Server.Environment)
}

// NewServices creates the cache, the market providers and the aggregator.
// No browser is started until the first Minhacooper search.
func NewServices(cfg *config.Config, logger *slog.Logger, metrics *telemetry.Metrics) (*Services, error) {
	memoryCache := cache.NewMemoryCache()

	angeloniProvider := angeloni.NewProvider(angeloni.Config{
		BaseURL:           cfg.Angeloni.BaseURL,
		GraphQLPath:       cfg.Angeloni.GraphQLPath,
		BindingID:         cfg.Angeloni.BindingID,
		SHA256Hash:        cfg.Angeloni.SHA256Hash,
		PageSize:          cfg.Angeloni.PageSize,
		Timeout:           cfg.Angeloni.Timeout,
		UserAgent:         cfg.Angeloni.UserAgent,
		RequestsPerMinute: cfg.RateLimit.Angeloni,
	}, logger.With(slog.String("market", angeloni.MarketName)))

	cooperProvider, err := minhacooper.NewProvider(minhacooper.Config{
		BaseURL:           cfg.Minhacooper.BaseURL,
		StoreID:           cfg.Minhacooper.StoreID,
		Headless:          cfg.Minhacooper.Headless,
		ExecPath:          cfg.Minhacooper.ExecPath,
		UserAgent:         cfg.Minhacooper.UserAgent,
		NavigationTimeout: cfg.Minhacooper.NavigationTimeout,
		SettleDelay:       cfg.Minhacooper.SettleDelay,
		ScrollDelay:       cfg.Minhacooper.ScrollDelay,
	}, logger.With(slog.String("market", minhacooper.MarketName)))
	if err != nil {
		return nil, fmt.Errorf("failed to create minhacooper provider: %w", err)
	}

	aggregator, err := usecase.NewAggregator(
		memoryCache,
		[]domain.MarketProvider{angeloniProvider, cooperProvider},
		usecase.AggregatorConfig{
			CacheTTL: cfg.Cache.TTL,
			Logger:   logger,
			Metrics:  metrics,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create aggregator: %w", err)
	}

	return &Services{
		Cache:      memoryCache,
		Aggregator: aggregator,
	}, nil
}

// Close releases provider resources such as the browser process
func (s *Services) Close() error {
	return s.Aggregator.Close()
}
