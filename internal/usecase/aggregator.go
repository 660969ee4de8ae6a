package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/comparador/backend/internal/domain"
	"github.com/comparador/backend/internal/infrastructure/telemetry"
)

var multipleSpacesRegex = regexp.MustCompile(`\s+`)

// DefaultCacheTTL is how long a search result is reused
const DefaultCacheTTL = 30 * time.Minute

// AggregatorConfig holds configuration for the aggregator
type AggregatorConfig struct {
	CacheTTL time.Duration
	Logger   *slog.Logger
	Metrics  *telemetry.Metrics
}

// Aggregator fans a search term out to every registered market and caches
// the combined result.
type Aggregator struct {
	cache     domain.ProductCache
	providers []domain.MarketProvider
	byName    map[string]domain.MarketProvider
	cacheTTL  time.Duration
	logger    *slog.Logger
	metrics   *telemetry.Metrics
	tracer    trace.Tracer
}

// NewAggregator registers providers in the given order. Market names must be
// unique ignoring case.
func NewAggregator(
	cache domain.ProductCache,
	providers []domain.MarketProvider,
	config AggregatorConfig,
) (*Aggregator, error) {
	byName := make(map[string]domain.MarketProvider, len(providers))
	for _, p := range providers {
		name := strings.ToLower(strings.TrimSpace(p.Name()))
		if name == "" {
			return nil, fmt.Errorf("%w: empty market name", domain.ErrInvalidRequest)
		}
		if _, exists := byName[name]; exists {
			return nil, fmt.Errorf("%w: %s", domain.ErrDuplicateMarket, p.Name())
		}
		byName[name] = p
	}

	cacheTTL := config.CacheTTL
	if cacheTTL == 0 {
		cacheTTL = DefaultCacheTTL
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Aggregator{
		cache:     cache,
		providers: append([]domain.MarketProvider(nil), providers...),
		byName:    byName,
		cacheTTL:  cacheTTL,
		logger:    logger,
		metrics:   config.Metrics,
		tracer:    otel.Tracer(telemetry.TracerName),
	}, nil
}

// SearchAll returns the offers of every market for term, in registration
// order. A cached result is served while it is younger than the cache TTL.
func (a *Aggregator) SearchAll(ctx context.Context, term string) []domain.Product {
	ctx, span := a.tracer.Start(ctx, "Aggregator.SearchAll",
		trace.WithAttributes(attribute.String("search.term", term)),
	)
	defer span.End()

	key := allMarketsKey(term)
	if cached, ok := a.lookup(ctx, key); ok {
		span.SetAttributes(attribute.Bool("cache.hit", true), attribute.Int("search.products", len(cached)))
		return cached
	}

	// providers run to completion even if the caller goes away, so the
	// result can still be cached
	searchCtx := context.WithoutCancel(ctx)

	results := make([][]domain.Product, len(a.providers))
	var g errgroup.Group
	for i, p := range a.providers {
		g.Go(func() error {
			results[i] = a.search(searchCtx, p, term)
			return nil
		})
	}
	_ = g.Wait()

	total := 0
	for _, r := range results {
		total += len(r)
	}
	products := make([]domain.Product, 0, total)
	for _, r := range results {
		products = append(products, r...)
	}

	a.store(ctx, key, products)
	span.SetAttributes(attribute.Bool("cache.hit", false), attribute.Int("search.products", len(products)))
	a.logger.InfoContext(ctx, "Search finished",
		slog.String("term", term),
		slog.Int("markets", len(a.providers)),
		slog.Int("products", len(products)),
	)
	return products
}

// SearchByMarket always queries the named market. An unknown market yields
// an empty result without calling any provider.
func (a *Aggregator) SearchByMarket(ctx context.Context, term, market string) []domain.Product {
	ctx, span := a.tracer.Start(ctx, "Aggregator.SearchByMarket",
		trace.WithAttributes(
			attribute.String("search.term", term),
			attribute.String("market", market),
		),
	)
	defer span.End()

	p, ok := a.byName[strings.ToLower(strings.TrimSpace(market))]
	if !ok {
		a.logger.InfoContext(ctx, "Unknown market requested", slog.String("market", market))
		return []domain.Product{}
	}

	products := a.search(context.WithoutCancel(ctx), p, term)
	a.store(ctx, marketKey(p.Name(), term), products)
	span.SetAttributes(attribute.Int("search.products", len(products)))
	return products
}

// ListMarkets returns the registered market names in registration order
func (a *Aggregator) ListMarkets() []string {
	names := make([]string, len(a.providers))
	for i, p := range a.providers {
		names[i] = p.Name()
	}
	return names
}

// Close releases providers that hold resources, such as a browser
func (a *Aggregator) Close() error {
	var errs []error
	for _, p := range a.providers {
		closer, ok := p.(io.Closer)
		if !ok {
			continue
		}
		if err := closer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", p.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// search calls one provider. A panicking provider is contained like any
// other provider failure.
func (a *Aggregator) search(ctx context.Context, p domain.MarketProvider, term string) (products []domain.Product) {
	market := p.Name()
	ctx, span := a.tracer.Start(ctx, "MarketProvider.Search",
		trace.WithAttributes(attribute.String("market", market)),
	)
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			a.logger.ErrorContext(ctx, "Provider panicked",
				slog.String("market", market),
				slog.String("term", term),
				slog.Any("panic", r),
			)
			span.SetStatus(codes.Error, fmt.Sprint(r))
			products = nil
		}
		if products == nil {
			products = []domain.Product{}
		}

		a.metrics.ObserveProviderSearch(market, len(products), time.Since(start))
		span.SetAttributes(attribute.Int("search.products", len(products)))
		span.End()
	}()

	return p.Search(ctx, term)
}

func (a *Aggregator) lookup(ctx context.Context, key string) ([]domain.Product, bool) {
	cached, err := a.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, domain.ErrCacheMiss) {
			a.logger.WarnContext(ctx, "Cache read failed", slog.String("key", key), slog.String("error", err.Error()))
		}
		a.metrics.ObserveCacheLookup(telemetry.CacheMiss)
		return nil, false
	}

	a.metrics.ObserveCacheLookup(telemetry.CacheHit)
	return cached, true
}

func (a *Aggregator) store(ctx context.Context, key string, products []domain.Product) {
	if err := a.cache.Set(ctx, key, products, a.cacheTTL); err != nil {
		a.logger.WarnContext(ctx, "Cache write failed", slog.String("key", key), slog.String("error", err.Error()))
	}
}

func normalizeTerm(term string) string {
	term = strings.ToLower(strings.TrimSpace(term))
	return multipleSpacesRegex.ReplaceAllString(term, " ")
}

func allMarketsKey(term string) string {
	return "search:all:" + normalizeTerm(term)
}

func marketKey(market, term string) string {
	return "search:" + strings.ToLower(market) + ":" + normalizeTerm(term)
}
