package angeloni

import (
	"context"
	"log/slog"
	"time"

	"github.com/comparador/backend/internal/domain"
)

// MarketName is the display name of the Angeloni supermarket
const MarketName = "Angeloni"

// Provider is the Angeloni market provider
type Provider struct {
	client   *Client
	storeURL string
	timeout  time.Duration
	logger   *slog.Logger
}

// NewProvider creates the Angeloni provider
func NewProvider(cfg Config, logger *slog.Logger) *Provider {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	cfg.Timeout = timeout

	return &Provider{
		client:   NewClient(cfg, logger),
		storeURL: cfg.BaseURL,
		timeout:  timeout,
		logger:   logger,
	}
}

func (p *Provider) Name() string { return MarketName }

// Search queries the storefront once. Failures are logged and yield an empty result.
func (p *Provider) Search(ctx context.Context, term string) []domain.Product {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	body, err := p.client.SearchProducts(ctx, term)
	if err != nil {
		p.logger.ErrorContext(ctx, "Angeloni search failed",
			slog.String("term", term),
			slog.String("error", err.Error()),
		)
		return []domain.Product{}
	}

	products, err := MapSearchResponse(ctx, body, p.storeURL, p.logger)
	if err != nil {
		p.logger.ErrorContext(ctx, "Angeloni response could not be parsed",
			slog.String("term", term),
			slog.String("error", err.Error()),
		)
		return []domain.Product{}
	}

	p.logger.InfoContext(ctx, "Angeloni search finished",
		slog.String("term", term),
		slog.Int("products", len(products)),
	)
	return products
}
