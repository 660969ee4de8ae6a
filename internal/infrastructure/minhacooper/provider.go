package minhacooper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/comparador/backend/internal/domain"
)

// MarketName is the display name of the Minhacooper supermarket
const MarketName = "Minhacooper"

// Config holds the Minhacooper storefront and browser settings
type Config struct {
	BaseURL           string
	StoreID           string
	Headless          bool
	ExecPath          string
	UserAgent         string
	NavigationTimeout time.Duration
	SettleDelay       time.Duration
	ScrollDelay       time.Duration
}

// Page is one browser tab
type Page interface {
	Navigate(ctx context.Context, url string) (status int64, err error)
	HTML(ctx context.Context) (string, error)
	ScrollToBottom(ctx context.Context) error
	Close() error
}

// PageOpener hands out tabs of a long-lived browser
type PageOpener interface {
	NewPage(ctx context.Context) (Page, error)
	Close() error
}

// Provider is the Minhacooper market provider. The storefront renders its
// catalogue client side, so searches go through a real browser.
type Provider struct {
	cfg     Config
	site    *url.URL
	browser PageOpener
	logger  *slog.Logger
}

// NewProvider creates the provider backed by a lazily launched Chrome
func NewProvider(cfg Config, logger *slog.Logger) (*Provider, error) {
	return NewProviderWithBrowser(cfg, NewBrowser(cfg, logger), logger)
}

// NewProviderWithBrowser creates the provider on top of the given browser
func NewProviderWithBrowser(cfg Config, browser PageOpener, logger *slog.Logger) (*Provider, error) {
	site, err := url.Parse(cfg.BaseURL)
	if err != nil || site.Scheme == "" || site.Host == "" {
		return nil, fmt.Errorf("invalid minhacooper base url %q", cfg.BaseURL)
	}

	return &Provider{
		cfg:     cfg,
		site:    site,
		browser: browser,
		logger:  logger,
	}, nil
}

func (p *Provider) Name() string { return MarketName }

// Close releases the browser
func (p *Provider) Close() error {
	return p.browser.Close()
}

// Search renders the store's search page and scrapes its product cards.
// Failures are logged and yield an empty result.
func (p *Provider) Search(ctx context.Context, term string) []domain.Product {
	offers, err := p.fetchOffers(ctx, term)
	if err != nil {
		p.logger.ErrorContext(ctx, "Minhacooper search failed",
			slog.String("term", term),
			slog.String("error", err.Error()),
		)
		return []domain.Product{}
	}

	products := make([]domain.Product, 0, len(offers))
	for _, offer := range offers {
		product, err := p.toProduct(offer)
		if err != nil {
			p.logger.WarnContext(ctx, "Skipping malformed product",
				slog.String("name", offer.Name),
				slog.String("error", err.Error()),
			)
			continue
		}
		products = append(products, product)
	}

	p.logger.InfoContext(ctx, "Minhacooper search finished",
		slog.String("term", term),
		slog.Int("products", len(products)),
	)
	return products
}

func (p *Provider) fetchOffers(ctx context.Context, term string) ([]RawOffer, error) {
	pg, err := p.browser.NewPage(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrSourceFailure, err)
	}
	defer func() {
		if err := pg.Close(); err != nil {
			p.logger.WarnContext(ctx, "Failed to close tab", slog.String("error", err.Error()))
		}
	}()

	target := p.searchURL(term)
	status, err := pg.Navigate(ctx, target.String())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrSourceFailure, err)
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", domain.ErrSourceFailure, status)
	}

	if err := sleep(ctx, p.cfg.SettleDelay); err != nil {
		return nil, err
	}

	snap, err := p.snapshot(ctx, pg)
	if err != nil {
		return nil, err
	}
	if snap.noResults() {
		p.logger.InfoContext(ctx, "Minhacooper has no results", slog.String("term", term))
		return nil, nil
	}

	offers := snap.offers(target)
	if len(offers) > 0 {
		return offers, nil
	}

	// lazy-loaded grids only render cards once scrolled into view
	if err := pg.ScrollToBottom(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrSourceFailure, err)
	}
	if err := sleep(ctx, p.cfg.ScrollDelay); err != nil {
		return nil, err
	}

	snap, err = p.snapshot(ctx, pg)
	if err != nil {
		return nil, err
	}
	return snap.offers(target), nil
}

func (p *Provider) snapshot(ctx context.Context, pg Page) (*snapshot, error) {
	html, err := pg.HTML(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrSourceFailure, err)
	}
	return parseSnapshot(html)
}

func (p *Provider) toProduct(offer RawOffer) (domain.Product, error) {
	price, err := ParsePrice(offer.Price)
	if err != nil {
		return domain.Product{}, err
	}
	if price.IsZero() {
		return domain.Product{}, fmt.Errorf("%w: zero price %q", domain.ErrMalformedOffer, offer.Price)
	}
	return domain.NewProduct(offer.Name, price, MarketName, offer.URL, offer.Image)
}

func (p *Provider) searchURL(term string) *url.URL {
	u := p.site.JoinPath("loja", p.cfg.StoreID, "produto", "busca")
	u.RawQuery = url.Values{"q": []string{term}}.Encode()
	return u
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return errors.Join(domain.ErrSourceFailure, ctx.Err())
	}
}
