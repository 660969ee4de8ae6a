package angeloni

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"

	"github.com/comparador/backend/internal/domain"
	"github.com/comparador/backend/internal/infrastructure/telemetry"
)

// Config holds the Angeloni storefront settings
type Config struct {
	BaseURL           string
	GraphQLPath       string
	BindingID         string
	SHA256Hash        string
	PageSize          int
	Timeout           time.Duration
	UserAgent         string
	RequestsPerMinute int
}

// Client talks to the Angeloni VTEX GraphQL gateway
type Client struct {
	http        *resty.Client
	cfg         Config
	rateLimiter *rate.Limiter
}

// NewClient creates a new Angeloni API client
func NewClient(cfg Config, logger *slog.Logger) *Client {
	rpm := cfg.RequestsPerMinute
	if rpm <= 0 {
		rpm = 60
	}
	// burst of 5 so a handful of concurrent searches are not serialized
	limiter := rate.NewLimiter(rate.Limit(float64(rpm)/60), 5)

	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetHeader("User-Agent", cfg.UserAgent).
		SetHeader("Accept", "application/json")
	telemetry.InstrumentResty(client, logger)

	return &Client{
		http:        client,
		cfg:         cfg,
		rateLimiter: limiter,
	}
}

// SearchProducts runs the persisted product search and returns the raw response body.
// It makes exactly one attempt.
func (c *Client) SearchProducts(ctx context.Context, term string) ([]byte, error) {
	params, err := buildSearchParams(term, c.cfg)
	if err != nil {
		return nil, err
	}

	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter error: %w", err)
	}

	res, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(params).
		Get(c.cfg.GraphQLPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrSourceFailure, err)
	}

	if res.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", domain.ErrSourceFailure, res.StatusCode())
	}

	return res.Body(), nil
}
