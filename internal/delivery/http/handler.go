package http

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/gin-gonic/gin"

	"github.com/comparador/backend/internal/domain"
)

const (
	serviceName   = "comparador-backend"
	version       = "1.0.0"
	maxTermLength = 100
)

// ProductSearcher is the search surface the handlers need
type ProductSearcher interface {
	SearchAll(ctx context.Context, term string) []domain.Product
	SearchByMarket(ctx context.Context, term, market string) []domain.Product
	ListMarkets() []string
}

// CacheStats exposes the number of live cache entries
type CacheStats interface {
	Size() int
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	searcher ProductSearcher
	cache    CacheStats
}

// NewHandler creates a new HTTP handler. cache may be nil.
func NewHandler(searcher ProductSearcher, cache CacheStats) *Handler {
	return &Handler{
		searcher: searcher,
		cache:    cache,
	}
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	resp := HealthResponse{
		Status:  "healthy",
		Service: serviceName,
		Version: version,
		Markets: []string{},
	}
	if h.searcher != nil {
		resp.Markets = h.searcher.ListMarkets()
	}
	if h.cache != nil {
		resp.CacheEntries = h.cache.Size()
	}
	c.JSON(http.StatusOK, resp)
}

// ListMarkets returns the names of the registered markets
func (h *Handler) ListMarkets(c *gin.Context) {
	if !h.ready(c) {
		return
	}
	c.JSON(http.StatusOK, h.searcher.ListMarkets())
}

// SearchProducts searches every market for the term in the path
func (h *Handler) SearchProducts(c *gin.Context) {
	if !h.ready(c) {
		return
	}

	term, err := parseTerm(c.Param("term"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	products := h.searcher.SearchAll(c.Request.Context(), term)
	c.JSON(http.StatusOK, ToProductResponses(products))
}

// SearchMarketProducts searches a single market. An unknown market yields an
// empty list.
func (h *Handler) SearchMarketProducts(c *gin.Context) {
	if !h.ready(c) {
		return
	}

	term, err := parseTerm(c.Param("term"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	market := strings.TrimSpace(c.Param("market"))
	if market == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "market is required"})
		return
	}

	products := h.searcher.SearchByMarket(c.Request.Context(), term, market)
	c.JSON(http.StatusOK, ToProductResponses(products))
}

func (h *Handler) ready(c *gin.Context) bool {
	if h.searcher == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "search service not configured"})
		return false
	}
	return true
}

func parseTerm(raw string) (string, error) {
	term := strings.TrimSpace(raw)
	if term == "" {
		return "", fmt.Errorf("%w: search term is required", domain.ErrInvalidRequest)
	}
	if utf8.RuneCountInString(term) > maxTermLength {
		return "", fmt.Errorf("%w: search term longer than %d characters", domain.ErrInvalidRequest, maxTermLength)
	}
	return term, nil
}
