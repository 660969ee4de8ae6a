package http

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"

	"github.com/comparador/backend/config"
	"github.com/comparador/backend/internal/domain"
	"github.com/comparador/backend/internal/infrastructure/telemetry"
)

// TestMain sets up test environment before running tests
func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

// fakeSearcher records calls and answers from a fixed catalogue
type fakeSearcher struct {
	mu         sync.Mutex
	products   []domain.Product
	markets    []string
	allTerms   []string
	marketArgs [][2]string
	lastCtx    context.Context
}

func (f *fakeSearcher) SearchAll(ctx context.Context, term string) []domain.Product {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.allTerms = append(f.allTerms, term)
	f.lastCtx = ctx
	return f.products
}

func (f *fakeSearcher) SearchByMarket(ctx context.Context, term, market string) []domain.Product {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.marketArgs = append(f.marketArgs, [2]string{term, market})
	f.lastCtx = ctx
	var out []domain.Product
	for _, p := range f.products {
		if strings.EqualFold(p.Market, market) {
			out = append(out, p)
		}
	}
	return out
}

func (f *fakeSearcher) ListMarkets() []string {
	return f.markets
}

type fakeCacheStats int

func (f fakeCacheStats) Size() int { return int(f) }

func testProducts() []domain.Product {
	arroz, _ := domain.NewProduct("Arroz Tio João 5kg", decimal.RequireFromString("27.9"), "Angeloni",
		"https://www.angeloni.com.br/super/arroz/p", "https://img.example/arroz.jpg")
	feijao, _ := domain.NewProduct("Feijão Camil 1kg", decimal.RequireFromString("8"), "Minhacooper", "", "")
	return []domain.Product{arroz.WithOriginalPrice(decimal.RequireFromString("31.5")), feijao}
}

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Port:           "8080",
			Environment:    "test",
			AllowedOrigins: []string{"http://localhost:3000", "https://*.comparador.app"},
		},
		Cache:     config.CacheConfig{Type: "memory"},
		RateLimit: config.RateLimitConfig{PerIP: 1000},
	}
}

// setupTestRouter creates a test router backed by a fake searcher
func setupTestRouter(searcher *fakeSearcher) *gin.Engine {
	var handler *Handler
	if searcher == nil {
		handler = NewHandler(nil, nil)
	} else {
		handler = NewHandler(searcher, fakeCacheStats(3))
	}

	reg := prometheus.NewRegistry()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return SetupRouter(testConfig(), handler, telemetry.NewMetrics(reg), reg, logger)
}

func newSearcher() *fakeSearcher {
	return &fakeSearcher{
		products: testProducts(),
		markets:  []string{"Angeloni", "Minhacooper"},
	}
}

func doRequest(router http.Handler, method, path string, headers map[string]string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest(method, path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// TestHealthCheckEndpoint tests the health check endpoint
func TestHealthCheckEndpoint(t *testing.T) {
	t.Run("returns healthy status", func(t *testing.T) {
		w := doRequest(setupTestRouter(newSearcher()), "GET", "/health", nil)

		if w.Code != http.StatusOK {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusOK)
		}

		var response HealthResponse
		if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
			t.Fatalf("Failed to unmarshal response: %v", err)
		}

		if response.Status != "healthy" {
			t.Errorf("status = %v, want healthy", response.Status)
		}
		if response.Service != "comparador-backend" {
			t.Errorf("service = %v, want comparador-backend", response.Service)
		}
		if strings.TrimSpace(response.Version) == "" {
			t.Errorf("version = %q, want non-empty string", response.Version)
		}
		if response.CacheEntries != 3 {
			t.Errorf("cache_entries = %d, want 3", response.CacheEntries)
		}
		if len(response.Markets) != 2 {
			t.Errorf("markets = %v, want 2 entries", response.Markets)
		}
	})

	t.Run("accepts GET requests only", func(t *testing.T) {
		router := setupTestRouter(newSearcher())

		for _, method := range []string{"POST", "PUT", "DELETE", "PATCH"} {
			w := doRequest(router, method, "/health", nil)
			if w.Code != http.StatusNotFound {
				t.Errorf("Method %s: Status = %d, want %d", method, w.Code, http.StatusNotFound)
			}
		}
	})
}

// TestSearchProductsEndpoint tests the all-markets search
func TestSearchProductsEndpoint(t *testing.T) {
	t.Run("returns products of every market", func(t *testing.T) {
		searcher := newSearcher()
		w := doRequest(setupTestRouter(searcher), "GET", "/api/v1/products/arroz%20integral", nil)

		if w.Code != http.StatusOK {
			t.Fatalf("Status = %d, want %d", w.Code, http.StatusOK)
		}

		var response []map[string]interface{}
		if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
			t.Fatalf("Failed to unmarshal response: %v", err)
		}
		if len(response) != 2 {
			t.Fatalf("len(response) = %d, want 2", len(response))
		}
		if len(searcher.allTerms) != 1 || searcher.allTerms[0] != "arroz integral" {
			t.Errorf("SearchAll terms = %v, want [arroz integral]", searcher.allTerms)
		}
	})

	t.Run("renders prices with two decimals", func(t *testing.T) {
		w := doRequest(setupTestRouter(newSearcher()), "GET", "/api/v1/products/arroz", nil)

		body := w.Body.String()
		for _, want := range []string{
			`"name":"Arroz Tio João 5kg"`,
			`"price":27.90`,
			`"originalPrice":31.50`,
			`"market":"Angeloni"`,
			`"price":8.00`,
			`"originalPrice":null`,
			`"url":""`,
		} {
			if !strings.Contains(body, want) {
				t.Errorf("body = %s, want to contain %s", body, want)
			}
		}
	})

	t.Run("returns an empty array when nothing is found", func(t *testing.T) {
		searcher := newSearcher()
		searcher.products = nil
		w := doRequest(setupTestRouter(searcher), "GET", "/api/v1/products/xyzzy", nil)

		if w.Code != http.StatusOK {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusOK)
		}
		if strings.TrimSpace(w.Body.String()) != "[]" {
			t.Errorf("body = %s, want []", w.Body.String())
		}
	})

	t.Run("rejects blank and oversized terms", func(t *testing.T) {
		router := setupTestRouter(newSearcher())

		for _, path := range []string{
			"/api/v1/products/%20%20",
			"/api/v1/products/" + strings.Repeat("a", 101),
		} {
			w := doRequest(router, "GET", path, nil)
			if w.Code != http.StatusBadRequest {
				t.Errorf("%s: Status = %d, want %d", path, w.Code, http.StatusBadRequest)
			}

			var response ErrorResponse
			if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
				t.Fatalf("Failed to unmarshal response: %v", err)
			}
			if response.Error == "" {
				t.Error("error field is empty")
			}
		}
	})

	t.Run("carries the request id into the search context", func(t *testing.T) {
		searcher := newSearcher()
		w := doRequest(setupTestRouter(searcher), "GET", "/api/v1/products/arroz",
			map[string]string{"X-Request-ID": "req-123"})

		if got := w.Header().Get("X-Request-ID"); got != "req-123" {
			t.Errorf("X-Request-ID = %q, want req-123", got)
		}
		if got := telemetry.RequestIDFromContext(searcher.lastCtx); got != "req-123" {
			t.Errorf("request id in context = %q, want req-123", got)
		}
	})
}

// TestSearchMarketProductsEndpoint tests the single-market search
func TestSearchMarketProductsEndpoint(t *testing.T) {
	t.Run("passes market and term through", func(t *testing.T) {
		searcher := newSearcher()
		w := doRequest(setupTestRouter(searcher), "GET", "/api/v1/markets/minhacooper/products/feij%C3%A3o", nil)

		if w.Code != http.StatusOK {
			t.Fatalf("Status = %d, want %d", w.Code, http.StatusOK)
		}
		if len(searcher.marketArgs) != 1 || searcher.marketArgs[0] != [2]string{"feijão", "minhacooper"} {
			t.Errorf("SearchByMarket args = %v, want [[feijão minhacooper]]", searcher.marketArgs)
		}

		var response []ProductResponse
		if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
			t.Fatalf("Failed to unmarshal response: %v", err)
		}
		if len(response) != 1 || response[0].Market != "Minhacooper" {
			t.Errorf("response = %+v, want one Minhacooper product", response)
		}
	})

	t.Run("unknown market is an empty list", func(t *testing.T) {
		w := doRequest(setupTestRouter(newSearcher()), "GET", "/api/v1/markets/giassi/products/arroz", nil)

		if w.Code != http.StatusOK {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusOK)
		}
		if strings.TrimSpace(w.Body.String()) != "[]" {
			t.Errorf("body = %s, want []", w.Body.String())
		}
	})
}

// TestListMarketsEndpoint tests the market listing
func TestListMarketsEndpoint(t *testing.T) {
	w := doRequest(setupTestRouter(newSearcher()), "GET", "/api/v1/markets", nil)

	if w.Code != http.StatusOK {
		t.Fatalf("Status = %d, want %d", w.Code, http.StatusOK)
	}

	var markets []string
	if err := json.Unmarshal(w.Body.Bytes(), &markets); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}
	if len(markets) != 2 || markets[0] != "Angeloni" || markets[1] != "Minhacooper" {
		t.Errorf("markets = %v, want [Angeloni Minhacooper]", markets)
	}
}

// TestServiceNotConfigured tests the handler without a searcher
func TestServiceNotConfigured(t *testing.T) {
	router := setupTestRouter(nil)

	for _, path := range []string{"/api/v1/markets", "/api/v1/products/arroz", "/api/v1/markets/angeloni/products/arroz"} {
		w := doRequest(router, "GET", path, nil)
		if w.Code != http.StatusServiceUnavailable {
			t.Errorf("%s: Status = %d, want %d", path, w.Code, http.StatusServiceUnavailable)
		}
	}

	if w := doRequest(router, "GET", "/health", nil); w.Code != http.StatusOK {
		t.Errorf("health Status = %d, want %d", w.Code, http.StatusOK)
	}
}

// TestCORSIntegration tests CORS on real routes
func TestCORSIntegration(t *testing.T) {
	t.Run("search endpoint has CORS for localhost", func(t *testing.T) {
		w := doRequest(setupTestRouter(newSearcher()), "GET", "/api/v1/products/arroz",
			map[string]string{"Origin": "http://localhost:3000"})

		if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
			t.Errorf("Access-Control-Allow-Origin = %q, want %q", got, "http://localhost:3000")
		}
		if got := w.Header().Get("Access-Control-Allow-Credentials"); got != "true" {
			t.Errorf("Access-Control-Allow-Credentials = %q, want %q", got, "true")
		}
	})

	t.Run("preflight is answered without searching", func(t *testing.T) {
		searcher := newSearcher()
		w := doRequest(setupTestRouter(searcher), "OPTIONS", "/api/v1/products/arroz",
			map[string]string{"Origin": "https://web.comparador.app", "Access-Control-Request-Method": "GET"})

		if w.Code != http.StatusNoContent {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusNoContent)
		}
		if len(searcher.allTerms) != 0 {
			t.Errorf("SearchAll called %d times on preflight", len(searcher.allTerms))
		}
	})
}

// TestRecoveryMiddleware tests panic recovery
func TestRecoveryMiddleware(t *testing.T) {
	router := setupTestRouter(newSearcher())
	router.GET("/panic", func(c *gin.Context) {
		panic("test panic")
	})

	w := doRequest(router, "GET", "/panic", nil)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("Status = %d, want %d", w.Code, http.StatusInternalServerError)
	}
}

// TestAPIVersioning tests that API v1 routes are correctly versioned
func TestAPIVersioning(t *testing.T) {
	router := setupTestRouter(newSearcher())

	if w := doRequest(router, "GET", "/api/v1/markets", nil); w.Code != http.StatusOK {
		t.Errorf("v1 Status = %d, want %d", w.Code, http.StatusOK)
	}
	if w := doRequest(router, "GET", "/api/products/arroz", nil); w.Code != http.StatusNotFound {
		t.Errorf("non-versioned Status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

// TestMetricsEndpoint tests that request metrics are exported
func TestMetricsEndpoint(t *testing.T) {
	router := setupTestRouter(newSearcher())
	doRequest(router, "GET", "/api/v1/markets", nil)

	w := doRequest(router, "GET", "/metrics", nil)

	if w.Code != http.StatusOK {
		t.Fatalf("Status = %d, want %d", w.Code, http.StatusOK)
	}
	if !strings.Contains(w.Body.String(), `comparador_http_request_duration_seconds_count{method="GET",route="/api/v1/markets",status="200"} 1`) {
		t.Errorf("metrics output missing request histogram:\n%s", w.Body.String())
	}
}

// TestJSONResponses tests that all responses are valid JSON
func TestJSONResponses(t *testing.T) {
	for _, path := range []string{"/health", "/api/v1/markets", "/api/v1/products/arroz", "/api/v1/products/%20"} {
		t.Run(path, func(t *testing.T) {
			w := doRequest(setupTestRouter(newSearcher()), "GET", path, nil)

			if got := w.Header().Get("Content-Type"); got != "application/json; charset=utf-8" {
				t.Errorf("Content-Type = %q, want application/json; charset=utf-8", got)
			}
			if !json.Valid(w.Body.Bytes()) {
				t.Errorf("body is not valid JSON: %s", w.Body.String())
			}
		})
	}
}
