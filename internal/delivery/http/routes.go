package http

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/comparador/backend/config"
	"github.com/comparador/backend/internal/infrastructure/telemetry"
)

// SetupRouter creates and configures the Gin router
func SetupRouter(
	cfg *config.Config,
	handler *Handler,
	metrics *telemetry.Metrics,
	gatherer prometheus.Gatherer,
	logger *slog.Logger,
) *gin.Engine {
	// Set Gin mode based on environment
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Global middleware
	router.Use(RecoveryMiddleware())
	router.Use(RequestIDMiddleware())
	router.Use(LoggerMiddleware(logger))
	router.Use(MetricsMiddleware(metrics))
	router.Use(CORSMiddleware(cfg.Server.AllowedOrigins))

	// Operational endpoints
	router.GET("/health", handler.HealthCheck)
	if gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	// API v1 routes
	v1 := router.Group("/api/v1")
	v1.Use(RateLimitMiddleware(cfg.RateLimit.PerIP))
	{
		v1.GET("/products/:term", handler.SearchProducts)

		markets := v1.Group("/markets")
		{
			markets.GET("", handler.ListMarkets)
			markets.GET("/:market/products/:term", handler.SearchMarketProducts)
		}
	}

	return router
}

// Instrument wraps the router so every request gets a server span
func Instrument(router http.Handler) http.Handler {
	return otelhttp.NewHandler(router, "http-server",
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return fmt.Sprintf("%s %s", r.Method, r.URL.Path)
		}),
	)
}
