package telemetry

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// TracerName is the instrumentation scope used by every span in the service
const TracerName = "github.com/comparador/backend"

// Tracing owns the tracer provider installed as the global otel provider
type Tracing struct {
	provider *sdktrace.TracerProvider
	logger   *slog.Logger
}

// SetupTracing installs a global tracer provider. Spans are exported over OTLP/gRPC
// when endpoint is set; otherwise they are recorded but never exported.
func SetupTracing(ctx context.Context, serviceName, environment, endpoint string, logger *slog.Logger) (*Tracing, error) {
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.DeploymentEnvironment(environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	opts := []sdktrace.TracerProviderOption{sdktrace.WithResource(res)}
	if endpoint != "" {
		exporter, err := otlptracegrpc.New(ctx,
			otlptracegrpc.WithEndpoint(endpoint),
			otlptracegrpc.WithInsecure(),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create trace exporter: %w", err)
		}
		opts = append(opts, sdktrace.WithBatcher(exporter))
		logger.Info("Trace export enabled", slog.String("endpoint", endpoint))
	} else {
		logger.Info("Trace export disabled (no OTLP endpoint configured)")
	}

	tp := sdktrace.NewTracerProvider(opts...)
	otel.SetTracerProvider(tp)

	return &Tracing{provider: tp, logger: logger}, nil
}

// Shutdown flushes pending spans
func (t *Tracing) Shutdown(ctx context.Context) error {
	if err := t.provider.Shutdown(ctx); err != nil {
		t.logger.Error("Failed to shutdown tracer provider", slog.String("error", err.Error()))
		return err
	}
	return nil
}
