package telemetry

import (
	"fmt"
	"log/slog"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// InstrumentResty opens a client span around every request made by client and
// logs request outcomes at debug level.
func InstrumentResty(client *resty.Client, logger *slog.Logger) {
	tracer := otel.Tracer(TracerName)

	client.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		ctx, _ := tracer.Start(req.Context(), fmt.Sprintf("http %s", req.Method),
			trace.WithSpanKind(trace.SpanKindClient),
		)
		req.SetContext(ctx)
		return nil
	})

	client.OnAfterResponse(func(_ *resty.Client, res *resty.Response) error {
		ctx := res.Request.Context()
		span := trace.SpanFromContext(ctx)
		defer span.End()

		span.SetAttributes(
			attribute.String("http.request.method", res.Request.Method),
			attribute.String("url.full", res.Request.URL),
			attribute.Int("http.response.status_code", res.StatusCode()),
			attribute.Int64("http.response.body.size", res.Size()),
		)
		if res.IsError() {
			span.SetStatus(codes.Error, res.Status())
		}

		logger.DebugContext(ctx, "http request finished",
			slog.String("method", res.Request.Method),
			slog.String("url", res.Request.URL),
			slog.Int("status", res.StatusCode()),
			slog.Duration("elapsed", res.Time()),
		)
		return nil
	})

	client.OnError(func(req *resty.Request, err error) {
		span := trace.SpanFromContext(req.Context())
		defer span.End()

		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(
			attribute.String("http.request.method", req.Method),
			attribute.String("url.full", req.URL),
		)
	})
}
