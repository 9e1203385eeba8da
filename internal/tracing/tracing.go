// Package tracing sets up the OTLP/HTTP trace exporter the MCP server and
// hook forwarder use to wrap tool calls and hook-forward requests, mirroring
// the ambient observability layer the teacher wires into its own stack.
package tracing

import (
	"context"
	"fmt"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

const TracerName = "orchestra"

// Setup configures the global tracer provider with an OTLP/HTTP exporter,
// reading the endpoint from OTEL_EXPORTER_OTLP_ENDPOINT (default
// http://localhost:4318). Tracing is opt-in: a missing/unreachable
// collector never blocks startup, since exporter errors surface only on
// export, not on construction.
func Setup(ctx context.Context, serviceName string) (func(context.Context) error, error) {
	endpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	if endpoint == "" {
		endpoint = "localhost:4318"
	}

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(endpoint),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("creating OTLP trace exporter: %w", err)
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(semconv.SchemaURL, semconv.ServiceName(serviceName)),
	)
	if err != nil {
		return nil, fmt.Errorf("building trace resource: %w", err)
	}

	processor := sdktrace.NewBatchSpanProcessor(exporter)
	provider := sdktrace.NewTracerProvider(
		sdktrace.WithSpanProcessor(processor),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(provider)

	return provider.Shutdown, nil
}

// Tracer returns the package-wide tracer, resolved lazily against whatever
// provider Setup registered (or the no-op default if Setup was never
// called, e.g. in tests).
func Tracer() trace.Tracer {
	return otel.Tracer(TracerName)
}

// StartSpan is a thin convenience wrapper so callers don't each import
// both otel and the trace package just to start a span under Tracer().
func StartSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return Tracer().Start(ctx, name)
}
