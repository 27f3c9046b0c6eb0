// Package observability wires the optional OpenTelemetry trace pipeline.
//
// Traces are exported over OTLP HTTP to whatever endpoint is configured,
// typically a local collector or agent. An empty endpoint disables the
// pipeline entirely; callers get a no-op shutdown function and the global
// tracer provider stays untouched.
package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/koopa0/parley/internal/config"
	"github.com/koopa0/parley/internal/log"
)

// Setup registers a global tracer provider exporting to the configured
// OTLP endpoint. Returns a shutdown function that flushes pending spans.
func Setup(ctx context.Context, cfg config.TracingConfig, logger log.Logger) (func(context.Context) error, error) {
	if cfg.Endpoint == "" {
		return func(context.Context) error { return nil }, nil
	}
	if logger == nil {
		logger = log.NewNop()
	}

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "parley"
	}

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(cfg.Endpoint),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		// Tracing is best-effort; a missing collector must not stop the
		// server from starting.
		logger.Warn("trace exporter unavailable, tracing disabled", "endpoint", cfg.Endpoint, "error", err)
		return func(context.Context) error { return nil }, nil
	}

	attrs := []attribute.KeyValue{semconv.ServiceName(serviceName)}
	if cfg.Environment != "" {
		attrs = append(attrs, semconv.DeploymentEnvironment(cfg.Environment))
	}

	res, err := resource.Merge(resource.Default(), resource.NewWithAttributes(semconv.SchemaURL, attrs...))
	if err != nil {
		return nil, err
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(provider)

	logger.Debug("tracing enabled", "endpoint", cfg.Endpoint, "service", serviceName)
	return provider.Shutdown, nil
}
