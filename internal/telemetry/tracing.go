// Package telemetry configures OpenTelemetry tracing for the graph explorer
// binaries.
package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"google.golang.org/grpc/credentials"

	"graphexplorer/internal/config"
)

const (
	// ServiceName is reported as service.name on every span.
	ServiceName = "graphexplorer"

	defaultBatchTimeout = 5 * time.Second
)

// Option customizes InitTracing.
type Option func(*options)

type options struct {
	exporter     sdktrace.SpanExporter
	batchTimeout time.Duration
}

// WithExporter replaces the OTLP exporter. Tests use it to capture spans.
func WithExporter(e sdktrace.SpanExporter) Option {
	return func(o *options) {
		o.exporter = e
	}
}

// WithBatchTimeout sets the maximum delay between batch exports.
func WithBatchTimeout(d time.Duration) Option {
	return func(o *options) {
		o.batchTimeout = d
	}
}

// InitTracing installs a global tracer provider.
//
// With no cfg.OTLPEndpoint and no WithExporter option, it returns a provider
// without span processors and leaves the global provider untouched, so
// otel.Tracer keeps handing out no-op tracers.
func InitTracing(ctx context.Context, cfg config.Config, version string, opts ...Option) (*sdktrace.TracerProvider, error) {
	o := &options{batchTimeout: defaultBatchTimeout}
	for _, opt := range opts {
		opt(o)
	}

	if o.exporter == nil && cfg.OTLPEndpoint == "" {
		return sdktrace.NewTracerProvider(), nil
	}

	if cfg.SampleRate < 0 || cfg.SampleRate > 1 {
		return nil, fmt.Errorf("trace sample rate must be between 0 and 1, got %v", cfg.SampleRate)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			attribute.String("service.name", ServiceName),
			attribute.String("service.version", version),
		),
		resource.WithFromEnv(),
		resource.WithTelemetrySDK(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	exporter := o.exporter
	if exporter == nil {
		exporter, err = newOTLPExporter(ctx, cfg)
		if err != nil {
			return nil, err
		}
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter, sdktrace.WithBatchTimeout(o.batchTimeout)),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SampleRate))),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{},
	))
	return tp, nil
}

func newOTLPExporter(ctx context.Context, cfg config.Config) (sdktrace.SpanExporter, error) {
	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint)}
	if cfg.OTLPInsecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	} else {
		opts = append(opts, otlptracegrpc.WithTLSCredentials(credentials.NewTLS(nil)))
	}

	exporter, err := otlptracegrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to trace exporter at %s: %w", cfg.OTLPEndpoint, err)
	}
	return exporter, nil
}
