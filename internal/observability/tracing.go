// Package observability sets up OpenTelemetry tracing for a pipeline run.
package observability

import (
	"context"

	"github.com/rotisserie/eris"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"
)

// TracerName is the instrumentation scope of every meridian span.
const TracerName = "meridian"

// Config selects the trace exporter.
type Config struct {
	ServiceName  string
	Environment  string
	OTLPEndpoint string // empty disables export
	OTLPInsecure bool
}

// Tracing holds the tracer and its shutdown hook.
type Tracing struct {
	Tracer   trace.Tracer
	Shutdown func(ctx context.Context) error
}

// Init builds the global tracer provider. Without an OTLP endpoint a no-op
// provider is installed.
func Init(ctx context.Context, cfg Config) (Tracing, error) {
	if cfg.OTLPEndpoint == "" {
		tp := nooptrace.NewTracerProvider()
		otel.SetTracerProvider(tp)
		return Tracing{
			Tracer:   tp.Tracer(TracerName),
			Shutdown: func(context.Context) error { return nil },
		}, nil
	}

	res, err := resource.New(ctx, resource.WithAttributes(
		semconv.ServiceName(cfg.ServiceName),
		semconv.DeploymentEnvironment(cfg.Environment),
	))
	if err != nil {
		return Tracing{}, eris.Wrap(err, "build otel resource")
	}

	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint)}
	if cfg.OTLPInsecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}

	exporter, err := otlptracegrpc.New(ctx, opts...)
	if err != nil {
		return Tracing{}, eris.Wrap(err, "create trace exporter")
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return Tracing{Tracer: tp.Tracer(TracerName), Shutdown: tp.Shutdown}, nil
}

// Tracer returns the meridian tracer from the global provider.
func Tracer() trace.Tracer {
	return otel.Tracer(TracerName)
}
