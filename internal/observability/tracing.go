package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// serviceNamespace groups the HTTP and MCP servers under one name in the
// trace backend.
const serviceNamespace = "adcreatives"

// TracingOptions configures the OTLP trace exporter.
type TracingOptions struct {
	ServiceName    string
	ServiceVersion string
	Environment    string  // "production" when empty
	Endpoint       string  // OTLP gRPC collector address
	SampleRate     float64 // fraction of new root traces kept
}

// InitTracing installs a global tracer provider exporting to opts.Endpoint.
// The returned function flushes pending spans and must be called on exit.
func InitTracing(ctx context.Context, logger *zap.Logger, opts TracingOptions) (func(context.Context) error, error) {
	exporter, err := otlptrace.New(ctx,
		otlptracegrpc.NewClient(
			otlptracegrpc.WithEndpoint(opts.Endpoint),
			otlptracegrpc.WithInsecure(),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("create trace exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(traceResource(opts)),
		sdktrace.WithSampler(sampler(opts.SampleRate)),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	logger.Info("Tracing initialized",
		zap.String("service", opts.ServiceName),
		zap.String("endpoint", opts.Endpoint),
		zap.Float64("sample_rate", opts.SampleRate),
	)
	return tp.Shutdown, nil
}

func traceResource(opts TracingOptions) *resource.Resource {
	env := opts.Environment
	if env == "" {
		env = "production"
	}
	version := opts.ServiceVersion
	if version == "" {
		version = "dev"
	}
	// empty schema URL so the SDK can merge in its environment resource
	return resource.NewWithAttributes(
		"",
		semconv.ServiceName(opts.ServiceName),
		semconv.ServiceNamespace(serviceNamespace),
		semconv.ServiceVersion(version),
		semconv.DeploymentEnvironment(env),
	)
}

// sampler honours the caller's sampling decision for propagated traces and
// applies rate to traces that start here.
func sampler(rate float64) sdktrace.Sampler {
	var root sdktrace.Sampler
	switch {
	case rate >= 1:
		root = sdktrace.AlwaysSample()
	case rate <= 0:
		root = sdktrace.NeverSample()
	default:
		root = sdktrace.TraceIDRatioBased(rate)
	}
	return sdktrace.ParentBased(root)
}

// Tracer returns the tracer for one component of the service.
func Tracer(component string) trace.Tracer {
	return otel.Tracer(serviceNamespace + "/" + component)
}
