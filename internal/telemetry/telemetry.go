package telemetry

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
)

// InitProvider installs a global tracer provider exporting to an OTLP gRPC
// collector. collectorURL is either a URL such as http://collector:4317 or a
// bare host:port, which is dialed without TLS. With an empty collectorURL
// nothing is exported and the returned shutdown is a no-op.
func InitProvider(ctx context.Context, serviceName, collectorURL string) (func(context.Context) error, error) {
	otel.SetTextMapPropagator(propagation.TraceContext{})

	if collectorURL == "" {
		log.Println("INFO: OTEL_EXPORTER_OTLP_ENDPOINT not set; tracing export disabled")
		return func(context.Context) error { return nil }, nil
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	traceExporter, err := otlptracegrpc.New(ctx, exporterOptions(collectorURL)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}

	bsp := sdktrace.NewBatchSpanProcessor(traceExporter)
	traceProvider := sdktrace.NewTracerProvider(
		sdktrace.WithSpanProcessor(bsp),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)
	otel.SetTracerProvider(traceProvider)

	return traceProvider.Shutdown, nil
}

// exporterOptions points the exporter at the collector. A URL's scheme decides
// whether TLS is used.
func exporterOptions(collectorURL string) []otlptracegrpc.Option {
	if strings.Contains(collectorURL, "://") {
		return []otlptracegrpc.Option{otlptracegrpc.WithEndpointURL(collectorURL)}
	}
	return []otlptracegrpc.Option{
		otlptracegrpc.WithEndpoint(collectorURL),
		otlptracegrpc.WithInsecure(),
	}
}
