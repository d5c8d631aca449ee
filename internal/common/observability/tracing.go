package observability

import (
	"context"
	"log"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/jaeger"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	oteltrace "go.opentelemetry.io/otel/trace"
)

// initTracer wires span export to a Jaeger collector. When no endpoint is
// configured the tracer stays nil and StartSpan degrades to a no-op span.
func (o *Observability) initTracer(serviceName, jaegerEndpoint string) {
	if jaegerEndpoint == "" {
		return
	}

	exporter, err := jaeger.New(jaeger.WithCollectorEndpoint(jaeger.WithEndpoint(jaegerEndpoint)))
	if err != nil {
		log.Printf("Failed to create Jaeger exporter: %v", err)
		return
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(resource.NewSchemaless(
			attribute.String("service.name", serviceName),
		)),
	)
	otel.SetTracerProvider(provider)

	o.tracerProvider = provider
	o.tracer = provider.Tracer(serviceName)
}

// StartSpan opens a child span on ctx. Callers must End the returned span.
func (o *Observability) StartSpan(ctx context.Context, name string) (context.Context, oteltrace.Span) {
	if o.tracer == nil {
		return ctx, oteltrace.SpanFromContext(ctx)
	}
	return o.tracer.Start(ctx, name)
}
