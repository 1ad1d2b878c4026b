package telemetry

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// NewTracerProvider builds an SDK-backed TracerProvider tagged with
// serviceName and installs it as the global provider, so every
// StartLinkSpan/StartOrderSpan call and every otelhttp-instrumented
// client in this process exports through it. It carries no exporter
// by default — a deployment attaches one by passing
// sdktrace.WithBatcher in opts, or registers a span processor on the
// returned provider. Callers own its lifetime and must call Shutdown
// before exit to flush pending spans.
func NewTracerProvider(serviceName string, opts ...sdktrace.TracerProviderOption) *sdktrace.TracerProvider {
	res := resource.NewSchemaless(attribute.String("service.name", serviceName))
	allOpts := append([]sdktrace.TracerProviderOption{sdktrace.WithResource(res)}, opts...)
	tp := sdktrace.NewTracerProvider(allOpts...)
	otel.SetTracerProvider(tp)
	return tp
}
