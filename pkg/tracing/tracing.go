package tracing

import (
	"context"
	"log/slog"
	"time"

	"transittrack/pkg/otel"

	otelapi "go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/trace"
)

// Init installs the global tracer provider when OTEL_TRACING_ENABLED is set.
func Init() (func(), error) {
	if !otel.IsTracingEnabled() {
		slog.Debug("OpenTelemetry tracing is disabled")
		return func() {}, nil
	}

	cfg := otel.GetExporterConfig(otel.SignalTraces)
	exporter, err := otel.NewTraceExporter(context.Background(), cfg)
	if err != nil {
		slog.Warn("Failed to create OTLP trace exporter, using noop", "error", err)
		return func() {}, nil
	}

	res, err := otel.NewResource()
	if err != nil {
		return nil, err
	}

	tp := trace.NewTracerProvider(
		trace.WithBatcher(exporter),
		trace.WithResource(res),
	)
	otelapi.SetTracerProvider(tp)
	otelapi.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{},
	))

	slog.Debug("OpenTelemetry tracing initialized", "endpoint", cfg.Endpoint, "protocol", cfg.Protocol)

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			slog.Error("Error shutting down tracer provider", "error", err)
		}
	}, nil
}
