package metrics

import (
	"context"
	"log/slog"
	"runtime"
	"time"

	"transittrack/pkg/otel"

	otelapi "go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

var (
	meterProvider *sdkmetric.MeterProvider

	// Meter creates the instruments. Nil until Init succeeds.
	Meter metric.Meter
)

// Init sets up the OTLP meter provider when OTEL_METRICS_ENABLED is set.
// The returned function flushes and shuts the provider down.
func Init() (func(), error) {
	if !otel.IsMetricsEnabled() {
		slog.Debug("OpenTelemetry metrics is disabled")
		return func() {}, nil
	}

	ctx := context.Background()
	cfg := otel.GetExporterConfig(otel.SignalMetrics)

	exporter, err := otel.NewMetricExporter(ctx, cfg)
	if err != nil {
		slog.Warn("Failed to create OTLP metric exporter, using noop", "error", err)
		return func() {}, nil
	}

	res, err := otel.NewResource()
	if err != nil {
		slog.Warn("Failed to create resource, using noop", "error", err)
		return func() {}, nil
	}

	meterProvider = sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(60*time.Second))),
		sdkmetric.WithResource(res),
	)
	otelapi.SetMeterProvider(meterProvider)
	Meter = meterProvider.Meter(otel.ServiceName)

	if err := initializeInstruments(); err != nil {
		slog.Error("Failed to initialize metric instruments", "error", err)
		Meter = nil
		return func() {}, nil
	}

	_, err = Meter.Int64ObservableGauge(
		"runtime.go.goroutines",
		metric.WithDescription("Number of goroutines"),
		metric.WithUnit("{goroutine}"),
		metric.WithInt64Callback(func(_ context.Context, o metric.Int64Observer) error {
			o.Observe(int64(runtime.NumGoroutine()))
			return nil
		}),
	)
	if err != nil {
		slog.Warn("Failed to register runtime metrics", "error", err)
	}

	slog.Debug("OpenTelemetry metrics initialized", "endpoint", cfg.Endpoint, "protocol", cfg.Protocol)

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := meterProvider.Shutdown(ctx); err != nil {
			slog.Error("Error shutting down meter provider", "error", err)
		}
	}, nil
}

// IsEnabled reports whether instruments are recording.
func IsEnabled() bool {
	return Meter != nil
}
