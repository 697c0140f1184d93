package metrics

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Simulation metrics
var (
	// FleetCyclesTotal counts jitter cycles by fleet ("livemap" or "feed").
	FleetCyclesTotal metric.Int64Counter

	TripsStartedTotal metric.Int64Counter
	TripsEndedTotal   metric.Int64Counter

	// TripsActive tracks trips currently running.
	TripsActive metric.Int64UpDownCounter

	// TripDuration records the length of ended trips.
	TripDuration metric.Float64Histogram
)

// Session metrics
var (
	// SessionsActive tracks open websocket sessions by kind.
	SessionsActive metric.Int64UpDownCounter

	// NotificationsTotal counts user notifications by severity.
	NotificationsTotal metric.Int64Counter

	// MapLoadsTotal counts map widget loads by outcome.
	MapLoadsTotal metric.Int64Counter
)

func initializeInstruments() error {
	var err error

	if FleetCyclesTotal, err = Meter.Int64Counter("transittrack.fleet.cycles",
		metric.WithDescription("Simulated fleet jitter cycles"),
		metric.WithUnit("{cycle}")); err != nil {
		return err
	}
	if TripsStartedTotal, err = Meter.Int64Counter("transittrack.trips.started",
		metric.WithDescription("Driver trips started"),
		metric.WithUnit("{trip}")); err != nil {
		return err
	}
	if TripsEndedTotal, err = Meter.Int64Counter("transittrack.trips.ended",
		metric.WithDescription("Driver trips ended"),
		metric.WithUnit("{trip}")); err != nil {
		return err
	}
	if TripsActive, err = Meter.Int64UpDownCounter("transittrack.trips.active",
		metric.WithDescription("Driver trips in progress"),
		metric.WithUnit("{trip}")); err != nil {
		return err
	}
	if TripDuration, err = Meter.Float64Histogram("transittrack.trips.duration",
		metric.WithDescription("Duration of ended trips"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(60, 300, 900, 1800, 3600, 7200)); err != nil {
		return err
	}
	if SessionsActive, err = Meter.Int64UpDownCounter("transittrack.sessions.active",
		metric.WithDescription("Open websocket sessions"),
		metric.WithUnit("{session}")); err != nil {
		return err
	}
	if NotificationsTotal, err = Meter.Int64Counter("transittrack.notifications",
		metric.WithDescription("Notifications shown to users"),
		metric.WithUnit("{notification}")); err != nil {
		return err
	}
	if MapLoadsTotal, err = Meter.Int64Counter("transittrack.map.loads",
		metric.WithDescription("Map widget loads"),
		metric.WithUnit("{load}")); err != nil {
		return err
	}
	return nil
}

// The helpers below are no-ops until Init has succeeded.

func RecordFleetCycle(ctx context.Context, fleet string) {
	if !IsEnabled() {
		return
	}
	FleetCyclesTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("fleet", fleet)))
}

func RecordTripStarted(ctx context.Context, route string) {
	if !IsEnabled() {
		return
	}
	attrs := metric.WithAttributes(attribute.String("route", route))
	TripsStartedTotal.Add(ctx, 1, attrs)
	TripsActive.Add(ctx, 1)
}

func RecordTripEnded(ctx context.Context, route string, seconds int) {
	if !IsEnabled() {
		return
	}
	attrs := metric.WithAttributes(attribute.String("route", route))
	TripsEndedTotal.Add(ctx, 1, attrs)
	TripsActive.Add(ctx, -1)
	TripDuration.Record(ctx, float64(seconds), attrs)
}

func RecordSession(ctx context.Context, kind string, delta int64) {
	if !IsEnabled() {
		return
	}
	SessionsActive.Add(ctx, delta, metric.WithAttributes(attribute.String("kind", kind)))
}

func RecordNotification(ctx context.Context, severity string) {
	if !IsEnabled() {
		return
	}
	NotificationsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("severity", severity)))
}

func RecordMapLoad(ctx context.Context, ok bool) {
	if !IsEnabled() {
		return
	}
	status := "success"
	if !ok {
		status = "failure"
	}
	MapLoadsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
}
