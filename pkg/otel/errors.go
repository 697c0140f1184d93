package otel

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Error types recorded on spans.
const (
	ErrorTypeNetwork    = "network"
	ErrorTypeHTTP       = "http"
	ErrorTypeValidation = "validation"
	ErrorTypeState      = "state"
	ErrorTypeEncoding   = "encoding"
)

// RecordError records err on the span and marks it failed.
func RecordError(span trace.Span, err error, errorType string, transient bool) {
	span.RecordError(err, trace.WithAttributes(
		attribute.String("error.type", errorType),
		attribute.Bool("error.transient", transient),
	))
	span.SetStatus(codes.Error, err.Error())
}

func SetSpanOk(span trace.Span) {
	span.SetStatus(codes.Ok, "")
}
