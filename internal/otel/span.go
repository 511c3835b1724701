// Package otel provides OpenTelemetry instrumentation utilities for the ontology registry.
package otel

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Common attribute keys used across the application.
// Using shared keys ensures consistent attribute naming in traces.
const (
	AttrOntologyName   = attribute.Key("ontology.name")
	AttrOntologySource = attribute.Key("ontology.source")
	AttrShortCircuit   = attribute.Key("registry.short_circuit")
	AttrEntryCount     = attribute.Key("registry.entries")
	AttrManageAction   = attribute.Key("manage.action")
	AttrManageParam    = attribute.Key("manage.param")
	AttrWaitTimeout    = attribute.Key("manage.wait_timeout")
)

// StartSpan starts a new span if the tracer is non-nil, otherwise returns a no-op span.
// This provides graceful degradation when tracing is disabled.
func StartSpan(
	ctx context.Context,
	tracer trace.Tracer,
	name string,
	opts ...trace.SpanStartOption,
) (context.Context, trace.Span) {
	if tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return tracer.Start(ctx, name, opts...)
}

// RecordError records an error on a span and sets the span status to error.
// It safely handles nil spans and nil errors.
// The status description is generic; the full error is kept in the span event.
func RecordError(span trace.Span, err error) {
	if err != nil && span != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "operation failed")
	}
}
