package registry

import (
	"go.opentelemetry.io/otel/trace"

	"github.com/stacklok/ontology-registry/internal/ontology"
	"github.com/stacklok/ontology-registry/internal/telemetry"
)

// Option configures a Registry.
type Option func(*Registry)

// WithHandleFactory sets the factory used to construct handles.
// The default produces *ontology.Manipulator values.
func WithHandleFactory(factory ontology.HandleFactory) Option {
	return func(r *Registry) {
		if factory != nil {
			r.factory = factory
		}
	}
}

// WithTracer sets the tracer for registry spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(r *Registry) {
		r.tracer = tracer
	}
}

// WithMetrics sets the registry metrics.
func WithMetrics(metrics *telemetry.RegistryMetrics) Option {
	return func(r *Registry) {
		r.metrics = metrics
	}
}
