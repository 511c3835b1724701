package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	// RegistryMetricsMeterName is the name used for the registry metrics meter
	RegistryMetricsMeterName = "github.com/stacklok/ontology-registry/registry"
)

// Operation outcomes recorded by RecordOperation
const (
	// OutcomeHit means the operation was satisfied locally without a remote call
	OutcomeHit = "hit"
	// OutcomeSuccess means the remote call succeeded and local state was updated
	OutcomeSuccess = "success"
	// OutcomeFailure means the remote call failed and local state was left unchanged
	OutcomeFailure = "failure"
)

// RegistryMetrics holds the OpenTelemetry instruments for registry operations
type RegistryMetrics struct {
	operationsTotal    metric.Int64Counter
	remoteCallDuration metric.Float64Histogram
	entries            metric.Int64Gauge
}

// NewRegistryMetrics creates a new RegistryMetrics instance with the given meter provider.
// If provider is nil, it returns nil (no-op metrics).
func NewRegistryMetrics(provider metric.MeterProvider) (*RegistryMetrics, error) {
	if provider == nil {
		return nil, nil
	}

	meter := provider.Meter(RegistryMetricsMeterName)

	operationsTotal, err := meter.Int64Counter(
		"onto_registry_operations_total",
		metric.WithDescription("Registry operations by operation and outcome"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, err
	}

	remoteCallDuration, err := meter.Float64Histogram(
		"onto_registry_remote_call_duration_seconds",
		metric.WithDescription("Duration of management service calls in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10),
	)
	if err != nil {
		return nil, err
	}

	entries, err := meter.Int64Gauge(
		"onto_registry_entries",
		metric.WithDescription("Number of ontology handles held by the registry"),
		metric.WithUnit("{entry}"),
	)
	if err != nil {
		return nil, err
	}

	return &RegistryMetrics{
		operationsTotal:    operationsTotal,
		remoteCallDuration: remoteCallDuration,
		entries:            entries,
	}, nil
}

// RecordOperation counts one registry operation with its outcome
func (m *RegistryMetrics) RecordOperation(ctx context.Context, operation, outcome string) {
	if m == nil || m.operationsTotal == nil {
		return
	}

	m.operationsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("outcome", outcome),
	))
}

// RecordRemoteCall records the duration of one management service call
func (m *RegistryMetrics) RecordRemoteCall(ctx context.Context, operation string, duration time.Duration, success bool) {
	if m == nil || m.remoteCallDuration == nil {
		return
	}

	m.remoteCallDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.Bool("success", success),
	))
}

// RecordEntries records the current number of registry entries
func (m *RegistryMetrics) RecordEntries(ctx context.Context, count int) {
	if m == nil || m.entries == nil {
		return
	}

	m.entries.Record(ctx, int64(count))
}
