package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func newTestMeterProvider(t *testing.T) (*sdkmetric.MeterProvider, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	return mp, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := make(map[string]metricdata.Metrics)
	for _, sm := range rm.ScopeMetrics {
		assert.Equal(t, RegistryMetricsMeterName, sm.Scope.Name)
		for _, m := range sm.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func TestNewRegistryMetrics(t *testing.T) {
	t.Parallel()

	t.Run("nil provider returns nil metrics", func(t *testing.T) {
		t.Parallel()
		m, err := NewRegistryMetrics(nil)
		require.NoError(t, err)
		assert.Nil(t, m)
	})

	t.Run("no-op provider", func(t *testing.T) {
		t.Parallel()
		m, err := NewRegistryMetrics(noop.NewMeterProvider())
		require.NoError(t, err)
		require.NotNil(t, m)
		m.RecordOperation(context.Background(), "add", OutcomeSuccess)
	})

	t.Run("SDK provider", func(t *testing.T) {
		t.Parallel()
		mp, _ := newTestMeterProvider(t)
		m, err := NewRegistryMetrics(mp)
		require.NoError(t, err)
		require.NotNil(t, m)
	})
}

func TestRegistryMetrics_NilSafe(t *testing.T) {
	t.Parallel()

	var m *RegistryMetrics
	ctx := context.Background()
	assert.NotPanics(t, func() {
		m.RecordOperation(ctx, "add", OutcomeHit)
		m.RecordRemoteCall(ctx, "add", time.Second, true)
		m.RecordEntries(ctx, 3)
	})
}

func TestRegistryMetrics_RecordOperation(t *testing.T) {
	t.Parallel()

	mp, reader := newTestMeterProvider(t)
	m, err := NewRegistryMetrics(mp)
	require.NoError(t, err)

	ctx := context.Background()
	m.RecordOperation(ctx, "add", OutcomeSuccess)
	m.RecordOperation(ctx, "add", OutcomeHit)
	m.RecordOperation(ctx, "add", OutcomeHit)
	m.RecordOperation(ctx, "delete", OutcomeFailure)

	metrics := collect(t, reader)
	data, ok := metrics["onto_registry_operations_total"]
	require.True(t, ok, "operations counter not exported")

	sum, ok := data.Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, sum.DataPoints, 3)

	counts := make(map[string]int64)
	for _, dp := range sum.DataPoints {
		op, _ := dp.Attributes.Value(attribute.Key("operation"))
		outcome, _ := dp.Attributes.Value(attribute.Key("outcome"))
		counts[op.AsString()+"/"+outcome.AsString()] = dp.Value
	}
	assert.Equal(t, map[string]int64{
		"add/success":    1,
		"add/hit":        2,
		"delete/failure": 1,
	}, counts)
}

func TestRegistryMetrics_RecordRemoteCall(t *testing.T) {
	t.Parallel()

	mp, reader := newTestMeterProvider(t)
	m, err := NewRegistryMetrics(mp)
	require.NoError(t, err)

	ctx := context.Background()
	m.RecordRemoteCall(ctx, "copy", 20*time.Millisecond, true)
	m.RecordRemoteCall(ctx, "copy", 40*time.Millisecond, true)
	m.RecordRemoteCall(ctx, "copy", 5*time.Millisecond, false)

	metrics := collect(t, reader)
	data, ok := metrics["onto_registry_remote_call_duration_seconds"]
	require.True(t, ok, "remote call histogram not exported")
	assert.Equal(t, "s", data.Unit)

	hist, ok := data.Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, hist.DataPoints, 2)

	for _, dp := range hist.DataPoints {
		success, _ := dp.Attributes.Value(attribute.Key("success"))
		if success.AsBool() {
			assert.Equal(t, uint64(2), dp.Count)
			assert.InDelta(t, 0.06, dp.Sum, 1e-9)
		} else {
			assert.Equal(t, uint64(1), dp.Count)
		}
	}
}

func TestRegistryMetrics_RecordEntries(t *testing.T) {
	t.Parallel()

	mp, reader := newTestMeterProvider(t)
	m, err := NewRegistryMetrics(mp)
	require.NoError(t, err)

	ctx := context.Background()
	m.RecordEntries(ctx, 4)
	m.RecordEntries(ctx, 2)

	metrics := collect(t, reader)
	data, ok := metrics["onto_registry_entries"]
	require.True(t, ok, "entries gauge not exported")

	gauge, ok := data.Data.(metricdata.Gauge[int64])
	require.True(t, ok)
	require.Len(t, gauge.DataPoints, 1)
	assert.Equal(t, int64(2), gauge.DataPoints[0].Value)
}
