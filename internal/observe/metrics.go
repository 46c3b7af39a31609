// Package observe provides OpenTelemetry metric instruments for the tool
// engine. A package-level default [Metrics] instance ([DefaultMetrics]) is
// provided for convenience; tests should use [NewMetrics] with a custom
// [metric.MeterProvider] to avoid cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all editor metrics.
const meterName = "github.com/dshills/inkstorm"

// Metrics holds all OpenTelemetry metric instruments for the tool engine.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// PrepareDuration tracks per-tool preparation hook latency. Use with
	// attributes:
	//   attribute.String("tool", ...), attribute.String("status", ...)
	PrepareDuration metric.Float64Histogram

	// ToolsPrepared counts preparation outcomes. Use with attributes:
	//   attribute.String("tool", ...), attribute.String("status", ...)
	ToolsPrepared metric.Int64Counter

	// ResetFailures counts tools whose reset hook failed during destroy.
	// Use with attribute:
	//   attribute.String("tool", ...)
	ResetFailures metric.Int64Counter

	// ToolsAvailable tracks the number of tools currently in the available
	// bucket.
	ToolsAvailable metric.Int64UpDownCounter
}

// latencyBuckets defines histogram bucket boundaries (in seconds) sized for
// preparation hooks, which range from instant no-ops to slow script loads.
var latencyBuckets = []float64{
	0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.PrepareDuration, err = m.Float64Histogram("inkstorm.tool.prepare.duration",
		metric.WithDescription("Latency of per-tool preparation hooks."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.ToolsPrepared, err = m.Int64Counter("inkstorm.tools.prepared",
		metric.WithDescription("Total tool preparation outcomes by tool name and status."),
	); err != nil {
		return nil, err
	}
	if met.ResetFailures, err = m.Int64Counter("inkstorm.tool.reset.failures",
		metric.WithDescription("Total reset hook failures during destroy by tool name."),
	); err != nil {
		return nil, err
	}
	if met.ToolsAvailable, err = m.Int64UpDownCounter("inkstorm.tools.available",
		metric.WithDescription("Number of tools currently available."),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Subsequent calls return the same
// pointer. Panics if instrument creation fails (should not happen with the
// global provider).
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// Attr is a convenience alias for [attribute.String] to reduce verbosity at
// call sites.
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordPrepareDuration records one preparation hook run with the standard
// attribute set.
func (m *Metrics) RecordPrepareDuration(ctx context.Context, tool, status string, seconds float64) {
	m.PrepareDuration.Record(ctx, seconds,
		metric.WithAttributes(
			attribute.String("tool", tool),
			attribute.String("status", status),
		),
	)
}

// RecordToolPrepared records one preparation outcome with the standard
// attribute set.
func (m *Metrics) RecordToolPrepared(ctx context.Context, tool, status string) {
	m.ToolsPrepared.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("tool", tool),
			attribute.String("status", status),
		),
	)
}

// RecordResetFailure records one reset hook failure.
func (m *Metrics) RecordResetFailure(ctx context.Context, tool string) {
	m.ResetFailures.Add(ctx, 1,
		metric.WithAttributes(attribute.String("tool", tool)),
	)
}

// AddAvailable adjusts the available-tools gauge by delta.
func (m *Metrics) AddAvailable(ctx context.Context, delta int64) {
	m.ToolsAvailable.Add(ctx, delta)
}
