// Package observability provides metrics for the job control client.
package observability

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// Metrics holds all client metrics:
// - Latency: RPC round trips and full wait durations
// - Traffic: RPC and mutation throughput
// - Errors: RPC failures and conflict retries
type Metrics struct {
	meter metric.Meter

	// RPC metrics
	RPCDuration metric.Float64Histogram
	RPCTotal    metric.Int64Counter
	RPCErrors   metric.Int64Counter

	// Mutation metrics
	MutationsTotal  metric.Int64Counter
	ConflictRetries metric.Int64Counter

	// Wait metrics
	WaitDuration metric.Float64Histogram
	WaitAttempts metric.Int64Histogram
	WaitsTotal   metric.Int64Counter
}

// NewMetrics creates and registers all metrics with a Prometheus exporter.
func NewMetrics(ctx context.Context) (*Metrics, http.Handler, error) {
	exporter, err := prometheus.New()
	if err != nil {
		return nil, nil, err
	}

	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	otel.SetMeterProvider(provider)

	meter := provider.Meter("jobctl")
	m := &Metrics{meter: meter}

	// RPC metrics
	m.RPCDuration, err = meter.Float64Histogram(
		"rpc_request_duration_seconds",
		metric.WithDescription("RPC round trip latency in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10),
	)
	if err != nil {
		return nil, nil, err
	}

	m.RPCTotal, err = meter.Int64Counter(
		"rpc_requests_total",
		metric.WithDescription("Total number of RPC calls issued"),
	)
	if err != nil {
		return nil, nil, err
	}

	m.RPCErrors, err = meter.Int64Counter(
		"rpc_errors_total",
		metric.WithDescription("Total number of failed RPC calls"),
	)
	if err != nil {
		return nil, nil, err
	}

	// Mutation metrics
	m.MutationsTotal, err = meter.Int64Counter(
		"mutations_total",
		metric.WithDescription("Total number of versioned mutations applied"),
	)
	if err != nil {
		return nil, nil, err
	}

	m.ConflictRetries, err = meter.Int64Counter(
		"mutation_conflict_retries_total",
		metric.WithDescription("Total number of entity version conflicts retried"),
	)
	if err != nil {
		return nil, nil, err
	}

	// Wait metrics
	m.WaitDuration, err = meter.Float64Histogram(
		"wait_duration_seconds",
		metric.WithDescription("Goal-state wait duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.1, 0.5, 1, 5, 10, 30, 60, 120, 300, 600),
	)
	if err != nil {
		return nil, nil, err
	}

	m.WaitAttempts, err = meter.Int64Histogram(
		"wait_attempts",
		metric.WithDescription("Polling attempts consumed per wait"),
		metric.WithExplicitBucketBoundaries(1, 2, 5, 10, 20, 40, 60, 120),
	)
	if err != nil {
		return nil, nil, err
	}

	m.WaitsTotal, err = meter.Int64Counter(
		"waits_total",
		metric.WithDescription("Total number of goal-state waits"),
	)
	if err != nil {
		return nil, nil, err
	}

	return m, promhttp.Handler(), nil
}

// RecordRPC records one RPC round trip.
func (m *Metrics) RecordRPC(ctx context.Context, op string, durationSeconds float64, success bool) {
	attrs := metric.WithAttributes(opAttr(op))

	m.RPCDuration.Record(ctx, durationSeconds, attrs)
	m.RPCTotal.Add(ctx, 1, attrs)

	if !success {
		m.RPCErrors.Add(ctx, 1, attrs)
	}
}

// RecordMutation records a successfully applied versioned mutation.
// Attempts beyond the first are visible via ConflictRetries.
func (m *Metrics) RecordMutation(ctx context.Context, op string) {
	m.MutationsTotal.Add(ctx, 1, metric.WithAttributes(opAttr(op)))
}

// RecordConflictRetry records one entity version conflict that will be
// retried with a refreshed version.
func (m *Metrics) RecordConflictRetry(ctx context.Context, op string) {
	m.ConflictRetries.Add(ctx, 1, metric.WithAttributes(opAttr(op)))
}

// RecordWait records one completed goal-state wait.
func (m *Metrics) RecordWait(ctx context.Context, kind string, reached bool, attempts int, durationSeconds float64) {
	attrs := metric.WithAttributes(kindAttr(kind), reachedAttr(reached))

	m.WaitsTotal.Add(ctx, 1, attrs)
	m.WaitDuration.Record(ctx, durationSeconds, attrs)
	m.WaitAttempts.Record(ctx, int64(attempts), attrs)
}
