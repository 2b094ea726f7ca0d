package xtxn

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	instrumentationName = "github.com/omeyang/xguard/xtxn"

	metricOutcomes     = "xguard.txn.outcomes"
	metricDuration     = "xguard.txn.duration"
	metricLockConflict = "xguard.txn.lock_conflicts"
)

// observer 上报事务指标。
//
// 未配置 SDK 时全局 MeterProvider 为 no-op，所有上报零开销直通。
type observer struct {
	outcomes      metric.Int64Counter
	duration      metric.Float64Histogram
	lockConflicts metric.Int64Counter
}

func newObserver(provider metric.MeterProvider) (*observer, error) {
	meter := provider.Meter(instrumentationName)

	outcomes, err := meter.Int64Counter(
		metricOutcomes,
		metric.WithDescription("transactions entering a terminal state, by outcome"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("xtxn: create outcomes counter: %w", err)
	}

	duration, err := meter.Float64Histogram(
		metricDuration,
		metric.WithDescription("time from begin to terminal state"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("xtxn: create duration histogram: %w", err)
	}

	lockConflicts, err := meter.Int64Counter(
		metricLockConflict,
		metric.WithDescription("commit/rollback attempts rejected because the transaction was locked"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("xtxn: create lock conflicts counter: %w", err)
	}

	return &observer{
		outcomes:      outcomes,
		duration:      duration,
		lockConflicts: lockConflicts,
	}, nil
}

func (o *observer) outcome(ctx context.Context, state State, elapsed time.Duration) {
	attrs := metric.WithAttributes(attribute.String("outcome", state.String()))
	o.outcomes.Add(ctx, 1, attrs)
	o.duration.Record(ctx, elapsed.Seconds(), attrs)
}

func (o *observer) lockConflict(ctx context.Context, op string) {
	o.lockConflicts.Add(ctx, 1, metric.WithAttributes(
		attribute.String("op", op),
	))
}
