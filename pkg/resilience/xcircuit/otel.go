package xcircuit

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	instrumentationName = "github.com/omeyang/xguard/xcircuit"

	metricTransitions = "xguard.circuit.transitions"
	metricRejections  = "xguard.circuit.rejections"
)

// observer 上报熔断器的 OTel 指标。
//
// 未配置 SDK 时全局 MeterProvider 为 no-op，所有上报零开销直通。
type observer struct {
	transitions metric.Int64Counter
	rejections  metric.Int64Counter
}

func newObserver(provider metric.MeterProvider) (*observer, error) {
	meter := provider.Meter(instrumentationName)

	transitions, err := meter.Int64Counter(
		metricTransitions,
		metric.WithDescription("circuit state transitions"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("xcircuit: create transitions counter: %w", err)
	}

	rejections, err := meter.Int64Counter(
		metricRejections,
		metric.WithDescription("fast-fail rejections while the circuit is not accepting calls"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("xcircuit: create rejections counter: %w", err)
	}

	return &observer{
		transitions: transitions,
		rejections:  rejections,
	}, nil
}

func (o *observer) transition(ctx context.Context, key string, from, to Status) {
	o.transitions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("key", key),
		attribute.String("from", from.String()),
		attribute.String("to", to.String()),
	))
}

func (o *observer) rejection(ctx context.Context, key string) {
	o.rejections.Add(ctx, 1, metric.WithAttributes(
		attribute.String("key", key),
	))
}
