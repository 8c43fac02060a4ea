package xratelimit

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// 指标名称常量
const (
	// metricNameRequestsTotal 限流判定总数计数器
	metricNameRequestsTotal = "xratelimit.requests.total"
	// metricNameDeniedTotal 被限流拒绝的判定计数器
	metricNameDeniedTotal = "xratelimit.denied.total"
	// metricNameQueuedTotal 进入等待队列的判定计数器
	metricNameQueuedTotal = "xratelimit.queued.total"
	// metricNameCheckDuration 限流判定耗时直方图
	metricNameCheckDuration = "xratelimit.check.duration"
)

// limitMetrics 限流指标收集器
type limitMetrics struct {
	requestsTotal metric.Int64Counter
	deniedTotal   metric.Int64Counter
	queuedTotal   metric.Int64Counter
	checkDuration metric.Float64Histogram
}

// newLimitMetrics 创建指标收集器。
// meterProvider 为 nil 时返回 nil（不收集指标）。
func newLimitMetrics(meterProvider metric.MeterProvider) (*limitMetrics, error) {
	if meterProvider == nil {
		return nil, nil
	}

	meter := meterProvider.Meter("xratelimit",
		metric.WithInstrumentationVersion("1.0.0"),
	)

	requestsTotal, err := meter.Int64Counter(
		metricNameRequestsTotal,
		metric.WithDescription("限流判定总数"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	deniedTotal, err := meter.Int64Counter(
		metricNameDeniedTotal,
		metric.WithDescription("被限流拒绝的判定数"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	queuedTotal, err := meter.Int64Counter(
		metricNameQueuedTotal,
		metric.WithDescription("进入等待队列的判定数"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	checkDuration, err := meter.Float64Histogram(
		metricNameCheckDuration,
		metric.WithDescription("限流判定耗时"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(
			0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0,
		),
	)
	if err != nil {
		return nil, err
	}

	return &limitMetrics{
		requestsTotal: requestsTotal,
		deniedTotal:   deniedTotal,
		queuedTotal:   queuedTotal,
		checkDuration: checkDuration,
	}, nil
}

// recordDecision 记录一次限流判定。nil 接收者安全。
func (m *limitMetrics) recordDecision(ctx context.Context, operation string, allowed bool, duration time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.Bool("allowed", allowed),
	)
	m.requestsTotal.Add(ctx, 1, attrs)
	if !allowed {
		m.deniedTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("operation", operation)))
	}
	m.checkDuration.Record(ctx, duration.Seconds(), attrs)
}

// recordQueued 记录一次进入等待队列。nil 接收者安全。
func (m *limitMetrics) recordQueued(ctx context.Context, operation string) {
	if m == nil {
		return
	}
	m.queuedTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("operation", operation)))
}
