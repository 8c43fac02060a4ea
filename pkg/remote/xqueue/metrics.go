package xqueue

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// 指标名称常量
const (
	// metricNameEnqueuedTotal 入队条目计数器
	metricNameEnqueuedTotal = "xqueue.enqueued.total"
	// metricNameReplayedTotal 成功回放条目计数器
	metricNameReplayedTotal = "xqueue.replayed.total"
	// metricNameDroppedTotal 达到重试上限被丢弃的条目计数器
	metricNameDroppedTotal = "xqueue.dropped.total"
	// metricNameDepth 当前队列深度
	metricNameDepth = "xqueue.depth"
)

// queueMetrics 队列指标收集器
type queueMetrics struct {
	enqueuedTotal metric.Int64Counter
	replayedTotal metric.Int64Counter
	droppedTotal  metric.Int64Counter
	depth         metric.Int64UpDownCounter
}

// newQueueMetrics 创建指标收集器。
// meterProvider 为 nil 时返回 nil（不收集指标）。
func newQueueMetrics(meterProvider metric.MeterProvider) (*queueMetrics, error) {
	if meterProvider == nil {
		return nil, nil
	}

	meter := meterProvider.Meter("xqueue",
		metric.WithInstrumentationVersion("1.0.0"),
	)

	enqueuedTotal, err := meter.Int64Counter(
		metricNameEnqueuedTotal,
		metric.WithDescription("入队条目总数"),
		metric.WithUnit("{entry}"),
	)
	if err != nil {
		return nil, err
	}

	replayedTotal, err := meter.Int64Counter(
		metricNameReplayedTotal,
		metric.WithDescription("成功回放的条目数"),
		metric.WithUnit("{entry}"),
	)
	if err != nil {
		return nil, err
	}

	droppedTotal, err := meter.Int64Counter(
		metricNameDroppedTotal,
		metric.WithDescription("达到重试上限被丢弃的条目数"),
		metric.WithUnit("{entry}"),
	)
	if err != nil {
		return nil, err
	}

	depth, err := meter.Int64UpDownCounter(
		metricNameDepth,
		metric.WithDescription("当前队列深度"),
		metric.WithUnit("{entry}"),
	)
	if err != nil {
		return nil, err
	}

	return &queueMetrics{
		enqueuedTotal: enqueuedTotal,
		replayedTotal: replayedTotal,
		droppedTotal:  droppedTotal,
		depth:         depth,
	}, nil
}

// recordEnqueued 记录一次入队。nil 接收者安全。
func (m *queueMetrics) recordEnqueued(ctx context.Context, owner string) {
	if m == nil {
		return
	}
	m.enqueuedTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("owner", owner)))
	m.depth.Add(ctx, 1)
}

// recordReplayed 记录一次成功回放。nil 接收者安全。
func (m *queueMetrics) recordReplayed(ctx context.Context) {
	if m == nil {
		return
	}
	m.replayedTotal.Add(ctx, 1)
	m.depth.Add(ctx, -1)
}

// recordDropped 记录一次丢弃。nil 接收者安全。
func (m *queueMetrics) recordDropped(ctx context.Context) {
	if m == nil {
		return
	}
	m.droppedTotal.Add(ctx, 1)
	m.depth.Add(ctx, -1)
}
