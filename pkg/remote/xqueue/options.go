package xqueue

import (
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/metric"
)

// 默认配置值。
const (
	// DefaultDedupeTolerance 近重复抑制的发生时间容忍窗口
	DefaultDedupeTolerance = 60 * time.Second

	// DefaultMaxRetries 条目的回放失败上限，达到后被移出队列
	DefaultMaxRetries = 3

	// DefaultDebounce 重连信号的去抖窗口
	DefaultDebounce = 500 * time.Millisecond

	// DefaultStoreKey 队列在 xstore 中的持久化键
	DefaultStoreKey = "synckit:queue"
)

// Option 队列配置选项
type Option func(*Queue)

// WithLogger 设置 Logger，默认 slog.Default()。
// 传入 nil 会被静默忽略。
func WithLogger(logger *slog.Logger) Option {
	return func(q *Queue) {
		if logger != nil {
			q.logger = logger
		}
	}
}

// WithDedupeTolerance 设置近重复抑制的时间容忍窗口。
// d < 0 时静默忽略；0 表示只有发生时间完全相同才算重复。
func WithDedupeTolerance(d time.Duration) Option {
	return func(q *Queue) {
		if d >= 0 {
			q.tolerance = d
		}
	}
}

// WithMaxRetries 设置回放失败上限，最小为 1。
func WithMaxRetries(n int) Option {
	return func(q *Queue) {
		if n >= 1 {
			q.maxRetries = n
		}
	}
}

// WithOnDrop 设置条目被丢弃时的回调。
// 回调在 Sync 的调用链上同步执行，不应阻塞。
func WithOnDrop(fn func(Entry)) Option {
	return func(q *Queue) {
		if fn != nil {
			q.onDrop = fn
		}
	}
}

// WithDebounce 设置 Watch 的重连信号去抖窗口。
// d <= 0 时静默忽略。
func WithDebounce(d time.Duration) Option {
	return func(q *Queue) {
		if d > 0 {
			q.debounce = d
		}
	}
}

// WithStoreKey 设置队列的持久化键。
// 空串会被静默忽略。
func WithStoreKey(key string) Option {
	return func(q *Queue) {
		if key != "" {
			q.storeKey = key
		}
	}
}

// WithMeterProvider 设置指标提供器。
// 传入 nil 时不收集指标。
func WithMeterProvider(provider metric.MeterProvider) Option {
	return func(q *Queue) {
		q.meterProvider = provider
	}
}
