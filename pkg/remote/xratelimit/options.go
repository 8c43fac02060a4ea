package xratelimit

import (
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/metric"

	"github.com/omeyang/synckit/pkg/resilience/xbackoff"
)

// Option 限流器配置选项
type Option func(*options)

type options struct {
	config   Config
	logger   *slog.Logger
	backoff  xbackoff.Policy
	provider metric.MeterProvider
}

func defaultOptions() *options {
	return &options{
		config: DefaultConfig(),
		logger: slog.Default(),
		// 等待队列的轮询节奏：短退避起步，带抖动避免
		// 多个等待者同时醒来争抢同一个空位
		backoff: xbackoff.NewExponential(
			xbackoff.WithBase(200*time.Millisecond),
			xbackoff.WithCeiling(2*time.Second),
			xbackoff.WithJitter(100*time.Millisecond),
		),
	}
}

// WithConfig 设置限流规则表。
// 配置在 New/NewRedis 中验证，无效配置导致创建失败。
func WithConfig(cfg Config) Option {
	return func(o *options) {
		o.config = cfg.Clone()
	}
}

// WithLogger 设置 Logger，默认 slog.Default()。
// 传入 nil 会被静默忽略。
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithWaitBackoff 设置等待队列的轮询退避策略。
// 传入 nil 会被静默忽略。
func WithWaitBackoff(p xbackoff.Policy) Option {
	return func(o *options) {
		if p != nil {
			o.backoff = p
		}
	}
}

// WithMeterProvider 设置指标提供器。
// 传入 nil 时不收集指标。
func WithMeterProvider(provider metric.MeterProvider) Option {
	return func(o *options) {
		o.provider = provider
	}
}
