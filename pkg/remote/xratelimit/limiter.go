package xratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/omeyang/synckit/pkg/resilience/xbackoff"
	"github.com/omeyang/synckit/pkg/storage/xstore"
)

// Limiter 按操作名限流的限流器。
// 所有方法都是并发安全的。必须通过 New 或 NewRedis 创建。
type Limiter struct {
	backend backend
	logger  *slog.Logger
	backoff xbackoff.Policy
	metrics *limitMetrics

	mu      sync.Mutex
	cfg     Config
	waiting map[string]int
	closed  bool
}

// New 创建本地限流器。
//
// 窗口状态通过 store 持久化，进程重启后仍然生效；
// 存储故障降级为纯内存窗口。
func New(store xstore.Store, opts ...Option) (*Limiter, error) {
	if store == nil {
		return nil, ErrNilStore
	}

	o, err := buildOptions(opts)
	if err != nil {
		return nil, err
	}

	return &Limiter{
		backend: newStoreBackend(store, o.config.KeyPrefix, o.logger),
		logger:  o.logger,
		backoff: o.backoff,
		metrics: mustMetrics(o),
		cfg:     o.config,
		waiting: make(map[string]int),
	}, nil
}

// NewRedis 创建 redis_rate 后端的限流器。
// 多个客户端实例共享同一份远端配额时使用，接口与 New 一致。
func NewRedis(client redis.UniversalClient, opts ...Option) (*Limiter, error) {
	if client == nil {
		return nil, ErrNilClient
	}

	o, err := buildOptions(opts)
	if err != nil {
		return nil, err
	}

	return &Limiter{
		backend: newRedisBackend(client, o.config.KeyPrefix),
		logger:  o.logger,
		backoff: o.backoff,
		metrics: mustMetrics(o),
		cfg:     o.config,
		waiting: make(map[string]int),
	}, nil
}

func buildOptions(opts []Option) (*options, error) {
	o := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	if err := o.config.Validate(); err != nil {
		return nil, err
	}
	return o, nil
}

func mustMetrics(o *options) *limitMetrics {
	m, err := newLimitMetrics(o.provider)
	if err != nil {
		o.logger.Warn("xratelimit: metrics disabled", slog.Any("error", err))
		return nil
	}
	return m
}

// Check 查询操作的当前配额状态，不消耗配额。
func (l *Limiter) Check(ctx context.Context, operation string) (*Result, error) {
	rule, err := l.prepare(ctx, operation)
	if err != nil {
		return nil, err
	}
	return l.backend.check(ctx, rule)
}

// Consume 尝试占用操作的一个配额槽位。
// 配额耗尽时返回 *LimitError（errors.Is(err, ErrRateLimited) 为 true），
// 不排队等待。
func (l *Limiter) Consume(ctx context.Context, operation string) error {
	rule, err := l.prepare(ctx, operation)
	if err != nil {
		return err
	}

	start := time.Now()
	res, err := l.backend.consume(ctx, rule)
	if err != nil {
		return err
	}
	l.metrics.recordDecision(ctx, operation, res.Allowed, time.Since(start))

	if !res.Allowed {
		return l.denied(operation, rule, res, "")
	}
	return nil
}

// Do 在限流约束下执行 fn。
//
// 配额可用时立即占用并执行；耗尽时：
//   - 可排队规则进入有界等待队列，按退避节奏轮询直到占到
//     槽位或 ctx 取消；队列已满返回 *LimitError
//   - 不可排队规则直接返回 *LimitError
//
// fn 的返回值原样透传，不参与限流判定。
func (l *Limiter) Do(ctx context.Context, operation string, fn func(context.Context) error) error {
	if fn == nil {
		return ErrNilFunc
	}

	rule, err := l.prepare(ctx, operation)
	if err != nil {
		return err
	}

	start := time.Now()
	res, err := l.backend.consume(ctx, rule)
	if err != nil {
		return err
	}
	l.metrics.recordDecision(ctx, operation, res.Allowed, time.Since(start))

	if res.Allowed {
		return fn(ctx)
	}

	maxQueue := rule.EffectiveMaxQueue()
	if maxQueue == 0 {
		return l.denied(operation, rule, res, "")
	}

	if !l.enterQueue(operation, maxQueue) {
		return l.denied(operation, rule, res, "wait queue full")
	}
	defer l.leaveQueue(operation)

	l.metrics.recordQueued(ctx, operation)
	l.logger.Debug("xratelimit: waiting for quota slot",
		slog.String("operation", operation),
		slog.Duration("retry_after", res.RetryAfter),
	)

	return l.waitAndRun(ctx, operation, rule, fn)
}

// Reload 原子替换限流规则表（配置热更新入口）。
// 已持久化的窗口不受影响，新规则对后续判定生效。
func (l *Limiter) Reload(cfg Config) error {
	if l == nil {
		return ErrLimiterClosed
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return ErrLimiterClosed
	}
	l.cfg = cfg.Clone()
	return nil
}

// Close 关闭限流器。等待中的 Do 调用在下次轮询时收到 ErrLimiterClosed。
func (l *Limiter) Close() error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	l.mu.Unlock()
	return l.backend.close()
}

// prepare 公共入参检查与规则解析。
func (l *Limiter) prepare(ctx context.Context, operation string) (Rule, error) {
	if l == nil {
		return Rule{}, ErrLimiterClosed
	}
	if ctx == nil {
		return Rule{}, ErrNilContext
	}
	if operation == "" {
		return Rule{}, ErrInvalidOperation
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return Rule{}, ErrLimiterClosed
	}
	return l.cfg.RuleFor(operation), nil
}

// waitAndRun 轮询等待配额空位，占到后执行 fn。
func (l *Limiter) waitAndRun(ctx context.Context, operation string, rule Rule, fn func(context.Context) error) error {
	timer := time.NewTimer(l.backoff.NextDelay(1))
	defer timer.Stop()

	for attempt := 2; ; attempt++ {
		select {
		case <-ctx.Done():
			return fmt.Errorf("xratelimit: wait canceled: %w", ctx.Err())
		case <-timer.C:
		}

		l.mu.Lock()
		closed := l.closed
		l.mu.Unlock()
		if closed {
			return ErrLimiterClosed
		}

		res, err := l.backend.consume(ctx, rule)
		if err != nil {
			return err
		}
		if res.Allowed {
			return fn(ctx)
		}

		timer.Reset(l.backoff.NextDelay(attempt))
	}
}

// enterQueue 尝试占用一个等待队列名额。
func (l *Limiter) enterQueue(operation string, maxQueue int) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed || l.waiting[operation] >= maxQueue {
		return false
	}
	l.waiting[operation]++
	return true
}

func (l *Limiter) leaveQueue(operation string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.waiting[operation] > 0 {
		l.waiting[operation]--
	}
}

// denied 构造限流错误。
func (l *Limiter) denied(operation string, rule Rule, res *Result, reason string) error {
	return &LimitError{
		Operation:  operation,
		Rule:       rule.Operation,
		Limit:      rule.Limit,
		RetryAfter: res.RetryAfter,
		Reason:     reason,
	}
}
