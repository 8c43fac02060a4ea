package xratelimit

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/omeyang/synckit/pkg/storage/xstore"
)

// storeBackend 滑动窗口日志后端。
//
// 内存中的窗口是权威状态；xstore 用于跨进程重启的持久化：
// 首次访问某操作时从存储加载窗口，每次放行后立即写回。
// 存储故障降级为纯内存窗口，不影响限流判定。
//
// 跨进程并发下读-改-写是尽力而为的：两个进程可能短暂地各记
// 一笔，多记的时间戳随窗口滑动自然过期，属于可容忍的偏差。
type storeBackend struct {
	store  xstore.Store
	prefix string
	logger *slog.Logger

	mu       sync.Mutex
	windows  map[string][]time.Time
	loaded   map[string]bool
	degraded map[string]bool
}

var _ backend = (*storeBackend)(nil)

func newStoreBackend(store xstore.Store, prefix string, logger *slog.Logger) *storeBackend {
	return &storeBackend{
		store:    store,
		prefix:   prefix,
		logger:   logger,
		windows:  make(map[string][]time.Time),
		loaded:   make(map[string]bool),
		degraded: make(map[string]bool),
	}
}

func (b *storeBackend) check(ctx context.Context, rule Rule) (*Result, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	window := b.pruneLocked(ctx, rule, now)
	return b.resultLocked(rule, window, now), nil
}

func (b *storeBackend) consume(ctx context.Context, rule Rule) (*Result, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	window := b.pruneLocked(ctx, rule, now)

	if len(window) >= rule.Limit {
		return b.resultLocked(rule, window, now), nil
	}

	window = append(window, now)
	b.windows[rule.Operation] = window
	b.persistLocked(ctx, rule, window)

	return allowedResult(rule, rule.Limit-len(window), window[0].Add(rule.Window)), nil
}

func (b *storeBackend) close() error {
	return nil
}

// pruneLocked 加载并裁剪操作的窗口，返回仍在窗口内的时间戳（时间序）。
func (b *storeBackend) pruneLocked(ctx context.Context, rule Rule, now time.Time) []time.Time {
	op := rule.Operation

	if !b.loaded[op] {
		b.loaded[op] = true
		b.windows[op] = b.loadLocked(ctx, op)
	}

	window := b.windows[op]
	cutoff := now.Add(-rule.Window)
	idx := 0
	for idx < len(window) && !window[idx].After(cutoff) {
		idx++
	}
	if idx > 0 {
		window = append([]time.Time(nil), window[idx:]...)
		b.windows[op] = window
		b.persistLocked(ctx, rule, window)
	}
	return window
}

// resultLocked 根据当前窗口状态构造结果。
func (b *storeBackend) resultLocked(rule Rule, window []time.Time, now time.Time) *Result {
	remaining := rule.Limit - len(window)
	if remaining > 0 {
		var resetAt time.Time
		if len(window) > 0 {
			resetAt = window[0].Add(rule.Window)
		}
		return allowedResult(rule, remaining, resetAt)
	}

	resetAt := window[0].Add(rule.Window)
	retryAfter := resetAt.Sub(now)
	if retryAfter < 0 {
		retryAfter = 0
	}
	return deniedResult(rule, retryAfter, resetAt)
}

// loadLocked 从存储读取窗口时间戳。任何失败都按空窗口处理。
func (b *storeBackend) loadLocked(ctx context.Context, op string) []time.Time {
	data, err := b.store.Get(ctx, b.prefix+op)
	if err != nil {
		if !errors.Is(err, xstore.ErrNotFound) {
			b.warnDegraded(op, "load", err)
		}
		return nil
	}

	var nanos []int64
	if err := json.Unmarshal(data, &nanos); err != nil {
		b.warnDegraded(op, "decode", err)
		return nil
	}

	window := make([]time.Time, 0, len(nanos))
	for _, n := range nanos {
		window = append(window, time.Unix(0, n))
	}
	return window
}

// persistLocked 将窗口写回存储。失败只记日志，窗口状态保持在内存。
func (b *storeBackend) persistLocked(ctx context.Context, rule Rule, window []time.Time) {
	nanos := make([]int64, 0, len(window))
	for _, t := range window {
		nanos = append(nanos, t.UnixNano())
	}

	data, err := json.Marshal(nanos)
	if err != nil {
		b.warnDegraded(rule.Operation, "encode", err)
		return
	}

	if err := b.store.Set(ctx, b.prefix+rule.Operation, data); err != nil {
		b.warnDegraded(rule.Operation, "persist", err)
		return
	}
	delete(b.degraded, rule.Operation)
}

// warnDegraded 首次降级 Warn，重复降级降为 Debug，避免日志风暴。
func (b *storeBackend) warnDegraded(op, action string, err error) {
	if b.logger == nil {
		return
	}
	level := slog.LevelWarn
	if b.degraded[op] {
		level = slog.LevelDebug
	}
	b.degraded[op] = true
	b.logger.Log(context.Background(), level, "xratelimit: window persistence degraded to memory",
		slog.String("operation", op),
		slog.String("action", action),
		slog.Any("error", err),
	)
}
