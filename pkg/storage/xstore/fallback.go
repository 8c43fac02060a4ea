package xstore

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

// fallbackStore 尽力而为包装：主存储出错时降级到内存影子副本。
//
// 降级语义：
//   - Set/Delete：先写影子副本，再尽力写主存储；主存储失败只记
//     Warn 日志，不向调用方返回错误（持久化不可用不得拖垮同步链路）
//   - Get：主存储可用时以主存储为准并回填影子；主存储出错时
//     回退读影子副本
//
// 影子副本只在主存储出过错之后才可能与主存储不一致，
// 进程重启后以主存储为准。
type fallbackStore struct {
	primary Store
	shadow  Store
	logger  *slog.Logger

	mu       sync.Mutex
	degraded bool
}

// FallbackOption 降级包装配置选项。
type FallbackOption func(*fallbackStore)

// WithLogger 设置降级日志使用的 Logger，默认 slog.Default()。
// 传入 nil 时保持默认。
func WithLogger(logger *slog.Logger) FallbackOption {
	return func(s *fallbackStore) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewWithFallback 将主存储包装为尽力而为模式。
// primary 为 nil 时退化为纯内存存储。
func NewWithFallback(primary Store, opts ...FallbackOption) Store {
	if primary == nil {
		primary = NewMemory()
	}
	s := &fallbackStore{
		primary: primary,
		shadow:  NewMemory(),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func (s *fallbackStore) Get(ctx context.Context, key string) ([]byte, error) {
	v, err := s.primary.Get(ctx, key)
	if err == nil {
		// 回填影子，保证后续降级读到最新值
		_ = s.shadow.Set(ctx, key, v)
		return v, nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrInvalidKey) || ctx.Err() != nil {
		return nil, err
	}

	// 主存储故障，回退影子副本
	s.warnDegraded(ctx, "get", key, err)
	return s.shadow.Get(ctx, key)
}

func (s *fallbackStore) Set(ctx context.Context, key string, value []byte) error {
	if err := s.shadow.Set(ctx, key, value); err != nil {
		// 影子写入只会因 ctx/键无效失败，这类错误必须上抛
		return err
	}
	if err := s.primary.Set(ctx, key, value); err != nil {
		s.warnDegraded(ctx, "set", key, err)
	}
	return nil
}

func (s *fallbackStore) Delete(ctx context.Context, key string) error {
	if err := s.shadow.Delete(ctx, key); err != nil {
		return err
	}
	if err := s.primary.Delete(ctx, key); err != nil {
		s.warnDegraded(ctx, "delete", key, err)
	}
	return nil
}

func (s *fallbackStore) Close() error {
	_ = s.shadow.Close()
	return s.primary.Close()
}

// warnDegraded 记录降级日志。
// 首次降级记 Warn，后续降级降为 Debug，避免持续故障刷屏。
func (s *fallbackStore) warnDegraded(ctx context.Context, op, key string, err error) {
	s.mu.Lock()
	first := !s.degraded
	s.degraded = true
	s.mu.Unlock()

	attrs := []any{
		slog.String("op", op),
		slog.String("key", key),
		slog.Any("error", err),
	}
	if first {
		s.logger.WarnContext(ctx, "xstore: primary store degraded to in-memory fallback", attrs...)
		return
	}
	s.logger.DebugContext(ctx, "xstore: primary store still degraded", attrs...)
}

var _ Store = (*fallbackStore)(nil)
