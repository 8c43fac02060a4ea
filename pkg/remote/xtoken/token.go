package xtoken

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/singleflight"
)

// 预定义错误，使用 errors.Is 进行比较
var (
	// ErrNilRefresher 表示刷新器为 nil
	ErrNilRefresher = errors.New("xtoken: nil refresher")

	// ErrNilContext 表示传入的 context 为 nil
	ErrNilContext = errors.New("xtoken: nil context")

	// ErrNoToken 表示当前无可用令牌且刷新失败
	ErrNoToken = errors.New("xtoken: no usable token")
)

// Provider 令牌提供方：返回当前可用的访问令牌。
type Provider interface {
	// Token 返回当前令牌。无可用令牌时返回错误。
	Token(ctx context.Context) (string, error)
}

// Refresher 会话刷新器，由认证系统实现。
type Refresher interface {
	// RefreshSession 刷新会话并返回新令牌
	RefreshSession(ctx context.Context) (string, error)
}

// RefresherFunc 函数式 Refresher 适配器
type RefresherFunc func(ctx context.Context) (string, error)

// RefreshSession 实现 Refresher 接口
func (f RefresherFunc) RefreshSession(ctx context.Context) (string, error) {
	return f(ctx)
}

// StaticProvider 固定令牌的 Provider，用于测试与服务端密钥场景。
type StaticProvider string

var _ Provider = StaticProvider("")

// Token 实现 Provider 接口
func (s StaticProvider) Token(context.Context) (string, error) {
	if s == "" {
		return "", ErrNoToken
	}
	return string(s), nil
}

// Source 带缓存与按需刷新的令牌源。
// 所有方法都是并发安全的。必须通过 NewSource 创建。
type Source struct {
	refresher Refresher
	valid     func(string) bool
	logger    *slog.Logger

	sf singleflight.Group

	mu      sync.RWMutex
	current string
}

var _ Provider = (*Source)(nil)

// SourceOption Source 配置选项
type SourceOption func(*Source)

// WithValid 注入令牌有效性检查能力（如过期时间判断）。
// 未注入时只把空令牌视为无效。
func WithValid(fn func(token string) bool) SourceOption {
	return func(s *Source) {
		if fn != nil {
			s.valid = fn
		}
	}
}

// WithInitialToken 设置初始令牌（如从会话存储恢复的令牌）。
func WithInitialToken(token string) SourceOption {
	return func(s *Source) {
		s.current = token
	}
}

// WithSourceLogger 设置 Logger，默认 slog.Default()。
// 传入 nil 会被静默忽略。
func WithSourceLogger(logger *slog.Logger) SourceOption {
	return func(s *Source) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewSource 创建令牌源。
func NewSource(refresher Refresher, opts ...SourceOption) (*Source, error) {
	if refresher == nil {
		return nil, ErrNilRefresher
	}

	s := &Source{
		refresher: refresher,
		valid:     func(token string) bool { return token != "" },
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s, nil
}

// Token 返回当前令牌；缓存令牌失效时按需刷新一次。
// 并发调用共享同一次刷新。
func (s *Source) Token(ctx context.Context) (string, error) {
	if s == nil {
		return "", ErrNoToken
	}
	if ctx == nil {
		return "", ErrNilContext
	}

	s.mu.RLock()
	current := s.current
	s.mu.RUnlock()

	if s.valid(current) {
		return current, nil
	}
	return s.Refresh(ctx)
}

// Refresh 强制刷新令牌并更新缓存。
// 并发的 Refresh 调用合并为一次对 Refresher 的调用。
func (s *Source) Refresh(ctx context.Context) (string, error) {
	if s == nil {
		return "", ErrNoToken
	}
	if ctx == nil {
		return "", ErrNilContext
	}

	v, err, _ := s.sf.Do("refresh", func() (any, error) {
		token, err := s.refresher.RefreshSession(ctx)
		if err != nil {
			return "", fmt.Errorf("%w: %w", ErrNoToken, err)
		}
		if !s.valid(token) {
			return "", fmt.Errorf("%w: refresher returned invalid token", ErrNoToken)
		}

		s.mu.Lock()
		s.current = token
		s.mu.Unlock()

		s.logger.Debug("xtoken: session refreshed")
		return token, nil
	})
	if err != nil {
		return "", err
	}

	token, ok := v.(string)
	if !ok {
		return "", ErrNoToken
	}
	return token, nil
}

// Invalidate 丢弃缓存的令牌。下次 Token 调用触发刷新。
func (s *Source) Invalidate() {
	if s == nil {
		return
	}
	s.mu.Lock()
	s.current = ""
	s.mu.Unlock()
}

// Current 返回缓存的令牌（可能已失效），不触发刷新。
func (s *Source) Current() string {
	if s == nil {
		return ""
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}
