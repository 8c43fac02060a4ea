package xexec

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/omeyang/synckit/pkg/resilience/xbackoff"
)

// 默认配置值。
const (
	// DefaultMaxAttempts 默认最大尝试次数（包含首次尝试）
	DefaultMaxAttempts = 3

	// DefaultAuthCooldown 认证刷新通知的默认冷却窗口
	DefaultAuthCooldown = 5 * time.Second
)

// Option 执行器配置选项。
type Option func(*Executor)

// WithHTTPClient 设置 HTTP 客户端。
// 传入 nil 会被静默忽略。客户端不应设置全局 Timeout，
// 截止时间由每次尝试的 context 控制。
func WithHTTPClient(client *http.Client) Option {
	return func(e *Executor) {
		if client != nil {
			e.client = client
		}
	}
}

// WithAPIKey 设置随每个请求发送的 apikey 头。
func WithAPIKey(key string) Option {
	return func(e *Executor) {
		e.apiKey = key
	}
}

// WithTokenProvider 设置 Bearer 令牌提供方。
// 未设置时请求不携带 Authorization 头。
func WithTokenProvider(p TokenProvider) Option {
	return func(e *Executor) {
		if p != nil {
			e.tokens = p
		}
	}
}

// WithMaxAttempts 设置最大尝试次数（包含首次尝试），最小为 1。
func WithMaxAttempts(n int) Option {
	return func(e *Executor) {
		if n >= 1 {
			e.maxAttempts = n
		}
	}
}

// WithBackoff 设置重试间隔的退避策略。
// 传入 nil 会被静默忽略。
func WithBackoff(p xbackoff.Policy) Option {
	return func(e *Executor) {
		if p != nil {
			e.backoff = p
		}
	}
}

// WithLogger 设置 Logger，默认 slog.Default()。
// 传入 nil 会被静默忽略。
func WithLogger(logger *slog.Logger) Option {
	return func(e *Executor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithDebugLog 启用尝试级诊断日志，保留最近 n 条记录。
// n <= 0 时不启用。记录通过 DebugRecords() 读取。
func WithDebugLog(n int) Option {
	return func(e *Executor) {
		if n > 0 {
			e.debugLog = newAttemptLog(n)
		}
	}
}

// WithAuthCooldown 设置认证刷新通知的冷却窗口。
// d <= 0 时静默忽略（保持默认值 5s）。
func WithAuthCooldown(d time.Duration) Option {
	return func(e *Executor) {
		if d > 0 {
			e.auth.cooldown = d
		}
	}
}

// WithReadCache 启用 GET 响应缓存。
// size 为最大条目数，ttl 为条目存活时间；任一非正值时不启用。
// 写操作永不缓存。
func WithReadCache(size int, ttl time.Duration) Option {
	return func(e *Executor) {
		if size > 0 && ttl > 0 {
			e.initReadCache(size, ttl)
		}
	}
}

// WithBreaker 启用熔断器保护。
// 熔断开启期间的失败归为 network（可重试），
// 调用方按远端不健康处理（如转入离线队列）。
func WithBreaker(settings gobreaker.Settings) Option {
	return func(e *Executor) {
		if settings.Name == "" {
			settings.Name = "xexec"
		}
		e.breaker = gobreaker.NewCircuitBreaker[*attemptResult](settings)
	}
}
