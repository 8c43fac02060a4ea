package xratelimit

import (
	"errors"
	"fmt"
	"time"
)

// 预定义错误，使用 errors.Is 进行比较
var (
	// ErrRateLimited 表示请求被限流
	ErrRateLimited = errors.New("xratelimit: rate limited")

	// ErrInvalidRule 表示限流规则无效
	ErrInvalidRule = errors.New("xratelimit: invalid rule")

	// ErrInvalidOperation 表示操作名为空
	ErrInvalidOperation = errors.New("xratelimit: invalid operation")

	// ErrLimiterClosed 表示限流器已关闭
	ErrLimiterClosed = errors.New("xratelimit: limiter closed")

	// ErrConfigNotFound 表示配置文件不存在
	ErrConfigNotFound = errors.New("xratelimit: config not found")

	// ErrNilStore 表示存储后端为 nil
	ErrNilStore = errors.New("xratelimit: nil store")

	// ErrNilClient 表示 Redis 客户端为 nil
	ErrNilClient = errors.New("xratelimit: nil redis client")

	// ErrNilContext 表示传入的 context 为 nil
	ErrNilContext = errors.New("xratelimit: nil context")

	// ErrNilFunc 表示传入的执行函数为 nil
	ErrNilFunc = errors.New("xratelimit: nil func")
)

// LimitError 限流错误
//
// 配额耗尽且无法排队等待时返回。携带建议的重试等待时间，
// 调用方据此提示用户或安排延迟重试。
type LimitError struct {
	// Operation 被限流的操作名
	Operation string

	// Rule 触发限流的规则名称
	Rule string

	// Limit 配额上限
	Limit int

	// RetryAfter 建议的重试等待时间
	RetryAfter time.Duration

	// Reason 限流原因（可选，如等待队列已满）
	Reason string
}

// Error 实现 error 接口
func (e *LimitError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("xratelimit: operation %q limited by rule %q, limit=%d, retry after %s, reason=%s",
			e.Operation, e.Rule, e.Limit, e.RetryAfter, e.Reason)
	}
	return fmt.Sprintf("xratelimit: operation %q limited by rule %q, limit=%d, retry after %s",
		e.Operation, e.Rule, e.Limit, e.RetryAfter)
}

// Is 支持 errors.Is 检查
func (e *LimitError) Is(target error) bool {
	return target == ErrRateLimited
}

// Unwrap 返回底层错误
func (e *LimitError) Unwrap() error {
	return ErrRateLimited
}

// Retryable 返回是否可重试
//
// 限流是本地的主动让步，不可盲目重试，应等待配额窗口滑动。
func (e *LimitError) Retryable() bool {
	return false
}

// IsDenied 检查错误是否为限流错误
func IsDenied(err error) bool {
	return errors.Is(err, ErrRateLimited)
}
