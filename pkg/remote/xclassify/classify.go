package xclassify

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ClassifiedError 已分类的远程调用错误。
//
// 每次失败的尝试产生一个 ClassifiedError；调用方最终看到的是
// 最后一次产生的实例。Retryable 语义完全由 Kind 派生，
// 构造后不可变。
type ClassifiedError struct {
	// Kind 错误种类
	Kind Kind

	// Message 面向人的错误描述
	Message string

	// StatusCode HTTP 状态码，0 表示无响应（连接层失败）
	StatusCode int

	// Details 可选的机器可读附加信息（如服务端返回的错误体字段）
	Details map[string]any

	// Err 底层错误，可为 nil
	Err error
}

// Error 实现 error 接口。
func (e *ClassifiedError) Error() string {
	if e == nil {
		return "xclassify: nil error"
	}
	if e.StatusCode > 0 {
		return fmt.Sprintf("xclassify: %s (status=%d): %s", e.Kind, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("xclassify: %s: %s", e.Kind, e.Message)
}

// Unwrap 返回底层错误。
func (e *ClassifiedError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Retryable 返回是否可重试。
//
// 与 Kind.Retryable 一致，使 *ClassifiedError 满足按
// Retryable() bool 分派的重试条件接口（如 xexec 的重试判断）。
func (e *ClassifiedError) Retryable() bool {
	if e == nil {
		return false
	}
	return e.Kind.Retryable()
}

// Classify 将一次原始失败映射为 ClassifiedError。
//
// 全函数：任意 (err, statusCode) 组合都返回非 nil 结果，永不 panic。
// 映射规则（按优先级）：
//
//  1. err 已是 *ClassifiedError → 原样返回（幂等）
//  2. statusCode 401/403 → auth；404 → not_found；409 → conflict；
//     400/422 → validation；>=500 → server_error
//  3. 截止时间超时（context.DeadlineExceeded 或 net.Error 超时）→ timeout
//  4. 连接层错误（net.Error / net.OpError / DNS 错误，未收到响应）→ network
//  5. 其余 → unknown（保守地不可重试）
//
// 设计决策: 状态码映射优先于错误类型检查——已收到响应说明连接层
// 是健康的，按语义状态归类比按传输错误归类更准确。
func Classify(err error, statusCode int) *ClassifiedError {
	var ce *ClassifiedError
	if errors.As(err, &ce) && ce != nil {
		return ce
	}

	if kind, ok := kindOfStatus(statusCode); ok {
		return &ClassifiedError{
			Kind:       kind,
			Message:    statusMessage(kind, statusCode),
			StatusCode: statusCode,
			Err:        err,
		}
	}

	if err == nil {
		// 无错误也无可归类的状态码：调用方传参异常，保守归为 unknown。
		return &ClassifiedError{
			Kind:    KindUnknown,
			Message: "unclassifiable failure (no error, no status)",
		}
	}

	if isTimeout(err) {
		return &ClassifiedError{
			Kind:    KindTimeout,
			Message: "deadline exceeded",
			Err:     err,
		}
	}

	if isNetworkError(err) {
		return &ClassifiedError{
			Kind:    KindNetwork,
			Message: "connection failure",
			Err:     err,
		}
	}

	return &ClassifiedError{
		Kind:    KindUnknown,
		Message: err.Error(),
		Err:     err,
	}
}

// IsRetryable 检查错误是否可重试。
//
// 错误链中存在 *ClassifiedError 时按其 Kind 判断；
// 未分类的错误先经 Classify（无状态码）再判断。
// nil 返回 false。
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var ce *ClassifiedError
	if errors.As(err, &ce) && ce != nil {
		return ce.Retryable()
	}
	return Classify(err, 0).Retryable()
}

// KindOf 返回错误的种类。
// 未分类的错误先经 Classify（无状态码）。nil 返回 KindUnknown。
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	var ce *ClassifiedError
	if errors.As(err, &ce) && ce != nil {
		return ce.Kind
	}
	return Classify(err, 0).Kind
}

// kindOfStatus 按状态码归类。收到响应的失败优先按状态码判断。
func kindOfStatus(status int) (Kind, bool) {
	switch {
	case status == 401 || status == 403:
		return KindAuth, true
	case status == 404:
		return KindNotFound, true
	case status == 409:
		return KindConflict, true
	case status == 400 || status == 422:
		return KindValidation, true
	case status >= 500:
		return KindServerError, true
	default:
		return KindUnknown, false
	}
}

func statusMessage(kind Kind, status int) string {
	switch kind {
	case KindAuth:
		return "authentication failed"
	case KindNotFound:
		return "resource not found"
	case KindConflict:
		return "resource conflict"
	case KindValidation:
		return "request validation failed"
	case KindServerError:
		return fmt.Sprintf("server error (%d)", status)
	default:
		return fmt.Sprintf("unexpected status %d", status)
	}
}

// isTimeout 检查是否为截止时间超时。
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// isNetworkError 检查是否为连接层错误（未收到响应）。
// 使用类型断言和错误链检查，而不是字符串匹配。
func isNetworkError(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}

	var dnsErr *net.DNSError
	return errors.As(err, &dnsErr)
}
