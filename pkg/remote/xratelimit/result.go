package xratelimit

import "time"

// Result 限流检查结果
type Result struct {
	// Allowed 是否允许请求通过
	Allowed bool

	// Limit 当前规则的配额上限
	Limit int

	// Remaining 当前窗口内剩余配额
	Remaining int

	// ResetAt 最早一次放行滑出窗口的时间
	ResetAt time.Time

	// RetryAfter 建议重试等待时间（仅在 Allowed=false 时有意义）
	RetryAfter time.Duration

	// Rule 匹配的规则名称
	Rule string
}

// allowedResult 创建一个允许通过的结果
func allowedResult(rule Rule, remaining int, resetAt time.Time) *Result {
	return &Result{
		Allowed:   true,
		Limit:     rule.Limit,
		Remaining: remaining,
		ResetAt:   resetAt,
		Rule:      rule.Operation,
	}
}

// deniedResult 创建一个被拒绝的结果
func deniedResult(rule Rule, retryAfter time.Duration, resetAt time.Time) *Result {
	return &Result{
		Allowed:    false,
		Limit:      rule.Limit,
		Remaining:  0,
		ResetAt:    resetAt,
		RetryAfter: retryAfter,
		Rule:       rule.Operation,
	}
}
