package xratelimit

import "context"

// backend 窗口状态后端。
//
// check 只观察不消耗；consume 尝试占用一个配额槽位。
// 两者在被拒绝时返回 Allowed=false 的 Result，而不是错误：
// 错误只用于后端自身的故障。
type backend interface {
	check(ctx context.Context, rule Rule) (*Result, error)
	consume(ctx context.Context, rule Rule) (*Result, error)
	close() error
}
