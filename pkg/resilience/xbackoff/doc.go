// Package xbackoff 提供重试与排队场景共用的退避策略。
//
// # 设计理念
//
// 退避策略是叶子组件：纯函数 attempt → delay，不持有外部依赖。
// 同一策略实例同时服务于请求执行器（xexec 重试间隔）和限流器
// （xratelimit 排队轮询节奏），保证整个同步链路的等待节奏一致。
//
// # 退避公式
//
// Exponential 的延迟为：
//
//	delay = min(base * 2^(attempt-1), ceiling) + uniform[0, jitterMax)
//
// 默认 base=1s、ceiling=10s、jitterMax=1s。抖动在截断之后叠加，
// 因此延迟上界为 ceiling + jitterMax。
//
// 抖动使用 crypto/rand 生成，确保安全随机性。单次 NextDelay
// 调用约 50-100ns，对重试场景完全可接受。需要确定性行为时
// 使用 WithJitter(0)。
//
// # 使用方式
//
//	policy := xbackoff.NewExponential()
//	time.Sleep(policy.NextDelay(attempt))
package xbackoff
