// Package xoptimistic 提供乐观更新的提交与回滚协调。
//
// # 设计理念
//
// 乐观更新先改本地状态让界面立即响应，再提交远端；提交失败时
// 状态必须精确回到更新前的快照，不能停留在中间状态。
//
// Coordinator 串行化同一份状态上的更新：快照在协调器锁内从
// 最新状态获取，不从调用方闭包捕获，连续两次更新中第二次的
// apply 一定看到第一次的结果。
//
// # 快速开始
//
//	coord := xoptimistic.NewCoordinator([]string{"day1"})
//
//	err := coord.Update(ctx,
//	    func(days []string) []string { return append(days, "day2") },
//	    func(ctx context.Context, days []string) error {
//	        return remote.SaveDays(ctx, days)
//	    },
//	)
//	// 提交失败时 State() 已回到 ["day1"]，err 为提交错误
//
// 状态类型 T 应当是值语义的（切片/映射需在 apply 中复制后修改），
// 协调器只保证快照替换的原子性，不做深拷贝。
package xoptimistic
