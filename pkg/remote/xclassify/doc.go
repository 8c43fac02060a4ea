// Package xclassify 提供远程调用失败的统一错误分类。
//
// # 设计理念
//
// 远程同步链路中的所有组件（执行器、离线队列、限流器）共享同一套
// 错误词汇表：每个失败被归为一个 [Kind]，每个 Kind 携带固定的
// retryable 语义。Retryable 是 Kind 的纯函数，是整个子系统中
// 重试行为的唯一判断依据。
//
// # 错误种类
//
//   - KindNetwork：连接层失败（未收到响应），可重试
//   - KindTimeout：超过截止时间，可重试
//   - KindServerError：5xx 服务端错误，可重试
//   - KindAuth：401/403 认证失败，不可重试
//   - KindNotFound：404，不可重试
//   - KindConflict：409，不可重试
//   - KindValidation：400/422，不可重试
//   - KindUnknown：无法归类，保守地不可重试
//
// # 使用方式
//
//	cerr := xclassify.Classify(err, resp.StatusCode)
//	if cerr.Retryable() {
//	    // 交给重试/退避处理
//	}
//
// Classify 是全函数：任意输入组合都返回非 nil 的 *ClassifiedError，
// 永不 panic。对已分类的错误重复调用返回原值（幂等）。
//
// ClassifiedError 实现 Retryable() bool 接口，可被任何按
// "是否可重试" 分派的组件（如 xexec 的重试条件）直接消费。
package xclassify
