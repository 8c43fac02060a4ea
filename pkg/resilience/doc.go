// Package resilience 提供容错与稳定性相关的子包。
//
// 子包列表：
//   - xbackoff: 重试间隔的退避策略（指数/固定/无退避）
//
// 设计原则：
//   - 策略与执行分离：退避策略是纯函数，由 xexec、xratelimit
//     等执行方按需调用
package resilience
