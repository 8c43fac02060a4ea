// Package remote 提供远程同步相关的子包。
//
// 子包列表：
//   - xclassify: 远程调用错误分类
//   - xexec: 请求执行器，重试/超时/认证头/响应信封
//   - xdedupe: 并发相同请求的合并去重
//   - xratelimit: 按操作名的客户端侧限流
//   - xqueue: 离线变更队列与重连回放
//   - xoptimistic: 乐观更新的提交与回滚
//   - xtoken: 访问令牌缓存与按需刷新
//
// 设计原则：
//   - 组件之间通过小接口协作（Provider、OnlineFunc、Store），
//     认证、连接性、持久化都是注入的能力
//   - 失败路径优先：每个组件都定义离线/失败时的确定行为
package remote
