// Package xstore 提供同步链路使用的通用键值持久化接口。
//
// # 设计理念
//
// 限流窗口和离线变更队列都需要跨进程重启存活的小量状态。
// xstore 把这类需求收敛为一个极小的 Store 接口（Get/Set/Delete），
// 并提供三种实现：
//
//   - Memory：进程内存储，重启丢失，适合测试与降级兜底
//   - File：单 JSON 文件存储，temp+rename 原子写入
//   - Redis：基于 go-redis，适合多实例共享
//
// # 降级语义
//
// 持久化不可用（如存储配额耗尽、文件系统只读）不允许拖垮调用方。
// NewWithFallback 将任意 Store 包装为尽力而为模式：主存储出错时
// 按键降级到内存影子副本并记录 Warn 日志，Set/Delete 永不向
// 调用方返回降级性错误。
//
// # 使用方式
//
//	store := xstore.NewWithFallback(xstore.NewFile("/var/lib/app/sync.json"))
//	_ = store.Set(ctx, "ratelimit:upload", data)
//
// 键不存在时 Get 返回 [ErrNotFound]，调用方使用 errors.Is 判断。
package xstore
