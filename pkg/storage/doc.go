// Package storage 提供数据存储相关的子包。
//
// 子包列表：
//   - xstore: 键值持久化抽象，内存/文件/Redis 后端与降级包装
//
// 设计原则：
//   - 统一的 Store 接口，调用方不感知后端差异
//   - 持久化失败优雅降级，不阻断同步路径
package storage
