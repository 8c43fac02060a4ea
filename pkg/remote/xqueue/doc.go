// Package xqueue 提供离线变更的持久化队列与重连回放。
//
// # 设计理念
//
// 网络不可用时，写操作不丢弃也不阻塞：变更描述入队持久化，
// 网络恢复后按入队顺序回放。队列只在收到重连信号时回放，
// 从不轮询网络状态。
//
// 核心语义：
//   - 每次队列变动（入队、状态迁移、移除）后立即通过 xstore
//     持久化，进程被杀后队列仍然完整
//   - 近重复抑制：同一 Owner+DedupeKey 且发生时间相差不超过
//     容忍窗口（默认 60s）的变更复用已有条目，防止离线期间
//     反复点击产生重复记录
//   - 回放失败的条目重试计数加一回到队尾语义；达到重试上限
//     （默认 3）的条目被移出队列并通知 OnDrop，绝不无限重试
//   - 同一队列同时只有一次回放在进行，并发 Sync 返回 ErrSyncBusy
//
// # 快速开始
//
//	q, err := xqueue.New(store, conn.Online)
//	if err != nil { ... }
//
//	// 离线时入队
//	res, err := q.Enqueue(ctx, xqueue.Mutation{
//	    Owner:      userID,
//	    DedupeKey:  "workout:morning-run",
//	    OccurredAt: time.Now(),
//	    Payload:    payload,
//	})
//
//	// 网络恢复信号触发回放
//	err = q.Watch(ctx, conn.Reconnected(), replayFn)
//
// 回放函数负责把条目翻译成真正的远程调用；队列不理解
// Payload 的内容。
package xqueue
