package xqueue

import (
	"context"
	"encoding/json"
	"time"
)

// Status 队列条目状态
type Status string

const (
	// StatusQueued 等待回放
	StatusQueued Status = "queued"

	// StatusSyncing 正在回放
	StatusSyncing Status = "syncing"
)

// Mutation 待入队的变更描述。
// 队列不理解 Payload 的内容，只负责持久化与回放调度。
type Mutation struct {
	// Owner 变更归属者（如用户 ID），回放时可按归属者过滤
	Owner string `json:"owner"`

	// DedupeKey 变更的逻辑身份（如记录标题），用于近重复抑制。
	// 为空时不参与去重。
	DedupeKey string `json:"dedupe_key,omitempty"`

	// OccurredAt 变更发生时间，零值按入队时间处理
	OccurredAt time.Time `json:"occurred_at"`

	// Payload 变更内容，回放函数负责解释
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Entry 队列中的持久化条目
type Entry struct {
	// ID 条目唯一标识
	ID string `json:"id"`

	// Owner 变更归属者
	Owner string `json:"owner"`

	// DedupeKey 变更的逻辑身份
	DedupeKey string `json:"dedupe_key,omitempty"`

	// OccurredAt 变更发生时间
	OccurredAt time.Time `json:"occurred_at"`

	// Payload 变更内容
	Payload json.RawMessage `json:"payload,omitempty"`

	// EnqueuedAt 入队时间
	EnqueuedAt time.Time `json:"enqueued_at"`

	// RetryCount 已失败的回放次数，单调递增
	RetryCount int `json:"retry_count"`

	// Status 条目状态
	Status Status `json:"status"`
}

// EnqueueResult 入队结果
type EnqueueResult struct {
	// ID 条目标识；命中近重复时为已有条目的 ID
	ID string

	// Deduped 为 true 表示命中近重复，未新建条目
	Deduped bool
}

// ReplayFunc 回放函数：把队列条目翻译成真正的远程调用。
// 返回 nil 表示回放成功，条目被移出队列。
type ReplayFunc func(ctx context.Context, entry Entry) error

// SyncStats 一次回放的统计
type SyncStats struct {
	// Replayed 成功回放并移除的条目数
	Replayed int

	// Failed 回放失败、重试计数加一后留在队列的条目数
	Failed int

	// Dropped 达到重试上限被移除的条目数
	Dropped int

	// Skipped 被归属者过滤跳过的条目数
	Skipped int
}
