package xqueue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/metric"

	"github.com/omeyang/synckit/pkg/storage/xstore"
)

// OnlineFunc 网络可用性探测。
// 由外部连接性协作方提供，队列自身从不探测网络。
type OnlineFunc func() bool

// Queue 离线变更队列。
// 所有方法都是并发安全的。必须通过 New 创建。
type Queue struct {
	store         xstore.Store
	storeKey      string
	online        OnlineFunc
	logger        *slog.Logger
	tolerance     time.Duration
	maxRetries    int
	debounce      time.Duration
	onDrop        func(Entry)
	meterProvider metric.MeterProvider
	metrics       *queueMetrics

	busy atomic.Bool

	mu       sync.Mutex
	entries  []Entry
	closed   bool
	degraded bool
}

// New 创建队列并从存储恢复已持久化的条目。
//
// 上次进程退出时卡在 syncing 状态的条目恢复为 queued，
// 下次回放重新尝试。存储读取失败时打印警告并从空队列开始，
// 后续变动仍会尝试写回。
func New(store xstore.Store, online OnlineFunc, opts ...Option) (*Queue, error) {
	if store == nil {
		return nil, ErrNilStore
	}
	if online == nil {
		return nil, ErrNilOnline
	}

	q := &Queue{
		store:      store,
		storeKey:   DefaultStoreKey,
		online:     online,
		logger:     slog.Default(),
		tolerance:  DefaultDedupeTolerance,
		maxRetries: DefaultMaxRetries,
		debounce:   DefaultDebounce,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(q)
		}
	}

	m, err := newQueueMetrics(q.meterProvider)
	if err != nil {
		q.logger.Warn("xqueue: metrics disabled", slog.Any("error", err))
	} else {
		q.metrics = m
	}

	q.load(context.Background())
	return q, nil
}

// Enqueue 将变更入队并立即持久化。
//
// 近重复抑制：同一 Owner+DedupeKey 且发生时间相差不超过容忍
// 窗口的已有条目被复用，返回其 ID 且 Deduped 为 true。
// DedupeKey 为空的变更不参与去重。
func (q *Queue) Enqueue(ctx context.Context, m Mutation) (EnqueueResult, error) {
	if q == nil {
		return EnqueueResult{}, ErrQueueClosed
	}
	if ctx == nil {
		return EnqueueResult{}, ErrNilContext
	}
	if m.Owner == "" {
		return EnqueueResult{}, fmt.Errorf("%w: owner is required", ErrInvalidMutation)
	}

	now := time.Now()
	if m.OccurredAt.IsZero() {
		m.OccurredAt = now
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return EnqueueResult{}, ErrQueueClosed
	}

	if m.DedupeKey != "" {
		for _, e := range q.entries {
			if e.Owner != m.Owner || e.DedupeKey != m.DedupeKey {
				continue
			}
			delta := e.OccurredAt.Sub(m.OccurredAt)
			if delta < 0 {
				delta = -delta
			}
			if delta <= q.tolerance {
				return EnqueueResult{ID: e.ID, Deduped: true}, nil
			}
		}
	}

	entry := Entry{
		ID:         uuid.NewString(),
		Owner:      m.Owner,
		DedupeKey:  m.DedupeKey,
		OccurredAt: m.OccurredAt,
		Payload:    m.Payload,
		EnqueuedAt: now,
		Status:     StatusQueued,
	}
	q.entries = append(q.entries, entry)
	q.persistLocked(ctx)
	q.metrics.recordEnqueued(ctx, m.Owner)

	q.logger.Debug("xqueue: mutation enqueued",
		slog.String("id", entry.ID),
		slog.String("owner", entry.Owner),
		slog.Int("depth", len(q.entries)),
	)
	return EnqueueResult{ID: entry.ID}, nil
}

// SyncOption 回放选项
type SyncOption func(*syncOptions)

type syncOptions struct {
	owner string
}

// WithOwner 只回放指定归属者的条目，其余条目保留在队列。
func WithOwner(owner string) SyncOption {
	return func(o *syncOptions) {
		o.owner = owner
	}
}

// Sync 按入队顺序回放队列。
//
// 离线时拒绝（ErrOffline），已有回放在进行时拒绝（ErrSyncBusy）。
// 每个条目至多尝试一次：成功移除，失败重试计数加一留在队列；
// 达到重试上限的条目不再尝试，直接移除并通知 OnDrop。
// ctx 取消时停止回放，已完成的条目保持已完成状态。
func (q *Queue) Sync(ctx context.Context, replay ReplayFunc, opts ...SyncOption) (SyncStats, error) {
	var stats SyncStats
	if q == nil {
		return stats, ErrQueueClosed
	}
	if ctx == nil {
		return stats, ErrNilContext
	}
	if replay == nil {
		return stats, ErrNilReplay
	}

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return stats, ErrQueueClosed
	}
	q.mu.Unlock()

	if !q.online() {
		return stats, ErrOffline
	}
	if !q.busy.CompareAndSwap(false, true) {
		return stats, ErrSyncBusy
	}
	defer q.busy.Store(false)

	var so syncOptions
	for _, opt := range opts {
		if opt != nil {
			opt(&so)
		}
	}

	for _, entry := range q.snapshot() {
		if err := ctx.Err(); err != nil {
			return stats, fmt.Errorf("xqueue: sync canceled: %w", err)
		}

		if so.owner != "" && entry.Owner != so.owner {
			stats.Skipped++
			continue
		}

		if entry.RetryCount >= q.maxRetries {
			q.remove(ctx, entry.ID)
			q.metrics.recordDropped(ctx)
			stats.Dropped++
			q.logger.Warn("xqueue: entry dropped after retry ceiling",
				slog.String("id", entry.ID),
				slog.String("owner", entry.Owner),
				slog.Int("retry_count", entry.RetryCount),
			)
			if q.onDrop != nil {
				q.onDrop(entry)
			}
			continue
		}

		q.setStatus(ctx, entry.ID, StatusSyncing)
		entry.Status = StatusSyncing

		if err := replay(ctx, entry); err != nil {
			q.recordFailure(ctx, entry.ID)
			stats.Failed++
			q.logger.Debug("xqueue: replay failed",
				slog.String("id", entry.ID),
				slog.Any("error", err),
			)
			continue
		}

		q.remove(ctx, entry.ID)
		q.metrics.recordReplayed(ctx)
		stats.Replayed++
	}

	return stats, nil
}

// Watch 监听重连信号并触发回放。
//
// 重连信号按去抖窗口合并（默认 500ms），避免网络抖动引起
// 连续回放。监听持续到 ctx 取消或 reconnect 关闭；回放中的
// ErrOffline/ErrSyncBusy 只记日志，不终止监听。
func (q *Queue) Watch(ctx context.Context, reconnect <-chan struct{}, replay ReplayFunc) error {
	if q == nil {
		return ErrQueueClosed
	}
	if ctx == nil {
		return ErrNilContext
	}
	if reconnect == nil {
		return ErrNilReconnect
	}
	if replay == nil {
		return ErrNilReplay
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-reconnect:
				if !ok {
					return
				}
			}

			// 去抖：窗口内的后续信号合并为一次回放
			timer := time.NewTimer(q.debounce)
		drain:
			for {
				select {
				case <-ctx.Done():
					timer.Stop()
					return
				case _, ok := <-reconnect:
					if !ok {
						timer.Stop()
						return
					}
					if !timer.Stop() {
						<-timer.C
					}
					timer.Reset(q.debounce)
				case <-timer.C:
					break drain
				}
			}

			stats, err := q.Sync(ctx, replay)
			switch {
			case err == nil:
				q.logger.Info("xqueue: reconnect replay finished",
					slog.Int("replayed", stats.Replayed),
					slog.Int("failed", stats.Failed),
					slog.Int("dropped", stats.Dropped),
				)
			case errors.Is(err, ErrOffline), errors.Is(err, ErrSyncBusy):
				q.logger.Debug("xqueue: reconnect replay skipped", slog.Any("reason", err))
			case errors.Is(err, ErrQueueClosed):
				return
			default:
				q.logger.Warn("xqueue: reconnect replay aborted", slog.Any("error", err))
			}
		}
	}()

	return nil
}

// Len 返回当前队列深度。
func (q *Queue) Len() int {
	if q == nil {
		return 0
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// Entries 返回队列条目的快照（入队顺序）。
func (q *Queue) Entries() []Entry {
	if q == nil {
		return nil
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]Entry, len(q.entries))
	copy(out, q.entries)
	return out
}

// Close 关闭队列。队列状态已随每次变动持久化，关闭不再写存储。
func (q *Queue) Close() error {
	if q == nil {
		return nil
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	return nil
}

// =============================================================================
// 内部状态迁移
// =============================================================================

func (q *Queue) snapshot() []Entry {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]Entry, len(q.entries))
	copy(out, q.entries)
	return out
}

func (q *Queue) setStatus(ctx context.Context, id string, status Status) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i := range q.entries {
		if q.entries[i].ID == id {
			q.entries[i].Status = status
			q.persistLocked(ctx)
			return
		}
	}
}

func (q *Queue) recordFailure(ctx context.Context, id string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i := range q.entries {
		if q.entries[i].ID == id {
			q.entries[i].RetryCount++
			q.entries[i].Status = StatusQueued
			q.persistLocked(ctx)
			return
		}
	}
}

func (q *Queue) remove(ctx context.Context, id string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i := range q.entries {
		if q.entries[i].ID == id {
			q.entries = append(q.entries[:i], q.entries[i+1:]...)
			q.persistLocked(ctx)
			return
		}
	}
}

// load 从存储恢复队列。任何失败都从空队列开始。
func (q *Queue) load(ctx context.Context) {
	data, err := q.store.Get(ctx, q.storeKey)
	if err != nil {
		if !errors.Is(err, xstore.ErrNotFound) {
			q.logger.Warn("xqueue: load failed, starting with empty queue",
				slog.Any("error", err),
			)
		}
		return
	}

	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		q.logger.Warn("xqueue: corrupt queue data, starting with empty queue",
			slog.Any("error", err),
		)
		return
	}

	// 崩溃恢复：上次卡在 syncing 的条目回到 queued
	for i := range entries {
		if entries[i].Status == StatusSyncing {
			entries[i].Status = StatusQueued
		}
	}

	q.mu.Lock()
	q.entries = entries
	q.mu.Unlock()

	if len(entries) > 0 {
		q.logger.Info("xqueue: restored persisted queue",
			slog.Int("depth", len(entries)),
		)
	}
}

// persistLocked 将队列写回存储。
// 失败降级为内存队列：首次 Warn，重复降级 Debug。
func (q *Queue) persistLocked(ctx context.Context) {
	data, err := json.Marshal(q.entries)
	if err == nil {
		err = q.store.Set(ctx, q.storeKey, data)
	}
	if err == nil {
		q.degraded = false
		return
	}

	level := slog.LevelWarn
	if q.degraded {
		level = slog.LevelDebug
	}
	q.degraded = true
	q.logger.Log(ctx, level, "xqueue: persistence degraded to memory",
		slog.Any("error", err),
	)
}
