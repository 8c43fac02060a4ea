package xoptimistic

import (
	"context"
	"errors"
	"sync"
)

// 预定义错误，使用 errors.Is 进行比较
var (
	// ErrNilContext 表示传入的 context 为 nil
	ErrNilContext = errors.New("xoptimistic: nil context")

	// ErrNilApply 表示状态变换函数为 nil
	ErrNilApply = errors.New("xoptimistic: nil apply func")

	// ErrNilCommit 表示提交函数为 nil
	ErrNilCommit = errors.New("xoptimistic: nil commit func")
)

// Coordinator 乐观更新协调器。
// 同一协调器上的更新串行执行。所有方法都是并发安全的。
type Coordinator[T any] struct {
	mu    sync.Mutex
	state T
}

// NewCoordinator 创建协调器，initial 为初始状态。
func NewCoordinator[T any](initial T) *Coordinator[T] {
	return &Coordinator[T]{state: initial}
}

// Update 执行一次乐观更新。
//
// 流程：锁内从最新状态取快照 → apply 计算新状态并立即生效 →
// commit 提交远端。commit 失败时状态精确恢复为快照，返回
// commit 的错误；成功时新状态保留。
//
// apply 必须是纯函数：基于入参计算新值，不触碰外部状态。
// commit 期间持有协调器锁，后续更新等待本次结果。
func (c *Coordinator[T]) Update(ctx context.Context, apply func(T) T, commit func(context.Context, T) error) error {
	if ctx == nil {
		return ErrNilContext
	}
	if apply == nil {
		return ErrNilApply
	}
	if commit == nil {
		return ErrNilCommit
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// 快照取自最新状态，而不是调用方看到过的旧状态
	snapshot := c.state
	next := apply(snapshot)
	c.state = next

	if err := commit(ctx, next); err != nil {
		c.state = snapshot
		return err
	}
	return nil
}

// State 返回当前状态。
func (c *Coordinator[T]) State() T {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Reset 无条件替换当前状态（如远端权威数据到达时）。
func (c *Coordinator[T]) Reset(state T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = state
}
