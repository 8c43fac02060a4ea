package xexec

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/omeyang/synckit/pkg/remote/xclassify"
)

// authNotifier 认证失败的一次性通知器。
//
// 终态 auth 错误触发回调，同一冷却窗口内至多一次：
// 大量并发调用同时遭遇 401 时，外部认证协作方只收到一次
// 刷新请求，避免通知风暴。
type authNotifier struct {
	mu       sync.Mutex
	handlers map[int]func(ctx context.Context, cerr *xclassify.ClassifiedError)
	nextID   int
	cooldown time.Duration
	lastAt   time.Time
}

func newAuthNotifier(cooldown time.Duration) authNotifier {
	return authNotifier{
		handlers: make(map[int]func(ctx context.Context, cerr *xclassify.ClassifiedError)),
		cooldown: cooldown,
	}
}

// register 注册观察者，返回注销函数。
// fn 为 nil 时返回空操作的注销函数。
func (n *authNotifier) register(fn func(ctx context.Context, cerr *xclassify.ClassifiedError)) func() {
	if fn == nil {
		return func() {}
	}

	n.mu.Lock()
	id := n.nextID
	n.nextID++
	n.handlers[id] = fn
	n.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			n.mu.Lock()
			delete(n.handlers, id)
			n.mu.Unlock()
		})
	}
}

// notify 触发通知。冷却窗口内的重复触发被吞掉。
// 回调在独立 goroutine 中执行，收到的 ctx 与调用方取消链解耦
// （刷新动作不应随单个请求的取消而中止）。
func (n *authNotifier) notify(ctx context.Context, cerr *xclassify.ClassifiedError, logger *slog.Logger) {
	n.mu.Lock()
	now := time.Now()
	if !n.lastAt.IsZero() && now.Sub(n.lastAt) < n.cooldown {
		n.mu.Unlock()
		return
	}
	n.lastAt = now

	fns := make([]func(ctx context.Context, cerr *xclassify.ClassifiedError), 0, len(n.handlers))
	for _, fn := range n.handlers {
		fns = append(fns, fn)
	}
	n.mu.Unlock()

	if len(fns) == 0 {
		return
	}

	if logger != nil {
		logger.Debug("xexec: notifying auth failure observers",
			slog.Int("observers", len(fns)),
		)
	}

	detached := context.WithoutCancel(ctx)
	for _, fn := range fns {
		go fn(detached, cerr)
	}
}
