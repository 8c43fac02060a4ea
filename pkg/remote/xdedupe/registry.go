package xdedupe

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/sync/singleflight"
)

// 预定义错误，使用 errors.Is 进行比较
var (
	// ErrNilFunc 表示生产函数为 nil
	ErrNilFunc = errors.New("xdedupe: nil producer func")

	// ErrInvalidKey 表示 key 为空字符串
	ErrInvalidKey = errors.New("xdedupe: invalid key")
)

// Registry 在途请求注册表。
// 所有方法都是并发安全的。零值不可用，必须通过 New 创建。
type Registry struct {
	sf singleflight.Group

	mu       sync.Mutex
	inflight map[string]struct{}
}

// New 创建注册表。
func New() *Registry {
	return &Registry{
		inflight: make(map[string]struct{}),
	}
}

// Do 以 key 去重执行 fn。
//
// 已有同 key 的在途调用时不发起新调用，等待并返回相同结果，
// shared 为 true。结果落定的瞬间条目被移除，成功或失败皆然。
//
// fn 收到的 context 与调用方的取消链解耦（保留 values），
// 由 fn 自行约束自己的截止时间；调用方 ctx 取消只中止本调用方
// 的等待，返回 ctx.Err()。
func (r *Registry) Do(ctx context.Context, key string, fn func(ctx context.Context) (any, error)) (any, error, bool) {
	if fn == nil {
		return nil, ErrNilFunc, false
	}
	if key == "" {
		return nil, ErrInvalidKey, false
	}
	if err := ctx.Err(); err != nil {
		return nil, err, false
	}

	// 生产调用脱离调用方取消链：首个调用方取消不得连累附着者。
	prodCtx := context.WithoutCancel(ctx)

	ch := r.sf.DoChan(key, func() (any, error) {
		r.track(key)
		defer r.untrack(key)
		return fn(prodCtx)
	})

	select {
	case res := <-ch:
		return res.Val, res.Err, res.Shared
	case <-ctx.Done():
		return nil, ctx.Err(), false
	}
}

// DoTyped 是 Do 的泛型版本。
// 这是泛型函数，必须作为包级函数使用。
func DoTyped[T any](ctx context.Context, r *Registry, key string, fn func(ctx context.Context) (T, error)) (T, error, bool) {
	if r == nil {
		var zero T
		return zero, ErrNilFunc, false
	}
	v, err, shared := r.Do(ctx, key, func(ctx context.Context) (any, error) {
		return fn(ctx)
	})
	if v == nil {
		var zero T
		return zero, err, shared
	}
	t, ok := v.(T)
	if !ok {
		var zero T
		return zero, err, shared
	}
	return t, err, shared
}

// Len 返回当前在途条目数量（瞬时快照），用于监控和测试。
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.inflight)
}

// Keys 返回当前在途条目的 key 列表，仅用于调试。
// 返回值是快照，不保证与并发操作一致。
func (r *Registry) Keys() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	keys := make([]string, 0, len(r.inflight))
	for k := range r.inflight {
		keys = append(keys, k)
	}
	return keys
}

// Forget 主动丢弃 key 的在途条目。
// 之后的同 key 调用会发起新的真实调用；已附着的调用方不受影响。
func (r *Registry) Forget(key string) {
	r.sf.Forget(key)
}

func (r *Registry) track(key string) {
	r.mu.Lock()
	r.inflight[key] = struct{}{}
	r.mu.Unlock()
}

func (r *Registry) untrack(key string) {
	r.mu.Lock()
	delete(r.inflight, key)
	r.mu.Unlock()
}
