package xratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis_rate/v10"
	"github.com/redis/go-redis/v9"
)

// redisBackend redis_rate 滑动窗口后端。
//
// 多个客户端实例共享同一份远端配额时使用：窗口状态在 Redis 中，
// 原子判定，无本地读-改-写竞争。
type redisBackend struct {
	limiter *redis_rate.Limiter
	prefix  string
}

var _ backend = (*redisBackend)(nil)

func newRedisBackend(client redis.UniversalClient, prefix string) *redisBackend {
	return &redisBackend{
		limiter: redis_rate.NewLimiter(client),
		prefix:  prefix,
	}
}

func (b *redisBackend) check(ctx context.Context, rule Rule) (*Result, error) {
	// n=0 只观察配额，不消耗
	res, err := b.limiter.AllowN(ctx, b.prefix+rule.Operation, b.limit(rule), 0)
	if err != nil {
		return nil, fmt.Errorf("xratelimit: redis check: %w", err)
	}
	return b.toResult(rule, res, res.Remaining > 0), nil
}

func (b *redisBackend) consume(ctx context.Context, rule Rule) (*Result, error) {
	res, err := b.limiter.Allow(ctx, b.prefix+rule.Operation, b.limit(rule))
	if err != nil {
		return nil, fmt.Errorf("xratelimit: redis consume: %w", err)
	}
	return b.toResult(rule, res, res.Allowed > 0), nil
}

func (b *redisBackend) close() error {
	// 客户端由调用方注入，生命周期归调用方管理
	return nil
}

func (b *redisBackend) limit(rule Rule) redis_rate.Limit {
	return redis_rate.Limit{
		Rate:   rule.Limit,
		Burst:  rule.Limit,
		Period: rule.Window,
	}
}

func (b *redisBackend) toResult(rule Rule, res *redis_rate.Result, allowed bool) *Result {
	now := time.Now()
	if allowed {
		return allowedResult(rule, res.Remaining, now.Add(res.ResetAfter))
	}
	retryAfter := res.RetryAfter
	if retryAfter < 0 {
		retryAfter = 0
	}
	return deniedResult(rule, retryAfter, now.Add(res.ResetAfter))
}
