package xratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisLimiter(t *testing.T, cfg Config) *Limiter {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	l, err := NewRedis(client, WithConfig(cfg))
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })
	return l
}

func TestRedisLimiter_Consume(t *testing.T) {
	l := newRedisLimiter(t, singleRuleConfig(Rule{Operation: "op", Limit: 3, Window: time.Minute}))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, l.Consume(ctx, "op"), "第 %d 次在配额内", i+1)
	}

	err := l.Consume(ctx, "op")
	require.Error(t, err)
	assert.True(t, IsDenied(err))

	var le *LimitError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, 3, le.Limit)
}

func TestRedisLimiter_CheckDoesNotConsume(t *testing.T) {
	l := newRedisLimiter(t, singleRuleConfig(Rule{Operation: "op", Limit: 2, Window: time.Minute}))
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		res, err := l.Check(ctx, "op")
		require.NoError(t, err)
		assert.True(t, res.Allowed)
	}

	// Check 没有消耗配额，完整配额仍然可用
	require.NoError(t, l.Consume(ctx, "op"))
	require.NoError(t, l.Consume(ctx, "op"))
	assert.True(t, IsDenied(l.Consume(ctx, "op")))
}

func TestRedisLimiter_SharedQuotaAcrossClients(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := singleRuleConfig(Rule{Operation: "op", Limit: 2, Window: time.Minute})
	ctx := context.Background()

	newClient := func() *Limiter {
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { _ = client.Close() })
		l, err := NewRedis(client, WithConfig(cfg))
		require.NoError(t, err)
		t.Cleanup(func() { _ = l.Close() })
		return l
	}

	l1, l2 := newClient(), newClient()
	require.NoError(t, l1.Consume(ctx, "op"))
	require.NoError(t, l2.Consume(ctx, "op"))

	// 两个实例共享同一份远端配额
	assert.True(t, IsDenied(l1.Consume(ctx, "op")))
	assert.True(t, IsDenied(l2.Consume(ctx, "op")))
}
