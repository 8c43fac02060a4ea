package xoptimistic

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoordinator_Update(t *testing.T) {
	ctx := context.Background()

	t.Run("CommitSuccessKeepsNewState", func(t *testing.T) {
		coord := NewCoordinator([]int{1})

		err := coord.Update(ctx,
			func(days []int) []int { return append(append([]int(nil), days...), 2) },
			func(context.Context, []int) error { return nil },
		)
		require.NoError(t, err)
		assert.Equal(t, []int{1, 2}, coord.State())
	})

	t.Run("CommitFailureRestoresSnapshot", func(t *testing.T) {
		coord := NewCoordinator([]int{1, 2})
		boom := errors.New("remote rejected")

		err := coord.Update(ctx,
			func(days []int) []int { return append(append([]int(nil), days...), 3) },
			func(_ context.Context, days []int) error {
				// 提交时看到的是已生效的乐观状态
				assert.Equal(t, []int{1, 2, 3}, days)
				return boom
			},
		)
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, []int{1, 2}, coord.State(), "失败后精确回到快照")
	})

	t.Run("SequentialUpdatesCompose", func(t *testing.T) {
		// 第二次 apply 看到第一次的结果
		coord := NewCoordinator([]int{1})
		add := func(n int) func([]int) []int {
			return func(days []int) []int { return append(append([]int(nil), days...), n) }
		}
		ok := func(context.Context, []int) error { return nil }

		require.NoError(t, coord.Update(ctx, add(2), ok))
		require.NoError(t, coord.Update(ctx, add(3), ok))
		assert.Equal(t, []int{1, 2, 3}, coord.State())
	})

	t.Run("FailureThenSuccessFromSnapshot", func(t *testing.T) {
		coord := NewCoordinator([]int{1})
		add := func(n int) func([]int) []int {
			return func(days []int) []int { return append(append([]int(nil), days...), n) }
		}

		require.Error(t, coord.Update(ctx, add(2),
			func(context.Context, []int) error { return errors.New("offline") }))
		require.NoError(t, coord.Update(ctx, add(3),
			func(context.Context, []int) error { return nil }))

		assert.Equal(t, []int{1, 3}, coord.State(), "第二次更新基于回滚后的状态")
	})

	t.Run("InvalidInput", func(t *testing.T) {
		coord := NewCoordinator(0)
		apply := func(n int) int { return n + 1 }
		commit := func(context.Context, int) error { return nil }

		//nolint:staticcheck // 故意传 nil 验证防护
		assert.ErrorIs(t, coord.Update(nil, apply, commit), ErrNilContext)
		assert.ErrorIs(t, coord.Update(ctx, nil, commit), ErrNilApply)
		assert.ErrorIs(t, coord.Update(ctx, apply, nil), ErrNilCommit)
		assert.Zero(t, coord.State(), "入参错误不触碰状态")
	})
}

func TestCoordinator_ConcurrentUpdatesSerialized(t *testing.T) {
	coord := NewCoordinator(0)
	ctx := context.Background()

	const updates = 50
	var wg sync.WaitGroup
	for i := 0; i < updates; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = coord.Update(ctx,
				func(n int) int { return n + 1 },
				func(context.Context, int) error { return nil },
			)
		}()
	}
	wg.Wait()

	assert.Equal(t, updates, coord.State(), "串行化保证每次 apply 基于最新状态")
}

func TestCoordinator_Reset(t *testing.T) {
	coord := NewCoordinator([]int{1})
	coord.Reset([]int{7, 8})
	assert.Equal(t, []int{7, 8}, coord.State())
}
