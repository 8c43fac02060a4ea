//nolint:errcheck // 测试代码中 defer 调用忽略 Shutdown 错误
package xqueue

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/omeyang/synckit/pkg/storage/xstore"
)

func TestQueueMetrics(t *testing.T) {
	t.Run("NilProviderDisablesMetrics", func(t *testing.T) {
		m, err := newQueueMetrics(nil)
		require.NoError(t, err)
		assert.Nil(t, m)

		m.recordEnqueued(context.Background(), "u1")
		m.recordReplayed(context.Background())
		m.recordDropped(context.Background())
	})

	t.Run("LifecycleRecorded", func(t *testing.T) {
		reader := sdkmetric.NewManualReader()
		provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
		defer func() { _ = provider.Shutdown(context.Background()) }()

		q, err := New(xstore.NewMemory(), alwaysOnline,
			WithMeterProvider(provider),
			WithMaxRetries(1),
		)
		require.NoError(t, err)
		defer func() { _ = q.Close() }()

		ctx := context.Background()
		_, err = q.Enqueue(ctx, mutation("u1", "a"))
		require.NoError(t, err)
		_, err = q.Enqueue(ctx, mutation("u1", "b"))
		require.NoError(t, err)

		// a 成功回放，b 失败一次后在下一轮被丢弃
		_, err = q.Sync(ctx, func(_ context.Context, e Entry) error {
			if e.DedupeKey == "b" {
				return errors.New("boom")
			}
			return nil
		})
		require.NoError(t, err)
		_, err = q.Sync(ctx, func(context.Context, Entry) error { return nil })
		require.NoError(t, err)

		var rm metricdata.ResourceMetrics
		require.NoError(t, reader.Collect(ctx, &rm))

		names := make(map[string]bool)
		for _, sm := range rm.ScopeMetrics {
			for _, m := range sm.Metrics {
				names[m.Name] = true
			}
		}
		assert.True(t, names[metricNameEnqueuedTotal])
		assert.True(t, names[metricNameReplayedTotal])
		assert.True(t, names[metricNameDroppedTotal])
		assert.True(t, names[metricNameDepth])
	})
}
