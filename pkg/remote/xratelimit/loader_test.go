package xratelimit

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigBytes(t *testing.T) {
	t.Run("JSON", func(t *testing.T) {
		data := []byte(`{
			"key_prefix": "sync:",
			"rules": [
				{"operation": "ai_analysis", "limit": 4, "window": "30s", "queue": true, "max_queue": 2}
			],
			"default": {"operation": "default", "limit": 10, "window": "60s"}
		}`)

		cfg, err := LoadConfigBytes(data, "json")
		require.NoError(t, err)
		assert.Equal(t, "sync:", cfg.KeyPrefix)
		require.Len(t, cfg.Rules, 1, "文件中的规则表整体替换默认规则表")
		assert.Equal(t, 4, cfg.Rules[0].Limit)
		assert.Equal(t, 30*time.Second, cfg.Rules[0].Window)
		assert.True(t, cfg.Rules[0].Queue)
		assert.Equal(t, 2, cfg.Rules[0].MaxQueue)
		assert.Equal(t, 10, cfg.Default.Limit)
	})

	t.Run("YAML", func(t *testing.T) {
		data := []byte(`
rules:
  - operation: upload
    limit: 5
    window: 10s
`)
		cfg, err := LoadConfigBytes(data, "yaml")
		require.NoError(t, err)
		require.Len(t, cfg.Rules, 1)
		assert.Equal(t, "upload", cfg.Rules[0].Operation)
		assert.Equal(t, 10*time.Second, cfg.Rules[0].Window)
		// 未出现的字段保持默认值
		assert.Equal(t, "ratelimit:", cfg.KeyPrefix)
		assert.Equal(t, 30, cfg.Default.Limit)
	})

	t.Run("UnsupportedFormat", func(t *testing.T) {
		_, err := LoadConfigBytes([]byte("{}"), "toml")
		assert.ErrorIs(t, err, ErrInvalidRule)
	})

	t.Run("BadSyntax", func(t *testing.T) {
		_, err := LoadConfigBytes([]byte(`{"rules": [`), "json")
		assert.Error(t, err)
	})

	t.Run("InvalidRuleRejected", func(t *testing.T) {
		data := []byte(`{"rules": [{"operation": "x", "limit": -1, "window": "1s"}]}`)
		_, err := LoadConfigBytes(data, "json")
		assert.ErrorIs(t, err, ErrInvalidRule)
	})
}

func TestLoadConfig(t *testing.T) {
	t.Run("FromFile", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "limits.yaml")
		require.NoError(t, os.WriteFile(path, []byte("key_prefix: \"file:\"\n"), 0o600))

		cfg, err := LoadConfig(path)
		require.NoError(t, err)
		assert.Equal(t, "file:", cfg.KeyPrefix)
	})

	t.Run("Missing", func(t *testing.T) {
		_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.json"))
		assert.ErrorIs(t, err, ErrConfigNotFound)
	})
}

func TestWatchConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "limits.json")
	require.NoError(t, os.WriteFile(path, []byte(`{}`), 0o600))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes := make(chan Config, 4)
	errs := make(chan error, 4)
	err := WatchConfig(ctx, path, func(cfg Config, err error) {
		if err != nil {
			errs <- err
			return
		}
		changes <- cfg
	})
	require.NoError(t, err)

	// 原子写风格的覆盖：临时文件 + rename
	tmp := path + ".tmp"
	require.NoError(t, os.WriteFile(tmp, []byte(`{"key_prefix": "v2:"}`), 0o600))
	require.NoError(t, os.Rename(tmp, path))

	select {
	case cfg := <-changes:
		assert.Equal(t, "v2:", cfg.KeyPrefix)
	case err := <-errs:
		t.Fatalf("unexpected watch error: %v", err)
	case <-time.After(3 * time.Second):
		t.Fatal("no config change observed")
	}
}

func TestWatchConfig_InvalidInput(t *testing.T) {
	assert.ErrorIs(t, WatchConfig(context.Background(), "x", nil), ErrNilFunc)
	//nolint:staticcheck // 故意传 nil 验证防护
	assert.ErrorIs(t, WatchConfig(nil, "x", func(Config, error) {}), ErrNilContext)
}
