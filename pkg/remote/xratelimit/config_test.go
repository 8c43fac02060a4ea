package xratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_Validate(t *testing.T) {
	t.Run("DefaultConfigIsValid", func(t *testing.T) {
		assert.NoError(t, DefaultConfig().Validate())
	})

	t.Run("EmptyOperation", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Rules = append(cfg.Rules, Rule{Limit: 1, Window: time.Second})
		assert.ErrorIs(t, cfg.Validate(), ErrInvalidRule)
	})

	t.Run("NonPositiveLimit", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Rules = []Rule{{Operation: "x", Limit: 0, Window: time.Second}}
		assert.ErrorIs(t, cfg.Validate(), ErrInvalidRule)
	})

	t.Run("NonPositiveWindow", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Rules = []Rule{{Operation: "x", Limit: 1}}
		assert.ErrorIs(t, cfg.Validate(), ErrInvalidRule)
	})

	t.Run("NegativeMaxQueue", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Rules = []Rule{{Operation: "x", Limit: 1, Window: time.Second, MaxQueue: -1}}
		assert.ErrorIs(t, cfg.Validate(), ErrInvalidRule)
	})

	t.Run("DuplicateOperation", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Rules = []Rule{
			{Operation: "x", Limit: 1, Window: time.Second},
			{Operation: "x", Limit: 2, Window: time.Second},
		}
		assert.ErrorIs(t, cfg.Validate(), ErrInvalidRule)
	})

	t.Run("InvalidDefault", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Default = Rule{}
		assert.ErrorIs(t, cfg.Validate(), ErrInvalidRule)
	})
}

func TestConfig_RuleFor(t *testing.T) {
	cfg := DefaultConfig()

	rule := cfg.RuleFor("ai_analysis")
	assert.Equal(t, 8, rule.Limit)
	assert.Equal(t, time.Minute, rule.Window)
	assert.True(t, rule.Queue)

	rule = cfg.RuleFor("bulk_read")
	assert.Equal(t, 100, rule.Limit)
	assert.False(t, rule.Queue)

	rule = cfg.RuleFor("upload")
	assert.Equal(t, 10, rule.Limit)

	// 未匹配的操作落入兜底规则
	rule = cfg.RuleFor("fetch_profile")
	assert.Equal(t, "default", rule.Operation)
	assert.Equal(t, 30, rule.Limit)
}

func TestRule_EffectiveMaxQueue(t *testing.T) {
	assert.Zero(t, Rule{Queue: false, MaxQueue: 5}.EffectiveMaxQueue(), "不可排队规则容量为 0")
	assert.Equal(t, DefaultMaxQueue, Rule{Queue: true}.EffectiveMaxQueue())
	assert.Equal(t, 3, Rule{Queue: true, MaxQueue: 3}.EffectiveMaxQueue())
}

func TestConfig_Clone(t *testing.T) {
	cfg := DefaultConfig()
	clone := cfg.Clone()
	require.Equal(t, cfg, clone)

	clone.Rules[0].Limit = 999
	assert.NotEqual(t, cfg.Rules[0].Limit, clone.Rules[0].Limit, "深拷贝互不影响")
}
