package xratelimit

import (
	"fmt"
	"time"
)

// DefaultMaxQueue 可排队规则的默认等待队列容量
const DefaultMaxQueue = 10

// Rule 单个操作的限流规则
type Rule struct {
	// Operation 操作名，限流的匹配键
	Operation string `json:"operation" yaml:"operation" koanf:"operation"`

	// Limit 窗口内允许的最大放行次数
	Limit int `json:"limit" yaml:"limit" koanf:"limit"`

	// Window 滑动窗口时长
	Window time.Duration `json:"window" yaml:"window" koanf:"window"`

	// Queue 配额耗尽时是否允许排队等待空位
	Queue bool `json:"queue,omitempty" yaml:"queue,omitempty" koanf:"queue"`

	// MaxQueue 等待队列容量，0 表示使用 DefaultMaxQueue
	MaxQueue int `json:"max_queue,omitempty" yaml:"max_queue,omitempty" koanf:"max_queue"`
}

// Validate 验证规则配置是否有效
func (r Rule) Validate() error {
	if r.Operation == "" {
		return fmt.Errorf("%w: operation is required", ErrInvalidRule)
	}
	if r.Limit <= 0 {
		return fmt.Errorf("%w: limit must be positive", ErrInvalidRule)
	}
	if r.Window <= 0 {
		return fmt.Errorf("%w: window must be positive", ErrInvalidRule)
	}
	if r.MaxQueue < 0 {
		return fmt.Errorf("%w: max_queue cannot be negative", ErrInvalidRule)
	}
	return nil
}

// EffectiveMaxQueue 返回有效的等待队列容量。
// 不可排队的规则返回 0。
func (r Rule) EffectiveMaxQueue() int {
	if !r.Queue {
		return 0
	}
	if r.MaxQueue <= 0 {
		return DefaultMaxQueue
	}
	return r.MaxQueue
}

// Config 限流器配置
type Config struct {
	// KeyPrefix 持久化键前缀，默认为 "ratelimit:"
	KeyPrefix string `json:"key_prefix" yaml:"key_prefix" koanf:"key_prefix"`

	// Rules 按操作名匹配的规则列表
	Rules []Rule `json:"rules" yaml:"rules" koanf:"rules"`

	// Default 未匹配任何规则时的兜底规则
	Default Rule `json:"default" yaml:"default" koanf:"default"`
}

// Validate 验证配置是否有效
func (c Config) Validate() error {
	seen := make(map[string]struct{}, len(c.Rules))
	for i, rule := range c.Rules {
		if err := rule.Validate(); err != nil {
			return fmt.Errorf("rules[%d]: %w", i, err)
		}
		if _, dup := seen[rule.Operation]; dup {
			return fmt.Errorf("%w: duplicate operation %q", ErrInvalidRule, rule.Operation)
		}
		seen[rule.Operation] = struct{}{}
	}
	if err := c.Default.Validate(); err != nil {
		return fmt.Errorf("default: %w", err)
	}
	return nil
}

// Clone 创建配置的深拷贝
func (c Config) Clone() Config {
	clone := c
	if c.Rules != nil {
		clone.Rules = make([]Rule, len(c.Rules))
		copy(clone.Rules, c.Rules)
	}
	return clone
}

// RuleFor 返回操作适用的规则。
// 未匹配任何 Rules 条目时返回 Default。
func (c Config) RuleFor(operation string) Rule {
	for _, rule := range c.Rules {
		if rule.Operation == operation {
			return rule
		}
	}
	return c.Default
}

// DefaultConfig 返回默认配置。
//
// 规则表按远端服务的配额契约取值：AI 分析最贵且可排队，
// 批量读取最宽松，上传受带宽约束，其余操作共享兜底配额。
func DefaultConfig() Config {
	return Config{
		KeyPrefix: "ratelimit:",
		Rules: []Rule{
			{Operation: "ai_analysis", Limit: 8, Window: time.Minute, Queue: true, MaxQueue: DefaultMaxQueue},
			{Operation: "bulk_read", Limit: 100, Window: time.Minute},
			{Operation: "upload", Limit: 10, Window: time.Minute},
		},
		Default: Rule{Operation: "default", Limit: 30, Window: time.Minute},
	}
}
