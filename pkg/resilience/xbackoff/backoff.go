package xbackoff

import (
	"crypto/rand"
	"encoding/binary"
	"math"
	"time"
)

// Policy 退避策略接口。
// attempt 从 1 开始计数。
type Policy interface {
	// NextDelay 返回第 attempt 次失败后的等待时间
	NextDelay(attempt int) time.Duration
}

// Exponential 指数退避策略。
// delay = min(base * 2^(attempt-1), ceiling) + uniform[0, jitterMax)
type Exponential struct {
	base      time.Duration
	ceiling   time.Duration
	jitterMax time.Duration
}

// Option 指数退避配置选项。
type Option func(*Exponential)

// WithBase 设置基础延迟。
// d <= 0 时静默忽略（保持默认值）。
func WithBase(d time.Duration) Option {
	return func(b *Exponential) {
		if d > 0 {
			b.base = d
		}
	}
}

// WithCeiling 设置截断上限。
// d <= 0 时静默忽略（保持默认值）。
func WithCeiling(d time.Duration) Option {
	return func(b *Exponential) {
		if d > 0 {
			b.ceiling = d
		}
	}
}

// WithJitter 设置最大抖动。
// 传入 0 禁用抖动（确定性行为），负数按 0 处理。
func WithJitter(d time.Duration) Option {
	return func(b *Exponential) {
		if d < 0 {
			d = 0
		}
		b.jitterMax = d
	}
}

// NewExponential 创建指数退避策略。
// 默认值：
//   - base: 1s
//   - ceiling: 10s
//   - jitterMax: 1s
func NewExponential(opts ...Option) *Exponential {
	b := &Exponential{
		base:      time.Second,
		ceiling:   10 * time.Second,
		jitterMax: time.Second,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	// 确保 ceiling >= base
	if b.ceiling < b.base {
		b.ceiling = b.base
	}
	return b
}

func (b *Exponential) NextDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}

	delay := float64(b.base) * math.Pow(2, float64(attempt-1))

	// 设计决策: NaN/溢出安全的截断。attempt 极大时 math.Pow 溢出为
	// +Inf，IEEE 754 中与 NaN 的比较均为 false 会绕过上限检查，
	// 因此先做显式防护再比较。
	if math.IsNaN(delay) || delay < 0 || delay >= float64(b.ceiling) {
		return b.ceiling + b.jitter()
	}

	return time.Duration(delay) + b.jitter()
}

// jitter 返回 [0, jitterMax) 的均匀随机抖动。
func (b *Exponential) jitter() time.Duration {
	if b.jitterMax <= 0 {
		return 0
	}
	return time.Duration(randomFloat64() * float64(b.jitterMax))
}

// None 无延迟退避策略，主要用于测试。
type None struct{}

// NewNone 创建无延迟退避策略。
func NewNone() *None {
	return &None{}
}

func (*None) NextDelay(_ int) time.Duration {
	return 0
}

// Fixed 固定延迟退避策略。
type Fixed struct {
	delay time.Duration
}

// NewFixed 创建固定延迟退避策略。
// delay < 0 按 0 处理。
func NewFixed(delay time.Duration) *Fixed {
	if delay < 0 {
		delay = 0
	}
	return &Fixed{delay: delay}
}

func (b *Fixed) NextDelay(_ int) time.Duration {
	return b.delay
}

// 确保实现了接口
var (
	_ Policy = (*Exponential)(nil)
	_ Policy = (*None)(nil)
	_ Policy = (*Fixed)(nil)
)

const (
	floatBits  = 53
	floatScale = 1.0 / (1 << floatBits)
)

// randomFloat64 返回 [0,1) 的安全随机数。
// crypto/rand 失败时返回 0，即无抖动（安全默认值）。
func randomFloat64() float64 {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return 0
	}
	return float64(binary.LittleEndian.Uint64(buf[:])>>11) * floatScale
}
