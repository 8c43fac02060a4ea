package xexec

import (
	"net/url"
	"time"
)

// OpClass 操作类别，决定默认截止时间。
type OpClass string

// 操作类别常量。
const (
	// ClassRead 读操作，默认 20s
	ClassRead OpClass = "read"

	// ClassWrite 写操作，默认 25s
	ClassWrite OpClass = "write"

	// ClassUpload 上传操作，默认 60s
	ClassUpload OpClass = "upload"

	// ClassRPC 远程过程调用，默认 30s
	ClassRPC OpClass = "rpc"
)

// DefaultTimeout 返回该类别的默认截止时间。
// 未知类别按读操作处理。
func (c OpClass) DefaultTimeout() time.Duration {
	switch c {
	case ClassWrite:
		return 25 * time.Second
	case ClassUpload:
		return 60 * time.Second
	case ClassRPC:
		return 30 * time.Second
	default:
		return 20 * time.Second
	}
}

// Descriptor 操作描述符：一次逻辑网络调用的不可变描述。
// 每次调用创建一个，执行器不修改其内容。
type Descriptor struct {
	// Method HTTP 方法
	Method string

	// Path 资源路径（相对 baseURL）
	Path string

	// Query 查询过滤条件，可为 nil
	Query url.Values

	// Body 请求体，nil 表示无请求体
	Body []byte

	// ContentType 请求体类型，默认 "application/json"
	ContentType string

	// Operation 操作名，用于限流、熔断与日志
	Operation string

	// Class 操作类别，决定默认截止时间
	Class OpClass

	// Timeout 显式截止时间，非零时覆盖 Class 默认值
	Timeout time.Duration

	// Minimal 为 true 时要求远端不回显数据
	// （Prefer: return=minimal），信封 Data 为 nil
	Minimal bool

	// Upsert 为 true 时使用合并冲突语义
	// （Prefer: resolution=merge-duplicates）
	Upsert bool

	// OnConflict Upsert 的冲突目标列（逗号分隔），
	// 非空时作为 on_conflict 查询参数附加
	OnConflict string
}

// EffectiveTimeout 返回本次调用生效的截止时间。
func (d Descriptor) EffectiveTimeout() time.Duration {
	if d.Timeout > 0 {
		return d.Timeout
	}
	return d.Class.DefaultTimeout()
}

// validate 检查描述符的必填字段。
func (d Descriptor) validate() error {
	if d.Method == "" {
		return ErrInvalidDescriptor
	}
	if d.Path == "" {
		return ErrInvalidDescriptor
	}
	return nil
}
