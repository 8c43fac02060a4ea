package xclassify

// Kind 错误种类。
//
// Kind 是封闭集合：Retryable 语义由 Kind 唯一决定，
// 调用方不得在 Kind 之外另行判断是否重试。
type Kind string

// 错误种类常量。
const (
	// KindNetwork 连接层失败（请求未到达对端或未收到响应）
	KindNetwork Kind = "network"

	// KindTimeout 超过截止时间
	KindTimeout Kind = "timeout"

	// KindAuth 认证/授权失败（401/403）
	KindAuth Kind = "auth"

	// KindNotFound 资源不存在（404）
	KindNotFound Kind = "not_found"

	// KindConflict 资源冲突（409）
	KindConflict Kind = "conflict"

	// KindValidation 请求数据无效（400/422）
	KindValidation Kind = "validation"

	// KindServerError 服务端错误（>=500）
	KindServerError Kind = "server_error"

	// KindUnknown 无法归类的错误，保守地视为不可重试
	KindUnknown Kind = "unknown"
)

// Retryable 返回该种类的错误是否可重试。
//
// 这是纯函数：network/timeout/server_error 恒为 true，
// 其余种类恒为 false。KindUnknown 保守地返回 false，
// 避免对未知故障盲目重试放大问题。
func (k Kind) Retryable() bool {
	switch k {
	case KindNetwork, KindTimeout, KindServerError:
		return true
	default:
		return false
	}
}

// IsValid 检查是否为已定义的种类。
func (k Kind) IsValid() bool {
	switch k {
	case KindNetwork, KindTimeout, KindAuth, KindNotFound,
		KindConflict, KindValidation, KindServerError, KindUnknown:
		return true
	default:
		return false
	}
}

// String 实现 fmt.Stringer。
func (k Kind) String() string {
	return string(k)
}
