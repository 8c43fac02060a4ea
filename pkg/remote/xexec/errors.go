package xexec

import "errors"

// 预定义错误，使用 errors.Is 进行比较
var (
	// ErrNilContext 表示传入的 context 为 nil
	ErrNilContext = errors.New("xexec: nil context")

	// ErrNilExecutor 表示接收者为 nil
	ErrNilExecutor = errors.New("xexec: nil executor")

	// ErrEmptyBaseURL 表示 baseURL 为空
	ErrEmptyBaseURL = errors.New("xexec: empty base url")

	// ErrInvalidDescriptor 表示描述符缺少必填字段
	ErrInvalidDescriptor = errors.New("xexec: invalid descriptor")

	// ErrTokenUnavailable 表示令牌提供方无法给出有效令牌
	ErrTokenUnavailable = errors.New("xexec: token unavailable")
)
