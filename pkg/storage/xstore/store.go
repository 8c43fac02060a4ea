package xstore

import (
	"context"
	"errors"
)

// 预定义错误，使用 errors.Is 进行比较
var (
	// ErrNotFound 表示键不存在
	ErrNotFound = errors.New("xstore: key not found")

	// ErrClosed 表示存储已关闭
	ErrClosed = errors.New("xstore: store closed")

	// ErrInvalidKey 表示键无效（空字符串）
	ErrInvalidKey = errors.New("xstore: invalid key")

	// ErrNilClient 表示传入的客户端为 nil
	ErrNilClient = errors.New("xstore: nil client")
)

// Store 通用键值持久化接口。
// 实现应该是并发安全的。
//
// Get 的返回契约：键不存在时返回 (nil, ErrNotFound)；
// value 为调用方独占的副本，修改不影响存储内容。
type Store interface {
	// Get 读取键对应的值
	Get(ctx context.Context, key string) ([]byte, error)

	// Set 写入键值，键已存在时覆盖
	Set(ctx context.Context, key string, value []byte) error

	// Delete 删除键，键不存在时静默成功
	Delete(ctx context.Context, key string) error

	// Close 关闭存储，释放自有资源（不关闭注入的外部客户端）
	Close() error
}
