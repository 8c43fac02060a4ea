package xqueue

import "errors"

// 预定义错误，使用 errors.Is 进行比较
var (
	// ErrOffline 表示网络不可用，回放被拒绝
	ErrOffline = errors.New("xqueue: offline")

	// ErrSyncBusy 表示已有一次回放在进行中
	ErrSyncBusy = errors.New("xqueue: sync already in progress")

	// ErrNilStore 表示存储后端为 nil
	ErrNilStore = errors.New("xqueue: nil store")

	// ErrNilOnline 表示在线探测函数为 nil
	ErrNilOnline = errors.New("xqueue: nil online func")

	// ErrNilContext 表示传入的 context 为 nil
	ErrNilContext = errors.New("xqueue: nil context")

	// ErrNilReplay 表示回放函数为 nil
	ErrNilReplay = errors.New("xqueue: nil replay func")

	// ErrNilReconnect 表示重连信号通道为 nil
	ErrNilReconnect = errors.New("xqueue: nil reconnect channel")

	// ErrInvalidMutation 表示变更缺少必填字段
	ErrInvalidMutation = errors.New("xqueue: invalid mutation")

	// ErrQueueClosed 表示队列已关闭
	ErrQueueClosed = errors.New("xqueue: queue closed")
)
