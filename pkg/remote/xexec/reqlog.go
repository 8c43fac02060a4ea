package xexec

import (
	"sync"
	"time"
)

// AttemptRecord 一次尝试的诊断记录。
type AttemptRecord struct {
	// Operation 操作名
	Operation string

	// Method HTTP 方法
	Method string

	// Path 资源路径
	Path string

	// Attempt 尝试序号（从 1 开始）
	Attempt int

	// StatusCode 响应状态码，0 表示无响应
	StatusCode int

	// Err 失败描述，成功时为空
	Err string

	// Duration 本次尝试耗时
	Duration time.Duration

	// At 尝试开始时间
	At time.Time
}

// attemptLog 有界环形缓冲：保留最近 size 条尝试记录。
// 写满后覆盖最旧的记录。
type attemptLog struct {
	mu   sync.Mutex
	buf  []AttemptRecord
	next int
	n    int
}

func newAttemptLog(size int) *attemptLog {
	return &attemptLog{
		buf: make([]AttemptRecord, size),
	}
}

func (l *attemptLog) add(r AttemptRecord) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.buf[l.next] = r
	l.next = (l.next + 1) % len(l.buf)
	if l.n < len(l.buf) {
		l.n++
	}
}

// records 返回时间序快照（最旧在前）。
func (l *attemptLog) records() []AttemptRecord {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]AttemptRecord, 0, l.n)
	start := l.next - l.n
	if start < 0 {
		start += len(l.buf)
	}
	for i := 0; i < l.n; i++ {
		out = append(out, l.buf[(start+i)%len(l.buf)])
	}
	return out
}
