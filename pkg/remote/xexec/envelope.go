package xexec

import (
	"encoding/json"
	"time"

	"github.com/omeyang/synckit/pkg/remote/xclassify"
)

// Envelope 标准响应信封。
//
// 成功时 Data 携带远端回显的内容（无内容响应为 nil），Error 为 nil；
// 失败时 Error 携带最后一次产生的 ClassifiedError，Data 为 nil。
type Envelope struct {
	// Data 响应载荷，空响应/return=minimal 时为 nil
	Data json.RawMessage `json:"data"`

	// Error 已分类的终态错误，成功时为 nil
	Error *xclassify.ClassifiedError `json:"error"`

	// Timestamp 本次调用完成的时间
	Timestamp time.Time `json:"timestamp"`

	// Duration 本次调用的总耗时（含所有重试与退避等待）
	Duration time.Duration `json:"duration"`

	// Cached 为 true 表示结果来自读缓存，未发起网络调用
	Cached bool `json:"cached,omitempty"`
}

// DecodeData 将 Data 反序列化到目标。
// Data 为 nil 时不修改目标并返回 nil。
func (e *Envelope) DecodeData(target any) error {
	if e == nil || len(e.Data) == 0 {
		return nil
	}
	return json.Unmarshal(e.Data, target)
}
