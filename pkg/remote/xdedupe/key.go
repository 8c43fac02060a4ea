package xdedupe

import (
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// Key 计算请求指纹：hash(method, endpoint, body)。
//
// 字段之间写入长度前缀，避免 ("GET", "/ab", "c") 与
// ("GET", "/a", "bc") 之类的拼接碰撞。body 为 nil 与空切片
// 视为相同。
func Key(method, endpoint string, body []byte) string {
	d := xxhash.New()
	writeField(d, []byte(method))
	writeField(d, []byte(endpoint))
	writeField(d, body)
	return strconv.FormatUint(d.Sum64(), 16)
}

func writeField(d *xxhash.Digest, b []byte) {
	var lenBuf [8]byte
	n := len(b)
	for i := 0; i < 8; i++ {
		lenBuf[i] = byte(n >> (8 * i))
	}
	_, _ = d.Write(lenBuf[:])
	_, _ = d.Write(b)
}
