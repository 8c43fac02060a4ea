package xexec

import (
	"net/http"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// readCache GET 响应的 TTL 缓存。
//
// 命中时返回信封副本并置 Cached=true，未发起网络调用。
// 只缓存要求回显（非 Minimal）的 GET；写操作永不经过这里。
type readCache struct {
	lru *expirable.LRU[string, Envelope]
}

func (e *Executor) initReadCache(size int, ttl time.Duration) {
	e.cache = &readCache{
		lru: expirable.NewLRU[string, Envelope](size, nil, ttl),
	}
}

// cacheKey 返回描述符的缓存键，不可缓存的操作返回空串。
func (e *Executor) cacheKey(desc Descriptor) string {
	if e.cache == nil || desc.Method != http.MethodGet || desc.Minimal {
		return ""
	}
	key := desc.Method + " " + desc.Path
	if len(desc.Query) > 0 {
		key += "?" + desc.Query.Encode()
	}
	return key
}

// get 返回缓存命中的信封副本。nil 接收者安全。
func (c *readCache) get(key string) (*Envelope, bool) {
	if c == nil {
		return nil, false
	}
	env, ok := c.lru.Get(key)
	if !ok {
		return nil, false
	}
	env.Cached = true
	return &env, true
}

// put 写入缓存。只缓存成功结果。nil 接收者安全。
func (c *readCache) put(key string, env *Envelope) {
	if c == nil || env == nil || env.Error != nil {
		return
	}
	c.lru.Add(key, *env)
}
