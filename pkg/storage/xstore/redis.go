package xstore

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
)

// redisStore 基于 go-redis 的键值存储。
type redisStore struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
	closed atomic.Bool
}

// RedisOption Redis 存储配置选项。
type RedisOption func(*redisStore)

// WithKeyPrefix 设置键前缀，默认 "synckit:"。
func WithKeyPrefix(prefix string) RedisOption {
	return func(s *redisStore) {
		s.prefix = prefix
	}
}

// WithTTL 设置键的过期时间。
// 默认 0（不过期）。离线队列等需要长期存活的状态不应设置 TTL。
func WithTTL(ttl time.Duration) RedisOption {
	return func(s *redisStore) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// NewRedis 创建 Redis 存储。
// client 必须是已初始化的 redis.UniversalClient。
func NewRedis(client redis.UniversalClient, opts ...RedisOption) (Store, error) {
	if client == nil {
		return nil, ErrNilClient
	}

	s := &redisStore{
		client: client,
		prefix: "synckit:",
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s, nil
}

func (s *redisStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := s.check(ctx, key); err != nil {
		return nil, err
	}

	v, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}

func (s *redisStore) Set(ctx context.Context, key string, value []byte) error {
	if err := s.check(ctx, key); err != nil {
		return err
	}
	return s.client.Set(ctx, s.prefix+key, value, s.ttl).Err()
}

func (s *redisStore) Delete(ctx context.Context, key string) error {
	if err := s.check(ctx, key); err != nil {
		return err
	}
	return s.client.Del(ctx, s.prefix+key).Err()
}

// Close 标记存储关闭。
// 不关闭注入的 redis 客户端，其生命周期由调用方管理。
func (s *redisStore) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return ErrClosed
	}
	return nil
}

func (s *redisStore) check(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.closed.Load() {
		return ErrClosed
	}
	if key == "" {
		return ErrInvalidKey
	}
	return nil
}

var _ Store = (*redisStore)(nil)
