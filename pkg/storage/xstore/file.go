package xstore

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
)

// fileStore 单 JSON 文件键值存储。
//
// 整个键空间序列化为一个 JSON 对象（值 base64 编码），
// 每次写操作全量重写文件。面向小量状态（限流窗口、离线队列），
// 不适合大数据量场景。
type fileStore struct {
	path   string
	mu     sync.Mutex
	loaded bool
	data   map[string][]byte
	closed atomic.Bool
}

// NewFile 创建文件存储。
// 文件不存在时首次写入自动创建（含父目录）。
// 写入使用 temp+rename，崩溃不会留下半写状态。
func NewFile(path string) Store {
	return &fileStore{
		path: path,
		data: make(map[string][]byte),
	}
}

func (s *fileStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := s.check(ctx, key); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.loadLocked(); err != nil {
		return nil, err
	}

	v, ok := s.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (s *fileStore) Set(ctx context.Context, key string, value []byte) error {
	if err := s.check(ctx, key); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.loadLocked(); err != nil {
		return err
	}

	cp := make([]byte, len(value))
	copy(cp, value)
	s.data[key] = cp
	return s.flushLocked()
}

func (s *fileStore) Delete(ctx context.Context, key string) error {
	if err := s.check(ctx, key); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.loadLocked(); err != nil {
		return err
	}

	if _, ok := s.data[key]; !ok {
		return nil
	}
	delete(s.data, key)
	return s.flushLocked()
}

func (s *fileStore) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return ErrClosed
	}
	return nil
}

func (s *fileStore) check(ctx context.Context, key string) error {
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

// loadLocked 惰性加载文件内容。调用方必须持有 s.mu。
func (s *fileStore) loadLocked() error {
	if s.loaded {
		return nil
	}

	raw, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		s.loaded = true
		return nil
	}
	if err != nil {
		return fmt.Errorf("xstore: read %s: %w", s.path, err)
	}

	if len(raw) > 0 {
		var encoded map[string]string
		if err := json.Unmarshal(raw, &encoded); err != nil {
			return fmt.Errorf("xstore: parse %s: %w", s.path, err)
		}
		for k, v := range encoded {
			b, err := base64.StdEncoding.DecodeString(v)
			if err != nil {
				return fmt.Errorf("xstore: decode key %q: %w", k, err)
			}
			s.data[k] = b
		}
	}

	s.loaded = true
	return nil
}

// flushLocked 全量写回文件。调用方必须持有 s.mu。
func (s *fileStore) flushLocked() error {
	encoded := make(map[string]string, len(s.data))
	for k, v := range s.data {
		encoded[k] = base64.StdEncoding.EncodeToString(v)
	}

	raw, err := json.Marshal(encoded)
	if err != nil {
		return fmt.Errorf("xstore: marshal: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("xstore: mkdir %s: %w", dir, err)
	}

	// temp+rename 原子替换，避免崩溃留下半写文件
	tmp, err := os.CreateTemp(dir, ".xstore-*")
	if err != nil {
		return fmt.Errorf("xstore: create temp: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(raw); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("xstore: write temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("xstore: close temp: %w", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("xstore: rename: %w", err)
	}
	return nil
}

var _ Store = (*fileStore)(nil)
