package xratelimit

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	kjson "github.com/knadh/koanf/parsers/json"
	kyaml "github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

// watchDebounce 热更新的事件去抖窗口。
// 编辑器保存通常产生多个写事件，合并为一次重载。
const watchDebounce = 100 * time.Millisecond

// LoadConfig 从文件加载限流配置。
// 格式由扩展名决定（.json / .yaml / .yml）。
// 文件不存在时返回 ErrConfigNotFound。
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // 配置路径由调用方控制
	if err != nil {
		if os.IsNotExist(err) {
			return Config{}, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return Config{}, fmt.Errorf("xratelimit: read config: %w", err)
	}

	format := strings.TrimPrefix(filepath.Ext(path), ".")
	return LoadConfigBytes(data, format)
}

// LoadConfigBytes 从内存字节加载限流配置。
// format 支持 "json"、"yaml"、"yml"。
// 未出现在数据中的字段保持 DefaultConfig 的取值。
func LoadConfigBytes(data []byte, format string) (Config, error) {
	var parser koanf.Parser
	switch strings.ToLower(format) {
	case "json":
		parser = kjson.Parser()
	case "yaml", "yml":
		parser = kyaml.Parser()
	default:
		return Config{}, fmt.Errorf("%w: unsupported config format %q", ErrInvalidRule, format)
	}

	k := koanf.New(".")
	if err := k.Load(rawbytes.Provider(data), parser); err != nil {
		return Config{}, fmt.Errorf("xratelimit: parse config: %w", err)
	}

	cfg := DefaultConfig()
	// 数据中出现了 rules 就整表替换，避免默认规则与文件规则混在一起
	if k.Exists("rules") {
		cfg.Rules = nil
	}
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("xratelimit: unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// WatchConfig 监视配置文件变更并回调。
//
// 每次文件变更（去抖后）重新加载并调用 onChange(cfg, nil)；
// 加载失败调用 onChange(Config{}, err)，当前生效配置不受影响。
// 监视持续到 ctx 取消。
//
// 设计决策: 监视文件所在目录而非文件本身。原子写（临时文件
// rename 覆盖）会使原 inode 上的监视失效，目录级监视对
// rename/create/write 都能收到事件。
func WatchConfig(ctx context.Context, path string, onChange func(Config, error)) error {
	if ctx == nil {
		return ErrNilContext
	}
	if onChange == nil {
		return ErrNilFunc
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("xratelimit: create watcher: %w", err)
	}

	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("xratelimit: watch %s: %w", dir, err)
	}

	target := filepath.Clean(path)

	go func() {
		defer func() { _ = watcher.Close() }()

		var timer *time.Timer
		var fire <-chan time.Time

		for {
			select {
			case <-ctx.Done():
				if timer != nil {
					timer.Stop()
				}
				return

			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != target {
					continue
				}
				if !ev.Op.Has(fsnotify.Write) && !ev.Op.Has(fsnotify.Create) && !ev.Op.Has(fsnotify.Rename) {
					continue
				}
				if timer == nil {
					timer = time.NewTimer(watchDebounce)
					fire = timer.C
				} else {
					if !timer.Stop() {
						select {
						case <-timer.C:
						default:
						}
					}
					timer.Reset(watchDebounce)
				}

			case <-fire:
				timer = nil
				fire = nil
				cfg, loadErr := LoadConfig(path)
				onChange(cfg, loadErr)

			case _, ok := <-watcher.Errors:
				if !ok {
					return
				}
			}
		}
	}()

	return nil
}
