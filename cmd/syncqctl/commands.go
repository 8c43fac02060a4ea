package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/urfave/cli/v3"

	"github.com/omeyang/synckit/pkg/remote/xqueue"
	"github.com/omeyang/synckit/pkg/remote/xratelimit"
	"github.com/omeyang/synckit/pkg/storage/xstore"
)

// usageError 表示参数错误，映射为退出码 2。
type usageError struct {
	msg string
}

func (e *usageError) Error() string { return e.msg }

// 创建所有子命令。
func createCommands() []*cli.Command {
	return []*cli.Command{
		createQueueCommand(),
		createLimitsCommand(),
	}
}

func createQueueCommand() *cli.Command {
	return &cli.Command{
		Name:  "queue",
		Usage: "离线队列操作",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "列出持久化的队列条目",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "owner",
						Usage: "只显示指定归属者的条目",
					},
				},
				Action: cmdQueueList,
			},
			{
				Name:      "drop",
				Usage:     "按 ID 移除队列条目",
				ArgsUsage: "<id>",
				Action:    cmdQueueDrop,
			},
			{
				Name:   "flush",
				Usage:  "清空离线队列",
				Action: cmdQueueFlush,
			},
		},
	}
}

func createLimitsCommand() *cli.Command {
	return &cli.Command{
		Name:  "limits",
		Usage: "限流窗口操作",
		Commands: []*cli.Command{
			{
				Name:  "show",
				Usage: "显示限流规则与各操作的窗口占用",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "config",
						Usage: "限流规则文件（默认使用内置规则表）",
					},
				},
				Action: cmdLimitsShow,
			},
		},
	}
}

// openStore 打开持久化文件。
func openStore(cmd *cli.Command) (xstore.Store, error) {
	path := cmd.String("file")
	if path == "" {
		return nil, &usageError{msg: "缺少持久化文件路径"}
	}
	return xstore.NewFile(path), nil
}

// loadEntries 读取持久化的队列条目。
func loadEntries(ctx context.Context, store xstore.Store) ([]xqueue.Entry, error) {
	data, err := store.Get(ctx, xqueue.DefaultStoreKey)
	if err != nil {
		if errors.Is(err, xstore.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("读取队列失败: %w", err)
	}

	var entries []xqueue.Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("队列数据损坏: %w", err)
	}
	return entries, nil
}

// saveEntries 写回队列条目。
func saveEntries(ctx context.Context, store xstore.Store, entries []xqueue.Entry) error {
	data, err := json.Marshal(entries)
	if err != nil {
		return err
	}
	return store.Set(ctx, xqueue.DefaultStoreKey, data)
}

func cmdQueueList(ctx context.Context, cmd *cli.Command) error {
	store, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	entries, err := loadEntries(ctx, store)
	if err != nil {
		return err
	}

	owner := cmd.String("owner")
	w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tOWNER\tDEDUPE_KEY\tSTATUS\tRETRY\tOCCURRED_AT")
	count := 0
	for _, e := range entries {
		if owner != "" && e.Owner != owner {
			continue
		}
		count++
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\n",
			e.ID, e.Owner, e.DedupeKey, e.Status, e.RetryCount,
			e.OccurredAt.Format("2006-01-02 15:04:05"),
		)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Printf("共 %d 条\n", count)
	return nil
}

func cmdQueueDrop(ctx context.Context, cmd *cli.Command) error {
	id := cmd.Args().First()
	if id == "" {
		return &usageError{msg: "queue drop 需要条目 ID"}
	}

	store, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	entries, err := loadEntries(ctx, store)
	if err != nil {
		return err
	}

	kept := entries[:0]
	found := false
	for _, e := range entries {
		if e.ID == id {
			found = true
			continue
		}
		kept = append(kept, e)
	}
	if !found {
		return fmt.Errorf("条目不存在: %s", id)
	}

	if err := saveEntries(ctx, store, kept); err != nil {
		return err
	}
	fmt.Printf("已移除 %s\n", id)
	return nil
}

func cmdQueueFlush(ctx context.Context, cmd *cli.Command) error {
	store, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	entries, err := loadEntries(ctx, store)
	if err != nil {
		return err
	}

	if err := store.Delete(ctx, xqueue.DefaultStoreKey); err != nil {
		return err
	}
	fmt.Printf("已清空 %d 条\n", len(entries))
	return nil
}

func cmdLimitsShow(ctx context.Context, cmd *cli.Command) error {
	cfg := xratelimit.DefaultConfig()
	if path := cmd.String("config"); path != "" {
		loaded, err := xratelimit.LoadConfig(path)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	store, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
	fmt.Fprintln(w, "OPERATION\tLIMIT\tWINDOW\tQUEUE\tUSED")
	rules := append(append([]xratelimit.Rule(nil), cfg.Rules...), cfg.Default)
	for _, rule := range rules {
		fmt.Fprintf(w, "%s\t%d\t%s\t%v\t%d\n",
			rule.Operation, rule.Limit, rule.Window, rule.Queue,
			windowUsage(ctx, store, cfg.KeyPrefix+rule.Operation),
		)
	}
	return w.Flush()
}

// windowUsage 读取操作的持久化窗口占用。不可读按 0 处理。
func windowUsage(ctx context.Context, store xstore.Store, key string) int {
	data, err := store.Get(ctx, key)
	if err != nil {
		return 0
	}
	var nanos []int64
	if json.Unmarshal(data, &nanos) != nil {
		return 0
	}
	return len(nanos)
}
