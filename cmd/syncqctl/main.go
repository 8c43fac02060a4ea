// syncqctl 是同步层持久化状态的运维检查工具。
//
// 用法:
//
//	syncqctl [全局选项] <命令> [命令参数]
//
// 全局选项:
//
//	-f, --file     持久化文件路径 (默认: synckit.json)
//
// 命令:
//
//	queue list     列出持久化的离线队列条目
//	queue drop     按 ID 移除队列条目
//	queue flush    清空离线队列
//	limits show    显示限流规则与各操作的窗口占用
//	help           显示帮助信息
//
// 退出码:
//
//	0: 命令执行成功
//	1: 命令执行失败（文件不可读、条目不存在等）
//	2: 参数错误（缺少必需参数、未知命令等）
//
// 示例:
//
//	syncqctl -f /data/synckit.json queue list
//	syncqctl queue list --owner user-42
//	syncqctl queue drop 6e1b...-id
//	syncqctl limits show --config limits.yaml
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"
)

// 版本信息（可通过 -ldflags 注入）。
var (
	Version   = "0.1.0-dev"
	GitCommit = "unknown"
)

func main() {
	os.Exit(run())
}

// createApp 创建 CLI 应用。
func createApp() *cli.Command {
	return &cli.Command{
		Name:    "syncqctl",
		Usage:   "同步层持久化状态检查工具",
		Version: fmt.Sprintf("%s (commit: %s)", Version, GitCommit),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "file",
				Aliases: []string{"f"},
				Usage:   "持久化文件路径",
				Value:   "synckit.json",
			},
		},
		Commands:       createCommands(),
		DefaultCommand: "help",
		// 设计决策: 禁止 urfave/cli 直接调用 os.Exit，
		// 由 run() 统一处理退出码映射，确保与文档退出码契约一致。
		ExitErrHandler: func(_ context.Context, _ *cli.Command, err error) {
			if _, ok := err.(cli.ExitCoder); ok {
				fmt.Fprintln(os.Stderr, err)
			}
		},
	}
}

func run() int {
	app := createApp()

	if err := app.Run(context.Background(), os.Args); err != nil {
		var usageErr *usageError
		if errors.As(err, &usageErr) {
			fmt.Fprintf(os.Stderr, "参数错误: %v\n", usageErr)
			return 2
		}
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		return 1
	}
	return 0
}
