// xguardctl 是 xguard 共享后端的运维命令行工具。
//
// 多个实例把熔断状态和事务记录放在同一个 Redis 上时，
// xguardctl 可以直接查看和干预这些持久化状态。
//
// 用法:
//
//	xguardctl [全局选项] <命令> [命令参数]
//
// 全局选项:
//
//	-r, --redis    Redis 地址 (默认: 127.0.0.1:6379)
//	-t, --timeout  命令超时时间 (默认: 10s)
//
// 命令:
//
//	circuit status <key>   查看指定 key 的熔断状态与计数
//	circuit reset <key>    清除指定 key 的熔断状态（恢复 CLOSED）
//	txn get <id>           查看事务记录
//	txn history <id>       按顺序打印事务审计日志
//
// 退出码:
//
//	0: 命令执行成功
//	1: 命令执行失败
//	2: 参数错误
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v3"
)

// defaultTimeout 默认命令超时。
const defaultTimeout = 10 * time.Second

// 版本信息（可通过 -ldflags 注入）。
var (
	Version   = "0.1.0-dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

func main() {
	os.Exit(run())
}

// createApp 创建 CLI 应用。
func createApp() *cli.Command {
	return &cli.Command{
		Name:    "xguardctl",
		Usage:   "xguard 熔断与事务状态运维工具",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, GitCommit, BuildTime),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "redis",
				Aliases: []string{"r"},
				Usage:   "Redis 地址",
				Value:   "127.0.0.1:6379",
			},
			&cli.DurationFlag{
				Name:    "timeout",
				Aliases: []string{"t"},
				Usage:   "命令超时时间",
				Value:   defaultTimeout,
			},
		},
		Commands:       createCommands(),
		DefaultCommand: "help",
		// 退出码统一由 run() 映射，禁止框架直接 os.Exit
		ExitErrHandler: func(_ context.Context, _ *cli.Command, err error) {
			if _, ok := err.(cli.ExitCoder); ok {
				fmt.Fprintln(os.Stderr, err)
			}
		},
	}
}

func run() int {
	app := createApp()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := app.Run(ctx, os.Args); err != nil {
		var usageErr *usageError
		if errors.As(err, &usageErr) {
			fmt.Fprintf(os.Stderr, "参数错误: %v\n", usageErr)
			return 2
		}
		if _, ok := err.(cli.ExitCoder); ok {
			return 2
		}
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		return 1
	}
	return 0
}

// usageError 参数错误，退出码 2。
type usageError struct {
	msg string
}

func (e *usageError) Error() string { return e.msg }

func usageErrorf(format string, args ...any) error {
	return &usageError{msg: fmt.Sprintf(format, args...)}
}
