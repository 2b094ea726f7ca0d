package main

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/urfave/cli/v3"

	"github.com/omeyang/xguard/pkg/resilience/xcircuit"
	"github.com/omeyang/xguard/pkg/resilience/xtxn"
)

// createCommands 构造全部子命令。
func createCommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:  "circuit",
			Usage: "熔断器状态管理",
			Commands: []*cli.Command{
				{
					Name:      "status",
					Usage:     "查看指定 key 的熔断状态与计数",
					ArgsUsage: "<key>",
					Action:    withRedis(circuitStatus),
				},
				{
					Name:      "reset",
					Usage:     "清除指定 key 的熔断状态（恢复 CLOSED）",
					ArgsUsage: "<key>",
					Action:    withRedis(circuitReset),
				},
			},
		},
		{
			Name:  "txn",
			Usage: "事务记录查询",
			Commands: []*cli.Command{
				{
					Name:      "get",
					Usage:     "查看事务记录",
					ArgsUsage: "<id>",
					Action:    withRedis(txnGet),
				},
				{
					Name:      "history",
					Usage:     "按顺序打印事务审计日志",
					ArgsUsage: "<id>",
					Action:    withRedis(txnHistory),
				},
			},
		},
	}
}

type commandFunc func(ctx context.Context, client redis.UniversalClient, arg string) error

// withRedis 统一处理参数校验、Redis 连接和超时。
func withRedis(fn commandFunc) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		arg := cmd.Args().First()
		if arg == "" {
			return usageErrorf("缺少必需参数，用法: %s %s", cmd.Name, cmd.ArgsUsage)
		}

		client := redis.NewClient(&redis.Options{Addr: cmd.String("redis")})
		defer func() { _ = client.Close() }()

		ctx, cancel := context.WithTimeout(ctx, cmd.Duration("timeout"))
		defer cancel()

		if err := client.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("连接 Redis 失败: %w", err)
		}
		return fn(ctx, client, arg)
	}
}

func circuitStatus(ctx context.Context, client redis.UniversalClient, key string) error {
	store, err := xcircuit.NewRedisStateStore(client)
	if err != nil {
		return err
	}
	metrics, err := xcircuit.NewRedisMetrics(client)
	if err != nil {
		return err
	}

	state, found, err := store.Get(ctx, key)
	if err != nil {
		return err
	}
	counts, err := metrics.Counts(ctx, key)
	if err != nil {
		return err
	}

	fmt.Printf("key:          %s\n", key)
	fmt.Printf("status:       %s\n", state.Status)
	if found && !state.LastChange.IsZero() {
		fmt.Printf("last change:  %s (%s ago)\n",
			state.LastChange.Format(time.RFC3339),
			time.Since(state.LastChange).Round(time.Second))
	}
	fmt.Printf("attempts:     %d\n", counts.Attempts)
	fmt.Printf("successes:    %d\n", counts.Successes)
	fmt.Printf("failures:     %d\n", counts.Failures)
	if counts.Attempts > 0 {
		fmt.Printf("failure rate: %.2f\n", counts.FailureRate())
	}
	return nil
}

func circuitReset(ctx context.Context, client redis.UniversalClient, key string) error {
	store, err := xcircuit.NewRedisStateStore(client)
	if err != nil {
		return err
	}
	metrics, err := xcircuit.NewRedisMetrics(client)
	if err != nil {
		return err
	}

	if err := store.Delete(ctx, key); err != nil {
		return err
	}
	if err := metrics.Reset(ctx, key); err != nil {
		return err
	}
	fmt.Printf("circuit %q reset\n", key)
	return nil
}

func txnGet(ctx context.Context, client redis.UniversalClient, id string) error {
	store, err := xtxn.NewRedisStore(client)
	if err != nil {
		return err
	}

	txn, err := store.Get(ctx, id)
	if err != nil {
		return err
	}

	fmt.Printf("id:     %s\n", txn.ID)
	fmt.Printf("state:  %s\n", txn.State)
	fmt.Printf("start:  %s\n", txn.StartTime.Format(time.RFC3339Nano))
	if !txn.EndTime.IsZero() {
		fmt.Printf("end:    %s (took %s)\n",
			txn.EndTime.Format(time.RFC3339Nano),
			txn.EndTime.Sub(txn.StartTime))
	}
	if txn.Initial != nil {
		fmt.Printf("initial snapshot: %d keys at %s\n",
			len(txn.Initial.Data), txn.Initial.Timestamp.Format(time.RFC3339Nano))
	}
	if txn.Final != nil {
		fmt.Printf("final snapshot:   %d keys at %s\n",
			len(txn.Final.Data), txn.Final.Timestamp.Format(time.RFC3339Nano))
	}
	return nil
}

func txnHistory(ctx context.Context, client redis.UniversalClient, id string) error {
	journal, err := xtxn.NewRedisJournal(client)
	if err != nil {
		return err
	}

	entries, err := journal.Entries(ctx, id)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Printf("no journal entries for %q\n", id)
		return nil
	}

	for i, e := range entries {
		line := fmt.Sprintf("%2d  %-28s %-9s", i+1, e.Timestamp.Format(time.RFC3339Nano), e.Type)
		if e.Message != "" {
			line += "  " + e.Message
		}
		fmt.Println(line)
	}
	return nil
}
