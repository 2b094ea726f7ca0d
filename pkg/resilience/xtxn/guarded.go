package xtxn

import (
	"context"
	"errors"
	"time"

	retry "github.com/avast/retry-go/v5"

	"github.com/omeyang/xguard/pkg/resilience/xcircuit"
)

// 守护执行的默认重试参数。
const (
	// DefaultGuardAttempts 锁冲突时的最大尝试次数（含首次）。
	DefaultGuardAttempts = 3

	// DefaultGuardDelay 重试间隔基准（指数退避起点）。
	DefaultGuardDelay = 50 * time.Millisecond
)

// Guarded 熔断器保护下的事务执行器。
//
// 每次 Do 在熔断器的一个 key 下执行一个完整事务：
// 熔断打开时快速失败，事务锁冲突按退避重试，
// 回滚失败（不可重试）和熔断拒绝不参与重试。
type Guarded struct {
	manager  *Manager
	breaker  *xcircuit.Breaker
	attempts uint
	delay    time.Duration
}

// GuardedOption 配置 [Guarded]。
type GuardedOption func(*Guarded)

// WithGuardAttempts 设置锁冲突时的最大尝试次数（含首次）。
func WithGuardAttempts(attempts uint) GuardedOption {
	return func(g *Guarded) {
		if attempts > 0 {
			g.attempts = attempts
		}
	}
}

// WithGuardDelay 设置重试间隔基准。
func WithGuardDelay(delay time.Duration) GuardedOption {
	return func(g *Guarded) {
		if delay > 0 {
			g.delay = delay
		}
	}
}

// NewGuarded 组合事务管理器与熔断器。
func NewGuarded(manager *Manager, breaker *xcircuit.Breaker, opts ...GuardedOption) (*Guarded, error) {
	if manager == nil {
		return nil, errors.New("xtxn: nil manager")
	}
	if breaker == nil {
		return nil, errors.New("xtxn: nil breaker")
	}
	g := &Guarded{
		manager:  manager,
		breaker:  breaker,
		attempts: DefaultGuardAttempts,
		delay:    DefaultGuardDelay,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}
	return g, nil
}

// Do 在熔断器 key 的保护下执行事务函数 fn。
//
// 熔断拒绝返回 [xcircuit.ErrCircuitOpen]；[ErrResourceLocked]
// 按退避重试到上限；其余错误直接透传并计入熔断统计。
func (g *Guarded) Do(ctx context.Context, key string, fn func(ctx context.Context, txn Transaction) error) error {
	return g.breaker.Execute(ctx, key, func() error {
		return retry.New(
			retry.Context(ctx),
			retry.Attempts(g.attempts),
			retry.Delay(g.delay),
			retry.LastErrorOnly(true),
			retry.RetryIf(func(err error) bool {
				return errors.Is(err, ErrResourceLocked)
			}),
		).Do(func() error {
			return g.manager.Run(ctx, fn)
		})
	})
}
