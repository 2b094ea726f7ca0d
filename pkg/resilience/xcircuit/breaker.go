package xcircuit

import (
	"context"
	"strings"

	"github.com/omeyang/xguard/pkg/observability/xlog"
)

// casRetries CAS 失败后重读重试的次数上限。
// CAS 失败意味着有并发调用方刚完成了同一 key 的状态转换，
// 重读后通常立即收敛；超过上限按保守策略拒绝。
const casRetries = 3

// Breaker 熔断器。
//
// 所有方法并发安全。状态和统计都存放在注入的 [StateStore] /
// [MetricsCollector] 中，Breaker 自身无按 key 的可变状态，
// 多个 Breaker 实例共享同一 store 时行为一致。
type Breaker struct {
	store    StateStore
	metrics  MetricsCollector
	detector FailureDetector
	opts     options
	observer *observer
}

// New 创建熔断器。
//
// 默认配置：
//   - 状态与统计：进程内存（[NewMemoryStateStore] / [NewMemoryMetrics]）
//   - 熔断策略：失败率 >= 0.5（无最小调用数限制）
//   - 冷却时间：60 秒；探测租约：与冷却时间相同
func New(opts ...Option) (*Breaker, error) {
	o := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	if err := o.validate(); err != nil {
		return nil, err
	}

	obs, err := newObserver(o.meterProvider)
	if err != nil {
		return nil, err
	}

	return &Breaker{
		store:    o.store,
		metrics:  o.metrics,
		detector: o.detector,
		opts:     o,
		observer: obs,
	}, nil
}

// Execute 执行受熔断器保护的操作。
//
// key 标识被保护的下游资源（非空）。熔断器打开时返回 [*CircuitError]
// 且 fn **不会被调用**；fn 被调用后的错误原样透传，不做任何包装。
//
// 调用方通过 [IsOpen] 区分"未尝试"与"已尝试且失败"。
func (b *Breaker) Execute(ctx context.Context, key string, fn func() error) error {
	_, err := Execute(ctx, b, key, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}

// Execute 执行受熔断器保护的操作（泛型版本）。
//
// 与 [Breaker.Execute] 语义一致，支持返回值。
// 包级函数而非方法，因为 Go 不支持方法的类型参数。
func Execute[T any](ctx context.Context, b *Breaker, key string, fn func() (T, error)) (T, error) {
	var zero T
	if ctx == nil {
		return zero, ErrNilContext
	}
	if strings.TrimSpace(key) == "" {
		return zero, ErrEmptyKey
	}
	if fn == nil {
		return zero, ErrNilFunc
	}
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	adm, err := b.admit(ctx, key)
	if err != nil {
		return zero, err
	}
	if !adm.allowed {
		b.observer.rejection(ctx, key)
		b.opts.logger.Debug(ctx, "xcircuit: request rejected",
			xlog.Key(key), xlog.Operation("execute"))
		return zero, newCircuitError(key, adm.status)
	}

	if merr := b.metrics.Attempt(ctx, key); merr != nil {
		b.opts.logger.Warn(ctx, "xcircuit: metrics attempt failed", xlog.Key(key), xlog.Err(merr))
	}

	result, opErr := fn()
	if opErr == nil {
		b.onSuccess(ctx, key, adm)
		return result, nil
	}
	b.onFailure(ctx, key, adm)
	// 操作自身的错误原样透传，熔断器从不吞错或改写
	return zero, opErr
}

// admission 描述一次放行判定的结果。
type admission struct {
	allowed bool
	probe   bool  // 本次调用是否为探测请求
	prev    State // 放行时观察到的状态（探测时为写入的 HALF_OPEN 状态）
	status  Status
}

// admit 判定当前调用是否放行。
//
// OPEN 冷却到期和 HALF_OPEN 探测租约到期都通过 CAS 抢占，
// 保证同一时刻只有一个调用方获得探测资格。
func (b *Breaker) admit(ctx context.Context, key string) (admission, error) {
	now := b.opts.clock.Now()
	for range casRetries {
		state, _, err := b.store.Get(ctx, key)
		if err != nil {
			return admission{}, err
		}

		switch state.Status {
		case StatusClosed:
			return admission{allowed: true, prev: state, status: StatusClosed}, nil

		case StatusOpen:
			if now.Sub(state.LastChange) < b.opts.resetTimeout {
				return admission{status: StatusOpen}, nil
			}
			// 冷却到期：抢占探测资格
			probe := State{Status: StatusHalfOpen, LastChange: now}
			ok, err := b.store.CompareAndSwap(ctx, key, state, probe)
			if err != nil {
				return admission{}, err
			}
			if ok {
				b.transition(ctx, key, StatusOpen, StatusHalfOpen)
				return admission{allowed: true, probe: true, prev: probe, status: StatusHalfOpen}, nil
			}
			// CAS 失败：另一个调用方抢到了探测资格或完成了转换，重读

		case StatusHalfOpen:
			if now.Sub(state.LastChange) < b.opts.probeTimeout {
				// 探测进行中，只放行一个
				return admission{status: StatusHalfOpen}, nil
			}
			// 探测租约到期（持有者可能已崩溃）：重新抢占
			probe := State{Status: StatusHalfOpen, LastChange: now}
			ok, err := b.store.CompareAndSwap(ctx, key, state, probe)
			if err != nil {
				return admission{}, err
			}
			if ok {
				return admission{allowed: true, probe: true, prev: probe, status: StatusHalfOpen}, nil
			}
		}
	}
	// 重试耗尽：保守拒绝，下一次调用重新判定
	return admission{status: StatusOpen}, nil
}

// onSuccess 处理调用成功。
// 探测成功时驱动 HALF_OPEN→CLOSED，并清零统计（全新失败率窗口）。
func (b *Breaker) onSuccess(ctx context.Context, key string, adm admission) {
	if merr := b.metrics.Success(ctx, key); merr != nil {
		b.opts.logger.Warn(ctx, "xcircuit: metrics success failed", xlog.Key(key), xlog.Err(merr))
	}
	if !adm.probe {
		return
	}

	closed := State{Status: StatusClosed, LastChange: b.opts.clock.Now()}
	ok, err := b.store.CompareAndSwap(ctx, key, adm.prev, closed)
	if err != nil {
		b.opts.logger.Error(ctx, "xcircuit: close transition failed", xlog.Key(key), xlog.Err(err))
		return
	}
	if !ok {
		// 探测租约已被其他调用方抢占，对方会完成后续转换
		return
	}
	if rerr := b.metrics.Reset(ctx, key); rerr != nil {
		b.opts.logger.Warn(ctx, "xcircuit: metrics reset failed", xlog.Key(key), xlog.Err(rerr))
	}
	b.transition(ctx, key, StatusHalfOpen, StatusClosed)
	b.opts.logger.Info(ctx, "xcircuit: circuit closed after successful probe", xlog.Key(key))
}

// onFailure 处理调用失败。
// 探测失败无条件回到 OPEN 并重新计时冷却；CLOSED 状态按策略判定是否熔断。
func (b *Breaker) onFailure(ctx context.Context, key string, adm admission) {
	if merr := b.metrics.Failure(ctx, key); merr != nil {
		b.opts.logger.Warn(ctx, "xcircuit: metrics failure failed", xlog.Key(key), xlog.Err(merr))
	}

	counts, err := b.metrics.Counts(ctx, key)
	if err != nil {
		b.opts.logger.Warn(ctx, "xcircuit: metrics read failed", xlog.Key(key), xlog.Err(err))
		return
	}

	state := adm.prev
	if adm.probe {
		state = State{Status: StatusHalfOpen, LastChange: adm.prev.LastChange}
	}
	if !b.detector.ShouldTrip(state, counts) {
		return
	}

	// lastStateChange = now：探测失败后重新走完整冷却，避免对仍不健康的
	// 下游形成紧密重试循环
	open := State{Status: StatusOpen, LastChange: b.opts.clock.Now()}
	ok, cerr := b.store.CompareAndSwap(ctx, key, adm.prev, open)
	if cerr != nil {
		b.opts.logger.Error(ctx, "xcircuit: trip transition failed", xlog.Key(key), xlog.Err(cerr))
		return
	}
	if !ok {
		// 并发调用方已完成转换（两个失败调用只触发一次 CLOSED→OPEN）
		return
	}
	b.transition(ctx, key, adm.prev.Status, StatusOpen)
	b.opts.logger.Warn(ctx, "xcircuit: circuit tripped",
		xlog.Key(key),
		xlog.Operation("trip"))
}

// transition 上报一次状态转换（OTel 计数 + 回调）。
func (b *Breaker) transition(ctx context.Context, key string, from, to Status) {
	b.observer.transition(ctx, key, from, to)
	if b.opts.onStateChange != nil {
		b.opts.onStateChange(key, from, to)
	}
}

// State 返回 key 的当前状态。
// key 从未被记录时返回零值 State（Closed）。
func (b *Breaker) State(ctx context.Context, key string) (State, error) {
	state, _, err := b.store.Get(ctx, key)
	return state, err
}

// Counts 返回 key 的当前统计快照。
func (b *Breaker) Counts(ctx context.Context, key string) (Counts, error) {
	return b.metrics.Counts(ctx, key)
}

// Reset 将 key 重置为初始状态（Closed + 统计清零）。
// 用于运维介入：确认下游恢复后手动解除熔断。
func (b *Breaker) Reset(ctx context.Context, key string) error {
	if err := b.store.Delete(ctx, key); err != nil {
		return err
	}
	return b.metrics.Reset(ctx, key)
}
