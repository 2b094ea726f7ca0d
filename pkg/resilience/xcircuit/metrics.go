package xcircuit

import "context"

// Counts 按 key 的请求统计。
//
// 计数只增不减；清零只发生在熔断器成功恢复（HALF_OPEN→CLOSED）时，
// 保证恢复后以全新窗口计算失败率，历史故障不影响后续判定。
type Counts struct {
	// Attempts 实际发起的调用次数（熔断拒绝不计入）。
	Attempts uint64

	// Successes 成功次数。
	Successes uint64

	// Failures 失败次数。
	Failures uint64
}

// FailureRate 返回失败率 failures/attempts。
// 无调用时返回 0（避免除零）。
func (c Counts) FailureRate() float64 {
	if c.Attempts == 0 {
		return 0
	}
	return float64(c.Failures) / float64(c.Attempts)
}

// MetricsCollector 按 key 收集调用统计。
//
// 实现必须保证递增操作的原子性（跨 goroutine / 跨进程），
// 读-改-写的朴素实现会在并发下丢失计数。所有方法并发安全。
type MetricsCollector interface {
	// Attempt 记录一次调用尝试。
	Attempt(ctx context.Context, key string) error

	// Success 记录一次成功。
	Success(ctx context.Context, key string) error

	// Failure 记录一次失败。
	Failure(ctx context.Context, key string) error

	// Counts 返回 key 的当前统计快照。
	// key 不存在时返回零值 Counts。
	Counts(ctx context.Context, key string) (Counts, error)

	// Reset 清零 key 的统计。
	Reset(ctx context.Context, key string) error
}
