// Package xcircuit 提供按资源 key 维度的熔断器，保护系统免受持续故障的级联影响。
//
// # 与进程内熔断器的区别
//
// 常见熔断器实现将状态保存在进程内存中，多实例部署时各实例独立熔断。
// xcircuit 将 [State] 和统计计数放入可注入的 [StateStore] 与
// [MetricsCollector]（内存 / Redis），同一逻辑资源在多进程间共享熔断决策。
// 状态变更通过 CompareAndSwap 完成，两个并发调用方不会同时触发同一次
// CLOSED→OPEN 转换，也不会被同时放行为唯一的探测请求。
//
// # 熔断器状态
//
//   - StatusClosed（关闭）：正常状态，请求正常通过
//   - StatusOpen（打开）：熔断状态，请求直接失败
//   - StatusHalfOpen（半开）：探测状态，只放行一个探测请求
//
// # 状态机
//
//   - CLOSED → OPEN：失败率达到阈值（[FailureDetector] 判定）
//   - OPEN → HALF_OPEN：冷却时间（resetTimeout）到期后，单个调用方通过
//     CAS 抢到探测资格
//   - HALF_OPEN → CLOSED：探测成功，统计计数清零
//   - HALF_OPEN → OPEN：探测失败，重新计时冷却（lastStateChange = now）
//
// HALF_OPEN 是持久化状态：探测资格通过 CAS 抢占，避免冷却到期瞬间的
// 探测惊群。若持有探测资格的进程崩溃，超过 probeTimeout 后其他调用方
// 可重新抢占。
//
// # 错误语义
//
// 熔断拒绝返回 [*CircuitError]（包裹 [ErrCircuitOpen]），表示"未尝试调用"；
// 其他错误原样透传，表示"已尝试且失败"。调用方通过 [IsOpen] 区分两者。
// 被保护操作自身的错误永远不会被吞掉或改写。
//
// # 使用示例
//
//	breaker, err := xcircuit.New(
//	    xcircuit.WithFailureRate(0.5, 2),
//	    xcircuit.WithResetTimeout(60*time.Second),
//	)
//	if err != nil {
//	    return err
//	}
//
//	err = breaker.Execute(ctx, "payment-gateway", func() error {
//	    return callGateway()
//	})
//	if xcircuit.IsOpen(err) {
//	    return fallback() // 快速失败，未发起调用
//	}
package xcircuit
