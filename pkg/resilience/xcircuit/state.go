package xcircuit

import (
	"context"
	"time"
)

// Status 熔断器状态。
type Status int

const (
	// StatusClosed 关闭状态：请求正常通过。
	// 零值即 Closed——StateStore 中不存在的 key 等价于 {Closed, 零时间}。
	StatusClosed Status = iota

	// StatusOpen 打开状态：请求直接失败。
	StatusOpen

	// StatusHalfOpen 半开状态：只放行一个探测请求。
	StatusHalfOpen
)

// String 实现 fmt.Stringer。
func (s Status) String() string {
	switch s {
	case StatusClosed:
		return "closed"
	case StatusOpen:
		return "open"
	case StatusHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// State 熔断器的持久化状态。
//
// 零值 State 表示"从未熔断过"：Closed 状态、零 LastChange。
// StateStore 中不存在的 key 必须按零值 State 处理。
type State struct {
	// Status 当前状态。
	Status Status

	// LastChange 最近一次状态转换的时间。
	// OPEN 状态下用于判断冷却是否到期；HALF_OPEN 状态下是探测开始时间。
	LastChange time.Time
}

// Equal 判断两个 State 是否相等。
// 时间比较使用 time.Time.Equal，避免单调时钟分量干扰。
func (s State) Equal(other State) bool {
	return s.Status == other.Status && s.LastChange.Equal(other.LastChange)
}

// StateStore 按 key 存取熔断器状态。
//
// 实现必须保证 CompareAndSwap 的原子性：这是多个调用方（可能跨进程）
// 之间状态转换线性化的唯一依据。所有方法并发安全。
type StateStore interface {
	// Get 读取 key 的状态。
	// key 不存在时返回 (State 零值, false, nil)。
	Get(ctx context.Context, key string) (State, bool, error)

	// CompareAndSwap 原子地将 key 的状态从 old 替换为 new。
	// key 不存在时视为零值 State：old 为零值则允许创建。
	// 当前状态与 old 不符时返回 (false, nil)，不做任何修改。
	CompareAndSwap(ctx context.Context, key string, old, new State) (bool, error)

	// Delete 删除 key 的状态（等价于重置为 Closed）。
	// key 不存在时静默成功。
	Delete(ctx context.Context, key string) error
}
