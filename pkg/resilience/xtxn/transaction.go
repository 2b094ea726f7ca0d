package xtxn

import (
	"context"
	"time"
)

// State 事务状态。
type State int

const (
	// StateActive 进行中：唯一允许 Commit/Rollback 的状态。
	StateActive State = iota

	// StateCommitted 已提交（终态）。
	StateCommitted

	// StateRolledBack 已回滚（终态）。
	StateRolledBack

	// StateFailed 提交失败（终态）。
	StateFailed
)

// String 实现 fmt.Stringer。
func (s State) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateCommitted:
		return "committed"
	case StateRolledBack:
		return "rolled-back"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal 返回状态是否为终态。
// 终态不可变：终态事务拒绝任何后续 Commit/Rollback。
func (s State) Terminal() bool {
	return s == StateCommitted || s == StateRolledBack || s == StateFailed
}

// Snapshot 某一时刻的业务状态快照。
//
// Data 是调用方视角的"当前状态"，内容对 xtxn 不透明；
// 作为回滚目标和审计记录使用。
type Snapshot struct {
	// Timestamp 快照捕获时间。
	Timestamp time.Time `json:"timestamp"`

	// Data 捕获的数据。
	Data map[string]any `json:"data"`
}

// Clone 返回快照的副本（顶层 map 复制）。
//
// Data 的值假定为值语义；嵌套引用类型由调用方自行保证不被修改。
func (s Snapshot) Clone() Snapshot {
	if s.Data == nil {
		return Snapshot{Timestamp: s.Timestamp}
	}
	data := make(map[string]any, len(s.Data))
	for k, v := range s.Data {
		data[k] = v
	}
	return Snapshot{Timestamp: s.Timestamp, Data: data}
}

// Transaction 事务记录。
//
// 由 [Manager.Begin] 创建；State 的演进只通过 Manager 的操作完成，
// 调用方不应自行修改字段。
type Transaction struct {
	// ID 全局唯一的事务 ID。
	ID string `json:"id"`

	// State 当前状态。
	State State `json:"state"`

	// StartTime Begin 时间。
	StartTime time.Time `json:"start_time"`

	// EndTime 进入终态的时间，ACTIVE 期间为零值。
	EndTime time.Time `json:"end_time,omitzero"`

	// Initial Begin 时捕获的初始快照（回滚目标）。
	Initial *Snapshot `json:"initial,omitempty"`

	// Final Commit 时捕获的最终快照（审计记录）。
	Final *Snapshot `json:"final,omitempty"`
}

// StateTracker 业务状态的快照与恢复。
//
// Begin 通过 Checkpoint 捕获回滚目标，Rollback 通过 Restore 恢复。
// 实现由调用方提供：被事务保护的"当前状态"只有调用方知道在哪里。
type StateTracker interface {
	// Checkpoint 捕获当前状态快照。
	Checkpoint(ctx context.Context) (Snapshot, error)

	// Restore 将状态恢复到指定快照。
	Restore(ctx context.Context, snapshot Snapshot) error
}

// Store 事务记录存储。
//
// 所有方法并发安全。
type Store interface {
	// Save 保存新事务。ID 已存在时返回 [ErrDuplicateID]。
	Save(ctx context.Context, txn Transaction) error

	// Get 按 ID 读取事务。不存在时返回 [ErrTxnNotFound]。
	Get(ctx context.Context, id string) (Transaction, error)

	// Update 更新已存在的事务。不存在时返回 [ErrTxnNotFound]。
	Update(ctx context.Context, txn Transaction) error
}

// IDGenerator 事务 ID 生成器。
type IDGenerator interface {
	// NextID 生成下一个全局唯一 ID。
	NextID(ctx context.Context) (string, error)
}
