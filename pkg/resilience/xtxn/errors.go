package xtxn

import (
	"errors"
	"fmt"
)

// 预定义错误。
var (
	// ErrResourceLocked 资源已被其他持有者锁定。
	// TryAcquire 不阻塞等待，调用方可稍后重试。
	ErrResourceLocked = errors.New("xtxn: resource locked")

	// ErrTxnNotFound 事务不存在。
	ErrTxnNotFound = errors.New("xtxn: transaction not found")

	// ErrDuplicateID 事务 ID 已存在。
	ErrDuplicateID = errors.New("xtxn: duplicate transaction id")

	// ErrNilContext context 为 nil。
	ErrNilContext = errors.New("xtxn: nil context")

	// ErrNilTracker 未配置 StateTracker。
	ErrNilTracker = errors.New("xtxn: nil state tracker")

	// ErrNilFunc 事务函数为 nil。
	ErrNilFunc = errors.New("xtxn: nil function")

	// ErrNoSnapshot 事务缺少初始快照，无法回滚。
	ErrNoSnapshot = errors.New("xtxn: no initial snapshot")

	// ErrNilRedisClient Redis 客户端为 nil。
	ErrNilRedisClient = errors.New("xtxn: nil redis client")

	// ErrNilMongoCollection Mongo 集合为 nil。
	ErrNilMongoCollection = errors.New("xtxn: nil mongo collection")

	// ErrNilEtcdClient etcd 客户端为 nil。
	ErrNilEtcdClient = errors.New("xtxn: nil etcd client")
)

// InvalidStateError 在非 ACTIVE 事务上执行 Commit/Rollback。
//
// 终态不可变：该错误不会引起任何状态变更或日志写入。
type InvalidStateError struct {
	// ID 事务 ID。
	ID string

	// State 事务当前状态。
	State State

	// Op 被拒绝的操作（"commit" 或 "rollback"）。
	Op string
}

// Error 实现 error 接口。
func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("xtxn: cannot %s transaction %s in state %s", e.Op, e.ID, e.State)
}

// CommitError 提交失败。
//
// 事务已被标记为 FAILED；底层原因通过 Unwrap 获取。
type CommitError struct {
	// ID 事务 ID。
	ID string

	// Err 底层原因。
	Err error
}

// Error 实现 error 接口。
func (e *CommitError) Error() string {
	return fmt.Sprintf("xtxn: commit transaction %s: %v", e.ID, e.Err)
}

// Unwrap 返回底层错误。
func (e *CommitError) Unwrap() error { return e.Err }

// RollbackError 回滚失败。
//
// 致命错误：状态恢复失败意味着系统可能处于不一致状态，
// 不可自动重试，需要人工介入。
type RollbackError struct {
	// ID 事务 ID。
	ID string

	// Err 底层原因。
	Err error
}

// Error 实现 error 接口。
func (e *RollbackError) Error() string {
	return fmt.Sprintf("xtxn: rollback transaction %s: %v", e.ID, e.Err)
}

// Unwrap 返回底层错误。
func (e *RollbackError) Unwrap() error { return e.Err }

// Retryable 实现可重试判定接口，回滚失败永远不可重试。
func (e *RollbackError) Retryable() bool { return false }
