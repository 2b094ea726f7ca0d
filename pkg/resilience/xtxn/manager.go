package xtxn

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/omeyang/xguard/pkg/observability/xlog"
	"github.com/omeyang/xguard/pkg/util/xclock"
)

// Manager 事务生命周期管理器。
//
// 所有方法并发安全。状态演进是单向的：
// ACTIVE → COMMITTED | ROLLED_BACK | FAILED，终态不可变。
type Manager struct {
	store    Store
	tracker  StateTracker
	journal  Journal
	locks    LockManager
	ids      IDGenerator
	clock    xclock.Clock
	logger   xlog.Logger
	observer *observer
}

// NewManager 创建事务管理器。[WithTracker] 为必选项。
func NewManager(opts ...Option) (*Manager, error) {
	o := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	if err := o.validate(); err != nil {
		return nil, err
	}

	m := &Manager{
		store:   o.store,
		tracker: o.tracker,
		journal: o.journal,
		locks:   o.locks,
		ids:     o.ids,
		clock:   o.clock,
		logger:  o.logger,
	}
	obs, err := newObserver(o.meterProvider)
	if err != nil {
		return nil, err
	}
	m.observer = obs
	return m, nil
}

// Begin 开启新事务。
//
// 在此刻捕获初始快照作为回滚目标，保存事务记录并写入 BEGIN 日志。
// 日志写入失败时事务被标记为 FAILED：没有 BEGIN 记录的事务
// 无法审计，不允许继续执行。
func (m *Manager) Begin(ctx context.Context) (Transaction, error) {
	if ctx == nil {
		return Transaction{}, ErrNilContext
	}
	if err := ctx.Err(); err != nil {
		return Transaction{}, err
	}

	id, err := m.ids.NextID(ctx)
	if err != nil {
		return Transaction{}, err
	}

	initial, err := m.tracker.Checkpoint(ctx)
	if err != nil {
		return Transaction{}, fmt.Errorf("xtxn: capture initial snapshot: %w", err)
	}

	txn := Transaction{
		ID:        id,
		State:     StateActive,
		StartTime: m.clock.Now(),
		Initial:   &initial,
	}
	if err := m.store.Save(ctx, txn); err != nil {
		return Transaction{}, err
	}

	if err := m.append(ctx, EntryBegin, txn.ID, &initial, ""); err != nil {
		m.fail(ctx, &txn, err)
		return Transaction{}, fmt.Errorf("xtxn: journal begin entry: %w", err)
	}

	m.logger.Debug(ctx, "transaction started", xlog.TxnID(txn.ID))
	return txn, nil
}

// Commit 提交事务。
//
// 捕获最终快照，将事务推进到 COMMITTED 并写入 COMMIT 日志。
// 只有 ACTIVE 事务可以提交；终态事务返回 [*InvalidStateError]
// 且不产生任何状态或日志变更。并发的提交/回滚通过事务锁互斥：
// 锁被占用时立即返回 [ErrResourceLocked]。
//
// 中途失败时事务被标记为 FAILED，返回 [*CommitError]。
func (m *Manager) Commit(ctx context.Context, id string) (Transaction, error) {
	if ctx == nil {
		return Transaction{}, ErrNilContext
	}

	handle, err := m.locks.TryAcquire(ctx, id)
	if err != nil {
		if errors.Is(err, ErrResourceLocked) {
			m.observer.lockConflict(ctx, "commit")
		}
		return Transaction{}, err
	}
	defer func() { _ = handle.Release(ctx) }()

	txn, err := m.store.Get(ctx, id)
	if err != nil {
		return Transaction{}, err
	}
	if txn.State != StateActive {
		return txn, &InvalidStateError{ID: id, State: txn.State, Op: "commit"}
	}

	final, err := m.tracker.Checkpoint(ctx)
	if err != nil {
		m.fail(ctx, &txn, err)
		return txn, &CommitError{ID: id, Err: fmt.Errorf("capture final snapshot: %w", err)}
	}

	txn.State = StateCommitted
	txn.EndTime = m.clock.Now()
	txn.Final = &final

	if err := m.store.Update(ctx, txn); err != nil {
		m.fail(ctx, &txn, err)
		return txn, &CommitError{ID: id, Err: err}
	}
	if err := m.append(ctx, EntryCommit, txn.ID, &final, ""); err != nil {
		m.fail(ctx, &txn, err)
		return txn, &CommitError{ID: id, Err: fmt.Errorf("journal commit entry: %w", err)}
	}

	m.logger.Info(ctx, "transaction committed",
		xlog.TxnID(txn.ID),
		xlog.Duration(txn.EndTime.Sub(txn.StartTime)),
	)
	m.report(ctx, txn)
	return txn, nil
}

// Rollback 回滚事务到初始快照。
//
// 回滚失败是致命错误：状态恢复中断意味着系统可能处于不一致
// 状态，返回不可重试的 [*RollbackError]，需要人工介入。
// 与 Commit 相同，终态事务返回 [*InvalidStateError]，
// 锁被占用时返回 [ErrResourceLocked]。
func (m *Manager) Rollback(ctx context.Context, id string) (Transaction, error) {
	if ctx == nil {
		return Transaction{}, ErrNilContext
	}

	handle, err := m.locks.TryAcquire(ctx, id)
	if err != nil {
		if errors.Is(err, ErrResourceLocked) {
			m.observer.lockConflict(ctx, "rollback")
		}
		return Transaction{}, err
	}
	defer func() { _ = handle.Release(ctx) }()

	txn, err := m.store.Get(ctx, id)
	if err != nil {
		return Transaction{}, err
	}
	if txn.State != StateActive {
		return txn, &InvalidStateError{ID: id, State: txn.State, Op: "rollback"}
	}
	if txn.Initial == nil {
		m.fail(ctx, &txn, ErrNoSnapshot)
		return txn, &RollbackError{ID: id, Err: ErrNoSnapshot}
	}

	if err := m.tracker.Restore(ctx, *txn.Initial); err != nil {
		m.fail(ctx, &txn, err)
		return txn, &RollbackError{ID: id, Err: fmt.Errorf("restore snapshot: %w", err)}
	}

	txn.State = StateRolledBack
	txn.EndTime = m.clock.Now()

	if err := m.store.Update(ctx, txn); err != nil {
		m.fail(ctx, &txn, err)
		return txn, &RollbackError{ID: id, Err: err}
	}
	if err := m.append(ctx, EntryRollback, txn.ID, nil, ""); err != nil {
		m.fail(ctx, &txn, err)
		return txn, &RollbackError{ID: id, Err: fmt.Errorf("journal rollback entry: %w", err)}
	}

	m.logger.Warn(ctx, "transaction rolled back", xlog.TxnID(txn.ID))
	m.report(ctx, txn)
	return txn, nil
}

// Run 在事务中执行 fn。
//
// fn 返回 nil 时提交，返回错误时回滚；回滚自身失败时
// 两个错误一并返回。
func (m *Manager) Run(ctx context.Context, fn func(ctx context.Context, txn Transaction) error) error {
	if fn == nil {
		return ErrNilFunc
	}
	txn, err := m.Begin(ctx)
	if err != nil {
		return err
	}

	if err := fn(ctx, txn); err != nil {
		if _, rbErr := m.Rollback(ctx, txn.ID); rbErr != nil {
			return errors.Join(err, rbErr)
		}
		return err
	}

	_, err = m.Commit(ctx, txn.ID)
	return err
}

// Get 按 ID 读取事务记录。
func (m *Manager) Get(ctx context.Context, id string) (Transaction, error) {
	return m.store.Get(ctx, id)
}

// History 按写入顺序返回事务的审计日志。
func (m *Manager) History(ctx context.Context, id string) ([]JournalEntry, error) {
	return m.journal.Entries(ctx, id)
}

// append 写入一条日志。
func (m *Manager) append(ctx context.Context, typ EntryType, txnID string, snapshot *Snapshot, message string) error {
	return m.journal.Append(ctx, JournalEntry{
		ID:        uuid.NewString(),
		Type:      typ,
		TxnID:     txnID,
		Timestamp: m.clock.Now(),
		Snapshot:  snapshot,
		Message:   message,
	})
}

// fail 将事务标记为 FAILED。
//
// 事务已经出错，这里的存储和日志写入只能尽力而为：
// 再失败也只记录日志，不改变返回给调用方的原始错误。
func (m *Manager) fail(ctx context.Context, txn *Transaction, cause error) {
	txn.State = StateFailed
	txn.EndTime = m.clock.Now()
	if err := m.store.Update(ctx, *txn); err != nil {
		m.logger.Error(ctx, "mark transaction failed", xlog.TxnID(txn.ID), xlog.Err(err))
	}
	if err := m.append(ctx, EntryError, txn.ID, nil, cause.Error()); err != nil {
		m.logger.Error(ctx, "journal error entry", xlog.TxnID(txn.ID), xlog.Err(err))
	}
	m.logger.Error(ctx, "transaction failed", xlog.TxnID(txn.ID), xlog.Err(cause))
	m.report(ctx, *txn)
}

func (m *Manager) report(ctx context.Context, txn Transaction) {
	m.observer.outcome(ctx, txn.State, txn.EndTime.Sub(txn.StartTime))
}
