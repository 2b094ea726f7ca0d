// Package xtxn 提供带审计日志和回滚能力的事务执行信封（all-or-nothing envelope）。
//
// # 模型
//
// 一次事务的生命周期：
//
//	Begin ──> ACTIVE ──Commit──> COMMITTED
//	               └──Rollback─> ROLLED_BACK
//	               └──(失败)───> FAILED
//
// 终态不可变：对非 ACTIVE 事务的任何 Commit/Rollback 都被拒绝
// （[*InvalidStateError]），重复提交不会产生第二条日志。
//
// # 组成
//
//   - [StateTracker]：业务状态的快照与恢复。Begin 自动捕获初始快照作为
//     回滚目标，Commit 捕获最终快照作为审计记录。
//   - [Journal]：append-only 生命周期日志（BEGIN/COMMIT/ROLLBACK/ERROR）。
//     同一事务内严格有序：BEGIN 先于任何终态条目。日志写入失败就是
//     提交/回滚本身的失败，而不是可丢弃的 best-effort 日志行。
//   - [LockManager]：按资源 ID 的非阻塞互斥。Commit/Rollback 期间持有
//     事务 ID 上的锁，竞争立即返回 [ErrResourceLocked]（不排队不等待，
//     由调用方决定重试或放弃）。锁带租约：持有者崩溃后到期可回收。
//   - [Store]：事务记录的持久化（内存 / Redis）。
//
// # 失败语义
//
//   - Commit 中途失败：事务标记 FAILED、追加 ERROR 日志、错误包装为
//     [*CommitError] 上抛。事务绝不会在异常后停留在 ACTIVE。
//   - Rollback 中的恢复或日志失败：返回 [*RollbackError]，致命且不可
//     重试——系统无法确认已回到已知良好状态，必须上浮到运维告警路径，
//     而不是静默重试把局面弄得更糟。
//
// # 使用示例
//
//	mgr, err := xtxn.NewManager(xtxn.WithTracker(tracker))
//	if err != nil {
//	    return err
//	}
//
//	txn, err := mgr.Begin(ctx)
//	if err != nil {
//	    return err
//	}
//	if err := mutate(ctx); err != nil {
//	    _, rbErr := mgr.Rollback(ctx, txn.ID) // 恢复到 Begin 时的快照
//	    return errors.Join(err, rbErr)
//	}
//	_, err = mgr.Commit(ctx, txn.ID)
//	return err
//
// 或使用 [Manager.Run] 自动处理提交/回滚，配合 [Guarded] 嵌入熔断保护。
package xtxn
