package xtxn

import (
	"context"
	"time"
)

// LockHandle 已持有的锁。
type LockHandle interface {
	// Release 释放锁。幂等：重复释放或租约已过期均返回 nil。
	Release(ctx context.Context) error

	// ResourceID 被锁定的资源 ID。
	ResourceID() string

	// AcquiredAt 获取锁的时间。
	AcquiredAt() time.Time
}

// LockManager 非阻塞资源锁。
//
// TryAcquire 立即返回：资源已被持有时返回 [ErrResourceLocked]，
// 绝不阻塞等待。锁带租约 TTL，持有者崩溃后锁可被后续请求回收。
type LockManager interface {
	// TryAcquire 尝试获取资源锁。
	TryAcquire(ctx context.Context, resourceID string) (LockHandle, error)
}
