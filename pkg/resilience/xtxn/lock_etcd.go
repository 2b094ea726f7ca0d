package xtxn

import (
	"context"
	"errors"
	"fmt"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"
	"go.etcd.io/etcd/client/v3/concurrency"

	"github.com/omeyang/xguard/pkg/util/xclock"
)

const defaultEtcdLockPrefix = "/xguard/txn/lock/"

// EtcdLockManager 基于 etcd 的跨进程锁。
//
// 设计决策: 租约 TTL 由 Session 的 lease 实现，Session 心跳保活，
// 持有者崩溃后 lease 过期自动回收，语义天然满足租约锁要求。
type EtcdLockManager struct {
	session *concurrency.Session
	prefix  string
	clock   xclock.Clock
}

// EtcdLockOption 配置 etcd 锁管理器。
type EtcdLockOption func(*EtcdLockManager)

// WithEtcdLockPrefix 设置锁 key 前缀。
func WithEtcdLockPrefix(prefix string) EtcdLockOption {
	return func(m *EtcdLockManager) {
		if prefix != "" {
			m.prefix = prefix
		}
	}
}

// NewEtcdLockManager 创建基于 etcd 的锁管理器。
// ttl 非正时使用 [DefaultLockTTL]；etcd 的 lease TTL 以秒为单位，不足一秒按一秒计。
func NewEtcdLockManager(client *clientv3.Client, ttl time.Duration, opts ...EtcdLockOption) (*EtcdLockManager, error) {
	if client == nil {
		return nil, ErrNilEtcdClient
	}
	if ttl <= 0 {
		ttl = DefaultLockTTL
	}
	seconds := int(ttl / time.Second)
	if seconds < 1 {
		seconds = 1
	}

	session, err := concurrency.NewSession(client, concurrency.WithTTL(seconds))
	if err != nil {
		return nil, fmt.Errorf("xtxn: create etcd session: %w", err)
	}

	m := &EtcdLockManager{
		session: session,
		prefix:  defaultEtcdLockPrefix,
		clock:   xclock.System(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	return m, nil
}

// TryAcquire 实现 [LockManager]。
func (m *EtcdLockManager) TryAcquire(ctx context.Context, resourceID string) (LockHandle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	mutex := concurrency.NewMutex(m.session, m.prefix+resourceID)
	if err := mutex.TryLock(ctx); err != nil {
		if errors.Is(err, concurrency.ErrLocked) {
			return nil, fmt.Errorf("%w: %w", ErrResourceLocked, err)
		}
		return nil, err
	}

	return &etcdLockHandle{
		mutex:      mutex,
		resourceID: resourceID,
		acquiredAt: m.clock.Now(),
	}, nil
}

// Close 关闭底层 Session，释放 lease。
func (m *EtcdLockManager) Close() error {
	return m.session.Close()
}

type etcdLockHandle struct {
	mutex      *concurrency.Mutex
	resourceID string
	acquiredAt time.Time
}

// Release 实现 [LockHandle]。锁已被释放或 Session 已过期视为成功。
func (h *etcdLockHandle) Release(ctx context.Context) error {
	if err := h.mutex.Unlock(ctx); err != nil {
		if errors.Is(err, concurrency.ErrLockReleased) ||
			errors.Is(err, concurrency.ErrSessionExpired) {
			return nil
		}
		return err
	}
	return nil
}

// ResourceID 实现 [LockHandle]。
func (h *etcdLockHandle) ResourceID() string { return h.resourceID }

// AcquiredAt 实现 [LockHandle]。
func (h *etcdLockHandle) AcquiredAt() time.Time { return h.acquiredAt }

// 编译期接口检查
var (
	_ LockManager = (*EtcdLockManager)(nil)
	_ LockHandle  = (*etcdLockHandle)(nil)
)
