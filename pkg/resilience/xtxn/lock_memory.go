package xtxn

import (
	"context"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"

	"github.com/omeyang/xguard/pkg/util/xclock"
)

const lockShardCount = 32 // 必须是 2 的幂

// memoryLock 单个资源的锁记录。
type memoryLock struct {
	token    string // 持有者令牌，防止过期后误释放他人的锁
	deadline time.Time
}

type lockShard struct {
	mu    sync.Mutex
	locks map[string]memoryLock
}

// memoryLockManager 进程内租约锁。
//
// 设计决策: 与跨进程实现保持同一语义——非阻塞、租约 TTL、
// 过期回收。单进程部署无需外部依赖即可获得完整的锁行为。
type memoryLockManager struct {
	shards [lockShardCount]lockShard
	ttl    time.Duration
	clock  xclock.Clock
}

// NewMemoryLockManager 创建进程内锁管理器。
// ttl 非正时使用 [DefaultLockTTL]。
func NewMemoryLockManager(ttl time.Duration) LockManager {
	return newMemoryLockManager(ttl, xclock.System())
}

func newMemoryLockManager(ttl time.Duration, clock xclock.Clock) *memoryLockManager {
	if ttl <= 0 {
		ttl = DefaultLockTTL
	}
	if clock == nil {
		clock = xclock.System()
	}
	m := &memoryLockManager{ttl: ttl, clock: clock}
	for i := range m.shards {
		m.shards[i].locks = make(map[string]memoryLock)
	}
	return m
}

func (m *memoryLockManager) shard(resourceID string) *lockShard {
	return &m.shards[xxhash.Sum64String(resourceID)&(lockShardCount-1)]
}

// TryAcquire 实现 [LockManager]。
func (m *memoryLockManager) TryAcquire(ctx context.Context, resourceID string) (LockHandle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sh := m.shard(resourceID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	now := m.clock.Now()
	if cur, ok := sh.locks[resourceID]; ok && now.Before(cur.deadline) {
		return nil, ErrResourceLocked
	}

	// 空闲或租约已过期：覆盖旧记录即完成回收。
	token := uuid.NewString()
	sh.locks[resourceID] = memoryLock{token: token, deadline: now.Add(m.ttl)}
	return &memoryLockHandle{
		mgr:        m,
		resourceID: resourceID,
		token:      token,
		acquiredAt: now,
	}, nil
}

type memoryLockHandle struct {
	mgr        *memoryLockManager
	resourceID string
	token      string
	acquiredAt time.Time

	once sync.Once
}

// Release 实现 [LockHandle]。
func (h *memoryLockHandle) Release(_ context.Context) error {
	h.once.Do(func() {
		sh := h.mgr.shard(h.resourceID)
		sh.mu.Lock()
		defer sh.mu.Unlock()
		// 仅删除自己持有的记录：租约过期后锁可能已被他人回收。
		if cur, ok := sh.locks[h.resourceID]; ok && cur.token == h.token {
			delete(sh.locks, h.resourceID)
		}
	})
	return nil
}

// ResourceID 实现 [LockHandle]。
func (h *memoryLockHandle) ResourceID() string { return h.resourceID }

// AcquiredAt 实现 [LockHandle]。
func (h *memoryLockHandle) AcquiredAt() time.Time { return h.acquiredAt }

// 编译期接口检查
var (
	_ LockManager = (*memoryLockManager)(nil)
	_ LockHandle  = (*memoryLockHandle)(nil)
)
