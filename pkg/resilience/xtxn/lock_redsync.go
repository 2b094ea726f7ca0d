package xtxn

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	goredislib "github.com/redis/go-redis/v9"

	"github.com/omeyang/xguard/pkg/util/xclock"
)

// defaultLockKeyPrefix 锁在 Redis 中的 key 前缀。
const defaultLockKeyPrefix = "xguard:txn:lock:"

// redisLockManager 基于 redsync 的跨进程租约锁。
//
// 设计决策: WithTries(1) 保证非阻塞语义——获取失败立即返回
// [ErrResourceLocked]，不重试、不等待。租约 TTL 由 redsync 的
// Expiry 实现，持有者崩溃后 key 过期自动回收。
type redisLockManager struct {
	rs     *redsync.Redsync
	ttl    time.Duration
	prefix string
	clock  xclock.Clock
}

// RedisLockOption 配置 Redis 锁管理器。
type RedisLockOption func(*redisLockManager)

// WithLockKeyPrefix 设置锁 key 前缀。
func WithLockKeyPrefix(prefix string) RedisLockOption {
	return func(m *redisLockManager) {
		if prefix != "" {
			m.prefix = prefix
		}
	}
}

// NewRedisLockManager 创建基于 Redis 的锁管理器。
// ttl 非正时使用 [DefaultLockTTL]。
func NewRedisLockManager(client goredislib.UniversalClient, ttl time.Duration, opts ...RedisLockOption) (LockManager, error) {
	if client == nil {
		return nil, ErrNilRedisClient
	}
	if ttl <= 0 {
		ttl = DefaultLockTTL
	}
	m := &redisLockManager{
		rs:     redsync.New(goredis.NewPool(client)),
		ttl:    ttl,
		prefix: defaultLockKeyPrefix,
		clock:  xclock.System(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	return m, nil
}

// TryAcquire 实现 [LockManager]。
func (m *redisLockManager) TryAcquire(ctx context.Context, resourceID string) (LockHandle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	mutex := m.rs.NewMutex(m.prefix+resourceID,
		redsync.WithExpiry(m.ttl),
		redsync.WithTries(1),
	)
	if err := mutex.TryLockContext(ctx); err != nil {
		// context 错误优先保持原样
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		// ErrTaken 是结构体类型，需要 errors.As 检查
		var errTaken *redsync.ErrTaken
		if errors.As(err, &errTaken) || errors.Is(err, redsync.ErrFailed) {
			return nil, fmt.Errorf("%w: %w", ErrResourceLocked, err)
		}
		return nil, err
	}

	return &redisLockHandle{
		mutex:      mutex,
		resourceID: resourceID,
		acquiredAt: m.clock.Now(),
	}, nil
}

type redisLockHandle struct {
	mutex      *redsync.Mutex
	resourceID string
	acquiredAt time.Time
}

// Release 实现 [LockHandle]。
//
// 设计决策: 租约已过期或锁已被他人回收时视为释放成功——
// 对持有者而言锁确实不再属于自己，返回错误没有可执行的补救。
func (h *redisLockHandle) Release(ctx context.Context) error {
	// ok=false 表示锁已不被持有，与过期同样视为成功
	if _, err := h.mutex.UnlockContext(ctx); err != nil {
		if errors.Is(err, redsync.ErrLockAlreadyExpired) {
			return nil
		}
		var errTaken *redsync.ErrTaken
		if errors.As(err, &errTaken) {
			return nil
		}
		return err
	}
	return nil
}

// ResourceID 实现 [LockHandle]。
func (h *redisLockHandle) ResourceID() string { return h.resourceID }

// AcquiredAt 实现 [LockHandle]。
func (h *redisLockHandle) AcquiredAt() time.Time { return h.acquiredAt }

// 编译期接口检查
var (
	_ LockManager = (*redisLockManager)(nil)
	_ LockHandle  = (*redisLockHandle)(nil)
)
