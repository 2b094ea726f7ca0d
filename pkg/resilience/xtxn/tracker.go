package xtxn

import (
	"context"
	"sync"

	"github.com/omeyang/xguard/pkg/util/xclock"
)

// MemoryTracker 进程内键值状态的 [StateTracker] 实现。
//
// 适合保护一份进程内的配置或缓存状态；跨进程状态由调用方
// 实现自己的 StateTracker。
type MemoryTracker struct {
	mu    sync.RWMutex
	data  map[string]any
	clock xclock.Clock
}

// NewMemoryTracker 创建进程内状态跟踪器。
func NewMemoryTracker() *MemoryTracker {
	return newMemoryTracker(xclock.System())
}

func newMemoryTracker(clock xclock.Clock) *MemoryTracker {
	return &MemoryTracker{
		data:  make(map[string]any),
		clock: clock,
	}
}

// Set 写入一个键。
func (t *MemoryTracker) Set(key string, value any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.data[key] = value
}

// Get 读取一个键。
func (t *MemoryTracker) Get(key string) (any, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	v, ok := t.data[key]
	return v, ok
}

// Delete 删除一个键。
func (t *MemoryTracker) Delete(key string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.data, key)
}

// Checkpoint 实现 [StateTracker]。
func (t *MemoryTracker) Checkpoint(ctx context.Context) (Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return Snapshot{}, err
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	data := make(map[string]any, len(t.data))
	for k, v := range t.data {
		data[k] = v
	}
	return Snapshot{Timestamp: t.clock.Now(), Data: data}, nil
}

// Restore 实现 [StateTracker]。当前状态被整体替换为快照内容。
func (t *MemoryTracker) Restore(ctx context.Context, snapshot Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	data := make(map[string]any, len(snapshot.Data))
	for k, v := range snapshot.Data {
		data[k] = v
	}
	t.data = data
	return nil
}

// 编译期接口检查
var _ StateTracker = (*MemoryTracker)(nil)
