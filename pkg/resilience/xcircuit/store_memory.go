package xcircuit

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
)

// shardCount 内存后端的分片数（2 的幂）。
// 按 key 分片减少管理锁争用，与 xkeylock 相同的取模方式。
const shardCount = 32

// memoryStateStore 进程内存状态存储。
//
// 每个分片一把互斥锁，CAS 在分片锁内完成读-比较-写，
// 同一 key 的状态转换天然线性化。
type memoryStateStore struct {
	shards [shardCount]stateShard
}

type stateShard struct {
	mu     sync.Mutex
	states map[string]State
}

// NewMemoryStateStore 创建进程内存状态存储。
//
// 单进程部署的默认选择。多实例共享熔断决策时使用 [NewRedisStateStore]。
func NewMemoryStateStore() StateStore {
	s := &memoryStateStore{}
	for i := range s.shards {
		s.shards[i].states = make(map[string]State)
	}
	return s
}

func (s *memoryStateStore) shard(key string) *stateShard {
	h := xxhash.Sum64String(key)
	return &s.shards[h&(shardCount-1)]
}

func (s *memoryStateStore) Get(_ context.Context, key string) (State, bool, error) {
	sh := s.shard(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	state, ok := sh.states[key]
	return state, ok, nil
}

func (s *memoryStateStore) CompareAndSwap(_ context.Context, key string, old, new State) (bool, error) {
	sh := s.shard(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	// 不存在的 key 等价于零值 State
	current := sh.states[key]
	if !current.Equal(old) {
		return false, nil
	}
	sh.states[key] = new
	return true, nil
}

func (s *memoryStateStore) Delete(_ context.Context, key string) error {
	sh := s.shard(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	delete(sh.states, key)
	return nil
}

// memoryMetrics 进程内存统计收集器。
//
// 计数器使用 atomic，递增路径无锁；分片锁只保护 map 结构本身。
type memoryMetrics struct {
	shards [shardCount]metricsShard
}

type metricsShard struct {
	mu       sync.Mutex
	counters map[string]*keyCounters
}

type keyCounters struct {
	attempts  atomic.Uint64
	successes atomic.Uint64
	failures  atomic.Uint64
}

// NewMemoryMetrics 创建进程内存统计收集器。
func NewMemoryMetrics() MetricsCollector {
	m := &memoryMetrics{}
	for i := range m.shards {
		m.shards[i].counters = make(map[string]*keyCounters)
	}
	return m
}

func (m *memoryMetrics) shard(key string) *metricsShard {
	h := xxhash.Sum64String(key)
	return &m.shards[h&(shardCount-1)]
}

func (m *memoryMetrics) counters(key string) *keyCounters {
	sh := m.shard(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	c, ok := sh.counters[key]
	if !ok {
		c = &keyCounters{}
		sh.counters[key] = c
	}
	return c
}

func (m *memoryMetrics) Attempt(_ context.Context, key string) error {
	m.counters(key).attempts.Add(1)
	return nil
}

func (m *memoryMetrics) Success(_ context.Context, key string) error {
	m.counters(key).successes.Add(1)
	return nil
}

func (m *memoryMetrics) Failure(_ context.Context, key string) error {
	m.counters(key).failures.Add(1)
	return nil
}

func (m *memoryMetrics) Counts(_ context.Context, key string) (Counts, error) {
	sh := m.shard(key)
	sh.mu.Lock()
	c, ok := sh.counters[key]
	sh.mu.Unlock()

	if !ok {
		return Counts{}, nil
	}
	return Counts{
		Attempts:  c.attempts.Load(),
		Successes: c.successes.Load(),
		Failures:  c.failures.Load(),
	}, nil
}

func (m *memoryMetrics) Reset(_ context.Context, key string) error {
	sh := m.shard(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	delete(sh.counters, key)
	return nil
}

// 编译期接口检查。
var (
	_ StateStore       = (*memoryStateStore)(nil)
	_ MetricsCollector = (*memoryMetrics)(nil)
)
