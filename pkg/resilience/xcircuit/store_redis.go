package xcircuit

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultStatePrefix   = "xguard:circuit:state:"
	defaultMetricsPrefix = "xguard:circuit:metrics:"
)

// casScript 原子比较并替换状态。
//
// KEYS[1] 状态 key；ARGV[1] 期望的当前编码（空串表示 key 不存在）；
// ARGV[2] 新编码。返回 1 表示替换成功。
var casScript = redis.NewScript(`
local cur = redis.call('GET', KEYS[1])
if cur == false then
  cur = ''
end
if cur ~= ARGV[1] then
  return 0
end
redis.call('SET', KEYS[1], ARGV[2])
return 1
`)

// storedState State 的 Redis 编码。
// 时间以 UnixNano 存储，编码确定性依赖固定的字段顺序。
type storedState struct {
	Status     Status `json:"status"`
	LastChange int64  `json:"last_change"`
}

func encodeState(s State) (string, error) {
	if s.Equal(State{}) {
		// 零值 State 与"key 不存在"等价，编码为空串供 CAS 匹配
		return "", nil
	}
	raw, err := json.Marshal(storedState{
		Status:     s.Status,
		LastChange: s.LastChange.UnixNano(),
	})
	if err != nil {
		return "", fmt.Errorf("xcircuit: encode state: %w", err)
	}
	return string(raw), nil
}

func decodeState(raw string) (State, error) {
	if raw == "" {
		return State{}, nil
	}
	var stored storedState
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		return State{}, fmt.Errorf("xcircuit: decode state: %w", err)
	}
	return State{
		Status:     stored.Status,
		LastChange: time.Unix(0, stored.LastChange),
	}, nil
}

// RedisOption 定义 Redis 后端可选配置。
type RedisOption func(*redisOptions)

type redisOptions struct {
	statePrefix   string
	metricsPrefix string
}

func defaultRedisOptions() redisOptions {
	return redisOptions{
		statePrefix:   defaultStatePrefix,
		metricsPrefix: defaultMetricsPrefix,
	}
}

// WithStateKeyPrefix 设置状态 key 前缀。默认 "xguard:circuit:state:"。
func WithStateKeyPrefix(prefix string) RedisOption {
	return func(o *redisOptions) {
		if prefix != "" {
			o.statePrefix = prefix
		}
	}
}

// WithMetricsKeyPrefix 设置统计 key 前缀。默认 "xguard:circuit:metrics:"。
func WithMetricsKeyPrefix(prefix string) RedisOption {
	return func(o *redisOptions) {
		if prefix != "" {
			o.metricsPrefix = prefix
		}
	}
}

// redisStateStore Redis 状态存储。
//
// CAS 通过 Lua 脚本在服务端原子完成，多进程共享同一熔断决策。
type redisStateStore struct {
	client redis.UniversalClient
	opts   redisOptions
}

// NewRedisStateStore 创建 Redis 状态存储。
//
// 状态编码为 JSON；所有写入都经过同一编码路径，保证 CAS 的
// 字节级比较确定性。client 为 nil 时返回错误。
func NewRedisStateStore(client redis.UniversalClient, opts ...RedisOption) (StateStore, error) {
	if client == nil {
		return nil, ErrNilRedisClient
	}
	o := defaultRedisOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return &redisStateStore{client: client, opts: o}, nil
}

func (s *redisStateStore) Get(ctx context.Context, key string) (State, bool, error) {
	raw, err := s.client.Get(ctx, s.opts.statePrefix+key).Result()
	if err == redis.Nil {
		return State{}, false, nil
	}
	if err != nil {
		return State{}, false, fmt.Errorf("xcircuit: redis get: %w", err)
	}
	state, err := decodeState(raw)
	if err != nil {
		return State{}, false, err
	}
	return state, true, nil
}

func (s *redisStateStore) CompareAndSwap(ctx context.Context, key string, old, new State) (bool, error) {
	oldRaw, err := encodeState(old)
	if err != nil {
		return false, err
	}
	newRaw, err := encodeState(new)
	if err != nil {
		return false, err
	}
	res, err := casScript.Run(ctx, s.client, []string{s.opts.statePrefix + key}, oldRaw, newRaw).Int()
	if err != nil {
		return false, fmt.Errorf("xcircuit: redis cas: %w", err)
	}
	return res == 1, nil
}

func (s *redisStateStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.opts.statePrefix+key).Err(); err != nil {
		return fmt.Errorf("xcircuit: redis delete: %w", err)
	}
	return nil
}

// redisMetrics Redis 统计收集器。
//
// 递增通过 HINCRBY 在服务端原子完成。
type redisMetrics struct {
	client redis.UniversalClient
	opts   redisOptions
}

// NewRedisMetrics 创建 Redis 统计收集器。
//
// 应与 [NewRedisStateStore] 指向同一 Redis，使失败率基于所有实例的流量。
func NewRedisMetrics(client redis.UniversalClient, opts ...RedisOption) (MetricsCollector, error) {
	if client == nil {
		return nil, ErrNilRedisClient
	}
	o := defaultRedisOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return &redisMetrics{client: client, opts: o}, nil
}

const (
	fieldAttempts  = "attempts"
	fieldSuccesses = "successes"
	fieldFailures  = "failures"
)

func (m *redisMetrics) incr(ctx context.Context, key, field string) error {
	if err := m.client.HIncrBy(ctx, m.opts.metricsPrefix+key, field, 1).Err(); err != nil {
		return fmt.Errorf("xcircuit: redis incr %s: %w", field, err)
	}
	return nil
}

func (m *redisMetrics) Attempt(ctx context.Context, key string) error {
	return m.incr(ctx, key, fieldAttempts)
}

func (m *redisMetrics) Success(ctx context.Context, key string) error {
	return m.incr(ctx, key, fieldSuccesses)
}

func (m *redisMetrics) Failure(ctx context.Context, key string) error {
	return m.incr(ctx, key, fieldFailures)
}

func (m *redisMetrics) Counts(ctx context.Context, key string) (Counts, error) {
	vals, err := m.client.HMGet(ctx, m.opts.metricsPrefix+key,
		fieldAttempts, fieldSuccesses, fieldFailures).Result()
	if err != nil {
		return Counts{}, fmt.Errorf("xcircuit: redis counts: %w", err)
	}
	parse := func(v any) uint64 {
		s, ok := v.(string)
		if !ok {
			return 0
		}
		n, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return 0
		}
		return n
	}
	return Counts{
		Attempts:  parse(vals[0]),
		Successes: parse(vals[1]),
		Failures:  parse(vals[2]),
	}, nil
}

func (m *redisMetrics) Reset(ctx context.Context, key string) error {
	if err := m.client.Del(ctx, m.opts.metricsPrefix+key).Err(); err != nil {
		return fmt.Errorf("xcircuit: redis reset: %w", err)
	}
	return nil
}

// 编译期接口检查。
var (
	_ StateStore       = (*redisStateStore)(nil)
	_ MetricsCollector = (*redisMetrics)(nil)
)
