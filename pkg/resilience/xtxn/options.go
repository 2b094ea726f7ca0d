package xtxn

import (
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/omeyang/xguard/pkg/observability/xlog"
	"github.com/omeyang/xguard/pkg/util/xclock"
)

// DefaultLockTTL 锁租约的默认时长。
// 提交/回滚通常在毫秒级完成，30 秒足以覆盖慢后端，
// 又不至于让崩溃持有者长时间阻塞资源。
const DefaultLockTTL = 30 * time.Second

type options struct {
	store         Store
	tracker       StateTracker
	journal       Journal
	locks         LockManager
	ids           IDGenerator
	lockTTL       time.Duration
	clock         xclock.Clock
	logger        xlog.Logger
	meterProvider metric.MeterProvider
}

// Option 配置 [Manager]。
type Option func(*options)

// WithStore 设置事务存储，默认为进程内存储。
func WithStore(store Store) Option {
	return func(o *options) {
		if store != nil {
			o.store = store
		}
	}
}

// WithTracker 设置状态跟踪器。必选：没有跟踪器就没有可保护的状态。
func WithTracker(tracker StateTracker) Option {
	return func(o *options) {
		if tracker != nil {
			o.tracker = tracker
		}
	}
}

// WithJournal 设置审计日志，默认为进程内日志。
func WithJournal(journal Journal) Option {
	return func(o *options) {
		if journal != nil {
			o.journal = journal
		}
	}
}

// WithLockManager 设置锁管理器，默认为进程内租约锁。
func WithLockManager(locks LockManager) Option {
	return func(o *options) {
		if locks != nil {
			o.locks = locks
		}
	}
}

// WithIDGenerator 设置 ID 生成器，默认为 Sonyflake。
func WithIDGenerator(ids IDGenerator) Option {
	return func(o *options) {
		if ids != nil {
			o.ids = ids
		}
	}
}

// WithLockTTL 设置默认锁管理器的租约时长，非正值被忽略。
// 仅对默认的进程内锁生效；外部传入的 LockManager 自带 TTL 配置。
func WithLockTTL(ttl time.Duration) Option {
	return func(o *options) {
		if ttl > 0 {
			o.lockTTL = ttl
		}
	}
}

// WithClock 设置时钟，主要用于测试。
func WithClock(clock xclock.Clock) Option {
	return func(o *options) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// WithLogger 设置日志器，默认不输出。
func WithLogger(logger xlog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithMeterProvider 设置 OpenTelemetry MeterProvider。
// 默认使用全局 MeterProvider，未安装 SDK 时为 no-op。
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *options) {
		if mp != nil {
			o.meterProvider = mp
		}
	}
}

func defaultOptions() *options {
	return &options{
		lockTTL:       DefaultLockTTL,
		clock:         xclock.System(),
		logger:        xlog.Nop(),
		meterProvider: otel.GetMeterProvider(),
	}
}

func (o *options) validate() error {
	if o.tracker == nil {
		return ErrNilTracker
	}
	if o.store == nil {
		o.store = NewMemoryStore()
	}
	if o.journal == nil {
		o.journal = NewMemoryJournal()
	}
	if o.locks == nil {
		o.locks = newMemoryLockManager(o.lockTTL, o.clock)
	}
	if o.ids == nil {
		ids, err := NewSonyflakeIDGenerator()
		if err != nil {
			// Sonyflake 初始化失败不影响可用性，退化为 UUID
			ids = NewUUIDIDGenerator()
		}
		o.ids = ids
	}
	return nil
}
