package xcircuit

import (
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/omeyang/xguard/pkg/observability/xlog"
	"github.com/omeyang/xguard/pkg/util/xclock"
)

const (
	// DefaultResetTimeout 默认冷却时间：OPEN 状态持续此时长后允许探测。
	DefaultResetTimeout = 60 * time.Second

	// DefaultFailureRateThreshold 默认失败率阈值。
	DefaultFailureRateThreshold = 0.5
)

// 配置校验错误。
var (
	// ErrInvalidResetTimeout 冷却时间必须为正。
	ErrInvalidResetTimeout = errors.New("xcircuit: reset timeout must be positive")

	// ErrInvalidProbeTimeout 探测租约必须为正。
	ErrInvalidProbeTimeout = errors.New("xcircuit: probe timeout must be positive")
)

// Option 定义 Breaker 可选配置。
type Option func(*options)

type options struct {
	store         StateStore
	metrics       MetricsCollector
	detector      FailureDetector
	resetTimeout  time.Duration
	probeTimeout  time.Duration
	clock         xclock.Clock
	logger        xlog.Logger
	onStateChange func(key string, from, to Status)
	meterProvider metric.MeterProvider
}

func defaultOptions() options {
	return options{
		store:         NewMemoryStateStore(),
		metrics:       NewMemoryMetrics(),
		detector:      NewFailureRate(DefaultFailureRateThreshold, 0),
		resetTimeout:  DefaultResetTimeout,
		clock:         xclock.System(),
		logger:        xlog.Nop(),
		meterProvider: otel.GetMeterProvider(),
	}
}

// WithStateStore 设置状态存储后端。
// 默认进程内存。多实例共享熔断决策时注入 Redis 后端。
func WithStateStore(store StateStore) Option {
	return func(o *options) {
		if store != nil {
			o.store = store
		}
	}
}

// WithMetrics 设置统计收集后端。
// 默认进程内存。应与 StateStore 使用同级别的共享范围，
// 否则多实例下失败率计算只基于本进程的流量。
func WithMetrics(metrics MetricsCollector) Option {
	return func(o *options) {
		if metrics != nil {
			o.metrics = metrics
		}
	}
}

// WithDetector 设置熔断判定策略。
// 默认失败率 >= 0.5。
func WithDetector(detector FailureDetector) Option {
	return func(o *options) {
		if detector != nil {
			o.detector = detector
		}
	}
}

// WithFailureRate 设置失败率熔断策略（便捷入口）。
// 等价于 WithDetector(NewFailureRate(threshold, minAttempts))。
func WithFailureRate(threshold float64, minAttempts uint64) Option {
	return func(o *options) {
		o.detector = NewFailureRate(threshold, minAttempts)
	}
}

// WithResetTimeout 设置冷却时间。
//
// OPEN 状态持续此时长后，下一个调用方可抢占探测资格。默认 60 秒。
// 非正值在 New 时返回 [ErrInvalidResetTimeout]。
func WithResetTimeout(d time.Duration) Option {
	return func(o *options) {
		o.resetTimeout = d
	}
}

// WithProbeTimeout 设置探测租约时长。
//
// HALF_OPEN 状态持续此时长后，探测资格可被重新抢占
// （应对持有探测资格的进程崩溃）。默认与冷却时间相同。
func WithProbeTimeout(d time.Duration) Option {
	return func(o *options) {
		o.probeTimeout = d
	}
}

// WithClock 注入时钟，仅用于测试。
func WithClock(clock xclock.Clock) Option {
	return func(o *options) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// WithLogger 设置日志器。默认丢弃所有日志。
func WithLogger(logger xlog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithOnStateChange 设置状态转换回调。
//
// 回调在转换发起方的调用栈上同步执行，不应做耗时操作。
// 可用于告警：CLOSED→OPEN 通常值得一条告警。
func WithOnStateChange(f func(key string, from, to Status)) Option {
	return func(o *options) {
		o.onStateChange = f
	}
}

// WithMeterProvider 设置 OTel MeterProvider。
// 默认使用全局 Provider（未配置 SDK 时为 no-op）。
func WithMeterProvider(provider metric.MeterProvider) Option {
	return func(o *options) {
		if provider != nil {
			o.meterProvider = provider
		}
	}
}

func (o *options) validate() error {
	if o.resetTimeout <= 0 {
		return ErrInvalidResetTimeout
	}
	if o.probeTimeout == 0 {
		// 默认探测租约与冷却时间一致
		o.probeTimeout = o.resetTimeout
	}
	if o.probeTimeout < 0 {
		return ErrInvalidProbeTimeout
	}
	return nil
}
