package xconf

import (
	"fmt"
	"time"

	"github.com/omeyang/xguard/pkg/resilience/xcircuit"
	"github.com/omeyang/xguard/pkg/resilience/xtxn"
)

// CircuitConfig 熔断器配置。
type CircuitConfig struct {
	// ResetTimeout 熔断打开后的冷却时长，到期放行探测请求。
	ResetTimeout time.Duration `koanf:"reset_timeout" json:"reset_timeout" yaml:"reset_timeout"`

	// ProbeTimeout 探测租约时长，超时后探测名额可被抢占。
	// 零值时与 ResetTimeout 相同。
	ProbeTimeout time.Duration `koanf:"probe_timeout" json:"probe_timeout" yaml:"probe_timeout"`

	// FailureRateThreshold 失败率阈值，范围 (0, 1]。
	FailureRateThreshold float64 `koanf:"failure_rate_threshold" json:"failure_rate_threshold" yaml:"failure_rate_threshold"`

	// MinAttempts 统计失败率前的最小请求数。
	MinAttempts uint64 `koanf:"min_attempts" json:"min_attempts" yaml:"min_attempts"`
}

// TxnConfig 事务管理器配置。
type TxnConfig struct {
	// LockTTL 事务锁租约时长。
	LockTTL time.Duration `koanf:"lock_ttl" json:"lock_ttl" yaml:"lock_ttl"`
}

// GuardConfig 顶层配置。
type GuardConfig struct {
	Circuit CircuitConfig `koanf:"circuit" json:"circuit" yaml:"circuit"`
	Txn     TxnConfig     `koanf:"txn" json:"txn" yaml:"txn"`
}

// DefaultGuardConfig 返回各字段取默认值的配置。
func DefaultGuardConfig() GuardConfig {
	return GuardConfig{
		Circuit: CircuitConfig{
			ResetTimeout:         xcircuit.DefaultResetTimeout,
			FailureRateThreshold: xcircuit.DefaultFailureRateThreshold,
		},
		Txn: TxnConfig{
			LockTTL: xtxn.DefaultLockTTL,
		},
	}
}

// Validate 校验配置值。零值字段在 Options 转换时回落到默认值，
// 负值和越界值视为书写错误直接拒绝。
func (c GuardConfig) Validate() error {
	if c.Circuit.ResetTimeout < 0 {
		return fmt.Errorf("%w: circuit.reset_timeout must be non-negative, got %s", ErrInvalidConfig, c.Circuit.ResetTimeout)
	}
	if c.Circuit.ProbeTimeout < 0 {
		return fmt.Errorf("%w: circuit.probe_timeout must be non-negative, got %s", ErrInvalidConfig, c.Circuit.ProbeTimeout)
	}
	if c.Circuit.FailureRateThreshold < 0 || c.Circuit.FailureRateThreshold > 1 {
		return fmt.Errorf("%w: circuit.failure_rate_threshold must be in [0, 1], got %g", ErrInvalidConfig, c.Circuit.FailureRateThreshold)
	}
	if c.Txn.LockTTL < 0 {
		return fmt.Errorf("%w: txn.lock_ttl must be non-negative, got %s", ErrInvalidConfig, c.Txn.LockTTL)
	}
	return nil
}

// Options 将熔断配置转换为 xcircuit 选项，零值字段省略以使用默认值。
func (c CircuitConfig) Options() []xcircuit.Option {
	var opts []xcircuit.Option
	if c.ResetTimeout > 0 {
		opts = append(opts, xcircuit.WithResetTimeout(c.ResetTimeout))
	}
	if c.ProbeTimeout > 0 {
		opts = append(opts, xcircuit.WithProbeTimeout(c.ProbeTimeout))
	}
	if c.FailureRateThreshold > 0 {
		opts = append(opts, xcircuit.WithFailureRate(c.FailureRateThreshold, c.MinAttempts))
	}
	return opts
}

// Options 将事务配置转换为 xtxn 选项。
func (c TxnConfig) Options() []xtxn.Option {
	var opts []xtxn.Option
	if c.LockTTL > 0 {
		opts = append(opts, xtxn.WithLockTTL(c.LockTTL))
	}
	return opts
}

// Load 从文件加载并校验配置。
func Load(path string) (GuardConfig, error) {
	src, err := NewSource(path)
	if err != nil {
		return GuardConfig{}, err
	}
	return unmarshalGuard(src)
}

// LoadBytes 从字节数据加载并校验配置。
func LoadBytes(data []byte, format Format) (GuardConfig, error) {
	src, err := NewSourceFromBytes(data, format)
	if err != nil {
		return GuardConfig{}, err
	}
	return unmarshalGuard(src)
}

func unmarshalGuard(src *Source) (GuardConfig, error) {
	cfg := DefaultGuardConfig()
	if err := src.Unmarshal("", &cfg); err != nil {
		return GuardConfig{}, err
	}
	if err := cfg.Validate(); err != nil {
		return GuardConfig{}, err
	}
	return cfg, nil
}
