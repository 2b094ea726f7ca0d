package xcircuit

// FailureDetector 熔断判定策略接口。
//
// 在一次调用失败后被询问：结合当前状态与统计计数，决定是否应当熔断。
// 约定语义：
//   - StatusOpen 永远返回 false（已经熔断）
//   - StatusHalfOpen 任何失败都返回 true（探测失败立即回到 OPEN）
//   - StatusClosed 由具体策略决定
type FailureDetector interface {
	// ShouldTrip 判断是否应该触发熔断。
	ShouldTrip(state State, counts Counts) bool
}

// FailureRateDetector 失败率熔断策略。
//
// CLOSED 状态下，失败率 failures/attempts 达到阈值时触发熔断。
// minAttempts 为最小调用次数，调用数不足时不触发（避免冷启动误判）。
type FailureRateDetector struct {
	threshold   float64
	minAttempts uint64
}

// NewFailureRate 创建失败率熔断策略。
//
// threshold: 失败率阈值 (0.0 - 1.0)，例如 0.5 表示 50% 失败率。
// 超出范围的值会被收敛到 [0, 1]。
// minAttempts: 最小调用次数，0 表示不限制（任何一次失败都参与判定）。
func NewFailureRate(threshold float64, minAttempts uint64) *FailureRateDetector {
	if threshold < 0 {
		threshold = 0
	}
	if threshold > 1 {
		threshold = 1
	}
	return &FailureRateDetector{
		threshold:   threshold,
		minAttempts: minAttempts,
	}
}

// ShouldTrip 判断是否应该触发熔断。
func (d *FailureRateDetector) ShouldTrip(state State, counts Counts) bool {
	switch state.Status {
	case StatusOpen:
		return false
	case StatusHalfOpen:
		// 探测期间任何失败都立即回到 OPEN
		return true
	default:
	}
	if counts.Attempts == 0 || counts.Attempts < d.minAttempts {
		return false
	}
	return counts.FailureRate() >= d.threshold
}

// Threshold 返回失败率阈值。
func (d *FailureRateDetector) Threshold() float64 {
	return d.threshold
}

// MinAttempts 返回最小调用次数。
func (d *FailureRateDetector) MinAttempts() uint64 {
	return d.minAttempts
}

// FailureCountDetector 失败次数熔断策略。
//
// CLOSED 状态下，累计失败次数达到阈值时触发熔断。
// 与失败率策略不同，不关心成功的比例，适合低流量场景。
type FailureCountDetector struct {
	threshold uint64
}

// NewFailureCount 创建失败次数熔断策略。
//
// threshold: 触发熔断的失败次数，0 会被提升为 1。
func NewFailureCount(threshold uint64) *FailureCountDetector {
	if threshold == 0 {
		threshold = 1
	}
	return &FailureCountDetector{threshold: threshold}
}

// ShouldTrip 判断是否应该触发熔断。
func (d *FailureCountDetector) ShouldTrip(state State, counts Counts) bool {
	switch state.Status {
	case StatusOpen:
		return false
	case StatusHalfOpen:
		return true
	default:
	}
	return counts.Failures >= d.threshold
}

// Threshold 返回阈值。
func (d *FailureCountDetector) Threshold() uint64 {
	return d.threshold
}

// CompositeDetector 组合熔断策略。
//
// 任一子策略判定熔断即触发熔断。
type CompositeDetector struct {
	detectors []FailureDetector
}

// NewComposite 创建组合熔断策略。
// 传入的 nil 策略会被自动过滤。
func NewComposite(detectors ...FailureDetector) *CompositeDetector {
	filtered := make([]FailureDetector, 0, len(detectors))
	for _, d := range detectors {
		if d != nil {
			filtered = append(filtered, d)
		}
	}
	return &CompositeDetector{detectors: filtered}
}

// ShouldTrip 任一子策略返回 true 即触发熔断。
func (d *CompositeDetector) ShouldTrip(state State, counts Counts) bool {
	for _, detector := range d.detectors {
		if detector.ShouldTrip(state, counts) {
			return true
		}
	}
	return false
}

// Detectors 返回所有子策略的副本，防止外部修改内部状态。
func (d *CompositeDetector) Detectors() []FailureDetector {
	if len(d.detectors) == 0 {
		return nil
	}
	result := make([]FailureDetector, len(d.detectors))
	copy(result, d.detectors)
	return result
}

// 编译期接口检查。
var (
	_ FailureDetector = (*FailureRateDetector)(nil)
	_ FailureDetector = (*FailureCountDetector)(nil)
	_ FailureDetector = (*CompositeDetector)(nil)
)
