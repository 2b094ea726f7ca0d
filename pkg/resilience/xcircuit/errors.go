package xcircuit

import (
	"errors"
	"fmt"
)

var (
	// ErrCircuitOpen 熔断器打开，请求被拒绝。
	// 此错误意味着被保护的操作**没有被调用**——没有任何副作用发生。
	// 使用 errors.Is(err, ErrCircuitOpen) 或 [IsOpen] 判断。
	ErrCircuitOpen = errors.New("xcircuit: circuit is open")

	// ErrEmptyKey 资源 key 为空。
	ErrEmptyKey = errors.New("xcircuit: key must not be empty")

	// ErrNilFunc 被保护的操作函数为 nil。
	ErrNilFunc = errors.New("xcircuit: function cannot be nil")

	// ErrNilContext context 参数为 nil。
	ErrNilContext = errors.New("xcircuit: context cannot be nil")

	// ErrNilRedisClient Redis 客户端为 nil。
	ErrNilRedisClient = errors.New("xcircuit: redis client is nil")
)

// CircuitError 熔断拒绝错误。
//
// 包裹 [ErrCircuitOpen]，携带被拒绝的 key 和拒绝时的状态，
// 便于日志和告警归因。实现 Retryable() 返回 false：熔断期间
// 重试无意义，与重试器组合时直接快速失败。
type CircuitError struct {
	Err   error  // 被包裹的错误（ErrCircuitOpen）
	Key   string // 被拒绝的资源 key
	State Status // 拒绝发生时的状态
}

// Error 实现 error 接口。
func (e *CircuitError) Error() string {
	return fmt.Sprintf("xcircuit: %s [%s]: %v", e.Key, e.State, e.Err)
}

// Unwrap 实现 errors.Unwrap 接口。
func (e *CircuitError) Unwrap() error {
	return e.Err
}

// Retryable 熔断拒绝不可重试。
func (e *CircuitError) Retryable() bool {
	return false
}

func newCircuitError(key string, state Status) *CircuitError {
	return &CircuitError{
		Err:   ErrCircuitOpen,
		Key:   key,
		State: state,
	}
}

// IsOpen 判断错误是否为熔断拒绝。
//
// 熔断拒绝表示"未尝试调用"，其他错误表示"已尝试且失败"，
// 调用方据此区分降级路径与真实故障。
func IsOpen(err error) bool {
	return errors.Is(err, ErrCircuitOpen)
}
