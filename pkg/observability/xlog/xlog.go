// xlog.go 定义核心接口：Logger、Leveler
//
// 设计理念：
//   - 强制 context 传递，确保追踪信息传播
//   - 动态级别控制，支持运行时调整
//   - 类型安全，方法签名只接受 slog.Attr
package xlog

import (
	"context"
	"log/slog"
)

// Logger 日志接口
//
// 所有方法都需要 context.Context 参数，确保追踪信息正确传播。
// 方法签名只接受 slog.Attr，保证类型安全，避免隐式 key-value 转换开销。
type Logger interface {
	// Debug 记录 Debug 级别日志
	Debug(ctx context.Context, msg string, attrs ...slog.Attr)

	// Info 记录 Info 级别日志
	Info(ctx context.Context, msg string, attrs ...slog.Attr)

	// Warn 记录 Warn 级别日志
	Warn(ctx context.Context, msg string, attrs ...slog.Attr)

	// Error 记录 Error 级别日志
	Error(ctx context.Context, msg string, attrs ...slog.Attr)

	// With 返回带额外属性的派生 Logger
	//
	// 派生 logger 共享父级的 LevelVar，动态级别变更会同步生效。
	With(attrs ...slog.Attr) Logger
}

// Leveler 级别控制接口
//
// 与 Logger 分离，避免污染核心日志接口。
// 通过类型断言检查具体实现是否支持动态级别控制。
type Leveler interface {
	// SetLevel 动态设置日志级别，运行时生效
	SetLevel(level Level)

	// GetLevel 获取当前日志级别
	GetLevel() Level
}

// LoggerWithLevel 组合接口：Logger + Leveler
//
// New 返回此接口，避免业务代码频繁类型断言。
type LoggerWithLevel interface {
	Logger
	Leveler
}
