package xlog

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// =============================================================================
// 全局 Logger
//
// 定位：脚手架/小工具等简单场景。
// 在服务端推荐依赖注入（显式持有 Logger）。
// =============================================================================

// globalLogger 全局 Logger 实例（并发安全）
var globalLogger atomic.Pointer[LoggerWithLevel]

// Default 返回全局默认 Logger
//
// 懒初始化：首次调用时创建默认 Logger（stderr，Info 级别，text 格式）。
// 并发安全：使用 atomic.Pointer；并发首次调用可能各自构建一个实例，
// 最终只有一个胜出，落败实例无副作用可安全丢弃。
func Default() LoggerWithLevel {
	if l := globalLogger.Load(); l != nil {
		return *l
	}
	created := New()
	globalLogger.CompareAndSwap(nil, &created)
	return *globalLogger.Load()
}

// SetDefault 替换全局默认 Logger
//
// 用于测试或自定义配置场景。
// 注意：传入 nil 会被忽略（不会修改当前 logger）。
func SetDefault(l LoggerWithLevel) {
	if l == nil {
		return
	}
	globalLogger.Store(&l)
}

// ResetDefault 重置全局 Logger 为未初始化状态（仅用于测试）
func ResetDefault() {
	globalLogger.Store(nil)
}

// Debug 使用全局 Logger 记录 Debug 级别日志
func Debug(ctx context.Context, msg string, attrs ...slog.Attr) {
	Default().Debug(ctx, msg, attrs...)
}

// Info 使用全局 Logger 记录 Info 级别日志
func Info(ctx context.Context, msg string, attrs ...slog.Attr) {
	Default().Info(ctx, msg, attrs...)
}

// Warn 使用全局 Logger 记录 Warn 级别日志
func Warn(ctx context.Context, msg string, attrs ...slog.Attr) {
	Default().Warn(ctx, msg, attrs...)
}

// Error 使用全局 Logger 记录 Error 级别日志
func Error(ctx context.Context, msg string, attrs ...slog.Attr) {
	Default().Error(ctx, msg, attrs...)
}
