package xlog

import (
	"log/slog"
	"time"
)

// =============================================================================
// 常用属性 Key 常量
//
// 定义日志中常用的标准字段名，保持一致性。
// =============================================================================

const (
	// KeyError 错误字段的标准 key
	KeyError = "error"

	// KeyDuration 耗时字段的标准 key
	KeyDuration = "duration"

	// KeyComponent 组件名称字段的标准 key
	KeyComponent = "component"

	// KeyOperation 操作名称字段的标准 key
	KeyOperation = "operation"

	// KeyResource 资源 key 字段的标准 key（熔断器 key、锁资源 ID 等）
	KeyResource = "resource"

	// KeyTxnID 事务 ID 字段的标准 key
	KeyTxnID = "txn_id"
)

// =============================================================================
// 便捷属性构造函数
// =============================================================================

// Err 创建错误属性
//
// 这是记录错误的标准方式，使用统一的 key "error"。
// 如果 err 为 nil，返回空属性（会被 slog 忽略）。
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}

// Duration 创建耗时属性
//
// 输出人类可读格式（如 "5s"、"1m30s"）。
func Duration(d time.Duration) slog.Attr {
	return slog.String(KeyDuration, d.String())
}

// Component 创建组件名属性
//
// 用于标识日志来源组件。
func Component(name string) slog.Attr {
	return slog.String(KeyComponent, name)
}

// Operation 创建操作名属性
func Operation(name string) slog.Attr {
	return slog.String(KeyOperation, name)
}

// Key 创建资源 key 属性
//
// 用于熔断器 key、锁资源 ID 等按 key 维度的日志。
func Key(key string) slog.Attr {
	return slog.String(KeyResource, key)
}

// TxnID 创建事务 ID 属性
func TxnID(id string) slog.Attr {
	return slog.String(KeyTxnID, id)
}
