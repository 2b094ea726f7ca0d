// Package observability 提供可观测性相关的子包。
//
// 子包列表：
//   - xlog: 结构化日志，基于 log/slog 扩展
//
// 设计原则：
//   - 统一的属性键约定，熔断与事务日志可按字段聚合
//   - 支持动态级别控制
//   - 指标上报遵循 OpenTelemetry 语义规范
package observability
