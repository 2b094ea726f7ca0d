package xlog

import (
	"fmt"
	"log/slog"
	"strings"
)

// Level 日志级别，与 slog.Level 数值兼容。
type Level = slog.Level

// 日志级别常量
const (
	// LevelDebug Debug 级别 (-4)
	LevelDebug = slog.LevelDebug

	// LevelInfo Info 级别 (0)
	LevelInfo = slog.LevelInfo

	// LevelWarn Warn 级别 (4)
	LevelWarn = slog.LevelWarn

	// LevelError Error 级别 (8)
	LevelError = slog.LevelError
)

// ParseLevel 从字符串解析日志级别
//
// 支持大小写不敏感的 "debug"、"info"、"warn"、"warning"、"error"。
// 无法识别时返回错误，调用方可降级为 LevelInfo。
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return LevelInfo, fmt.Errorf("xlog: unknown level %q", s)
	}
}
