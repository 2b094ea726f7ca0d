package xlog

import (
	"context"
	"io"
	"log/slog"
	"os"
)

// Format 输出格式。
type Format string

const (
	// FormatText 人类可读的 text 格式（默认）
	FormatText Format = "text"

	// FormatJSON 机器可解析的 JSON 格式
	FormatJSON Format = "json"
)

// Option 定义 Logger 可选配置。
type Option func(*options)

type options struct {
	level  Level
	format Format
	output io.Writer
	attrs  []slog.Attr
}

func defaultOptions() options {
	return options{
		level:  LevelInfo,
		format: FormatText,
		output: os.Stderr,
	}
}

// WithLevel 设置初始日志级别。默认 LevelInfo。
func WithLevel(level Level) Option {
	return func(o *options) {
		o.level = level
	}
}

// WithFormat 设置输出格式。默认 FormatText。
// 未知格式按 FormatText 处理。
func WithFormat(format Format) Option {
	return func(o *options) {
		o.format = format
	}
}

// WithOutput 设置输出目标。默认 os.Stderr。
// nil 会被忽略。
func WithOutput(w io.Writer) Option {
	return func(o *options) {
		if w != nil {
			o.output = w
		}
	}
}

// WithAttrs 设置所有日志携带的固定属性（如组件名、实例 ID）。
func WithAttrs(attrs ...slog.Attr) Option {
	return func(o *options) {
		o.attrs = append(o.attrs, attrs...)
	}
}

// New 创建 Logger。
//
// 默认配置：stderr 输出，Info 级别，text 格式。
// 设计决策: 构造不返回 error 也不 panic——所有配置项都有可用的默认值，
// 非法输入（nil writer、未知格式）降级为默认值而非失败。
func New(opts ...Option) LoggerWithLevel {
	o := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	levelVar := new(slog.LevelVar)
	levelVar.Set(o.level)

	hopts := &slog.HandlerOptions{Level: levelVar}
	var handler slog.Handler
	if o.format == FormatJSON {
		handler = slog.NewJSONHandler(o.output, hopts)
	} else {
		handler = slog.NewTextHandler(o.output, hopts)
	}
	if len(o.attrs) > 0 {
		handler = handler.WithAttrs(o.attrs)
	}

	return &xlogger{
		handler:  handler,
		levelVar: levelVar,
	}
}

// xlogger 是 Logger 的 slog 实现。
type xlogger struct {
	handler  slog.Handler
	levelVar *slog.LevelVar
}

func (l *xlogger) log(ctx context.Context, level Level, msg string, attrs ...slog.Attr) {
	if ctx == nil {
		ctx = context.Background()
	}
	if !l.handler.Enabled(ctx, level) {
		return
	}
	logger := slog.New(l.handler)
	logger.LogAttrs(ctx, level, msg, attrs...)
}

func (l *xlogger) Debug(ctx context.Context, msg string, attrs ...slog.Attr) {
	l.log(ctx, LevelDebug, msg, attrs...)
}

func (l *xlogger) Info(ctx context.Context, msg string, attrs ...slog.Attr) {
	l.log(ctx, LevelInfo, msg, attrs...)
}

func (l *xlogger) Warn(ctx context.Context, msg string, attrs ...slog.Attr) {
	l.log(ctx, LevelWarn, msg, attrs...)
}

func (l *xlogger) Error(ctx context.Context, msg string, attrs ...slog.Attr) {
	l.log(ctx, LevelError, msg, attrs...)
}

func (l *xlogger) With(attrs ...slog.Attr) Logger {
	if len(attrs) == 0 {
		return l
	}
	// 共享 levelVar：派生 logger 的级别随父级动态调整
	return &xlogger{
		handler:  l.handler.WithAttrs(attrs),
		levelVar: l.levelVar,
	}
}

func (l *xlogger) SetLevel(level Level) {
	l.levelVar.Set(level)
}

func (l *xlogger) GetLevel() Level {
	return l.levelVar.Level()
}

// Nop 返回丢弃所有日志的 Logger。
//
// 用于测试或显式关闭日志的场景。
func Nop() LoggerWithLevel {
	return &nopLogger{}
}

type nopLogger struct{}

func (*nopLogger) Debug(context.Context, string, ...slog.Attr) {}
func (*nopLogger) Info(context.Context, string, ...slog.Attr)  {}
func (*nopLogger) Warn(context.Context, string, ...slog.Attr)  {}
func (*nopLogger) Error(context.Context, string, ...slog.Attr) {}
func (n *nopLogger) With(...slog.Attr) Logger                  { return n }
func (*nopLogger) SetLevel(Level)                              {}
func (*nopLogger) GetLevel() Level                             { return LevelInfo }

// 编译期接口检查。
var (
	_ LoggerWithLevel = (*xlogger)(nil)
	_ LoggerWithLevel = (*nopLogger)(nil)
)
