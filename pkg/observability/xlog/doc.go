// Package xlog 基于 log/slog 的结构化日志。
//
// # 核心功能
//
//   - Logger 接口：强制 context 传递，方法签名只接受 slog.Attr
//   - 动态级别调整（共享 LevelVar，运行时热更新）
//   - 便捷属性构造（Err、Duration、Component、Operation、Key）
//   - 全局 Logger 便利函数（脚手架场景；服务端推荐依赖注入）
//
// # 创建 Logger
//
//	logger := xlog.New(
//	    xlog.WithLevel(xlog.LevelDebug),
//	    xlog.WithFormat(xlog.FormatJSON),
//	    xlog.WithOutput(os.Stdout),
//	)
//	logger.Info(ctx, "breaker tripped", xlog.Key("payment-gateway"))
//
// # 日志级别
//
// LevelDebug(-4)、LevelInfo(0)、LevelWarn(4)、LevelError(8)。
// 可通过 [ParseLevel] 从字符串解析。
//
// # 派生 Logger
//
// [Logger.With] 返回带固定属性的派生 Logger，派生 logger 共享父级的
// LevelVar，动态级别变更同步生效。
package xlog
