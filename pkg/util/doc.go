// Package util 提供通用工具相关的子包。
//
// 子包列表：
//   - xclock: 可注入的时钟抽象，测试可精确推进时间
package util
