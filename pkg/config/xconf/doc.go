// Package xconf 加载熔断与事务的外部配置。
//
// 基于 koanf 实现，支持 YAML 和 JSON 两种格式，可从文件或
// 原始字节（如 K8s ConfigMap）加载。[GuardConfig] 是顶层配置
// 结构，校验后可直接转换为 xcircuit / xtxn 的选项列表：
//
//	cfg, err := xconf.Load("/etc/xguard/guard.yaml")
//	if err != nil {
//	    return err
//	}
//	breaker, err := xcircuit.New(cfg.Circuit.Options()...)
//
// 配置文件变更可通过 [Watch] 监视并自动重载，适合 ConfigMap
// 滚动更新场景。
package xconf
