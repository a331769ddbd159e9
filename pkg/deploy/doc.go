// Package deploy 从 YAML 文件加载 Actor 系统的部署配置
//
// 配置分为四部分：system（系统名称、终止超时、死信）、log（日志级别与格式）、
// dispatchers（按 ID 定义调度器）和 deployment（按路径模式覆盖 Props 的调度器、
// 邮箱和监督策略）。
//
// [Table] 实现 actor.Deployer，在 Actor 创建时按路径匹配，精确路径优先于通配模式，
// 通配模式中最长者优先。[Watcher] 监听配置文件，变化后整体替换 Table，
// 新配置非法时保留旧表。
//
//	cfg, err := deploy.Load("actuator.yaml")
//	if err != nil {
//		return err
//	}
//	sc, err := cfg.SystemConfig(deploy.NewLogger(cfg.Log))
//	if err != nil {
//		return err
//	}
//	sys, err := actor.NewSystemWithConfig(cfg.System.Name, sc)
package deploy
