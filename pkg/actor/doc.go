// Package actor 提供本地 Actor 运行时
//
// 每个 Actor 是独立的计算单元：
// • 拥有私有状态（无需锁保护）
// • 通过邮箱（mailbox）接收消息，同一时刻只由一个 goroutine 处理
// • 可以创建子 Actor，组成监督树
// • 失败不会以 panic 的形式跨越 Actor 边界，而是交给父 Actor 决定
//
// # 核心组件
//
// [System] 是 Actor 系统的入口，持有根守护者 "/"、用户守护者 "/user"、
// 系统守护者 "/system"、调度器和死信邮局：
//
//	sys := actor.NewSystem("my-system")
//	defer sys.Shutdown()
//
//	ref, err := sys.ActorOf(actor.PropsFromFunc(func(ctx *actor.Context, msg actor.Message) {
//		// ...
//	}), "greeter")
//
// [Ref] 是 Actor 的引用，由 [Path] 和化身 uid 组成。同一路径上重新创建的 Actor
// 拥有不同 uid，旧引用不会误投给新 Actor。[System.Resolve] 按路径查找存活的 Actor，
// 找不到时返回死信引用。
//
// [Props] 描述如何创建 Actor：工厂、调度器、邮箱类型、监督策略以及重启时保留哪些子 Actor。
//
// [Context] 只在 Receive 期间有效，提供回复、转发、创建子 Actor、监控、
// 行为切换（[Context.Become]）和接收超时等操作。
//
// # 邮箱与调度
//
// 邮箱由用户队列、系统消息链表和一个原子状态字组成。状态字低两位分别表示
// 关闭和已调度，其余位为挂起计数。系统消息总是先于用户消息处理，挂起只阻止
// 用户消息。[Dispatcher] 是共享工作池，每次调度最多处理 Throughput 条用户消息。
//
// # 监督
//
// 子 Actor 失败后挂起自身和它的子 Actor，并向父 Actor 报告。父 Actor 的
// [SupervisorStrategy] 给出 [Decision]：Resume 保留状态继续，Restart 以新实例替换，
// Stop 停止，Escalate 以同一原因让父 Actor 自身失败。根守护者上报的失败会停止整棵树。
//
// 重启时旧实例收到 [Restarting]，新实例收到 [Restarted]。默认情况下子 Actor
// 在新实例创建前全部停止，可以通过 [Props.WithChildRestartPolicy] 保留。
//
// # 生命周期消息
//
// Actor 会收到以下消息：[Started] 启动完成，[Stopping] 开始停止，[Stopped] 已停止，
// [Restarting] / [Restarted] 重启前后，[Terminated] 被监控的 Actor 终止（每次监控只收到一次），
// [ReceiveTimeout] 空闲超时。发送 [PoisonPill] 在处理到它时停止 Actor，发送 [Kill] 使 Actor 失败。
//
// 无法投递的消息进入死信，可以通过 [System.SubscribeDeadLetters] 订阅。
package actor
