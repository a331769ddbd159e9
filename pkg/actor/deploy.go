package actor

// Deploy 按路径覆盖的部署配置，零值字段不覆盖 Props
type Deploy struct {
	Dispatcher string
	Mailbox    *MailboxType
	Supervisor SupervisorStrategy
}

// Deployer 按 Actor 路径查找部署配置
// Lookup 会在创建 Actor 的任意 goroutine 上调用，必须并发安全
type Deployer interface {
	Lookup(path Path) (Deploy, bool)
}

// DeployerFunc 函数式 Deployer
type DeployerFunc func(path Path) (Deploy, bool)

// Lookup 实现 Deployer
func (f DeployerFunc) Lookup(path Path) (Deploy, bool) { return f(path) }
