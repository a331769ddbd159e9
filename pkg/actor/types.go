package actor

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
)

// Message Actor 消息接口
// 所有 Actor 间传递的消息都必须实现此接口
type Message interface {
	// Kind 返回消息类型标识，用于日志和死信
	Kind() string
}

func kindOf(msg Message) string {
	if msg == nil {
		return "<nil>"
	}
	return msg.Kind()
}

// Actor Actor 接口
// 实现此接口即可成为 Actor
type Actor interface {
	// Receive 处理接收到的消息
	// ctx 提供 Actor 上下文，msg 为接收到的消息
	Receive(ctx *Context, msg Message)
}

// ActorFunc 函数式 Actor，便于快速创建简单 Actor
type ActorFunc func(ctx *Context, msg Message)

// Receive 实现 Actor 接口
func (f ActorFunc) Receive(ctx *Context, msg Message) {
	f(ctx, msg)
}

// BaseActor 基础 Actor 实现
// 提供默认的空实现，方便嵌入
type BaseActor struct{}

// Receive 默认实现，不处理任何消息
func (b *BaseActor) Receive(_ *Context, _ Message) {}

// Behavior 可替换的消息处理函数，见 Context.Become
type Behavior func(ctx *Context, msg Message)

// Producer Actor 工厂，每次创建或重启都会调用一次
type Producer func() Actor

// Props Actor 属性配置
type Props struct {
	producer Producer

	// Dispatcher 调度器 ID，为空使用默认调度器
	Dispatcher string
	// Mailbox 邮箱类型
	Mailbox MailboxType
	// SupervisorStrategy 监督子 Actor 的策略，为空使用系统默认策略
	SupervisorStrategy SupervisorStrategy
	// KeepChildOnRestart 重启时决定子 Actor 是否保留，为空表示全部停止
	KeepChildOnRestart func(child Ref) bool
}

// PropsFromProducer 使用工厂创建属性
func PropsFromProducer(producer Producer) *Props {
	return &Props{producer: producer}
}

// PropsFromFunc 使用函数式 Actor 创建属性
func PropsFromFunc(f ActorFunc) *Props {
	return &Props{producer: func() Actor { return f }}
}

// WithDispatcher 设置调度器
func (p *Props) WithDispatcher(id string) *Props {
	p.Dispatcher = id
	return p
}

// WithMailbox 设置邮箱类型
func (p *Props) WithMailbox(t MailboxType) *Props {
	p.Mailbox = t
	return p
}

// WithSupervisor 设置监督策略
func (p *Props) WithSupervisor(strategy SupervisorStrategy) *Props {
	p.SupervisorStrategy = strategy
	return p
}

// WithChildRestartPolicy 设置重启时保留子 Actor 的判定
func (p *Props) WithChildRestartPolicy(keep func(child Ref) bool) *Props {
	p.KeepChildOnRestart = keep
	return p
}

// withDeploy 返回叠加部署配置后的副本
func (p *Props) withDeploy(d Deploy) *Props {
	merged := *p
	if d.Dispatcher != "" {
		merged.Dispatcher = d.Dispatcher
	}
	if d.Mailbox != nil {
		merged.Mailbox = *d.Mailbox
	}
	if d.Supervisor != nil {
		merged.SupervisorStrategy = d.Supervisor
	}
	return &merged
}

func (p *Props) newActor() (Actor, error) {
	if p.producer == nil {
		return nil, errors.New("props have no producer")
	}
	a := p.producer()
	if a == nil {
		return nil, errors.New("producer returned nil actor")
	}
	return a, nil
}

// ============== 生命周期消息 ==============

// Started Actor 启动完成消息
type Started struct{}

// Kind 实现 Message 接口
func (s *Started) Kind() string { return "system.started" }

// Stopping Actor 正在停止消息
type Stopping struct{}

// Kind 实现 Message 接口
func (s *Stopping) Kind() string { return "system.stopping" }

// Stopped Actor 已停止消息
type Stopped struct{}

// Kind 实现 Message 接口
func (s *Stopped) Kind() string { return "system.stopped" }

// Restarting Actor 即将重启，发送给旧实例
type Restarting struct {
	Cause error
}

// Kind 实现 Message 接口
func (r *Restarting) Kind() string { return "system.restarting" }

// Restarted Actor 已重启，发送给新实例
type Restarted struct {
	Cause error
}

// Kind 实现 Message 接口
func (r *Restarted) Kind() string { return "system.restarted" }

// PoisonPill 毒丸消息，处理到它时停止 Actor
type PoisonPill struct{}

// Kind 实现 Message 接口
func (p *PoisonPill) Kind() string { return "system.poison_pill" }

// Kill 处理到它时以 ActorKilledError 失败
type Kill struct{}

// Kind 实现 Message 接口
func (k *Kill) Kind() string { return "system.kill" }

// Terminated 被监控的 Actor 已终止
type Terminated struct {
	Who                Ref
	ExistenceConfirmed bool
}

// Kind 实现 Message 接口
func (t *Terminated) Kind() string { return "system.terminated" }

// ReceiveTimeout 在设定时间内没有收到消息
type ReceiveTimeout struct{}

// Kind 实现 Message 接口
func (r *ReceiveTimeout) Kind() string { return "system.receive_timeout" }

type receiveTimeoutTick struct {
	generation uint64
}

func (r *receiveTimeoutTick) Kind() string { return "system.receive_timeout_tick" }

// ============== 请求/响应支持 ==============

// ResponseTimeout 响应超时错误
type ResponseTimeout struct {
	Target  Ref
	Timeout time.Duration
}

// Kind 实现 Message 接口
func (r *ResponseTimeout) Kind() string { return "system.response_timeout" }

// Error 实现 error 接口
func (r *ResponseTimeout) Error() string {
	return fmt.Sprintf("request to %s timed out after %v", r.Target, r.Timeout)
}

// ============== 通用消息类型 ==============

// SimpleMessage 简单消息，用于快速创建消息
type SimpleMessage struct {
	kind    string
	Payload any
}

// NewSimpleMessage 创建简单消息
func NewSimpleMessage(kind string, payload any) *SimpleMessage {
	return &SimpleMessage{kind: kind, Payload: payload}
}

// Kind 实现 Message 接口
func (m *SimpleMessage) Kind() string { return m.kind }
