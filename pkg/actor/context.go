package actor

import (
	"context"
	"log/slog"
	"time"
)

// Context Actor 上下文
// 只在 Receive 调用期间有效，不要在其他 goroutine 中保存或使用
type Context struct {
	cell    *actorCell
	sender  Ref
	message Message
}

// Self 当前 Actor 的引用
func (c *Context) Self() Ref { return c.cell.self }

// Sender 当前消息的发送者，没有时为 NoSender
func (c *Context) Sender() Ref { return c.sender }

// Parent 父 Actor 的引用
func (c *Context) Parent() Ref { return c.cell.parent }

// Message 获取当前处理的消息
func (c *Context) Message() Message { return c.message }

// System 获取 Actor 系统
func (c *Context) System() *System { return c.cell.system }

// Logger 获取日志器
func (c *Context) Logger() *slog.Logger { return c.cell.logger }

// Context 获取 Actor 生命周期 context，Actor 终止时取消
func (c *Context) Context() context.Context { return c.cell.goCtx }

// Stats 获取当前 Actor 的统计快照
func (c *Context) Stats() *ActorStats { return c.cell.snapshot() }

// ============== 消息 ==============

// Tell 以当前 Actor 为发送者发送消息
func (c *Context) Tell(target Ref, msg Message) {
	target.Tell(msg, c.cell.self)
}

// Reply 回复当前消息的发送者
func (c *Context) Reply(msg Message) {
	if c.sender.IsNoSender() {
		return
	}
	c.sender.Tell(msg, c.cell.self)
}

// Forward 保留原发送者转发当前消息
func (c *Context) Forward(target Ref) {
	if c.message != nil {
		target.Tell(c.message, c.sender)
	}
}

// ============== 子 Actor ==============

// ActorOf 创建子 Actor，name 为空时自动生成
func (c *Context) ActorOf(props *Props, name string) (Ref, error) {
	return c.cell.newChild(props, name, false)
}

// Children 返回所有子 Actor，按名称排序
func (c *Context) Children() []Ref { return c.cell.children.refs() }

// Child 按名称查找子 Actor
func (c *Context) Child(name string) (Ref, bool) {
	e, ok := c.cell.children.get(name)
	if !ok {
		return NoSender, false
	}
	return e.ref, true
}

// Stop 异步停止 Actor
func (c *Context) Stop(ref Ref) {
	if ref == c.cell.self {
		c.StopSelf()
		return
	}
	if _, ok := c.cell.children.byRef(ref); ok {
		c.cell.stopChild(ref)
		return
	}
	ref.SendSystemMessage(&Terminate{})
}

// StopSelf 停止当前 Actor
func (c *Context) StopSelf() {
	c.cell.self.SendSystemMessage(&Terminate{})
}

// ============== 监控 ==============

// Watch 监控 Actor，目标终止时收到一次 Terminated
func (c *Context) Watch(ref Ref) { c.cell.watch(ref) }

// Unwatch 取消监控，之后不会再收到该目标的 Terminated
func (c *Context) Unwatch(ref Ref) { c.cell.unwatch(ref) }

// ============== 行为 ==============

// Become 替换消息处理函数
// discardOld 为 true 时替换栈顶，否则压栈
func (c *Context) Become(b Behavior, discardOld bool) { c.cell.become(b, discardOld) }

// Unbecome 恢复上一个处理函数
func (c *Context) Unbecome() { c.cell.unbecome() }

// SetReceiveTimeout 设置空闲超时，d <= 0 关闭
// 超时后收到 ReceiveTimeout，之后每个空闲周期再收到一次
func (c *Context) SetReceiveTimeout(d time.Duration) { c.cell.setReceiveTimeout(d) }

// ReceiveTimeout 返回当前空闲超时
func (c *Context) ReceiveTimeout() time.Duration { return c.cell.receiveTimeout }
