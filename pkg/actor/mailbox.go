package actor

import (
	"time"

	"go.uber.org/atomic"
)

// 邮箱状态字
// bit0 关闭，bit1 已交给调度器，其余位为挂起计数
const (
	mailboxOpen      uint32 = 0
	mailboxClosed    uint32 = 1
	mailboxScheduled uint32 = 2

	shouldScheduleMask   uint32 = 3
	shouldNotProcessMask uint32 = ^uint32(2)
	suspendMask          uint32 = ^uint32(3)
	suspendUnit          uint32 = 4
)

// invoker 邮箱的消费者，由 actorCell 实现
type invoker interface {
	invoke(env Envelope)
	systemInvoke(msg SystemMessage)
}

// Mailbox Actor 邮箱
// 用户队列 + 系统消息链表 + 原子状态字。
// 状态字中的调度标志保证同一时刻最多一个 goroutine 在处理该邮箱。
type Mailbox struct {
	status     *atomic.Uint32
	queue      MessageQueue
	sysHead    atomic.Pointer[sysEntry]
	owner      Ref
	actor      invoker
	dispatcher *Dispatcher
	dead       *deadLetterOffice
}

func newMailbox(queue MessageQueue, dispatcher *Dispatcher, dead *deadLetterOffice) *Mailbox {
	return &Mailbox{
		status:     atomic.NewUint32(mailboxOpen),
		queue:      queue,
		dispatcher: dispatcher,
		dead:       dead,
	}
}

// setActor 绑定所属 Actor，必须在 attach 之前调用
func (m *Mailbox) setActor(owner Ref, actor invoker) {
	m.owner = owner
	m.actor = actor
}

// ============== 状态 ==============

func (m *Mailbox) currentStatus() uint32 { return m.status.Load() }

func (m *Mailbox) isClosed() bool { return m.currentStatus()&mailboxClosed != 0 }

func (m *Mailbox) isScheduled() bool { return m.currentStatus()&mailboxScheduled != 0 }

func (m *Mailbox) isSuspended() bool { return m.currentStatus()&suspendMask != 0 }

func (m *Mailbox) suspendCount() uint32 { return m.currentStatus() / suspendUnit }

func (m *Mailbox) shouldProcessMessage() bool {
	return m.currentStatus()&shouldNotProcessMask == 0
}

// suspend 增加挂起计数，返回是否由未挂起变为挂起
func (m *Mailbox) suspend() bool {
	for {
		s := m.currentStatus()
		if s&mailboxClosed != 0 {
			return false
		}
		if m.status.CompareAndSwap(s, s+suspendUnit) {
			return s < suspendUnit
		}
	}
}

// resume 减少挂起计数，返回是否恢复为未挂起
func (m *Mailbox) resume() bool {
	for {
		s := m.currentStatus()
		if s&mailboxClosed != 0 {
			return false
		}
		next := s
		if s >= suspendUnit {
			next = s - suspendUnit
		}
		if m.status.CompareAndSwap(s, next) {
			return next < suspendUnit
		}
	}
}

// becomeClosed 单向关闭，保留正在运行的调度标志
func (m *Mailbox) becomeClosed() bool {
	for {
		s := m.currentStatus()
		if s&mailboxClosed != 0 {
			return false
		}
		if m.status.CompareAndSwap(s, mailboxClosed|(s&mailboxScheduled)) {
			return true
		}
	}
}

// setAsScheduled 申请调度权，已被占用或已关闭时立即失败
func (m *Mailbox) setAsScheduled() bool {
	for {
		s := m.currentStatus()
		if s&shouldScheduleMask != mailboxOpen {
			return false
		}
		if m.status.CompareAndSwap(s, s|mailboxScheduled) {
			return true
		}
	}
}

// setAsIdle 释放调度权
func (m *Mailbox) setAsIdle() {
	for {
		s := m.currentStatus()
		if m.status.CompareAndSwap(s, s&^mailboxScheduled) {
			return
		}
	}
}

// claimClosed 在已关闭邮箱上申请独占权，用于清理
func (m *Mailbox) claimClosed() bool {
	for {
		s := m.currentStatus()
		if s&mailboxScheduled != 0 {
			return false
		}
		if m.status.CompareAndSwap(s, s|mailboxScheduled) {
			return true
		}
	}
}

func (m *Mailbox) canBeScheduledForExecution(hasMessageHint, hasSystemMessageHint bool) bool {
	s := m.currentStatus()
	switch {
	case s&mailboxClosed != 0:
		return false
	case s&suspendMask == 0:
		return hasMessageHint || hasSystemMessageHint || m.hasSystemMessages() || m.hasMessages()
	default:
		return hasSystemMessageHint || m.hasSystemMessages()
	}
}

// ============== 用户消息 ==============

// enqueue 追加用户消息，邮箱关闭或已满时转入死信
func (m *Mailbox) enqueue(receiver Ref, env Envelope) {
	if m.isClosed() {
		m.dead.publish(DeadLetter{Message: env.Message, Sender: env.Sender, Recipient: receiver})
		return
	}
	if err := m.queue.Enqueue(receiver, env); err != nil {
		m.dead.publish(DeadLetter{Message: env.Message, Sender: env.Sender, Recipient: receiver})
		return
	}
	// 入队期间邮箱被关闭，消息可能错过清理
	if m.isClosed() {
		m.tryCleanUp()
	}
}

func (m *Mailbox) hasMessages() bool { return m.queue.HasMessages() }

func (m *Mailbox) numberOfMessages() int { return m.queue.NumberOfMessages() }

// ============== 系统消息 ==============

// systemEnqueue CAS 前插，队列已关闭时转入死信
func (m *Mailbox) systemEnqueue(receiver Ref, msg SystemMessage) {
	e := &sysEntry{msg: msg}
	for {
		head := m.sysHead.Load()
		if head == noMessage {
			m.dead.publishSystem(receiver, msg)
			return
		}
		list := latestFirst{head: head}.prepend(e)
		if m.sysHead.CompareAndSwap(head, list.head) {
			return
		}
	}
}

// systemDrain 取出全部系统消息并以 newContents 替换
func (m *Mailbox) systemDrain(newContents *sysEntry) earliestFirst {
	for {
		head := m.sysHead.Load()
		if head == noMessage {
			return earliestFirst{}
		}
		if m.sysHead.CompareAndSwap(head, newContents) {
			return latestFirst{head: head}.reverse()
		}
	}
}

func (m *Mailbox) hasSystemMessages() bool {
	head := m.sysHead.Load()
	return head != nil && head != noMessage
}

// ============== 处理 ==============

// run 一次调度执行
func (m *Mailbox) run() {
	defer m.release()

	if m.isClosed() {
		return
	}
	m.processAllSystemMessages()
	m.processMailbox()
}

// release 释放调度权
// 释放后重新检查，持有调度权期间入队的消息不会丢失唤醒
func (m *Mailbox) release() {
	m.setAsIdle()
	if m.isClosed() {
		m.tryCleanUp()
		return
	}
	m.dispatcher.registerForExecution(m, false, false)
}

func (m *Mailbox) processMailbox() {
	left := m.dispatcher.cfg.Throughput
	if left < 1 {
		left = 1
	}
	var deadline time.Time
	if d := m.dispatcher.cfg.ThroughputDeadline; d > 0 {
		deadline = time.Now().Add(d)
	}

	for left > 0 && m.shouldProcessMessage() {
		env, ok := m.queue.Dequeue()
		if !ok {
			return
		}
		m.actor.invoke(env)
		m.processAllSystemMessages()
		left--
		if !deadline.IsZero() && !time.Now().Before(deadline) {
			return
		}
	}
}

func (m *Mailbox) processAllSystemMessages() {
	list := m.systemDrain(nil)
	for !list.isEmpty() && !m.isClosed() {
		var msg SystemMessage
		msg, list = list.pop()
		m.actor.systemInvoke(msg)
		if list.isEmpty() {
			list = m.systemDrain(nil)
		}
	}
	// 处理过程中邮箱被关闭，剩余消息转入死信
	for !list.isEmpty() {
		var msg SystemMessage
		msg, list = list.pop()
		m.dead.publishSystem(m.owner, msg)
	}
}

// tryCleanUp 在取得独占权后清理已关闭的邮箱
func (m *Mailbox) tryCleanUp() {
	if !m.claimClosed() {
		return
	}
	m.cleanUp()
	m.setAsIdle()
}

// cleanUp 安装关闭标记并将剩余消息全部转入死信
// 调用方必须持有邮箱独占权
func (m *Mailbox) cleanUp() {
	list := m.systemDrain(noMessage)
	for !list.isEmpty() {
		var msg SystemMessage
		msg, list = list.pop()
		m.dead.publishSystem(m.owner, msg)
	}
	for {
		env, ok := m.queue.Dequeue()
		if !ok {
			return
		}
		m.dead.publish(DeadLetter{Message: env.Message, Sender: env.Sender, Recipient: m.owner})
	}
}
