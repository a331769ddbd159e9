package actor

import (
	"go.uber.org/atomic"
)

// MessageQueue 用户消息队列
// Enqueue 可由任意 goroutine 并发调用，Dequeue 只由持有邮箱调度权的 goroutine 调用
type MessageQueue interface {
	// Enqueue 追加消息，永不阻塞
	Enqueue(receiver Ref, env Envelope) error
	// Dequeue 取出一条消息，队列为空时返回 false
	Dequeue() (Envelope, bool)
	// NumberOfMessages 近似消息数，仅用于诊断
	NumberOfMessages() int
	// HasMessages 近似判断是否有消息
	HasMessages() bool
}

// MailboxKind 邮箱类型
type MailboxKind int

const (
	// MailboxUnbounded 无界邮箱
	MailboxUnbounded MailboxKind = iota
	// MailboxBounded 有界邮箱，满时消息进入死信
	MailboxBounded
)

// String 返回类型名称
func (k MailboxKind) String() string {
	switch k {
	case MailboxUnbounded:
		return "unbounded"
	case MailboxBounded:
		return "bounded"
	default:
		return "unknown"
	}
}

// MailboxType 邮箱配置
type MailboxType struct {
	Kind     MailboxKind
	Capacity int
}

// UnboundedMailbox 无界邮箱配置
func UnboundedMailbox() MailboxType {
	return MailboxType{Kind: MailboxUnbounded}
}

// BoundedMailbox 有界邮箱配置
func BoundedMailbox(capacity int) MailboxType {
	return MailboxType{Kind: MailboxBounded, Capacity: capacity}
}

func (t MailboxType) newQueue() MessageQueue {
	if t.Kind == MailboxBounded && t.Capacity > 0 {
		return newBoundedQueue(t.Capacity)
	}
	return newUnboundedQueue()
}

// ═══════════════════════════════════════════════════════════════════════════
// 无界队列：多生产者单消费者链表
// ═══════════════════════════════════════════════════════════════════════════

type queueNode struct {
	next atomic.Pointer[queueNode]
	env  Envelope
}

// unboundedQueue 无锁 MPSC 队列
// 生产者交换 head，消费者独占 tail，tail 始终指向已消费的哑节点
type unboundedQueue struct {
	head  atomic.Pointer[queueNode]
	tail  *queueNode
	count *atomic.Int64
}

func newUnboundedQueue() *unboundedQueue {
	stub := &queueNode{}
	q := &unboundedQueue{tail: stub, count: atomic.NewInt64(0)}
	q.head.Store(stub)
	return q
}

func (q *unboundedQueue) Enqueue(_ Ref, env Envelope) error {
	n := &queueNode{env: env}
	q.count.Inc()
	prev := q.head.Swap(n)
	prev.next.Store(n)
	return nil
}

func (q *unboundedQueue) Dequeue() (Envelope, bool) {
	next := q.tail.next.Load()
	if next == nil {
		return Envelope{}, false
	}
	q.tail = next
	env := next.env
	next.env = Envelope{}
	q.count.Dec()
	return env, true
}

func (q *unboundedQueue) NumberOfMessages() int {
	if n := q.count.Load(); n > 0 {
		return int(n)
	}
	return 0
}

func (q *unboundedQueue) HasMessages() bool {
	return q.count.Load() > 0
}

// ═══════════════════════════════════════════════════════════════════════════
// 有界队列
// ═══════════════════════════════════════════════════════════════════════════

type boundedQueue struct {
	buffer chan Envelope
}

func newBoundedQueue(capacity int) *boundedQueue {
	return &boundedQueue{buffer: make(chan Envelope, capacity)}
}

func (q *boundedQueue) Enqueue(_ Ref, env Envelope) error {
	select {
	case q.buffer <- env:
		return nil
	default:
		return ErrMailboxFull
	}
}

func (q *boundedQueue) Dequeue() (Envelope, bool) {
	select {
	case env := <-q.buffer:
		return env, true
	default:
		return Envelope{}, false
	}
}

func (q *boundedQueue) NumberOfMessages() int { return len(q.buffer) }

func (q *boundedQueue) HasMessages() bool { return len(q.buffer) > 0 }
