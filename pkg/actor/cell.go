package actor

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/atomic"
)

// cellState Actor 生命周期状态
type cellState int32

const (
	cellUnstarted cellState = iota
	cellStarted
	cellSuspended
	cellTerminating
	cellTerminated
)

// String 返回状态名称
func (s cellState) String() string {
	switch s {
	case cellUnstarted:
		return "Unstarted"
	case cellStarted:
		return "Started"
	case cellSuspended:
		return "Suspended"
	case cellTerminating:
		return "Terminating"
	case cellTerminated:
		return "Terminated"
	default:
		return "Unknown"
	}
}

// actorCell Actor 单元，包含 Actor 及其运行时状态
type actorCell struct {
	system     *System
	self       Ref
	parent     Ref
	props      *Props
	dispatcher *Dispatcher
	mailbox    *Mailbox
	logger     *slog.Logger
	children   *childrenContainer
	stats      *AtomicStatsCollector
	state      *atomic.Int32
	childSeq   *atomic.Uint64

	goCtx  context.Context
	cancel context.CancelFunc
	done   chan struct{}

	// 以下字段只由持有邮箱调度权的 goroutine 访问
	actor            Actor
	behaviors        []Behavior
	ctx              *Context
	watching         map[Ref]struct{}
	watchers         map[Ref]struct{}
	terminatedQueued map[Ref]struct{}
	failed           bool
	perpetrator      Ref
	receiveTimeout   time.Duration
	timeoutGen       uint64
	timeoutTimer     *time.Timer
}

func newActorCell(sys *System, path Path, props *Props, parent Ref, dispatcher *Dispatcher) *actorCell {
	goCtx, cancel := context.WithCancel(sys.ctx)
	c := &actorCell{
		system:           sys,
		parent:           parent,
		props:            props,
		dispatcher:       dispatcher,
		logger:           sys.logger,
		children:         newChildrenContainer(),
		stats:            NewAtomicStatsCollector(),
		state:            atomic.NewInt32(int32(cellUnstarted)),
		childSeq:         atomic.NewUint64(0),
		goCtx:            goCtx,
		cancel:           cancel,
		done:             make(chan struct{}),
		watching:         make(map[Ref]struct{}),
		watchers:         make(map[Ref]struct{}),
		terminatedQueued: make(map[Ref]struct{}),
	}
	c.self = newRef(path, c)
	c.ctx = &Context{cell: c}
	c.mailbox = dispatcher.createMailbox(props.Mailbox)
	c.mailbox.setActor(c.self, c)
	return c
}

// ============== sink ==============

func (c *actorCell) sendMessage(env Envelope) {
	c.system.stats.messages.Inc()
	c.dispatcher.dispatch(c.mailbox, c.self, env)
}

func (c *actorCell) sendSystemMessage(msg SystemMessage) {
	c.dispatcher.systemDispatch(c.mailbox, c.self, msg)
}

// ============== 状态 ==============

func (c *actorCell) lifecycle() cellState { return cellState(c.state.Load()) }

func (c *actorCell) setLifecycle(s cellState) { c.state.Store(int32(s)) }

func (c *actorCell) isTerminating() bool { return c.lifecycle() >= cellTerminating }

func (c *actorCell) isTerminated() bool { return c.lifecycle() == cellTerminated }

// ============== 创建 ==============

// init 在挂载前放入 Create，并通知父 Actor
func (c *actorCell) init(sendSupervise bool) {
	c.mailbox.systemEnqueue(c.self, &Create{})
	if sendSupervise && !c.parent.IsNoSender() {
		c.parent.SendSystemMessage(&Supervise{Child: c.self})
	}
}

// start 挂载到调度器
func (c *actorCell) start() error {
	return c.dispatcher.attach(c.mailbox)
}

// newChild 创建子 Actor，可由任意 goroutine 调用
func (c *actorCell) newChild(props *Props, name string, systemName bool) (Ref, error) {
	if props == nil {
		return NoSender, errors.New("props must not be nil")
	}
	if name == "" {
		name = "$" + strconv.FormatUint(c.childSeq.Inc(), 36)
	} else if systemName {
		if err := validateElement(name); err != nil {
			return NoSender, err
		}
	} else if err := ValidateName(name); err != nil {
		return NoSender, err
	}

	if err := c.children.reserve(name); err != nil {
		return NoSender, err
	}
	return c.spawnReserved(props, name)
}

// spawnReserved 为已预留的名称创建并启动子 Actor
// 父 Actor 在此期间开始终止时放弃创建并释放名称
func (c *actorCell) spawnReserved(props *Props, name string) (Ref, error) {
	child, err := c.system.newCell(c.self.Path().Child(name), props, c.self)
	if err != nil {
		c.children.release(name)
		return NoSender, err
	}
	err = c.children.initChild(name, child, c.isTerminating, func() error {
		child.init(true)
		return child.start()
	})
	if err != nil {
		child.cancel()
		return NoSender, err
	}
	c.system.stats.actors.Inc()
	c.logger.Debug("spawned actor", "actor", child.self.String(), "parent", c.self.String())
	return child.self, nil
}

// ============== 消息处理 ==============

// invoke 处理一条用户消息，失败在此处被捕获并转交监督
func (c *actorCell) invoke(env Envelope) {
	start := time.Now()
	c.stats.RecordReceived()
	c.ctx.sender = env.Sender
	c.ctx.message = env.Message

	ok := c.guard(env.Message, func() bool {
		return c.autoReceive(env.Message)
	})

	c.ctx.sender = NoSender
	c.ctx.message = nil
	if ok {
		c.stats.RecordHandled(time.Since(start))
		c.system.stats.processed.Inc()
	}
}

// guard 执行 fn，捕获 panic 并作为处理失败上报
func (c *actorCell) guard(msg Message, fn func() bool) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
			c.handleInvokeFailure(recoveredError(r), msg)
		}
	}()
	return fn()
}

// autoReceive 返回 false 表示消息导致了失败
func (c *actorCell) autoReceive(msg Message) bool {
	switch m := msg.(type) {
	case *PoisonPill:
		c.self.SendSystemMessage(&Terminate{})
		return true
	case *Kill:
		c.handleInvokeFailure(&ActorKilledError{Actor: c.self}, msg)
		return false
	case *receiveTimeoutTick:
		if m.generation != c.timeoutGen || c.receiveTimeout <= 0 {
			return true
		}
		c.receive(&ReceiveTimeout{})
	case *terminatedNotice:
		if _, ok := c.terminatedQueued[m.Who]; !ok {
			return true
		}
		delete(c.terminatedQueued, m.Who)
		c.receive(m.Terminated)
	default:
		c.receive(msg)
	}
	c.armReceiveTimeout()
	return true
}

// receive 交给当前行为处理
func (c *actorCell) receive(msg Message) {
	if c.actor == nil {
		c.dispatcher.dead.publish(DeadLetter{Message: msg, Sender: c.ctx.sender, Recipient: c.self})
		return
	}
	if n := len(c.behaviors); n > 0 {
		c.behaviors[n-1](c.ctx, msg)
		return
	}
	c.actor.Receive(c.ctx, msg)
}

// deliver 在系统消息处理中调用生命周期钩子，panic 以 error 返回
func (c *actorCell) deliver(msg Message) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = recoveredError(r)
		}
	}()
	if c.actor == nil {
		return nil
	}
	c.ctx.sender = NoSender
	c.ctx.message = msg
	defer func() { c.ctx.message = nil }()
	c.receive(msg)
	return nil
}

// produce 通过工厂创建新实例
func (c *actorCell) produce() (a Actor, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = recoveredError(r)
		}
	}()
	return c.props.newActor()
}

// systemInvoke 处理一条系统消息
func (c *actorCell) systemInvoke(msg SystemMessage) {
	defer func() {
		if r := recover(); r != nil {
			c.handleInvokeFailure(recoveredError(r), msg)
		}
	}()

	if c.isTerminated() {
		c.dispatcher.dead.publishSystem(c.self, msg)
		return
	}

	switch m := msg.(type) {
	case *Create:
		c.create()
	case *Recreate:
		c.faultRecreate(m.Cause)
	case *Suspend:
		c.faultSuspend()
	case *Resume:
		c.faultResume(m.CausedByFailure)
	case *Terminate:
		c.terminate()
	case *Supervise:
		c.supervise(m.Child)
	case *Watch:
		c.addWatcher(m.Watchee, m.Watcher)
	case *Unwatch:
		c.remWatcher(m.Watchee, m.Watcher)
	case *DeathWatchNotification:
		c.watchedActorTerminated(m.Actor, m.ExistenceConfirmed)
	case *Failed:
		c.handleFailure(m)
	}
}

// ============== 行为切换 ==============

func (c *actorCell) become(b Behavior, discardOld bool) {
	if discardOld && len(c.behaviors) > 0 {
		c.behaviors[len(c.behaviors)-1] = b
		return
	}
	c.behaviors = append(c.behaviors, b)
}

func (c *actorCell) unbecome() {
	if n := len(c.behaviors); n > 0 {
		c.behaviors[n-1] = nil
		c.behaviors = c.behaviors[:n-1]
	}
}

// ============== 接收超时 ==============

func (c *actorCell) setReceiveTimeout(d time.Duration) {
	c.receiveTimeout = d
	c.armReceiveTimeout()
}

// armReceiveTimeout 重新计时，旧定时器产生的消息按代数丢弃
func (c *actorCell) armReceiveTimeout() {
	c.cancelReceiveTimeout()
	if c.receiveTimeout <= 0 || c.isTerminating() || c.failed {
		return
	}
	gen := c.timeoutGen
	self := c.self
	c.timeoutTimer = time.AfterFunc(c.receiveTimeout, func() {
		self.Tell(&receiveTimeoutTick{generation: gen}, NoSender)
	})
}

func (c *actorCell) cancelReceiveTimeout() {
	if c.timeoutTimer != nil {
		c.timeoutTimer.Stop()
		c.timeoutTimer = nil
	}
	c.timeoutGen++
}

// snapshot 统计快照，附带当前邮箱长度
func (c *actorCell) snapshot() *ActorStats {
	s := c.stats.Stats()
	s.MailboxSize = c.mailbox.numberOfMessages()
	return s
}
