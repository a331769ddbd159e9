package actor

import (
	"context"
	"log/slog"
	"runtime"
	"runtime/debug"
	"sync"
	"time"

	"go.uber.org/atomic"
	"golang.org/x/sync/errgroup"
)

// DefaultDispatcherID 默认调度器 ID
const DefaultDispatcherID = "default-dispatcher"

// DispatcherConfig 调度器配置
type DispatcherConfig struct {
	// ID 调度器标识，Props 与部署配置通过它选择调度器
	ID string
	// Workers 工作 goroutine 数量
	Workers int
	// Throughput 每次调度最多处理的用户消息数
	Throughput int
	// ThroughputDeadline 每次调度的最长处理时间，0 表示不限制
	ThroughputDeadline time.Duration
	// ShutdownTimeout 关闭时等待 Actor 退出的时间，超时后强制清空邮箱
	ShutdownTimeout time.Duration
	// QueueSize 运行队列缓冲大小
	QueueSize int
}

// DefaultDispatcherConfig 默认调度器配置
func DefaultDispatcherConfig() DispatcherConfig {
	return DispatcherConfig{
		ID:              DefaultDispatcherID,
		Workers:         runtime.GOMAXPROCS(0),
		Throughput:      5,
		ShutdownTimeout: time.Second,
		QueueSize:       1024,
	}
}

func (c DispatcherConfig) withDefaults() DispatcherConfig {
	def := DefaultDispatcherConfig()
	if c.ID == "" {
		c.ID = def.ID
	}
	if c.Workers <= 0 {
		c.Workers = def.Workers
	}
	if c.Throughput <= 0 {
		c.Throughput = def.Throughput
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = def.ShutdownTimeout
	}
	if c.QueueSize <= 0 {
		c.QueueSize = def.QueueSize
	}
	return c
}

// Dispatcher 共享工作池调度器
// 工作 goroutine 从运行队列取出邮箱并执行一次批处理，
// 同一邮箱在任意时刻最多被一个工作 goroutine 执行。
type Dispatcher struct {
	cfg    DispatcherConfig
	queue  chan *Mailbox
	dead   *deadLetterOffice
	logger *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	group  *errgroup.Group

	mailboxes    sync.Map // *Mailbox -> struct{}
	inhabitants  *atomic.Int64
	shuttingDown *atomic.Bool
	shutdownOnce sync.Once
}

func newDispatcher(cfg DispatcherConfig, dead *deadLetterOffice, logger *slog.Logger) *Dispatcher {
	cfg = cfg.withDefaults()
	ctx, cancel := context.WithCancel(context.Background())
	group, ctx := errgroup.WithContext(ctx)

	d := &Dispatcher{
		cfg:          cfg,
		queue:        make(chan *Mailbox, cfg.QueueSize),
		dead:         dead,
		logger:       logger.With("dispatcher", cfg.ID),
		ctx:          ctx,
		cancel:       cancel,
		group:        group,
		inhabitants:  atomic.NewInt64(0),
		shuttingDown: atomic.NewBool(false),
	}
	for i := 0; i < cfg.Workers; i++ {
		group.Go(d.worker)
	}
	return d
}

// ID 返回调度器标识
func (d *Dispatcher) ID() string { return d.cfg.ID }

// Config 返回调度器配置
func (d *Dispatcher) Config() DispatcherConfig { return d.cfg }

// Inhabitants 返回挂载在此调度器上的 Actor 数
func (d *Dispatcher) Inhabitants() int64 { return d.inhabitants.Load() }

func (d *Dispatcher) createMailbox(t MailboxType) *Mailbox {
	return newMailbox(t.newQueue(), d, d.dead)
}

// attach 挂载邮箱并调度其中已入队的 Create
func (d *Dispatcher) attach(m *Mailbox) error {
	if d.shuttingDown.Load() {
		return ErrDispatcherShutdown
	}
	d.inhabitants.Inc()
	d.mailboxes.Store(m, struct{}{})
	d.registerForExecution(m, false, true)
	return nil
}

// detach 卸载邮箱，关闭并清空到死信
// 由持有该邮箱调度权的 goroutine 调用
func (d *Dispatcher) detach(m *Mailbox) {
	if _, loaded := d.mailboxes.LoadAndDelete(m); !loaded {
		return
	}
	m.becomeClosed()
	m.cleanUp()
	d.inhabitants.Dec()
}

func (d *Dispatcher) dispatch(m *Mailbox, receiver Ref, env Envelope) {
	m.enqueue(receiver, env)
	d.registerForExecution(m, true, false)
}

func (d *Dispatcher) systemDispatch(m *Mailbox, receiver Ref, msg SystemMessage) {
	m.systemEnqueue(receiver, msg)
	d.registerForExecution(m, false, true)
}

// registerForExecution 尝试调度邮箱，已被调度时为空操作
func (d *Dispatcher) registerForExecution(m *Mailbox, hasMessageHint, hasSystemMessageHint bool) bool {
	if !m.canBeScheduledForExecution(hasMessageHint, hasSystemMessageHint) {
		return false
	}
	if !m.setAsScheduled() {
		return false
	}
	if !d.execute(m) {
		m.setAsIdle()
		return false
	}
	return true
}

// execute 提交到运行队列，不阻塞调用方
func (d *Dispatcher) execute(m *Mailbox) bool {
	if d.ctx.Err() != nil {
		return false
	}
	select {
	case d.queue <- m:
		return true
	default:
	}
	go func() {
		select {
		case d.queue <- m:
		case <-d.ctx.Done():
		}
	}()
	return true
}

func (d *Dispatcher) worker() error {
	for {
		select {
		case <-d.ctx.Done():
			return nil
		case m := <-d.queue:
			d.runMailbox(m)
		}
	}
}

func (d *Dispatcher) runMailbox(m *Mailbox) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("panic escaped mailbox run",
				"actor", m.owner.String(),
				"error", r,
				"stack", string(debug.Stack()))
		}
	}()
	m.run()
}

// shutdown 停止接受新 Actor，等待已挂载 Actor 退出，超时后强制清空剩余邮箱
func (d *Dispatcher) shutdown(ctx context.Context) {
	d.shutdownOnce.Do(func() {
		d.shuttingDown.Store(true)

		timer := time.NewTimer(d.cfg.ShutdownTimeout)
		defer timer.Stop()
		ticker := time.NewTicker(5 * time.Millisecond)
		defer ticker.Stop()

	wait:
		for d.inhabitants.Load() > 0 {
			select {
			case <-ctx.Done():
				break wait
			case <-timer.C:
				break wait
			case <-ticker.C:
			}
		}

		d.cancel()
		_ = d.group.Wait()

		forced := 0
		d.mailboxes.Range(func(key, _ any) bool {
			m := key.(*Mailbox)
			d.mailboxes.Delete(key)
			// 工作 goroutine 已全部退出，可以直接占有邮箱
			m.status.Store(mailboxClosed | mailboxScheduled)
			m.cleanUp()
			m.setAsIdle()
			d.inhabitants.Dec()
			forced++
			return true
		})
		if forced > 0 {
			d.logger.Warn("dispatcher shutdown forced", "mailboxes", forced)
		}
		d.logger.Debug("dispatcher stopped")
	})
}
