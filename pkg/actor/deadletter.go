package actor

import (
	"context"
	"log/slog"
	"sync"

	"go.uber.org/atomic"
)

// DeadLetterSink 死信接收方
// Publish 不得阻塞或失败
type DeadLetterSink interface {
	Publish(dl DeadLetter)
}

// DeadLetterSinkFunc 函数式死信接收方
type DeadLetterSinkFunc func(dl DeadLetter)

// Publish 实现 DeadLetterSink
func (f DeadLetterSinkFunc) Publish(dl DeadLetter) { f(dl) }

// deadLetterOffice 死信邮局
// 发送方只做非阻塞入队，单独的 goroutine 负责日志和分发
type deadLetterOffice struct {
	ref        Ref
	ch         chan DeadLetter
	logEnabled bool
	sink       DeadLetterSink
	logger     *slog.Logger

	published *atomic.Int64
	dropped   *atomic.Int64

	mu          sync.RWMutex
	subscribers map[uint64]DeadLetterSink
	nextID      uint64

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

func newDeadLetterOffice(path Path, bufferSize int, logEnabled bool, sink DeadLetterSink, logger *slog.Logger) *deadLetterOffice {
	if bufferSize <= 0 {
		bufferSize = 1000
	}
	ctx, cancel := context.WithCancel(context.Background())
	d := &deadLetterOffice{
		ch:          make(chan DeadLetter, bufferSize),
		logEnabled:  logEnabled,
		sink:        sink,
		logger:      logger,
		published:   atomic.NewInt64(0),
		dropped:     atomic.NewInt64(0),
		subscribers: make(map[uint64]DeadLetterSink),
		ctx:         ctx,
		cancel:      cancel,
		done:        make(chan struct{}),
	}
	// 死信引用没有化身，uid 为零值
	d.ref = Ref{path: path, sink: d}
	go d.run()
	return d
}

func (d *deadLetterOffice) sendMessage(env Envelope) {
	d.publish(DeadLetter{Message: env.Message, Sender: env.Sender, Recipient: d.ref})
}

func (d *deadLetterOffice) sendSystemMessage(msg SystemMessage) {
	d.publishSystem(d.ref, msg)
}

// publish 非阻塞投递，缓冲区满时计入丢弃数
func (d *deadLetterOffice) publish(dl DeadLetter) {
	d.published.Inc()
	select {
	case d.ch <- dl:
	default:
		d.dropped.Inc()
	}
}

// publishSystem 处理无法投递的系统消息
// 对已不存在的目标发起的 Watch 立即合成一条终止通知
func (d *deadLetterOffice) publishSystem(recipient Ref, msg SystemMessage) {
	if w, ok := msg.(*Watch); ok {
		if w.Watchee != w.Watcher && !w.Watcher.IsNoSender() {
			w.Watcher.SendSystemMessage(&DeathWatchNotification{Actor: w.Watchee, ExistenceConfirmed: false})
		}
		return
	}
	d.logger.Debug("undelivered system message", "message", msg.Kind(), "recipient", recipient.String())
}

func (d *deadLetterOffice) subscribe(s DeadLetterSink) func() {
	d.mu.Lock()
	id := d.nextID
	d.nextID++
	d.subscribers[id] = s
	d.mu.Unlock()
	return func() {
		d.mu.Lock()
		delete(d.subscribers, id)
		d.mu.Unlock()
	}
}

func (d *deadLetterOffice) run() {
	defer close(d.done)
	for {
		select {
		case dl := <-d.ch:
			d.deliver(dl)
		case <-d.ctx.Done():
			for {
				select {
				case dl := <-d.ch:
					d.deliver(dl)
				default:
					return
				}
			}
		}
	}
}

func (d *deadLetterOffice) deliver(dl DeadLetter) {
	if d.logEnabled {
		d.logger.Warn("dead letter",
			"message", kindOf(dl.Message),
			"recipient", dl.Recipient.String(),
			"sender", dl.Sender.String())
	}
	if d.sink != nil {
		d.safePublish(d.sink, dl)
	}

	d.mu.RLock()
	subscribers := make([]DeadLetterSink, 0, len(d.subscribers))
	for _, s := range d.subscribers {
		subscribers = append(subscribers, s)
	}
	d.mu.RUnlock()

	for _, s := range subscribers {
		d.safePublish(s, dl)
	}
}

func (d *deadLetterOffice) safePublish(s DeadLetterSink, dl DeadLetter) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("dead letter sink panicked", "error", r)
		}
	}()
	s.Publish(dl)
}

func (d *deadLetterOffice) stop() {
	d.cancel()
	<-d.done
}
