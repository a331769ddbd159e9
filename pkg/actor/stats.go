package actor

import (
	"sync"
	"time"

	"go.uber.org/atomic"
)

// ═══════════════════════════════════════════════════════════════════════════
// Actor 统计信息
// ═══════════════════════════════════════════════════════════════════════════

// ActorStats Actor 运行时统计信息
type ActorStats struct {
	// 消息计数
	MessagesReceived int64 // 接收的消息总数
	MessagesHandled  int64 // 成功处理的消息数
	Errors           int64 // 错误数
	Restarts         int64 // 重启次数
	MailboxSize      int   // 当前邮箱中待处理的用户消息数

	// 延迟统计
	TotalLatency   time.Duration // 总处理时间
	AverageLatency time.Duration // 平均处理时间
	MaxLatency     time.Duration // 最大处理时间

	// 时间戳
	StartedAt     time.Time // 启动时间
	LastMessageAt time.Time // 最后消息时间
	LastErrorAt   time.Time // 最后错误时间

	// 错误信息
	LastError error // 最后一个错误
}

// ═══════════════════════════════════════════════════════════════════════════
// 原子统计收集器
// ═══════════════════════════════════════════════════════════════════════════

// AtomicStatsCollector 使用原子操作的统计收集器
// 计数在处理 goroutine 上写入，可被任意 goroutine 读取快照
type AtomicStatsCollector struct {
	messagesReceived *atomic.Int64
	messagesHandled  *atomic.Int64
	errors           *atomic.Int64
	restarts         *atomic.Int64
	totalLatencyNs   *atomic.Int64
	maxLatencyNs     *atomic.Int64

	// 非原子字段，需要锁保护
	mu            sync.RWMutex
	startedAt     time.Time
	lastMessageAt time.Time
	lastErrorAt   time.Time
	lastError     error
}

// NewAtomicStatsCollector 创建原子统计收集器
func NewAtomicStatsCollector() *AtomicStatsCollector {
	return &AtomicStatsCollector{
		messagesReceived: atomic.NewInt64(0),
		messagesHandled:  atomic.NewInt64(0),
		errors:           atomic.NewInt64(0),
		restarts:         atomic.NewInt64(0),
		totalLatencyNs:   atomic.NewInt64(0),
		maxLatencyNs:     atomic.NewInt64(0),
		startedAt:        time.Now(),
	}
}

// RecordReceived 记录接收
func (c *AtomicStatsCollector) RecordReceived() {
	c.messagesReceived.Inc()
	c.mu.Lock()
	c.lastMessageAt = time.Now()
	c.mu.Unlock()
}

// RecordHandled 记录处理完成
func (c *AtomicStatsCollector) RecordHandled(latency time.Duration) {
	c.messagesHandled.Inc()
	c.totalLatencyNs.Add(int64(latency))
	for {
		cur := c.maxLatencyNs.Load()
		if int64(latency) <= cur || c.maxLatencyNs.CompareAndSwap(cur, int64(latency)) {
			return
		}
	}
}

// RecordError 记录错误
func (c *AtomicStatsCollector) RecordError(err error) {
	c.errors.Inc()
	c.mu.Lock()
	c.lastError = err
	c.lastErrorAt = time.Now()
	c.mu.Unlock()
}

// RecordRestart 记录重启
func (c *AtomicStatsCollector) RecordRestart() {
	c.restarts.Inc()
}

// Stats 获取统计快照
func (c *AtomicStatsCollector) Stats() *ActorStats {
	handled := c.messagesHandled.Load()
	totalLatency := time.Duration(c.totalLatencyNs.Load())

	var avgLatency time.Duration
	if handled > 0 {
		avgLatency = totalLatency / time.Duration(handled)
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	return &ActorStats{
		MessagesReceived: c.messagesReceived.Load(),
		MessagesHandled:  handled,
		Errors:           c.errors.Load(),
		Restarts:         c.restarts.Load(),
		TotalLatency:     totalLatency,
		AverageLatency:   avgLatency,
		MaxLatency:       time.Duration(c.maxLatencyNs.Load()),
		StartedAt:        c.startedAt,
		LastMessageAt:    c.lastMessageAt,
		LastErrorAt:      c.lastErrorAt,
		LastError:        c.lastError,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// 系统统计
// ═══════════════════════════════════════════════════════════════════════════

// SystemStats 系统统计快照
type SystemStats struct {
	TotalActors        int64 // 存活的 Actor 数，包含守护者
	TotalMessages      int64 // 发送到 Actor 的用户消息数
	ProcessedMsgs      int64 // 成功处理的用户消息数
	DeadLetters        int64 // 死信数
	DroppedDeadLetters int64 // 死信缓冲区满而丢弃的数量
	Restarts           int64 // 重启次数
	StartTime          time.Time
}

type systemCounters struct {
	actors    *atomic.Int64
	messages  *atomic.Int64
	processed *atomic.Int64
	restarts  *atomic.Int64
	startTime time.Time
}

func newSystemCounters() *systemCounters {
	return &systemCounters{
		actors:    atomic.NewInt64(0),
		messages:  atomic.NewInt64(0),
		processed: atomic.NewInt64(0),
		restarts:  atomic.NewInt64(0),
		startTime: time.Now(),
	}
}
