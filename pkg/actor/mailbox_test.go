package actor

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingSink 记录收到的系统消息
type recordingSink struct {
	mu     sync.Mutex
	system []SystemMessage
}

func (s *recordingSink) sendMessage(Envelope) {}

func (s *recordingSink) sendSystemMessage(msg SystemMessage) {
	s.mu.Lock()
	s.system = append(s.system, msg)
	s.mu.Unlock()
}

func (s *recordingSink) received() []SystemMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]SystemMessage(nil), s.system...)
}

func newTestDeadLetters(t *testing.T, sink DeadLetterSink) *deadLetterOffice {
	t.Helper()
	d := newDeadLetterOffice(RootPath(LocalAddress("test")).Child("deadLetters"), 64, false, sink, quietLogger())
	t.Cleanup(d.stop)
	return d
}

func TestSystemMessageListOrder(t *testing.T) {
	var list latestFirst
	assert.True(t, list.isEmpty())

	sent := []SystemMessage{&Create{}, &Suspend{}, &Resume{}, &Terminate{}}
	for _, msg := range sent {
		list = list.prepend(&sysEntry{msg: msg})
	}
	assert.Same(t, sent[3], list.head.msg)

	ordered := list.reverse()
	var got []SystemMessage
	for !ordered.isEmpty() {
		var msg SystemMessage
		msg, ordered = ordered.pop()
		got = append(got, msg)
	}
	assert.Equal(t, sent, got)
}

func TestUnboundedQueue(t *testing.T) {
	q := newUnboundedQueue()
	_, ok := q.Dequeue()
	assert.False(t, ok)
	assert.False(t, q.HasMessages())

	const producers, perProducer = 8, 500
	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				_ = q.Enqueue(NoSender, Envelope{Message: &CountMessage{Value: p*perProducer + i}})
			}
		}(p)
	}
	wg.Wait()
	assert.Equal(t, producers*perProducer, q.NumberOfMessages())

	// 同一生产者的消息保持顺序
	last := make(map[int]int)
	for p := 0; p < producers; p++ {
		last[p] = -1
	}
	for i := 0; i < producers*perProducer; i++ {
		env, ok := q.Dequeue()
		require.True(t, ok)
		v := env.Message.(*CountMessage).Value
		p, seq := v/perProducer, v%perProducer
		require.Greater(t, seq, last[p])
		last[p] = seq
	}
	_, ok = q.Dequeue()
	assert.False(t, ok)
	assert.Equal(t, 0, q.NumberOfMessages())
}

func TestBoundedQueue(t *testing.T) {
	q := BoundedMailbox(2).newQueue()
	require.NoError(t, q.Enqueue(NoSender, Envelope{Message: &PingMessage{}}))
	require.NoError(t, q.Enqueue(NoSender, Envelope{Message: &PongMessage{}}))
	assert.ErrorIs(t, q.Enqueue(NoSender, Envelope{Message: &PingMessage{}}), ErrMailboxFull)
	assert.Equal(t, 2, q.NumberOfMessages())

	env, ok := q.Dequeue()
	require.True(t, ok)
	assert.IsType(t, &PingMessage{}, env.Message)

	assert.IsType(t, &unboundedQueue{}, BoundedMailbox(0).newQueue())
	assert.Equal(t, "bounded", MailboxBounded.String())
	assert.Equal(t, "unbounded", MailboxUnbounded.String())
}

func TestMailboxStatus(t *testing.T) {
	m := newMailbox(newUnboundedQueue(), nil, newTestDeadLetters(t, nil))
	assert.True(t, m.shouldProcessMessage())

	assert.True(t, m.suspend())
	assert.False(t, m.suspend())
	assert.Equal(t, uint32(2), m.suspendCount())
	assert.False(t, m.shouldProcessMessage())

	assert.False(t, m.resume())
	assert.True(t, m.resume())
	assert.Equal(t, uint32(0), m.suspendCount())

	// 计数不会低于零
	assert.True(t, m.resume())
	assert.Equal(t, uint32(0), m.suspendCount())

	assert.True(t, m.setAsScheduled())
	assert.False(t, m.setAsScheduled())
	assert.True(t, m.isScheduled())
	assert.True(t, m.shouldProcessMessage())

	// 关闭保留调度标志，之后不能再挂起
	assert.True(t, m.becomeClosed())
	assert.False(t, m.becomeClosed())
	assert.True(t, m.isScheduled())
	assert.False(t, m.suspend())
	assert.False(t, m.shouldProcessMessage())

	m.setAsIdle()
	assert.False(t, m.setAsScheduled())
	assert.True(t, m.claimClosed())
	assert.False(t, m.claimClosed())
}

func TestMailboxClosedRoutesToDeadLetters(t *testing.T) {
	recorder := &deadLetterRecorder{}
	dead := newTestDeadLetters(t, recorder)
	m := newMailbox(newUnboundedQueue(), nil, dead)

	watcher := &recordingSink{}
	watcherRef := newRef(RootPath(LocalAddress("test")).Child("watcher"), watcher)
	owner := newRef(RootPath(LocalAddress("test")).Child("owner"), nil)
	m.setActor(owner, nil)

	m.enqueue(owner, Envelope{Message: &PingMessage{}})
	m.systemEnqueue(owner, &Suspend{})
	require.True(t, m.hasSystemMessages())

	m.becomeClosed()
	m.tryCleanUp()
	assert.False(t, m.hasMessages())
	assert.False(t, m.hasSystemMessages())

	// 关闭后的用户消息和系统消息都不会再入队
	m.enqueue(owner, Envelope{Message: &PongMessage{}})
	m.systemEnqueue(owner, &Watch{Watchee: owner, Watcher: watcherRef})
	assert.False(t, m.hasSystemMessages())

	assert.Eventually(t, func() bool {
		return recorder.count("ping") == 1 && recorder.count("pong") == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, int64(2), dead.published.Load())

	received := watcher.received()
	require.Len(t, received, 1)
	dwn, ok := received[0].(*DeathWatchNotification)
	require.True(t, ok)
	assert.Equal(t, owner, dwn.Actor)
	assert.False(t, dwn.ExistenceConfirmed)
}
