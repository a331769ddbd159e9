package actor

import (
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// RestartStats 单个子 Actor 的重启计数
type RestartStats struct {
	retries int
	// restarts 时间窗口内每次重启的时间，按先后排列
	restarts []time.Time
	// backoff 供退避策略记录下次延迟
	backoff time.Duration
}

// Retries 当前窗口内的重启次数
func (s *RestartStats) Retries() int { return s.retries }

// RequestRestartPermission 判断是否还允许重启
// maxRetries < 0 表示不限次数，window <= 0 表示不限时间窗口
func (s *RestartStats) RequestRestartPermission(maxRetries int, window time.Duration) bool {
	switch {
	case maxRetries == 0:
		return false
	case window <= 0:
		if maxRetries < 0 {
			return true
		}
		s.retries++
		return s.retries <= maxRetries
	case maxRetries < 0:
		return s.retriesInWindowOkay(1, window)
	default:
		return s.retriesInWindowOkay(maxRetries, window)
	}
}

// retriesInWindowOkay 滑动窗口：任意长度为 window 的区间内最多 retries 次重启
func (s *RestartStats) retriesInWindowOkay(retries int, window time.Duration) bool {
	now := time.Now()
	cutoff := now.Add(-window)
	kept := s.restarts[:0]
	for _, at := range s.restarts {
		if at.After(cutoff) {
			kept = append(kept, at)
		}
	}
	s.restarts = kept
	if len(s.restarts) >= retries {
		s.retries = len(s.restarts)
		return false
	}
	s.restarts = append(s.restarts, now)
	s.retries = len(s.restarts)
	return true
}

// suspendReason 子 Actor 容器进入终止状态的原因
type suspendReason int

const (
	reasonNone suspendReason = iota
	reasonUserRequest
	reasonRecreation
	reasonTermination
)

type childEntry struct {
	ref      Ref
	cell     *actorCell
	stats    RestartStats
	reserved bool
}

// childrenContainer 子 Actor 表
// 结构修改发生在父 Actor 的处理 goroutine 上，System.ActorOf 和 Resolve 会跨 goroutine 访问，因此加锁
type childrenContainer struct {
	mu       sync.RWMutex
	byName   map[string]*childEntry
	toDie    map[Ref]struct{}
	reason   suspendReason
	cause    error
	finished bool
}

func newChildrenContainer() *childrenContainer {
	return &childrenContainer{
		byName: make(map[string]*childEntry),
		toDie:  make(map[Ref]struct{}),
	}
}

// reserve 预留名称
func (c *childrenContainer) reserve(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.finished || c.reason == reasonTermination {
		return errors.Wrapf(ErrActorTerminating, "cannot reserve actor name %q", name)
	}
	if _, ok := c.byName[name]; ok {
		return errors.Wrapf(ErrActorNameTaken, "%q", name)
	}
	c.byName[name] = &childEntry{reserved: true}
	return nil
}

// release 创建失败时释放名称
func (c *childrenContainer) release(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.byName, name)
}

// initChild 用已创建的子 Actor 填充预留项并在持锁期间启动它
// 父 Actor 已开始终止时释放名称并返回 ErrActorTerminating，子 Actor 不会启动
func (c *childrenContainer) initChild(name string, cell *actorCell, parentTerminating func() bool, start func() error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.finished || c.reason == reasonTermination || parentTerminating() {
		delete(c.byName, name)
		return errors.Wrapf(ErrActorTerminating, "cannot create actor %q", name)
	}
	if err := start(); err != nil {
		delete(c.byName, name)
		return err
	}
	c.byName[name] = &childEntry{ref: cell.self, cell: cell}
	return nil
}

// get 按名称查找已创建的子 Actor
func (c *childrenContainer) get(name string) (*childEntry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.byName[name]
	if !ok || e.reserved {
		return nil, false
	}
	return e, true
}

// byRef 按引用查找，化身不同时视为不存在
func (c *childrenContainer) byRef(ref Ref) (*childEntry, bool) {
	e, ok := c.get(ref.Path().Name())
	if !ok || e.ref != ref {
		return nil, false
	}
	return e, true
}

// refs 按名称排序返回所有子 Actor
func (c *childrenContainer) refs() []Ref {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.byName))
	for name, e := range c.byName {
		if !e.reserved {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	refs := make([]Ref, 0, len(names))
	for _, name := range names {
		refs = append(refs, c.byName[name].ref)
	}
	return refs
}

func (c *childrenContainer) isEmpty() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, e := range c.byName {
		if !e.reserved {
			return false
		}
	}
	return true
}

// shallDie 标记子 Actor 即将被停止
func (c *childrenContainer) shallDie(ref Ref) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.toDie[ref] = struct{}{}
	if c.reason == reasonNone {
		c.reason = reasonUserRequest
	}
}

func (c *childrenContainer) isDying(ref Ref) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.toDie[ref]
	return ok
}

// startTermination 以指定原因等待一组子 Actor 终止
func (c *childrenContainer) startTermination(refs []Ref, reason suspendReason, cause error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, r := range refs {
		c.toDie[r] = struct{}{}
	}
	// 终止优先于重建
	if c.reason != reasonTermination {
		c.reason = reason
		c.cause = cause
	}
}

func (c *childrenContainer) isTerminating() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.reason == reasonTermination
}

// awaitingChildren 正在等待子 Actor 终止以完成重建或终止
func (c *childrenContainer) awaitingChildren() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.reason == reasonRecreation || c.reason == reasonTermination
}

// remove 移除已终止的子 Actor
// 当等待列表清空时返回此前的原因，调用方据此完成重建或终止
func (c *childrenContainer) remove(ref Ref) (suspendReason, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	name := ref.Path().Name()
	if e, ok := c.byName[name]; ok && !e.reserved && e.ref == ref {
		delete(c.byName, name)
	}
	if _, ok := c.toDie[ref]; !ok {
		return reasonNone, nil
	}
	delete(c.toDie, ref)
	if len(c.toDie) > 0 {
		return reasonNone, nil
	}
	reason, cause := c.reason, c.cause
	if reason != reasonTermination {
		c.reason = reasonNone
		c.cause = nil
	}
	return reason, cause
}

// markFinished 终止完成后拒绝再创建子 Actor
func (c *childrenContainer) markFinished() {
	c.mu.Lock()
	c.finished = true
	c.mu.Unlock()
}
