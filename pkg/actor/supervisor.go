package actor

import (
	"sync"
	"time"

	"github.com/pkg/errors"
)

// Directive 监督指令
type Directive int

const (
	// DirectiveResume 恢复 Actor，保留状态继续处理消息
	DirectiveResume Directive = iota
	// DirectiveRestart 用新实例替换 Actor
	DirectiveRestart
	// DirectiveStop 停止 Actor
	DirectiveStop
	// DirectiveEscalate 上报给父 Actor 处理
	DirectiveEscalate
)

// String 返回指令名称
func (d Directive) String() string {
	switch d {
	case DirectiveResume:
		return "Resume"
	case DirectiveRestart:
		return "Restart"
	case DirectiveStop:
		return "Stop"
	case DirectiveEscalate:
		return "Escalate"
	default:
		return "Unknown"
	}
}

// Failure 子 Actor 的一次失败
type Failure struct {
	Child Ref
	Cause error
	// Stats 该子 Actor 的重启计数，由父 Actor 持有
	Stats *RestartStats
}

// Decision 监督决定
type Decision struct {
	Directive Directive
	// Delay 延迟执行重启
	Delay time.Duration
	// AllChildren 指令同时作用于所有兄弟 Actor
	AllChildren bool
}

// SupervisorStrategy 监督策略接口
// HandleFailure 在父 Actor 的处理 goroutine 上调用
type SupervisorStrategy interface {
	HandleFailure(ctx *Context, f *Failure) Decision
}

// Decider 决策函数类型
type Decider func(cause error) Directive

// ============== 内置监督策略 ==============

// OneForOneStrategy 一对一策略
// 只处理失败的 Actor，不影响其他子 Actor
type OneForOneStrategy struct {
	MaxRestarts    int           // 最大重启次数，负数表示不限
	WithinDuration time.Duration // 时间窗口，0 表示不限
	Decider        Decider       // 决策函数
}

// NewOneForOneStrategy 创建一对一策略
func NewOneForOneStrategy(maxRestarts int, within time.Duration, decider Decider) *OneForOneStrategy {
	if decider == nil {
		decider = DefaultDecider
	}
	return &OneForOneStrategy{
		MaxRestarts:    maxRestarts,
		WithinDuration: within,
		Decider:        decider,
	}
}

// HandleFailure 实现 SupervisorStrategy
func (s *OneForOneStrategy) HandleFailure(_ *Context, f *Failure) Decision {
	directive := s.Decider(f.Cause)
	if directive == DirectiveRestart && !f.Stats.RequestRestartPermission(s.MaxRestarts, s.WithinDuration) {
		directive = DirectiveStop
	}
	return Decision{Directive: directive}
}

// AllForOneStrategy 全部处理策略
// 一个子 Actor 失败时，重启或停止所有子 Actor
type AllForOneStrategy struct {
	MaxRestarts    int
	WithinDuration time.Duration
	Decider        Decider
}

// NewAllForOneStrategy 创建全部处理策略
func NewAllForOneStrategy(maxRestarts int, within time.Duration, decider Decider) *AllForOneStrategy {
	if decider == nil {
		decider = DefaultDecider
	}
	return &AllForOneStrategy{
		MaxRestarts:    maxRestarts,
		WithinDuration: within,
		Decider:        decider,
	}
}

// HandleFailure 实现 SupervisorStrategy
func (s *AllForOneStrategy) HandleFailure(_ *Context, f *Failure) Decision {
	directive := s.Decider(f.Cause)
	if directive == DirectiveRestart && !f.Stats.RequestRestartPermission(s.MaxRestarts, s.WithinDuration) {
		directive = DirectiveStop
	}
	return Decision{
		Directive:   directive,
		AllChildren: directive == DirectiveRestart || directive == DirectiveStop,
	}
}

// ExponentialBackoffStrategy 指数退避策略
// 每个子 Actor 的重启间隔逐次翻倍，直到 MaxDelay
type ExponentialBackoffStrategy struct {
	InitialDelay time.Duration
	MaxDelay     time.Duration
	MaxRestarts  int
	Decider      Decider
}

// NewExponentialBackoffStrategy 创建指数退避策略
func NewExponentialBackoffStrategy(initialDelay, maxDelay time.Duration, maxRestarts int, decider Decider) *ExponentialBackoffStrategy {
	if decider == nil {
		decider = DefaultDecider
	}
	return &ExponentialBackoffStrategy{
		InitialDelay: initialDelay,
		MaxDelay:     maxDelay,
		MaxRestarts:  maxRestarts,
		Decider:      decider,
	}
}

// HandleFailure 实现 SupervisorStrategy
func (s *ExponentialBackoffStrategy) HandleFailure(_ *Context, f *Failure) Decision {
	directive := s.Decider(f.Cause)
	if directive != DirectiveRestart {
		return Decision{Directive: directive}
	}
	if !f.Stats.RequestRestartPermission(s.MaxRestarts, 0) {
		return Decision{Directive: DirectiveStop}
	}

	delay := f.Stats.backoff
	if delay <= 0 {
		delay = s.InitialDelay
	}
	next := delay * 2
	if s.MaxDelay > 0 && next > s.MaxDelay {
		next = s.MaxDelay
	}
	f.Stats.backoff = next

	return Decision{Directive: DirectiveRestart, Delay: delay}
}

// ============== 默认策略和决策器 ==============

// DefaultDecider 默认决策器
// 初始化失败和 Kill 停止 Actor，其余错误重启
func DefaultDecider(cause error) Directive {
	var initErr *ActorInitializationError
	if errors.As(cause, &initErr) {
		return DirectiveStop
	}
	var killed *ActorKilledError
	if errors.As(cause, &killed) {
		return DirectiveStop
	}
	return DirectiveRestart
}

// StoppingDecider 对所有错误采取停止
func StoppingDecider(_ error) Directive {
	return DirectiveStop
}

// EscalatingDecider 对所有错误采取上报
func EscalatingDecider(_ error) Directive {
	return DirectiveEscalate
}

// ResumingDecider 对所有错误采取恢复（忽略错误继续运行）
func ResumingDecider(_ error) Directive {
	return DirectiveResume
}

// DefaultSupervisorStrategy 默认监督策略
// 每个子 Actor 1 分钟内允许 3 次重启
func DefaultSupervisorStrategy() SupervisorStrategy {
	return NewOneForOneStrategy(3, time.Minute, DefaultDecider)
}

// StrictSupervisorStrategy 严格监督策略
// 任何失败都停止 Actor
func StrictSupervisorStrategy() SupervisorStrategy {
	return NewOneForOneStrategy(0, time.Second, StoppingDecider)
}

// LenientSupervisorStrategy 宽松监督策略
// 允许更多重启
func LenientSupervisorStrategy() SupervisorStrategy {
	return NewOneForOneStrategy(10, 5*time.Minute, DefaultDecider)
}

// rootStrategy 根守护者使用，任何失败都上报，最终停止整棵树
func rootStrategy() SupervisorStrategy {
	return NewOneForOneStrategy(-1, 0, EscalatingDecider)
}

// ============== 组合策略 ==============

// CompositeStrategy 组合策略
// 根据错误链中的哨兵错误选择不同的策略
type CompositeStrategy struct {
	mu         sync.RWMutex
	strategies []compositeEntry
	fallback   SupervisorStrategy
}

type compositeEntry struct {
	target   error
	strategy SupervisorStrategy
}

// NewCompositeStrategy 创建组合策略
func NewCompositeStrategy(fallback SupervisorStrategy) *CompositeStrategy {
	if fallback == nil {
		fallback = DefaultSupervisorStrategy()
	}
	return &CompositeStrategy{fallback: fallback}
}

// RegisterStrategy 为 errors.Is 匹配 target 的错误注册策略，按注册顺序匹配
func (s *CompositeStrategy) RegisterStrategy(target error, strategy SupervisorStrategy) {
	s.mu.Lock()
	s.strategies = append(s.strategies, compositeEntry{target: target, strategy: strategy})
	s.mu.Unlock()
}

// HandleFailure 实现 SupervisorStrategy
func (s *CompositeStrategy) HandleFailure(ctx *Context, f *Failure) Decision {
	s.mu.RLock()
	entries := s.strategies
	s.mu.RUnlock()

	for _, e := range entries {
		if errors.Is(f.Cause, e.target) {
			return e.strategy.HandleFailure(ctx, f)
		}
	}
	return s.fallback.HandleFailure(ctx, f)
}

// ============== 监督树辅助 ==============

// SupervisorConfig 监督配置
type SupervisorConfig struct {
	Strategy SupervisorStrategy
	Children []ChildSpec
}

// ChildSpec 子 Actor 规格
type ChildSpec struct {
	Name  string
	Props *Props
}

// SupervisorActor 监督者 Actor
// 启动时按规格创建子 Actor，并以 config.Strategy 监督它们
type SupervisorActor struct {
	config   *SupervisorConfig
	children map[string]Ref
}

// NewSupervisorActor 创建监督者 Actor
func NewSupervisorActor(config *SupervisorConfig) *SupervisorActor {
	return &SupervisorActor{
		config:   config,
		children: make(map[string]Ref),
	}
}

// SupervisorProps 返回监督者 Actor 的属性
func SupervisorProps(config *SupervisorConfig) *Props {
	return PropsFromProducer(func() Actor {
		return NewSupervisorActor(config)
	}).WithSupervisor(config.Strategy)
}

// Receive 处理消息
func (s *SupervisorActor) Receive(ctx *Context, msg Message) {
	switch m := msg.(type) {
	case *Started, *Restarted:
		for _, spec := range s.config.Children {
			if _, ok := ctx.Child(spec.Name); ok {
				continue
			}
			ref, err := ctx.ActorOf(spec.Props, spec.Name)
			if err != nil {
				ctx.Logger().Error("failed to start child", "actor", ctx.Self().String(), "child", spec.Name, "error", err)
				continue
			}
			ctx.Watch(ref)
			s.children[spec.Name] = ref
		}

	case *Terminated:
		for name, ref := range s.children {
			if ref == m.Who {
				delete(s.children, name)
			}
		}
	}
}

// GetChild 获取子 Actor
func (s *SupervisorActor) GetChild(name string) (Ref, bool) {
	ref, ok := s.children[name]
	return ref, ok
}
