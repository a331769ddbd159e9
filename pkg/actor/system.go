package actor

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/atomic"
)

// System Actor 系统
// 持有守护者树、调度器和死信邮局，管理所有 Actor 的生命周期
type System struct {
	// 基本信息
	name             string
	address          Address
	logger           *slog.Logger
	terminateTimeout time.Duration

	// 运行时组件
	dispatchers     map[string]*Dispatcher
	deadLetters     *deadLetterOffice
	deployer        Deployer
	defaultStrategy SupervisorStrategy

	// 守护者
	root   *actorCell
	user   *actorCell
	system *actorCell

	// 生命周期控制
	ctx          context.Context
	cancel       context.CancelFunc
	isRunning    *atomic.Bool
	shutdownOnce sync.Once

	// 统计信息
	stats *systemCounters
}

// SystemConfig 系统配置
type SystemConfig struct {
	// Dispatchers 调度器列表，缺少默认调度器时自动补充
	Dispatchers []DispatcherConfig
	// DeadLetterBufferSize 死信缓冲大小
	DeadLetterBufferSize int
	// EnableDeadLetterLogging 是否记录死信
	EnableDeadLetterLogging bool
	// DeadLetterSink 额外的死信接收方
	DeadLetterSink DeadLetterSink
	// Deployer 按路径覆盖 Props 的部署配置
	Deployer Deployer
	// GuardianStrategy /user 守护者监督顶层 Actor 的策略
	GuardianStrategy SupervisorStrategy
	// TerminateTimeout Shutdown 等待 Actor 树终止的时间
	TerminateTimeout time.Duration
	// Logger 自定义日志器
	Logger *slog.Logger
}

// DefaultSystemConfig 默认系统配置
func DefaultSystemConfig() *SystemConfig {
	return &SystemConfig{
		Dispatchers:             []DispatcherConfig{DefaultDispatcherConfig()},
		DeadLetterBufferSize:    1000,
		EnableDeadLetterLogging: true,
		TerminateTimeout:        30 * time.Second,
		Logger:                  nil, // 使用默认 logger
	}
}

// guardian 守护者 Actor，只承担监督职责
type guardian struct {
	BaseActor
}

func newGuardian() Actor { return &guardian{} }

// NewSystem 创建新的 Actor 系统，配置非法时 panic
func NewSystem(name string) *System {
	s, err := NewSystemWithConfig(name, DefaultSystemConfig())
	if err != nil {
		panic(err)
	}
	return s
}

// NewSystemWithConfig 使用配置创建 Actor 系统
func NewSystemWithConfig(name string, config *SystemConfig) (*System, error) {
	if config == nil {
		config = DefaultSystemConfig()
	}
	if err := validateElement(name); err != nil {
		return nil, errors.Wrap(err, "invalid system name")
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	terminateTimeout := config.TerminateTimeout
	if terminateTimeout <= 0 {
		terminateTimeout = 30 * time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &System{
		name:             name,
		address:          LocalAddress(name),
		logger:           logger,
		terminateTimeout: terminateTimeout,
		dispatchers:      make(map[string]*Dispatcher),
		deployer:         config.Deployer,
		defaultStrategy:  DefaultSupervisorStrategy(),
		ctx:              ctx,
		cancel:           cancel,
		isRunning:        atomic.NewBool(false),
		stats:            newSystemCounters(),
	}

	rootPath := RootPath(s.address)
	s.deadLetters = newDeadLetterOffice(rootPath.Child("deadLetters"),
		config.DeadLetterBufferSize, config.EnableDeadLetterLogging, config.DeadLetterSink, logger)

	if err := s.startDispatchers(config.Dispatchers); err != nil {
		s.abort()
		return nil, err
	}
	if err := s.startGuardians(rootPath, config.GuardianStrategy); err != nil {
		s.abort()
		return nil, err
	}

	s.isRunning.Store(true)
	go func() {
		<-s.root.done
		s.isRunning.Store(false)
		s.logger.Info("actor tree terminated", "name", s.name)
	}()

	s.logger.Info("actor system started", "name", name)
	return s, nil
}

func (s *System) startDispatchers(configs []DispatcherConfig) error {
	hasDefault := false
	for _, dc := range configs {
		dc = dc.withDefaults()
		if _, exists := s.dispatchers[dc.ID]; exists {
			return errors.Errorf("duplicate dispatcher %q", dc.ID)
		}
		s.dispatchers[dc.ID] = newDispatcher(dc, s.deadLetters, s.logger)
		if dc.ID == DefaultDispatcherID {
			hasDefault = true
		}
	}
	if !hasDefault {
		s.dispatchers[DefaultDispatcherID] = newDispatcher(DefaultDispatcherConfig(), s.deadLetters, s.logger)
	}
	return nil
}

func (s *System) startGuardians(rootPath Path, guardianStrategy SupervisorStrategy) error {
	root, err := s.newCell(rootPath, PropsFromProducer(newGuardian).WithSupervisor(rootStrategy()), NoSender)
	if err != nil {
		return err
	}
	root.init(false)
	if err := root.start(); err != nil {
		return err
	}
	s.stats.actors.Inc()
	s.root = root

	if guardianStrategy == nil {
		guardianStrategy = DefaultSupervisorStrategy()
	}
	userRef, err := root.newChild(PropsFromProducer(newGuardian).WithSupervisor(guardianStrategy), "user", true)
	if err != nil {
		return err
	}
	s.user = userRef.cell()

	systemRef, err := root.newChild(PropsFromProducer(newGuardian), "system", true)
	if err != nil {
		return err
	}
	s.system = systemRef.cell()
	return nil
}

// abort 启动失败时释放已创建的组件
func (s *System) abort() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if s.root != nil {
		s.root.self.SendSystemMessage(&Terminate{})
	}
	for _, d := range s.dispatchers {
		d.shutdown(ctx)
	}
	s.deadLetters.stop()
	s.cancel()
}

// newCell 合并部署配置并创建 Actor 单元
func (s *System) newCell(path Path, props *Props, parent Ref) (*actorCell, error) {
	if s.deployer != nil {
		if d, ok := s.deployer.Lookup(path); ok {
			props = props.withDeploy(d)
		}
	}
	id := props.Dispatcher
	if id == "" {
		id = DefaultDispatcherID
	}
	d, ok := s.dispatchers[id]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownDispatcher, "%q for %s", id, path)
	}
	return newActorCell(s, path, props, parent, d), nil
}

// ============== 访问器 ==============

// Name 返回系统名称
func (s *System) Name() string { return s.name }

// Address 返回系统地址
func (s *System) Address() Address { return s.address }

// IsRunning 检查系统是否运行中
func (s *System) IsRunning() bool { return s.isRunning.Load() }

// DeadLetters 返回死信引用
func (s *System) DeadLetters() Ref { return s.deadLetters.ref }

// Dispatcher 按 ID 查找调度器
func (s *System) Dispatcher(id string) (*Dispatcher, bool) {
	d, ok := s.dispatchers[id]
	return d, ok
}

// WhenTerminated 根守护者终止后关闭
func (s *System) WhenTerminated() <-chan struct{} { return s.root.done }

// ============== 创建与消息 ==============

// ActorOf 在 /user 下创建顶层 Actor，name 为空时自动生成
func (s *System) ActorOf(props *Props, name string) (Ref, error) {
	if !s.isRunning.Load() {
		return NoSender, ErrSystemNotRunning
	}
	return s.user.newChild(props, name, false)
}

// Send 发送消息（无发送者）
func (s *System) Send(target Ref, msg Message) {
	target.Tell(msg, NoSender)
}

// SendWithSender 发送消息（带发送者）
func (s *System) SendWithSender(target Ref, msg Message, sender Ref) {
	target.Tell(msg, sender)
}

// SystemSend 发送系统消息
func (s *System) SystemSend(target Ref, msg SystemMessage) {
	target.SendSystemMessage(msg)
}

// Watch 让 watcher 监控 subject
func (s *System) Watch(watcher, subject Ref) {
	watcher.SendSystemMessage(&Watch{Watchee: subject, Watcher: watcher})
}

// Unwatch 取消 watcher 对 subject 的监控
func (s *System) Unwatch(watcher, subject Ref) {
	watcher.SendSystemMessage(&Unwatch{Watchee: subject, Watcher: watcher})
}

// Stop 异步停止 Actor 及其子树
func (s *System) Stop(ref Ref) {
	ref.SendSystemMessage(&Terminate{})
}

// StopGracefully 停止 Actor 并等待其终止
func (s *System) StopGracefully(ref Ref, timeout time.Duration) error {
	c := ref.cell()
	if c == nil {
		return nil
	}
	s.Stop(ref)

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-c.done:
		return nil
	case <-timer.C:
		return errors.Errorf("timeout waiting for actor %s to stop", ref)
	}
}

// ============== 查找 ==============

// Resolve 按路径查找存活的 Actor
// 支持 "actuator://sys/user/a"、"/user/a" 以及 "#uid" 后缀，找不到时返回死信引用
func (s *System) Resolve(path string) Ref {
	base, uidPart, hasUID := strings.Cut(path, "#")

	var (
		p   Path
		err error
	)
	if strings.HasPrefix(base, "/") {
		p, err = parseElements(RootPath(s.address), base)
	} else {
		p, err = ParsePath(base)
	}
	if err != nil || p.Address() != s.address {
		return s.deadLetters.ref
	}

	var uid uuid.UUID
	if hasUID {
		if uid, err = uuid.Parse(uidPart); err != nil {
			return s.deadLetters.ref
		}
	}

	ref, ok := s.lookup(p)
	if !ok || (hasUID && ref.UID() != uid) {
		return s.deadLetters.ref
	}
	return ref
}

func (s *System) lookup(p Path) (Ref, bool) {
	if p == s.deadLetters.ref.Path() {
		return s.deadLetters.ref, true
	}
	cell := s.root
	for _, name := range p.Elements() {
		e, ok := cell.children.get(name)
		if !ok {
			return NoSender, false
		}
		cell = e.cell
	}
	if cell.isTerminated() {
		return NoSender, false
	}
	return cell.self, true
}

// ListActors 列出 /user 下所有 Actor
func (s *System) ListActors() []Ref {
	var refs []Ref
	var walk func(c *actorCell)
	walk = func(c *actorCell) {
		for _, ref := range c.children.refs() {
			e, ok := c.children.byRef(ref)
			if !ok || e.cell.isTerminated() {
				continue
			}
			refs = append(refs, ref)
			walk(e.cell)
		}
	}
	walk(s.user)
	return refs
}

// Count 返回 /user 下的 Actor 数量
func (s *System) Count() int {
	return len(s.ListActors())
}

// ============== 死信与统计 ==============

// SubscribeDeadLetters 订阅死信，返回取消订阅函数
func (s *System) SubscribeDeadLetters(sink DeadLetterSink) func() {
	return s.deadLetters.subscribe(sink)
}

// Stats 获取统计信息
func (s *System) Stats() *SystemStats {
	return &SystemStats{
		TotalActors:        s.stats.actors.Load(),
		TotalMessages:      s.stats.messages.Load(),
		ProcessedMsgs:      s.stats.processed.Load(),
		DeadLetters:        s.deadLetters.published.Load(),
		DroppedDeadLetters: s.deadLetters.dropped.Load(),
		Restarts:           s.stats.restarts.Load(),
		StartTime:          s.stats.startTime,
	}
}

// ActorStats 获取单个 Actor 的统计信息
func (s *System) ActorStats(ref Ref) (*ActorStats, bool) {
	c := ref.cell()
	if c == nil {
		return nil, false
	}
	return c.snapshot(), true
}

// ============== 关闭 ==============

// Shutdown 关闭整个 Actor 系统
func (s *System) Shutdown() {
	s.ShutdownWithTimeout(s.terminateTimeout)
}

// ShutdownWithTimeout 带超时的关闭
// 先终止守护者树，再关闭调度器，最后停止死信邮局
func (s *System) ShutdownWithTimeout(timeout time.Duration) {
	s.shutdownOnce.Do(func() {
		s.logger.Info("actor system shutting down", "name", s.name)
		s.isRunning.Store(false)

		s.root.self.SendSystemMessage(&Terminate{})
		timer := time.NewTimer(timeout)
		select {
		case <-s.root.done:
		case <-timer.C:
			s.logger.Warn("actor tree did not terminate in time", "name", s.name, "timeout", timeout)
		}
		timer.Stop()

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		for _, d := range s.dispatchers {
			d.shutdown(ctx)
		}

		s.deadLetters.stop()
		s.cancel()
		s.logger.Info("actor system shutdown complete", "name", s.name)
	})
}

// SystemActorOf 在 /system 下创建运行时内部 Actor
func (s *System) SystemActorOf(props *Props, name string) (Ref, error) {
	if !s.isRunning.Load() {
		return NoSender, ErrSystemNotRunning
	}
	return s.system.newChild(props, name, false)
}
