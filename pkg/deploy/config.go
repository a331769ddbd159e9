package deploy

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"path"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/lwmacct/251215-go-pkg-actuator/pkg/actor"
)

// Config 部署配置文件
//
//	system:
//	  name: shop
//	  terminate-timeout: 10s
//	log:
//	  level: debug
//	  format: json
//	dispatchers:
//	  io:
//	    workers: 16
//	    throughput: 1
//	deployment:
//	  /user/db/*:
//	    dispatcher: io
//	    mailbox: {type: bounded, capacity: 100}
//	    supervisor: {strategy: one-for-one, max-restarts: 5, within: 1m}
type Config struct {
	System      SystemSection                `yaml:"system"`
	Log         LogConfig                    `yaml:"log"`
	Dispatchers map[string]DispatcherSection `yaml:"dispatchers"`
	Deployment  map[string]DeploymentSection `yaml:"deployment"`
}

// SystemSection Actor 系统参数
type SystemSection struct {
	Name             string        `yaml:"name"`
	TerminateTimeout time.Duration `yaml:"terminate-timeout"`
	DeadLetterBuffer int           `yaml:"dead-letter-buffer"`
	LogDeadLetters   bool          `yaml:"log-dead-letters"`
}

// DispatcherSection 调度器参数，零值使用默认值
type DispatcherSection struct {
	Workers            int           `yaml:"workers"`
	Throughput         int           `yaml:"throughput"`
	ThroughputDeadline time.Duration `yaml:"throughput-deadline"`
	ShutdownTimeout    time.Duration `yaml:"shutdown-timeout"`
}

// DeploymentSection 匹配路径的 Actor 使用的部署
type DeploymentSection struct {
	Dispatcher string             `yaml:"dispatcher"`
	Mailbox    *MailboxSection    `yaml:"mailbox"`
	Supervisor *SupervisorSection `yaml:"supervisor"`
}

// MailboxSection 邮箱类型
type MailboxSection struct {
	Type     string `yaml:"type"` // unbounded | bounded
	Capacity int    `yaml:"capacity"`
}

// SupervisorSection 监督策略
type SupervisorSection struct {
	Strategy    string        `yaml:"strategy"` // one-for-one | all-for-one | backoff
	MaxRestarts *int          `yaml:"max-restarts"`
	Within      time.Duration `yaml:"within"`
	Decider     string        `yaml:"decider"` // restart | resume | stop | escalate
	MinBackoff  time.Duration `yaml:"min-backoff"`
	MaxBackoff  time.Duration `yaml:"max-backoff"`
}

// Default 默认配置
func Default() *Config {
	return &Config{
		System: SystemSection{
			Name:             "actuator",
			TerminateTimeout: 30 * time.Second,
			DeadLetterBuffer: 1000,
			LogDeadLetters:   true,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load 从文件加载配置，未出现的字段保留默认值
func Load(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrConfigFileNotFound, filename)
		}
		return nil, fmt.Errorf("failed to read config file %s: %w", filename, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	return cfg, nil
}

// Parse 解析 YAML 并校验
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigParse, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ============== 校验 ==============

// Validate 校验配置
func (c *Config) Validate() error {
	if err := actor.ValidateName(c.System.Name); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSystemName, err)
	}
	if err := c.Log.Validate(); err != nil {
		return err
	}
	for id, d := range c.Dispatchers {
		if err := d.validate(id); err != nil {
			return err
		}
	}
	for _, pattern := range slices.Sorted(maps.Keys(c.Deployment)) {
		if err := c.validateDeployment(pattern, c.Deployment[pattern]); err != nil {
			return err
		}
	}
	return nil
}

func (d DispatcherSection) validate(id string) error {
	switch {
	case id == "":
		return fmt.Errorf("%w: empty id", ErrInvalidDispatcher)
	case d.Workers < 0:
		return fmt.Errorf("%w %q: workers must not be negative", ErrInvalidDispatcher, id)
	case d.Throughput < 0:
		return fmt.Errorf("%w %q: throughput must not be negative", ErrInvalidDispatcher, id)
	case d.ThroughputDeadline < 0 || d.ShutdownTimeout < 0:
		return fmt.Errorf("%w %q: durations must not be negative", ErrInvalidDispatcher, id)
	}
	return nil
}

func (c *Config) validateDeployment(pattern string, d DeploymentSection) error {
	if !strings.HasPrefix(pattern, "/") {
		return fmt.Errorf("%w %q: must be an absolute path", ErrInvalidPattern, pattern)
	}
	if _, err := path.Match(pattern, ""); err != nil {
		return fmt.Errorf("%w %q: %v", ErrInvalidPattern, pattern, err)
	}
	if d.Dispatcher != "" && d.Dispatcher != actor.DefaultDispatcherID {
		if _, ok := c.Dispatchers[d.Dispatcher]; !ok {
			return fmt.Errorf("%w %q in deployment %q", ErrUnknownDispatcher, d.Dispatcher, pattern)
		}
	}
	if _, err := d.Mailbox.mailboxType(); err != nil {
		return fmt.Errorf("deployment %q: %w", pattern, err)
	}
	if _, err := d.Supervisor.strategy(); err != nil {
		return fmt.Errorf("deployment %q: %w", pattern, err)
	}
	return nil
}

// ============== 转换 ==============

// SystemConfig 生成 Actor 系统配置
// Deployer 为按当前配置构建的静态部署表，需要热更新时由调用方替换为共享的 Table
func (c *Config) SystemConfig(logger *slog.Logger) (*actor.SystemConfig, error) {
	table, err := NewTable(c)
	if err != nil {
		return nil, err
	}

	sc := actor.DefaultSystemConfig()
	sc.Logger = logger
	sc.Deployer = table
	sc.EnableDeadLetterLogging = c.System.LogDeadLetters
	if c.System.DeadLetterBuffer > 0 {
		sc.DeadLetterBufferSize = c.System.DeadLetterBuffer
	}
	if c.System.TerminateTimeout > 0 {
		sc.TerminateTimeout = c.System.TerminateTimeout
	}
	sc.Dispatchers = c.DispatcherConfigs()
	return sc, nil
}

// DispatcherConfigs 按 ID 排序的调度器配置
func (c *Config) DispatcherConfigs() []actor.DispatcherConfig {
	ids := slices.Sorted(maps.Keys(c.Dispatchers))
	configs := make([]actor.DispatcherConfig, 0, len(ids))
	for _, id := range ids {
		d := c.Dispatchers[id]
		configs = append(configs, actor.DispatcherConfig{
			ID:                 id,
			Workers:            d.Workers,
			Throughput:         d.Throughput,
			ThroughputDeadline: d.ThroughputDeadline,
			ShutdownTimeout:    d.ShutdownTimeout,
		})
	}
	return configs
}

func (d DeploymentSection) deploy() (actor.Deploy, error) {
	mailbox, err := d.Mailbox.mailboxType()
	if err != nil {
		return actor.Deploy{}, err
	}
	strategy, err := d.Supervisor.strategy()
	if err != nil {
		return actor.Deploy{}, err
	}
	return actor.Deploy{
		Dispatcher: d.Dispatcher,
		Mailbox:    mailbox,
		Supervisor: strategy,
	}, nil
}

func (m *MailboxSection) mailboxType() (*actor.MailboxType, error) {
	if m == nil {
		return nil, nil
	}
	switch m.Type {
	case "", "unbounded":
		t := actor.UnboundedMailbox()
		return &t, nil
	case "bounded":
		if m.Capacity <= 0 {
			return nil, fmt.Errorf("%w: bounded mailbox needs a positive capacity", ErrInvalidMailbox)
		}
		t := actor.BoundedMailbox(m.Capacity)
		return &t, nil
	default:
		return nil, fmt.Errorf("%w: unknown type %q", ErrInvalidMailbox, m.Type)
	}
}

func (s *SupervisorSection) strategy() (actor.SupervisorStrategy, error) {
	if s == nil {
		return nil, nil
	}
	decider, err := parseDecider(s.Decider)
	if err != nil {
		return nil, err
	}
	maxRestarts := 3
	if s.MaxRestarts != nil {
		maxRestarts = *s.MaxRestarts
	}
	within := s.Within
	if within < 0 {
		return nil, fmt.Errorf("%w: within must not be negative", ErrInvalidStrategy)
	}

	switch s.Strategy {
	case "", "one-for-one":
		return actor.NewOneForOneStrategy(maxRestarts, within, decider), nil
	case "all-for-one":
		return actor.NewAllForOneStrategy(maxRestarts, within, decider), nil
	case "backoff":
		if s.MinBackoff <= 0 {
			return nil, fmt.Errorf("%w: backoff needs a positive min-backoff", ErrInvalidStrategy)
		}
		if s.MaxBackoff != 0 && s.MaxBackoff < s.MinBackoff {
			return nil, fmt.Errorf("%w: max-backoff is below min-backoff", ErrInvalidStrategy)
		}
		return actor.NewExponentialBackoffStrategy(s.MinBackoff, s.MaxBackoff, maxRestarts, decider), nil
	default:
		return nil, fmt.Errorf("%w: unknown strategy %q", ErrInvalidStrategy, s.Strategy)
	}
}

// parseDecider "restart" 使用默认决策器：初始化失败和 Kill 仍然停止
func parseDecider(name string) (actor.Decider, error) {
	switch name {
	case "", "restart":
		return actor.DefaultDecider, nil
	case "resume":
		return actor.ResumingDecider, nil
	case "stop":
		return actor.StoppingDecider, nil
	case "escalate":
		return actor.EscalatingDecider, nil
	default:
		return nil, fmt.Errorf("%w: unknown decider %q", ErrInvalidDecider, name)
	}
}
