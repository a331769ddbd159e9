package deploy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lwmacct/251215-go-pkg-actuator/pkg/actor"
)

func userPath(elements ...string) actor.Path {
	p := actor.RootPath(actor.LocalAddress("test")).Child("user")
	for _, e := range elements {
		p = p.Child(e)
	}
	return p
}

func TestTableLookup(t *testing.T) {
	cfg, err := Parse([]byte(`
dispatchers:
  io: {}
  cpu: {}
  pinned: {}
deployment:
  /user/*:
    dispatcher: cpu
  /user/db/*:
    dispatcher: io
  /user/db/primary:
    dispatcher: pinned
  /user/db/prim*:
    mailbox: {type: bounded, capacity: 10}
`))
	require.NoError(t, err)
	table, err := NewTable(cfg)
	require.NoError(t, err)
	assert.Equal(t, 4, table.Len())

	// 精确路径优先
	d, ok := table.Lookup(userPath("db", "primary"))
	require.True(t, ok)
	assert.Equal(t, "pinned", d.Dispatcher)
	assert.Nil(t, d.Mailbox)

	// 最长的通配模式优先
	d, ok = table.Lookup(userPath("db", "primary2"))
	require.True(t, ok)
	assert.Equal(t, "", d.Dispatcher)
	require.NotNil(t, d.Mailbox)
	assert.Equal(t, actor.BoundedMailbox(10), *d.Mailbox)

	d, ok = table.Lookup(userPath("db", "replica"))
	require.True(t, ok)
	assert.Equal(t, "io", d.Dispatcher)

	d, ok = table.Lookup(userPath("web"))
	require.True(t, ok)
	assert.Equal(t, "cpu", d.Dispatcher)

	// * 不跨越路径分隔符
	_, ok = table.Lookup(userPath("web", "handler", "x"))
	assert.False(t, ok)
	_, ok = table.Lookup(actor.RootPath(actor.LocalAddress("test")).Child("system").Child("x"))
	assert.False(t, ok)
}

func TestTableStrategies(t *testing.T) {
	cfg, err := Parse([]byte(`
deployment:
  /user/a:
    supervisor: {strategy: one-for-one, max-restarts: 2, within: 1m, decider: resume}
  /user/b:
    supervisor: {strategy: all-for-one}
  /user/c:
    supervisor: {strategy: backoff, min-backoff: 10ms, max-backoff: 1s, max-restarts: 4}
`))
	require.NoError(t, err)
	table, err := NewTable(cfg)
	require.NoError(t, err)

	a, _ := table.Lookup(userPath("a"))
	oneForOne, ok := a.Supervisor.(*actor.OneForOneStrategy)
	require.True(t, ok)
	assert.Equal(t, 2, oneForOne.MaxRestarts)
	assert.Equal(t, time.Minute, oneForOne.WithinDuration)
	assert.Equal(t, actor.DirectiveResume, oneForOne.Decider(assert.AnError))

	b, _ := table.Lookup(userPath("b"))
	allForOne, ok := b.Supervisor.(*actor.AllForOneStrategy)
	require.True(t, ok)
	assert.Equal(t, 3, allForOne.MaxRestarts)

	c, _ := table.Lookup(userPath("c"))
	backoff, ok := c.Supervisor.(*actor.ExponentialBackoffStrategy)
	require.True(t, ok)
	assert.Equal(t, 10*time.Millisecond, backoff.InitialDelay)
	assert.Equal(t, time.Second, backoff.MaxDelay)
	assert.Equal(t, 4, backoff.MaxRestarts)
}

func TestTableUpdate(t *testing.T) {
	first, err := Parse([]byte("dispatchers:\n  io: {}\ndeployment:\n  /user/a:\n    dispatcher: io\n"))
	require.NoError(t, err)
	table, err := NewTable(first)
	require.NoError(t, err)

	second, err := Parse([]byte("deployment:\n  /user/b/*:\n    mailbox: {type: bounded, capacity: 1}\n"))
	require.NoError(t, err)
	require.NoError(t, table.Update(second))

	_, ok := table.Lookup(userPath("a"))
	assert.False(t, ok)
	_, ok = table.Lookup(userPath("b", "x"))
	assert.True(t, ok)

	// 非法配置不替换当前表
	broken := &Config{Deployment: map[string]DeploymentSection{"relative": {}}}
	assert.ErrorIs(t, table.Update(broken), ErrInvalidPattern)
	_, ok = table.Lookup(userPath("b", "x"))
	assert.True(t, ok)
}

func TestTableAsDeployer(t *testing.T) {
	cfg, err := Parse([]byte(`
dispatchers:
  io: {workers: 1}
deployment:
  /user/bounded:
    dispatcher: io
    mailbox: {type: bounded, capacity: 1}
`))
	require.NoError(t, err)
	table, err := NewTable(cfg)
	require.NoError(t, err)

	sc := actor.DefaultSystemConfig()
	sc.Logger = NewLoggerTo(nopWriter{}, LogConfig{})
	sc.EnableDeadLetterLogging = false
	sc.Dispatchers = cfg.DispatcherConfigs()
	sc.Deployer = table
	sys, err := actor.NewSystemWithConfig("deploy", sc)
	require.NoError(t, err)
	defer sys.Shutdown()

	io, ok := sys.Dispatcher("io")
	require.True(t, ok)

	_, err = sys.ActorOf(actor.PropsFromFunc(func(*actor.Context, actor.Message) {}), "bounded")
	require.NoError(t, err)
	assert.Equal(t, int64(1), io.Inhabitants())

	_, err = sys.ActorOf(actor.PropsFromFunc(func(*actor.Context, actor.Message) {}), "other")
	require.NoError(t, err)
	assert.Equal(t, int64(1), io.Inhabitants())
}

type nopWriter struct{}

func (nopWriter) Write(p []byte) (int, error) { return len(p), nil }
