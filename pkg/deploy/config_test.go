package deploy

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lwmacct/251215-go-pkg-actuator/pkg/actor"
)

const sampleConfig = `
system:
  name: shop
  terminate-timeout: 10s
  dead-letter-buffer: 64
  log-dead-letters: false
log:
  level: debug
  format: json
dispatchers:
  io:
    workers: 8
    throughput: 1
    throughput-deadline: 5ms
    shutdown-timeout: 2s
  cpu:
    workers: 2
deployment:
  /user/db:
    dispatcher: io
    mailbox:
      type: bounded
      capacity: 100
  /user/db/*:
    dispatcher: io
    supervisor:
      strategy: backoff
      max-restarts: 5
      min-backoff: 100ms
      max-backoff: 5s
  /user/workers/*:
    dispatcher: cpu
    supervisor:
      strategy: all-for-one
      max-restarts: 0
      decider: stop
`

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, "shop", cfg.System.Name)
	assert.Equal(t, 10*time.Second, cfg.System.TerminateTimeout)
	assert.Equal(t, 64, cfg.System.DeadLetterBuffer)
	assert.False(t, cfg.System.LogDeadLetters)
	assert.Equal(t, LogConfig{Level: "debug", Format: "json"}, cfg.Log)

	require.Len(t, cfg.Dispatchers, 2)
	assert.Equal(t, DispatcherSection{
		Workers:            8,
		Throughput:         1,
		ThroughputDeadline: 5 * time.Millisecond,
		ShutdownTimeout:    2 * time.Second,
	}, cfg.Dispatchers["io"])

	require.Len(t, cfg.Deployment, 3)
	db := cfg.Deployment["/user/db"]
	assert.Equal(t, "io", db.Dispatcher)
	require.NotNil(t, db.Mailbox)
	assert.Equal(t, MailboxSection{Type: "bounded", Capacity: 100}, *db.Mailbox)
	assert.Nil(t, db.Supervisor)

	workers := cfg.Deployment["/user/workers/*"]
	require.NotNil(t, workers.Supervisor.MaxRestarts)
	assert.Equal(t, 0, *workers.Supervisor.MaxRestarts)
}

func TestParseKeepsDefaults(t *testing.T) {
	cfg, err := Parse([]byte("log:\n  level: warn\n"))
	require.NoError(t, err)

	def := Default()
	assert.Equal(t, def.System, cfg.System)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, def.Log.Format, cfg.Log.Format)
	assert.Empty(t, cfg.Deployment)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		err  error
	}{
		{"malformed yaml", "system: [", ErrConfigParse},
		{"bad duration", "system:\n  terminate-timeout: soon\n", ErrConfigParse},
		{"system name", "system:\n  name: a/b\n", ErrInvalidSystemName},
		{"log level", "log:\n  level: loud\n", ErrInvalidLogLevel},
		{"log format", "log:\n  format: xml\n", ErrInvalidLogFormat},
		{"negative workers", "dispatchers:\n  io:\n    workers: -1\n", ErrInvalidDispatcher},
		{"relative pattern", "deployment:\n  user/a: {}\n", ErrInvalidPattern},
		{"bad pattern", "deployment:\n  /user/[a: {}\n", ErrInvalidPattern},
		{"unknown dispatcher", "deployment:\n  /user/a:\n    dispatcher: gpu\n", ErrUnknownDispatcher},
		{"mailbox type", "deployment:\n  /user/a:\n    mailbox: {type: ring}\n", ErrInvalidMailbox},
		{"mailbox capacity", "deployment:\n  /user/a:\n    mailbox: {type: bounded}\n", ErrInvalidMailbox},
		{"strategy", "deployment:\n  /user/a:\n    supervisor: {strategy: rest-for-one}\n", ErrInvalidStrategy},
		{"backoff bounds", "deployment:\n  /user/a:\n    supervisor: {strategy: backoff, min-backoff: 1s, max-backoff: 10ms}\n", ErrInvalidStrategy},
		{"backoff min", "deployment:\n  /user/a:\n    supervisor: {strategy: backoff}\n", ErrInvalidStrategy},
		{"decider", "deployment:\n  /user/a:\n    supervisor: {decider: retry}\n", ErrInvalidDecider},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestDefaultDispatcherReference(t *testing.T) {
	_, err := Parse([]byte("deployment:\n  /user/a:\n    dispatcher: " + actor.DefaultDispatcherID + "\n"))
	assert.NoError(t, err)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "actuator.yaml")
	require.NoError(t, os.WriteFile(file, []byte(sampleConfig), 0o644))

	cfg, err := Load(file)
	require.NoError(t, err)
	assert.Equal(t, "shop", cfg.System.Name)

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	assert.ErrorIs(t, err, ErrConfigFileNotFound)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("log:\n  level: loud\n"), 0o644))
	_, err = Load(bad)
	assert.ErrorIs(t, err, ErrInvalidLogLevel)
	assert.Contains(t, err.Error(), bad)
}

func TestSystemConfig(t *testing.T) {
	cfg, err := Parse([]byte(sampleConfig))
	require.NoError(t, err)

	logger := NewLoggerTo(os.Stderr, cfg.Log)
	sc, err := cfg.SystemConfig(logger)
	require.NoError(t, err)

	assert.Same(t, logger, sc.Logger)
	assert.Equal(t, 10*time.Second, sc.TerminateTimeout)
	assert.Equal(t, 64, sc.DeadLetterBufferSize)
	assert.False(t, sc.EnableDeadLetterLogging)

	require.Len(t, sc.Dispatchers, 2)
	assert.Equal(t, "cpu", sc.Dispatchers[0].ID)
	assert.Equal(t, "io", sc.Dispatchers[1].ID)
	assert.Equal(t, 5*time.Millisecond, sc.Dispatchers[1].ThroughputDeadline)

	table, ok := sc.Deployer.(*Table)
	require.True(t, ok)
	assert.Equal(t, 3, table.Len())
}

func TestSystemConfigStartsSystem(t *testing.T) {
	cfg, err := Parse([]byte(sampleConfig))
	require.NoError(t, err)
	cfg.Log.Level = "error"

	sc, err := cfg.SystemConfig(NewLoggerTo(os.Stderr, cfg.Log))
	require.NoError(t, err)
	sys, err := actor.NewSystemWithConfig(cfg.System.Name, sc)
	require.NoError(t, err)
	defer sys.Shutdown()

	assert.Equal(t, "shop", sys.Name())
	io, ok := sys.Dispatcher("io")
	require.True(t, ok)
	_, ok = sys.Dispatcher(actor.DefaultDispatcherID)
	assert.True(t, ok)

	// /user/db 按部署表挂在 io 调度器上
	_, err = sys.ActorOf(actor.PropsFromFunc(func(*actor.Context, actor.Message) {}), "db")
	require.NoError(t, err)
	assert.Equal(t, int64(1), io.Inhabitants())
}
