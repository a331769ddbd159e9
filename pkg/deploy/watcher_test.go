package deploy

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, file, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(file, []byte(content), 0o644))
}

func TestWatcherReloadsTable(t *testing.T) {
	file := filepath.Join(t.TempDir(), "actuator.yaml")
	writeConfig(t, file, "deployment:\n  /user/a:\n    mailbox: {type: bounded, capacity: 1}\n")

	cfg, err := Load(file)
	require.NoError(t, err)
	table, err := NewTable(cfg)
	require.NoError(t, err)

	w, err := NewWatcher(file, table,
		WithDebounce(20*time.Millisecond),
		WithLogger(NewLoggerTo(nopWriter{}, LogConfig{})))
	require.NoError(t, err)

	reloaded := make(chan *Config, 4)
	w.OnReload(func(cfg *Config) { reloaded <- cfg })
	require.NoError(t, w.Start())
	defer w.Stop()

	writeConfig(t, file, "deployment:\n  /user/b:\n    mailbox: {type: bounded, capacity: 2}\n")

	require.Eventually(t, func() bool {
		_, ok := table.Lookup(userPath("b"))
		return ok
	}, 2*time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool { return len(reloaded) > 0 }, time.Second, 5*time.Millisecond)

	_, ok := table.Lookup(userPath("a"))
	assert.False(t, ok)
	d, ok := table.Lookup(userPath("b"))
	require.True(t, ok)
	assert.Equal(t, 2, d.Mailbox.Capacity)
}

func TestWatcherKeepsTableOnInvalidConfig(t *testing.T) {
	file := filepath.Join(t.TempDir(), "actuator.yaml")
	writeConfig(t, file, "deployment:\n  /user/a: {}\n")

	cfg, err := Load(file)
	require.NoError(t, err)
	table, err := NewTable(cfg)
	require.NoError(t, err)

	w, err := NewWatcher(file, table, WithLogger(NewLoggerTo(nopWriter{}, LogConfig{})))
	require.NoError(t, err)

	writeConfig(t, file, "deployment:\n  /user/a:\n    mailbox: {type: ring}\n")
	assert.ErrorIs(t, w.Reload(), ErrInvalidMailbox)
	_, ok := table.Lookup(userPath("a"))
	assert.True(t, ok)

	require.NoError(t, os.Remove(file))
	assert.ErrorIs(t, w.Reload(), ErrConfigFileNotFound)
	assert.NoError(t, w.Stop())
}

func TestWatcherIgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "actuator.yaml")
	writeConfig(t, file, "deployment:\n  /user/a: {}\n")

	cfg, err := Load(file)
	require.NoError(t, err)
	table, err := NewTable(cfg)
	require.NoError(t, err)

	w, err := NewWatcher(file, table,
		WithDebounce(10*time.Millisecond),
		WithLogger(NewLoggerTo(nopWriter{}, LogConfig{})))
	require.NoError(t, err)
	reloaded := make(chan *Config, 4)
	w.OnReload(func(cfg *Config) { reloaded <- cfg })
	require.NoError(t, w.Start())
	defer w.Stop()

	writeConfig(t, filepath.Join(dir, "other.yaml"), "deployment:\n  /user/z: {}\n")
	select {
	case <-reloaded:
		t.Fatal("unrelated file triggered a reload")
	case <-time.After(200 * time.Millisecond):
	}
}
