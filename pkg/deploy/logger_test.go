package deploy

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLoggerJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerTo(&buf, LogConfig{Level: "warn", Format: "json"})

	logger.Info("hidden")
	logger.Warn("dead letter", "recipient", "/user/a")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "WARN", entry["level"])
	assert.Equal(t, "dead letter", entry["msg"])
	assert.Equal(t, "/user/a", entry["recipient"])
}

func TestNewLoggerText(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerTo(&buf, LogConfig{Level: "DEBUG", Format: "text"})

	logger.Debug("actor started", "actor", "/user/a")
	assert.Contains(t, buf.String(), "level=DEBUG")
	assert.Contains(t, buf.String(), "actor=/user/a")
}

func TestLogConfigValidate(t *testing.T) {
	assert.NoError(t, LogConfig{}.Validate())
	assert.NoError(t, LogConfig{Level: "error", Format: "JSON"}.Validate())
	assert.ErrorIs(t, LogConfig{Level: "trace"}.Validate(), ErrInvalidLogLevel)
	assert.ErrorIs(t, LogConfig{Format: "logfmt"}.Validate(), ErrInvalidLogFormat)

	// 非法级别在构造时按 info 处理
	var buf bytes.Buffer
	logger := NewLoggerTo(&buf, LogConfig{Level: "trace"})
	logger.Debug("hidden")
	logger.Info("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}
