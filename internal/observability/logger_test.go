package observability

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger_ConsoleColors(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerTo(Config{Level: "debug", Format: "console"}, &buf)

	logger.Infow("found session logs", "count", 2)
	_ = logger.Sync()

	out := buf.String()
	assert.Contains(t, out, "found session logs")
	assert.Contains(t, out, colorCyan+"INFO"+colorReset)
	assert.Contains(t, out, `"count": 2`)
}

func TestNewLogger_NoColor(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerTo(Config{Level: "info", Format: "console", NoColor: true}, &buf)

	logger.Warn("plain")
	_ = logger.Sync()

	assert.Contains(t, buf.String(), "WARN")
	assert.NotContains(t, buf.String(), colorReset)
}

func TestNewLogger_JSONAndLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerTo(Config{Level: "warn", Format: "json"}, &buf)

	logger.Info("dropped")
	logger.Warnw("kept", "folder", "site_a")
	_ = logger.Sync()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "WARN", entry["level"])
	assert.Equal(t, "kept", entry["msg"])
	assert.Equal(t, "site_a", entry["folder"])
}

func TestNewLogger_InvalidLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerTo(Config{Level: "chatty", Format: "json"}, &buf)

	logger.Debug("hidden")
	logger.Info("shown")
	_ = logger.Sync()

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestNewLogger_FileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "privscan.log")
	var console bytes.Buffer

	cfg := DefaultConfig()
	cfg.File = path
	logger := NewLoggerTo(cfg, &console)

	logger.Infow("written to file", "scan_id", "abc")
	require.NoError(t, logger.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(data), &entry))
	assert.Equal(t, "written to file", entry["msg"])
	assert.Equal(t, "abc", entry["scan_id"])
	assert.Contains(t, console.String(), "written to file")
}

func TestOrNop(t *testing.T) {
	assert.NotNil(t, OrNop(nil))

	logger := NewLoggerTo(DefaultConfig(), &bytes.Buffer{})
	assert.Same(t, logger, OrNop(logger))
}
