package logging_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"pubtools/pkg/logging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConsoleFormat(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Level: "info", Format: "console", Color: "never", Output: &buf})
	require.NoError(t, err)
	defer logger.Close()

	logger.With("run_id", "r1").WithGroup("file").Info("committed", "path", "ui/a b.json", "bytes", 42)
	logger.Debug("hidden")

	line := buf.String()
	assert.Contains(t, line, " INFO committed")
	assert.Contains(t, line, "run_id=r1")
	assert.Contains(t, line, `file.path="ui/a b.json"`)
	assert.Contains(t, line, "file.bytes=42")
	assert.NotContains(t, line, "hidden")
	assert.NotContains(t, line, "\x1b[")
}

func TestConsoleColorAlways(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Level: "debug", Color: "always", Output: &buf})
	require.NoError(t, err)

	logger.Error("boom", "error", errors.New("bad frame"))
	assert.Contains(t, buf.String(), "\x1b[")
	assert.Contains(t, buf.String(), `error="bad frame"`)
}

func TestColorAutoOffForBuffers(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Color: "auto", Output: &buf})
	require.NoError(t, err)

	logger.Warn("careful")
	assert.NotContains(t, buf.String(), "\x1b[")
	assert.Contains(t, buf.String(), "WARN careful")
}

func TestJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Level: "debug", Format: "json", Output: &buf})
	require.NoError(t, err)

	logger.Debug("stage finished", "stage", "compress", "files", 3)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "debug", rec["level"])
	assert.Equal(t, "stage finished", rec["msg"])
	assert.Equal(t, "compress", rec["stage"])
	assert.EqualValues(t, 3, rec["files"])
	assert.Contains(t, rec, "ts")
}

func TestFileSinkIsPlain(t *testing.T) {
	var buf bytes.Buffer
	path := filepath.Join(t.TempDir(), "logs", "pubtools.log")
	logger, err := logging.New(logging.Options{Color: "always", File: path, Output: &buf})
	require.NoError(t, err)

	logger.Info("to both")
	require.NoError(t, logger.Close())

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "INFO to both")
	assert.NotContains(t, string(content), "\x1b[")
	assert.Contains(t, buf.String(), "to both")
}

func TestNewRejectsBadOptions(t *testing.T) {
	_, err := logging.New(logging.Options{Level: "chatty"})
	assert.Error(t, err)
	_, err = logging.New(logging.Options{Format: "xml", Output: &bytes.Buffer{}})
	assert.Error(t, err)
	_, err = logging.New(logging.Options{Color: "rainbow", Output: &bytes.Buffer{}})
	assert.Error(t, err)
}

func TestParseLevel(t *testing.T) {
	for name, want := range map[string]slog.Level{
		"debug": slog.LevelDebug,
		"":      slog.LevelInfo,
		"WARN":  slog.LevelWarn,
		"error": slog.LevelError,
	} {
		got, err := logging.ParseLevel(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, strings.ToLower(name))
	}
}

func TestConsoleAttrsKeepTheirGroup(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Color: "never", Output: &buf})
	require.NoError(t, err)

	logger.With("run_id", "r1").
		WithGroup("stage").With("name", "compress").
		WithGroup("file").Info("committed", "path", "a.json")

	line := buf.String()
	assert.Contains(t, line, " run_id=r1")
	assert.NotContains(t, line, ".run_id")
	assert.Contains(t, line, " stage.name=compress")
	assert.Contains(t, line, " stage.file.path=a.json")
}
