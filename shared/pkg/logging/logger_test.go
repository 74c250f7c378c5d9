package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(WARN, false)
	l.SetOutput(&buf)

	l.Info("hidden")
	l.Warn("shown")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "WARN: shown")
}

func TestLoggerJSONWithFields(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(DEBUG, true)
	l.SetOutput(&buf)

	l.WithField("pass_id", "p-1").Error("terminate failed", map[string]interface{}{
		"error": errors.New("boom"),
	})

	var entry LogEntry
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "ERROR", entry.Level)
	assert.Equal(t, "terminate failed", entry.Message)
	assert.Equal(t, "p-1", entry.Fields["pass_id"])
	assert.Equal(t, "boom", entry.Fields["error"])
}

func TestWithFieldDoesNotMutateParent(t *testing.T) {
	var buf bytes.Buffer
	parent := NewLogger(INFO, false)
	parent.SetOutput(&buf)

	_ = parent.WithField("scope", "p/d")
	parent.Info("plain")

	assert.NotContains(t, buf.String(), "scope")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, DEBUG, ParseLevel("debug"))
	assert.Equal(t, WARN, ParseLevel("Warning"))
	assert.Equal(t, ERROR, ParseLevel("ERROR"))
	assert.Equal(t, INFO, ParseLevel("bogus"))
}

func TestNewWithFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "reaper.log")
	l, err := New(Config{Level: "info", Format: "text", File: path, MaxSizeMB: 1})
	require.NoError(t, err)

	l.Info("to file")
	require.NoError(t, l.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), "to file"))
}

func TestDiscard(t *testing.T) {
	l := Discard()
	l.Error("nothing")
}

func TestCloseDropsLaterEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reaper.log")
	l, err := New(Config{Level: "info", File: path, MaxSizeMB: 1})
	require.NoError(t, err)
	derived := l.WithField("component", "shutdown")

	require.NoError(t, l.Close())
	require.NoError(t, l.Close())
	require.NoError(t, os.Remove(path))

	derived.Info("after close")
	l.Info("after close")

	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err), "log file must not be reopened after Close")
}
