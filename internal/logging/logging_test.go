package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_TextToConsole(t *testing.T) {
	var buf bytes.Buffer
	cfg := DefaultLogConfig()
	cfg.Console = &buf

	logger, closer, err := New(cfg)
	require.NoError(t, err)
	defer closer.Close()

	logger.WithField("symbol", "SPY").Info("analysis complete")
	logger.Debug("hidden at info level")

	out := buf.String()
	assert.Contains(t, out, "analysis complete")
	assert.Contains(t, out, "symbol=SPY")
	assert.NotContains(t, out, "hidden")
}

func TestNew_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger, closer, err := New(LogConfig{Level: "debug", Format: "json", Console: &buf})
	require.NoError(t, err)
	defer closer.Close()

	logger.WithField("expiration", "2025-10-17").Debug("fetched chain")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "fetched chain", entry["msg"])
	assert.Equal(t, "debug", entry["level"])
	assert.Equal(t, "2025-10-17", entry["expiration"])
}

func TestNew_RotatingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "chainscope.log")
	var buf bytes.Buffer
	cfg := DefaultLogConfig()
	cfg.Console = &buf
	cfg.FilePath = path

	logger, closer, err := New(cfg)
	require.NoError(t, err)
	logger.Warn("breaker open")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), "breaker open"))
	assert.Contains(t, buf.String(), "breaker open")
}

func TestNew_Errors(t *testing.T) {
	_, _, err := New(LogConfig{Level: "chatty"})
	assert.Error(t, err)

	_, _, err = New(LogConfig{Level: "info", Format: "xml"})
	assert.Error(t, err)
}

func TestNew_Level(t *testing.T) {
	logger, _, err := New(LogConfig{Level: "warn"})
	require.NoError(t, err)
	assert.Equal(t, logrus.WarnLevel, logger.GetLevel())
}
