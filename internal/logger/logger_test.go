package logger_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaharia-lab/inboxmailer/internal/logger"
)

func TestNewSystemLogger_WritesJSON(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")

	l, closer, err := logger.NewSystemLogger(dir, slog.LevelInfo)
	require.NoError(t, err)

	l.Debug("hidden")
	l.Info("webhook received", "webhook_id", "msg_1")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(filepath.Join(dir, "system.log"))
	require.NoError(t, err)

	lines := bytes.Split(bytes.TrimSpace(data), []byte("\n"))
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &entry))
	assert.Equal(t, "webhook received", entry["msg"])
	assert.Equal(t, "msg_1", entry["webhook_id"])
}

func TestTee(t *testing.T) {
	var a, b bytes.Buffer
	base := slog.New(slog.NewJSONHandler(&a, &slog.HandlerOptions{Level: slog.LevelWarn}))
	extra := slog.NewJSONHandler(&b, &slog.HandlerOptions{Level: slog.LevelDebug})

	l := logger.Tee(base, extra, nil).With("component", "test")
	l.Info("only extra")
	l.Warn("both")

	assert.NotContains(t, a.String(), "only extra")
	assert.Contains(t, a.String(), "both")
	assert.Contains(t, b.String(), "only extra")
	assert.Contains(t, b.String(), `"component":"test"`)
}

func TestTee_NoExtraReturnsSameLogger(t *testing.T) {
	base := slog.Default()
	assert.Same(t, base, logger.Tee(base))
	assert.Same(t, base, logger.Tee(base, nil))
}
