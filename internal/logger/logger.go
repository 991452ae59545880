// Package logger provides the structured slog logger used by the service.
// All logs are written in JSON format.
//
// Log files are organized as:
//
//	<logDir>/system.log    application-level events, rotated by size
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	slogmulti "github.com/samber/slog-multi"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Rotation limits for system.log.
const (
	maxSizeMB  = 50
	maxBackups = 5
	maxAgeDays = 30
)

// NewSystemLogger creates a JSON slog.Logger that writes to <logDir>/system.log.
// The directory is created if it does not exist. The returned io.Closer
// releases the rotating file.
func NewSystemLogger(logDir string, level slog.Level) (*slog.Logger, io.Closer, error) {
	if err := os.MkdirAll(logDir, 0750); err != nil {
		return nil, nil, fmt.Errorf("creating log directory %q: %w", logDir, err)
	}

	w := &lumberjack.Logger{
		Filename:   filepath.Join(logDir, "system.log"),
		MaxSize:    maxSizeMB,
		MaxBackups: maxBackups,
		MaxAge:     maxAgeDays,
		Compress:   true,
	}

	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	return slog.New(handler), w, nil
}

// Tee returns a logger that writes every record to l's handler and to each
// of extra. Nil handlers are skipped.
func Tee(l *slog.Logger, extra ...slog.Handler) *slog.Logger {
	handlers := []slog.Handler{l.Handler()}
	for _, h := range extra {
		if h != nil {
			handlers = append(handlers, h)
		}
	}
	if len(handlers) == 1 {
		return l
	}
	return slog.New(slogmulti.Fanout(handlers...))
}
