package logging

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/natefinch/lumberjack"
)

type Options struct {
	Level string // "debug", "info", "warn", "error"
	Dir   string // log directory; file output is disabled when empty
}

// New builds the process-wide logger: JSON records to stdout and, when a
// directory is configured, to a size-rotated file alongside it.
func New(opts Options) *slog.Logger {
	var out io.Writer = os.Stdout

	if opts.Dir != "" {
		if err := os.MkdirAll(opts.Dir, 0o755); err == nil {
			rotated := &lumberjack.Logger{
				Filename:   filepath.Join(opts.Dir, "hub.log"),
				MaxSize:    10, // megabytes
				MaxBackups: 5,
				MaxAge:     28, // days
				Compress:   true,
			}
			out = io.MultiWriter(os.Stdout, rotated)
		}
	}

	handler := slog.NewJSONHandler(out, &slog.HandlerOptions{Level: parseLevel(opts.Level)})
	return slog.New(handler)
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
