// Package flowlog builds the process's structured logger: slog writing to a
// rotating file via lumberjack when a log path is set, otherwise to stderr
// (plain text on a terminal, JSON elsewhere). There is no package-level logger — every component that
// logs is handed one explicitly, the same per-instance-state discipline the
// rest of this module follows.
package flowlog

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"golang.org/x/term"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options configures New.
type Options struct {
	// Path, when non-empty, rotates logs through lumberjack at this path.
	// When empty, logging goes to stderr.
	Path string
	// Level is one of "debug", "info", "warn", "error" (default "info").
	Level string
	// MaxSizeMB, MaxBackups, MaxAgeDays configure lumberjack rotation.
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// New builds a *slog.Logger per Options. When Path is set, output is JSON
// lines through a lumberjack.Logger (durable rotating file output, the
// teacher's choice for long-running daemon logs). Otherwise output goes to
// stderr as JSON unless stderr is a terminal, in which case it uses a plain
// slog.TextHandler for human readability.
func New(opts Options) (*slog.Logger, error) {
	level, err := parseLevel(opts.Level)
	if err != nil {
		return nil, err
	}

	var w io.Writer
	var handler slog.Handler
	if opts.Path != "" {
		w = &lumberjack.Logger{
			Filename:   opts.Path,
			MaxSize:    orDefault(opts.MaxSizeMB, 100),
			MaxBackups: orDefault(opts.MaxBackups, 5),
			MaxAge:     orDefault(opts.MaxAgeDays, 28),
			Compress:   true,
		}
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	} else if term.IsTerminal(int(os.Stderr.Fd())) {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	} else {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	}

	return slog.New(handler), nil
}

func parseLevel(s string) (slog.Level, error) {
	switch s {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log level %q", s)
	}
}

func orDefault(v, fallback int) int {
	if v <= 0 {
		return fallback
	}
	return v
}
