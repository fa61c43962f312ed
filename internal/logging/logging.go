// Package logging builds the process-wide slog logger.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

type Options struct {
	Level   string // debug, info, warn or error
	Format  string // json (default) or text
	LogFile string // optional file that receives a copy of every record
}

// New returns a logger writing to stderr and, when opts.LogFile is set, to
// that file as well. It becomes the slog default. The returned cleanup closes
// the log file and must be deferred by the caller.
func New(opts Options) (*slog.Logger, func(), error) {
	writers := []io.Writer{os.Stderr}
	cleanup := func() {}

	if opts.LogFile != "" {
		f, err := os.OpenFile(opts.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
		if err != nil {
			return nil, nil, err
		}
		writers = append(writers, f)
		cleanup = func() { _ = f.Close() }
	}

	logger := slog.New(newHandler(io.MultiWriter(writers...), opts)).With("app", "cardsnap")
	slog.SetDefault(logger)
	return logger, cleanup, nil
}

func newHandler(w io.Writer, opts Options) slog.Handler {
	ho := &slog.HandlerOptions{Level: parseLevel(opts.Level)}
	if strings.EqualFold(opts.Format, "text") {
		return slog.NewTextHandler(w, ho)
	}
	return slog.NewJSONHandler(w, ho)
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
