// Package logging builds the process logger: JSON lines to a rotating file
// (or text on stderr) plus an in-memory ring of recent records.
package logging

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// ParseLevel reads debug, info, warn or error; empty is info.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("invalid log level: %s", s)
}

// Options configure New.
type Options struct {
	Level slog.Level
	// File, when set, receives JSON lines through a RotatingFileWriter.
	File      string
	MaxSizeMB int
	MaxFiles  int
	// BufferSize bounds the ring of recent records.
	BufferSize int
	// Stderr receives text records at warn and above when no File is set.
	Stderr io.Writer
}

// Logger is a configured *slog.Logger with its ring and file.
type Logger struct {
	*slog.Logger
	Ring *RingHandler
	file io.Closer
}

// New builds a Logger from opts.
func New(opts Options) (*Logger, error) {
	l := &Logger{Ring: NewRingHandler(opts.BufferSize, opts.Level)}
	handlers := []slog.Handler{l.Ring}
	switch {
	case opts.File != "":
		w, err := NewRotatingFileWriter(opts.File, opts.MaxSizeMB, opts.MaxFiles)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file %s: %w", opts.File, err)
		}
		l.file = w
		handlers = append(handlers, slog.NewJSONHandler(w, &slog.HandlerOptions{Level: opts.Level}))
	case opts.Stderr != nil:
		handlers = append(handlers, slog.NewTextHandler(opts.Stderr, &slog.HandlerOptions{Level: max(opts.Level, slog.LevelWarn)}))
	}
	l.Logger = slog.New(fanout(handlers))
	return l, nil
}

// Close closes the log file, if any.
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}

// fanout sends each record to every handler that accepts it.
type fanout []slog.Handler

func (f fanout) Enabled(ctx context.Context, l slog.Level) bool {
	for _, h := range f {
		if h.Enabled(ctx, l) {
			return true
		}
	}
	return false
}

func (f fanout) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range f {
		if h.Enabled(ctx, r.Level) {
			if err := h.Handle(ctx, r.Clone()); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

func (f fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithAttrs(attrs)
	}
	return out
}

func (f fanout) WithGroup(name string) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithGroup(name)
	}
	return out
}
