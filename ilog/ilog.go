// Copyright © 2026 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

// Package ilog wires the process wide logger used by the render core.
// It is a thin layer over log/slog that supplies the pluggable listeners
// the runtime expects: an ANSI colored console listener, a file listener
// and a fan-out that drives any number of listeners from one logger.
// Library code logs through slog and never writes to stdio directly.
package ilog

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
)

// Fatal is one level above slog.LevelError. Fatal records are reserved
// for unrecoverable invariant violations reported just before a panic.
const Fatal = slog.LevelError + 4

// verbosity is shared by every handler created by this package so that
// SetVerbosity takes effect everywhere at once. The fast path of a
// disabled level is a single atomic load inside slog.
var verbosity slog.LevelVar

// SetVerbosity changes the minimum level that reaches the listeners.
func SetVerbosity(level slog.Level) { verbosity.Set(level) }

// Verbosity returns the current minimum level.
func Verbosity() slog.Level { return verbosity.Level() }

// levelString matches the tags the console and file listeners print.
func levelString(l slog.Level) string {
	switch {
	case l < slog.LevelInfo:
		return "[DEBUG  ]"
	case l < slog.LevelWarn:
		return "[INFO   ]"
	case l < slog.LevelError:
		return "[WARNING]"
	case l < Fatal:
		return "[ERROR  ]"
	default:
		return "[FATAL  ]"
	}
}

// ANSI color codes per level for terminals that support them.
func levelColor(l slog.Level) string {
	switch {
	case l < slog.LevelInfo:
		return "\033[90m" // bright black
	case l < slog.LevelWarn:
		return "\033[36m" // cyan
	case l < slog.LevelError:
		return "\033[33m" // yellow
	case l < Fatal:
		return "\033[31m" // red
	default:
		return "\033[1;31m" // bold red
	}
}

const ansiReset = "\033[0m"

// ConsoleHandler writes one line per record with a level tag, optionally
// colored with ANSI escapes.
type ConsoleHandler struct {
	mu    *sync.Mutex
	out   io.Writer
	ansi  bool
	attrs []slog.Attr
}

// NewConsoleHandler returns a console listener writing to w.
func NewConsoleHandler(w io.Writer, ansi bool) *ConsoleHandler {
	return &ConsoleHandler{mu: &sync.Mutex{}, out: w, ansi: ansi}
}

// Enabled implements slog.Handler.
func (h *ConsoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= verbosity.Level()
}

// Handle implements slog.Handler.
func (h *ConsoleHandler) Handle(_ context.Context, r slog.Record) error {
	line := formatRecord(r, h.attrs)
	h.mu.Lock()
	defer h.mu.Unlock()
	var err error
	if h.ansi {
		_, err = fmt.Fprintf(h.out, "%s%s%s %s\n", levelColor(r.Level), levelString(r.Level), ansiReset, line)
	} else {
		_, err = fmt.Fprintf(h.out, "%s %s\n", levelString(r.Level), line)
	}
	return err
}

// WithAttrs implements slog.Handler.
func (h *ConsoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	nh := *h
	nh.attrs = append(append([]slog.Attr{}, h.attrs...), attrs...)
	return &nh
}

// WithGroup implements slog.Handler. Groups are flattened.
func (h *ConsoleHandler) WithGroup(string) slog.Handler { return h }

// FileHandler appends uncolored records to a log file.
type FileHandler struct {
	mu    *sync.Mutex
	f     *os.File
	attrs []slog.Attr
}

// NewFileHandler opens (truncating) the given log file.
func NewFileHandler(path string) (*FileHandler, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("ilog: open log file: %w", err)
	}
	return &FileHandler{mu: &sync.Mutex{}, f: f}, nil
}

// Close flushes and closes the underlying file.
func (h *FileHandler) Close() error { return h.f.Close() }

// Enabled implements slog.Handler.
func (h *FileHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= verbosity.Level()
}

// Handle implements slog.Handler.
func (h *FileHandler) Handle(_ context.Context, r slog.Record) error {
	line := formatRecord(r, h.attrs)
	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := fmt.Fprintf(h.f, "%s %s %s\n", r.Time.Format("15:04:05.000"), levelString(r.Level), line)
	return err
}

// WithAttrs implements slog.Handler.
func (h *FileHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	nh := *h
	nh.attrs = append(append([]slog.Attr{}, h.attrs...), attrs...)
	return &nh
}

// WithGroup implements slog.Handler.
func (h *FileHandler) WithGroup(string) slog.Handler { return h }

// Tee fans a record out to every listener. Enabled if any listener is.
type Tee struct {
	handlers []slog.Handler
}

// NewTee combines the given listeners into one handler.
func NewTee(handlers ...slog.Handler) *Tee { return &Tee{handlers: handlers} }

// Enabled implements slog.Handler.
func (t *Tee) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range t.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

// Handle implements slog.Handler.
func (t *Tee) Handle(ctx context.Context, r slog.Record) error {
	var first error
	for _, h := range t.handlers {
		if h.Enabled(ctx, r.Level) {
			if err := h.Handle(ctx, r.Clone()); err != nil && first == nil {
				first = err
			}
		}
	}
	return first
}

// WithAttrs implements slog.Handler.
func (t *Tee) WithAttrs(attrs []slog.Attr) slog.Handler {
	hs := make([]slog.Handler, len(t.handlers))
	for i, h := range t.handlers {
		hs[i] = h.WithAttrs(attrs)
	}
	return &Tee{handlers: hs}
}

// WithGroup implements slog.Handler.
func (t *Tee) WithGroup(name string) slog.Handler {
	hs := make([]slog.Handler, len(t.handlers))
	for i, h := range t.handlers {
		hs[i] = h.WithGroup(name)
	}
	return &Tee{handlers: hs}
}

// Setup installs the default logger: a console listener on stderr plus an
// optional file listener. Returns a closer for the file listener, which
// may be nil.
func Setup(level slog.Level, ansi bool, logFile string) (io.Closer, error) {
	verbosity.Set(level)
	console := NewConsoleHandler(os.Stderr, ansi)
	if logFile == "" {
		slog.SetDefault(slog.New(console))
		return nil, nil
	}
	fh, err := NewFileHandler(logFile)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(slog.New(NewTee(console, fh)))
	return fh, nil
}

// formatRecord renders the message plus attrs as "msg k=v k=v".
func formatRecord(r slog.Record, prefix []slog.Attr) string {
	line := r.Message
	for _, a := range prefix {
		line += fmt.Sprintf(" %s=%v", a.Key, a.Value)
	}
	r.Attrs(func(a slog.Attr) bool {
		line += fmt.Sprintf(" %s=%v", a.Key, a.Value)
		return true
	})
	return line
}
