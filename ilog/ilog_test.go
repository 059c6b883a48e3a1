// Copyright © 2026 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package ilog

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func record(level slog.Level, msg string) slog.Record {
	return slog.NewRecord(time.Now(), level, msg, 0)
}

func TestConsoleHandlerLevels(t *testing.T) {
	defer SetVerbosity(slog.LevelInfo)
	SetVerbosity(slog.LevelWarn)

	var buf bytes.Buffer
	h := NewConsoleHandler(&buf, false)
	if h.Enabled(context.Background(), slog.LevelInfo) {
		t.Error("info should be disabled at warn verbosity")
	}
	if !h.Enabled(context.Background(), slog.LevelError) {
		t.Error("error should be enabled at warn verbosity")
	}

	if err := h.Handle(context.Background(), record(slog.LevelError, "boom")); err != nil {
		t.Fatal(err)
	}
	got := buf.String()
	if !strings.Contains(got, "[ERROR  ]") || !strings.Contains(got, "boom") {
		t.Errorf("unexpected console line %q", got)
	}
	if strings.Contains(got, "\033[") {
		t.Errorf("ansi disabled but line has escapes: %q", got)
	}
}

func TestConsoleHandlerAnsi(t *testing.T) {
	var buf bytes.Buffer
	h := NewConsoleHandler(&buf, true)
	if err := h.Handle(context.Background(), record(slog.LevelWarn, "careful")); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "\033[33m") {
		t.Errorf("warning line missing yellow escape: %q", buf.String())
	}
}

func TestTeeFansOut(t *testing.T) {
	var a, b bytes.Buffer
	tee := NewTee(NewConsoleHandler(&a, false), NewConsoleHandler(&b, false))
	if err := tee.Handle(context.Background(), record(slog.LevelInfo, "hello")); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(a.String(), "hello") || !strings.Contains(b.String(), "hello") {
		t.Error("tee did not reach all listeners")
	}
}

func TestFatalTag(t *testing.T) {
	if got := levelString(Fatal); got != "[FATAL  ]" {
		t.Errorf("fatal tag = %q", got)
	}
}
