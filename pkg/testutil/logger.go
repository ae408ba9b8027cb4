// Package testutil provides helpers shared by the package tests.
package testutil

import (
	"bytes"
	"io"
	"log/slog"
	"testing"
)

// NewTestLogger creates a debug-level logger writing to w.
// If w is nil, output is discarded.
func NewTestLogger(w io.Writer) *slog.Logger {
	if w == nil {
		return DiscardLogger()
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}

// DiscardLogger returns a logger that discards all output
func DiscardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// tbWriter forwards each log line to t.Log so output only shows for failing
// or verbose tests.
type tbWriter struct {
	tb testing.TB
}

func (w tbWriter) Write(p []byte) (int, error) {
	w.tb.Helper()
	w.tb.Log(string(bytes.TrimRight(p, "\n")))
	return len(p), nil
}

// TestingLogger returns a debug-level logger bound to tb.
func TestingLogger(tb testing.TB) *slog.Logger {
	return NewTestLogger(tbWriter{tb: tb})
}
