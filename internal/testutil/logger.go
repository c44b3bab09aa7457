// Package testutil holds helpers shared by the package test suites: a
// t.Log-backed slog logger and an in-memory adapter fake.
package testutil

import (
	"bytes"
	"log/slog"
	"testing"
)

// NewTestLogger builds a debug-level logger whose output lands in t.Log,
// so log lines surface next to the test that produced them.
func NewTestLogger(t testing.TB) *slog.Logger {
	t.Helper()
	return slog.New(slog.NewTextHandler(logSink{tb: t}, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}

type logSink struct {
	tb testing.TB
}

func (s logSink) Write(p []byte) (int, error) {
	s.tb.Helper()
	s.tb.Log(string(bytes.TrimRight(p, "\n")))
	return len(p), nil
}
