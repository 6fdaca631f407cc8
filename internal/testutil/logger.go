// Package testutil provides test loggers and raw-data fixtures.
package testutil

import (
	"bytes"
	"log/slog"
	"testing"
)

// NewTestLogger returns a debug-level logger whose lines go to t.Log, so
// they show only for failing tests or under -v.
func NewTestLogger(t testing.TB) *slog.Logger {
	t.Helper()
	return slog.New(slog.NewTextHandler(logSink{t}, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

type logSink struct {
	t testing.TB
}

func (s logSink) Write(p []byte) (int, error) {
	s.t.Helper()
	s.t.Log(string(bytes.TrimRight(p, "\n")))
	return len(p), nil
}
