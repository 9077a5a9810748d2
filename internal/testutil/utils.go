// Package testutil holds helpers shared by the package test suites.
package testutil

import (
	"bytes"
	"log"
	"testing"
)

// testWriter forwards log output to the test log so it is shown
// alongside the failing test rather than interleaved on stdout.
type testWriter struct {
	t *testing.T
}

func (w *testWriter) Write(p []byte) (int, error) {
	w.t.Log(string(bytes.TrimRight(p, "\n")))
	return len(p), nil
}

// TestLogger returns a logger scoped to the given test.
func TestLogger(t *testing.T) *log.Logger {
	return log.New(&testWriter{t: t}, "", log.LstdFlags)
}
