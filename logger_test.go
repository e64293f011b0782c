// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package batch

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"sync"
	"testing"
)

func TestNopHandler(t *testing.T) {
	var h slog.Handler = nopHandler{}
	for _, level := range []slog.Level{slog.LevelDebug, slog.LevelInfo, slog.LevelWarn, slog.LevelError} {
		if h.Enabled(context.Background(), level) {
			t.Errorf("Enabled(%v) = true", level)
		}
	}
	if err := h.Handle(context.Background(), slog.Record{}); err != nil {
		t.Errorf("Handle = %v", err)
	}
	if _, ok := h.WithAttrs([]slog.Attr{slog.String("context", "x")}).(nopHandler); !ok {
		t.Error("WithAttrs should stay a nopHandler")
	}
	if _, ok := h.WithGroup("frame").(nopHandler); !ok {
		t.Error("WithGroup should stay a nopHandler")
	}
}

func TestPackageLoggerSilentByDefault(t *testing.T) {
	l := Logger()
	if l == nil {
		t.Fatal("Logger() returned nil")
	}
	if l.Enabled(context.Background(), slog.LevelWarn) {
		t.Error("default logger is enabled")
	}
}

// captureLogger installs a debug-level package logger writing to the
// returned buffer for the duration of the test.
func captureLogger(t *testing.T) *bytes.Buffer {
	t.Helper()
	orig := Logger()
	t.Cleanup(func() { SetLogger(orig) })

	var buf bytes.Buffer
	SetLogger(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	return &buf
}

func TestContextUsesPackageLogger(t *testing.T) {
	buf := captureLogger(t)
	g := createNoopGPU(t)
	c := newContext(t, g)

	out := buf.String()
	for _, want := range []string{"context created", "surface configured", "context=" + c.ID().String()} {
		if !strings.Contains(out, want) {
			t.Errorf("log lacks %q:\n%s", want, out)
		}
	}
}

func TestWithLoggerOverridesPackageLogger(t *testing.T) {
	pkg := captureLogger(t)
	var own bytes.Buffer
	g := createNoopGPU(t)
	newContext(t, g, WithLogger(slog.New(slog.NewTextHandler(&own, nil))))

	if pkg.Len() != 0 {
		t.Errorf("package logger received records:\n%s", pkg.String())
	}
	if !strings.Contains(own.String(), "context created") {
		t.Errorf("context logger missed creation:\n%s", own.String())
	}
}

func TestSetLoggerNilRestoresSilence(t *testing.T) {
	captureLogger(t)
	SetLogger(nil)
	if l := Logger(); l == nil || l.Enabled(context.Background(), slog.LevelError) {
		t.Error("SetLogger(nil) should install a disabled logger")
	}
}

func TestLoggerConcurrentAccess(t *testing.T) {
	orig := Logger()
	t.Cleanup(func() { SetLogger(orig) })

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			Logger().Debug("batch: frame submitted", "frame", 1)
		}()
		go func() {
			defer wg.Done()
			SetLogger(slog.Default())
			SetLogger(nil)
		}()
	}
	wg.Wait()
}

func BenchmarkDisabledFrameLog(b *testing.B) {
	l := Logger()
	b.ReportAllocs()
	for b.Loop() {
		l.Debug("batch: frame submitted", "frame", 1, "batches", 3, "draws", 3)
	}
}
