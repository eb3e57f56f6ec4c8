package telemetry

import (
	"errors"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestInfoWritesFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	prev := Logger()
	SetLogger(zap.New(core))
	t.Cleanup(func() { SetLogger(prev) })

	Info("analysis.status", map[string]any{
		"analysis_id":       "a-1",
		"status_transition": "pending->processing",
	})
	Error("analysis.failed", map[string]any{"error": errors.New("boom")})

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["analysis_id"] != "a-1" {
		t.Fatalf("unexpected analysis_id: %v", fields["analysis_id"])
	}
	if fields["status_transition"] != "pending->processing" {
		t.Fatalf("unexpected status_transition: %v", fields["status_transition"])
	}
	if entries[1].Level != zapcore.ErrorLevel {
		t.Fatalf("expected error level, got %s", entries[1].Level)
	}
	if got := entries[1].ContextMap()["error"]; got != "boom" {
		t.Fatalf("unexpected error field: %v", got)
	}
}

func TestSetLoggerNilInstallsNop(t *testing.T) {
	prev := Logger()
	t.Cleanup(func() { SetLogger(prev) })

	SetLogger(nil)
	if Logger() == nil {
		t.Fatalf("expected non-nil logger")
	}
	Info("ignored", nil)
}
