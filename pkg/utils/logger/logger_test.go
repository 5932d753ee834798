package logger

import (
	"context"
	"path/filepath"
	"testing"

	"stackit/pkg/utils/contextkey"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestContextFieldsAreAttached(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	prev := globalLogger
	SetGlobal(NewWithZap(zap.New(core)))
	t.Cleanup(func() { SetGlobal(prev) })

	ctx := context.WithValue(context.Background(), contextkey.TraceID, "trace-1")
	ctx = context.WithValue(ctx, contextkey.UserID, "user_1")
	Info(ctx, "question approved", zap.String("question_id", "q_1"))
	Debug(context.Background(), "quiet")

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("got %d entries", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["trace_id"] != "trace-1" || fields["user_id"] != "user_1" || fields["question_id"] != "q_1" {
		t.Fatalf("unexpected fields %v", fields)
	}
	if _, ok := entries[1].ContextMap()["trace_id"]; ok {
		t.Fatalf("empty context produced a trace id")
	}
}

func TestNilGlobalIsSilent(t *testing.T) {
	prev := globalLogger
	SetGlobal(nil)
	t.Cleanup(func() { SetGlobal(prev) })

	Warn(context.Background(), "dropped")
	Error(context.Background(), "dropped")
	if err := Sync(); err != nil {
		t.Fatalf("sync: %v", err)
	}
}

func TestNewLogger(t *testing.T) {
	if _, err := NewLogger(Config{Level: "loud"}); err == nil {
		t.Fatalf("expected invalid level error")
	}
	l, err := NewLogger(Config{Level: "debug", Format: "json", OutputPath: filepath.Join(t.TempDir(), "forum.log"), Service: "forum"})
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	if l.WithContext(context.Background()) == nil {
		t.Fatalf("expected a logger")
	}
}
