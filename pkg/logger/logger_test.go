package logger

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]zerolog.Level{
		"debug":   zerolog.DebugLevel,
		"warning": zerolog.WarnLevel,
		"error":   zerolog.ErrorLevel,
		"bogus":   zerolog.InfoLevel,
	}
	for in, want := range tests {
		if got := parseLevel(in); got != want {
			t.Errorf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestContextKeys(t *testing.T) {
	ctx := ContextWith(context.Background(), RequestIDKey, "req-1")
	ctx = ContextWith(ctx, RunIDKey, "run-1")

	if RequestID(ctx) != "req-1" {
		t.Errorf("RequestID = %q", RequestID(ctx))
	}
	if RequestID(context.Background()) != "" {
		t.Error("空上下文不应有请求ID")
	}
	if WithContext(ctx) == nil {
		t.Error("WithContext 不应返回 nil")
	}
}
