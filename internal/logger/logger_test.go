package logger

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"nonsense", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := parseLevel(tt.in); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestWithRequestID(t *testing.T) {
	var buf bytes.Buffer
	ctx := WithLogger(context.Background(), slog.New(slog.NewJSONHandler(&buf, nil)))
	ctx = WithRequestID(ctx, "abc-123")

	if got := RequestID(ctx); got != "abc-123" {
		t.Errorf("RequestID() = %q, want %q", got, "abc-123")
	}

	FromContext(ctx).Info("hello")
	if !strings.Contains(buf.String(), `"request_id":"abc-123"`) {
		t.Errorf("log line %q missing request_id", buf.String())
	}
}

func TestFromContext_FallsBackToDefault(t *testing.T) {
	if FromContext(context.Background()) == nil {
		t.Error("FromContext() returned nil")
	}
}

func TestWithJob(t *testing.T) {
	var buf bytes.Buffer
	ctx := WithLogger(context.Background(), slog.New(slog.NewJSONHandler(&buf, nil)))
	ctx = WithJob(ctx, "job-1", "req-1")

	if got := RequestID(ctx); got != "req-1" {
		t.Errorf("RequestID() = %q, want %q", got, "req-1")
	}

	FromContext(ctx).Info("started")
	line := buf.String()
	for _, want := range []string{`"job_id":"job-1"`, `"request_id":"req-1"`} {
		if !strings.Contains(line, want) {
			t.Errorf("log line %q missing %s", line, want)
		}
	}
}

func TestForRequest(t *testing.T) {
	var buf bytes.Buffer
	base := WithLogger(context.Background(), slog.New(slog.NewJSONHandler(&buf, nil)))

	ForRequest(WithRequestID(base, "same"), "same").Info("tagged once")
	if n := strings.Count(buf.String(), `"request_id"`); n != 1 {
		t.Errorf("request_id appears %d times in %q, want 1", n, buf.String())
	}

	buf.Reset()
	ForRequest(base, "other").Info("tagged")
	if !strings.Contains(buf.String(), `"request_id":"other"`) {
		t.Errorf("log line %q missing request_id", buf.String())
	}
}
