package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

type contextKey string

const (
	loggerKey    contextKey = "logger"
	requestIDKey contextKey = "request_id"
)

var defaultLogger *slog.Logger

// Init installs the process-wide JSON logger on stdout.
func Init(level string) {
	InitWithWriter(os.Stdout, level, "json")
}

// InitWithWriter installs a logger writing to w in either "json" or "text"
// format. The CLI uses text on stderr so stdout stays clean for --json.
func InitWithWriter(w io.Writer, level, format string) {
	opts := &slog.HandlerOptions{
		Level: parseLevel(level),
	}
	var handler slog.Handler
	if strings.EqualFold(format, "text") {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}
	defaultLogger = slog.New(handler)
	slog.SetDefault(defaultLogger)
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func Default() *slog.Logger {
	if defaultLogger == nil {
		Init("info")
	}
	return defaultLogger
}

func FromContext(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey).(*slog.Logger); ok {
		return l
	}
	return Default()
}

func WithLogger(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	l := FromContext(ctx).With("request_id", requestID)
	ctx = context.WithValue(ctx, requestIDKey, requestID)
	return WithLogger(ctx, l)
}

// WithJob tags the context logger with a queue job id and the request id
// the job carries.
func WithJob(ctx context.Context, jobID, requestID string) context.Context {
	ctx = WithRequestID(ctx, requestID)
	return WithLogger(ctx, FromContext(ctx).With("job_id", jobID))
}

// ForRequest returns the context logger tagged with requestID, unless the
// context already carries that id.
func ForRequest(ctx context.Context, requestID string) *slog.Logger {
	l := FromContext(ctx)
	if RequestID(ctx) == requestID {
		return l
	}
	return l.With("request_id", requestID)
}

func RequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}

func NewTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
