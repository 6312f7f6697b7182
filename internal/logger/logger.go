package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

var (
	mu            sync.RWMutex
	defaultLogger *slog.Logger
)

// Initialize sets up the global logger writing to stdout
func Initialize(level, format string) {
	InitializeWriter(os.Stdout, level, format)
}

// InitializeWriter sets up the global logger writing to w. format is "json"
// or "text"; unknown levels fall back to info.
func InitializeWriter(w io.Writer, level, format string) {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}

	var handler slog.Handler
	if strings.ToLower(format) == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	l := slog.New(handler)
	mu.Lock()
	defaultLogger = l
	mu.Unlock()
	slog.SetDefault(l)
}

func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// Get returns the global logger, initializing it with info/text on first use
func Get() *slog.Logger {
	mu.RLock()
	l := defaultLogger
	mu.RUnlock()
	if l == nil {
		Initialize("info", "text")
		mu.RLock()
		l = defaultLogger
		mu.RUnlock()
	}
	return l
}

func Debug(msg string, args ...any) {
	Get().Debug(msg, args...)
}

func Info(msg string, args ...any) {
	Get().Info(msg, args...)
}

func Warn(msg string, args ...any) {
	Get().Warn(msg, args...)
}

func Error(msg string, args ...any) {
	Get().Error(msg, args...)
}

func InfoContext(ctx context.Context, msg string, args ...any) {
	Get().InfoContext(ctx, msg, args...)
}

func ErrorContext(ctx context.Context, msg string, args ...any) {
	Get().ErrorContext(ctx, msg, args...)
}

// WithService returns a logger tagged with a component name
func WithService(serviceName string) *slog.Logger {
	return Get().With("service", serviceName)
}

// WithJob returns a logger tagged with a reconciler job name
func WithJob(jobName string) *slog.Logger {
	return Get().With("job", jobName)
}

// EnterMethod logs method entry at debug
func EnterMethod(methodName string, args ...any) {
	Get().Debug("→ Method entered", withPrefix(args, "method", methodName, "event", "enter")...)
}

// ExitMethod logs method exit at debug
func ExitMethod(methodName string, args ...any) {
	Get().Debug("← Method exited", withPrefix(args, "method", methodName, "event", "exit")...)
}

func ExitMethodWithError(methodName string, err error, args ...any) {
	Get().Error("← Method exited with error", withPrefix(args, "method", methodName, "event", "exit", "error", err)...)
}

func DatabaseCall(operation, query string, args ...any) {
	Get().Debug("→ Database call", withPrefix(args, "operation", operation, "query", query)...)
}

func DatabaseResult(operation string, rowsAffected int64, err error, args ...any) {
	all := withPrefix(args, "operation", operation, "rows_affected", rowsAffected)
	if err != nil {
		Get().Error("← Database call failed", append(all, "error", err)...)
		return
	}
	Get().Debug("← Database call succeeded", all...)
}

func ExternalServiceCall(service, operation string, args ...any) {
	Get().Debug("→ External service call", withPrefix(args, "service", service, "operation", operation)...)
}

func ExternalServiceResult(service, operation string, err error, args ...any) {
	all := withPrefix(args, "service", service, "operation", operation)
	if err != nil {
		Get().Error("← External service call failed", append(all, "error", err)...)
		return
	}
	Get().Debug("← External service call succeeded", all...)
}

func withPrefix(args []any, prefix ...any) []any {
	return append(prefix, args...)
}
