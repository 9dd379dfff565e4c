package logger

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
)

// Logger emits structured JSON log records with the service name,
// hostname, action and request id attached to every entry.
type Logger struct {
	service  string
	hostname string
	handler  *slog.Logger
}

// New creates a logger for the given service name.
func New(service string) *Logger {
	hostname, _ := os.Hostname()

	handler := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	return &Logger{
		service:  service,
		hostname: hostname,
		handler:  handler,
	}
}

// GenerateRequestID returns an id correlating all log entries of one
// operation.
func GenerateRequestID() string {
	return uuid.New().String()
}

// Info logs an informational message.
func (l *Logger) Info(action, message, requestID string, fields map[string]interface{}) {
	l.log(slog.LevelInfo, action, message, requestID, fields)
}

// Debug logs a debug message.
func (l *Logger) Debug(action, message, requestID string, fields map[string]interface{}) {
	l.log(slog.LevelDebug, action, message, requestID, fields)
}

// Error logs an error with its message attached.
func (l *Logger) Error(action, message, requestID string, err error, fields map[string]interface{}) {
	if fields == nil {
		fields = make(map[string]interface{}, 1)
	}
	if err != nil {
		fields["error"] = err.Error()
	}
	l.log(slog.LevelError, action, message, requestID, fields)
}

func (l *Logger) log(level slog.Level, action, message, requestID string, fields map[string]interface{}) {
	attrs := []slog.Attr{
		slog.String("timestamp", time.Now().UTC().Format(time.RFC3339)),
		slog.String("service", l.service),
		slog.String("hostname", l.hostname),
		slog.String("action", action),
		slog.String("request_id", requestID),
	}
	for k, v := range fields {
		attrs = append(attrs, slog.Any(k, v))
	}
	l.handler.LogAttrs(context.TODO(), level, message, attrs...)
}
