package middleware

import (
	"context"
	"log"
)

// Logger tags every line with the request ID seeded by
// RequestIDMiddleware, so all lines for one request grep together.
type Logger struct {
	requestID string
}

// NewLogger creates a logger bound to the request in ctx
func NewLogger(ctx context.Context) *Logger {
	rid := GetRequestID(ctx)
	if rid == "" {
		rid = "unknown"
	}
	return &Logger{requestID: rid}
}

// LogInfo logs an info message with request context
func (l *Logger) LogInfo(operation string, message string) {
	log.Printf("[info] request_id=%s operation=%s message=%s", l.requestID, operation, message)
}

// LogWarn logs a warning with request context
func (l *Logger) LogWarn(operation string, message string) {
	log.Printf("[warn] request_id=%s operation=%s message=%s", l.requestID, operation, message)
}

// LogError logs an error with request context
func (l *Logger) LogError(operation string, err error) {
	log.Printf("[error] request_id=%s operation=%s error=%v", l.requestID, operation, err)
}

// LogErrorf logs a formatted error with request context
func (l *Logger) LogErrorf(operation string, format string, args ...any) {
	log.Printf("[error] request_id=%s operation=%s "+format, append([]any{l.requestID, operation}, args...)...)
}
