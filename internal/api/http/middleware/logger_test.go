package middleware

import (
	"bytes"
	"context"
	"errors"
	"log"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func captureLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	log.SetOutput(&buf)
	t.Cleanup(func() { log.SetOutput(os.Stderr) })
	return &buf
}

func TestLoggerTagsRequestID(t *testing.T) {
	buf := captureLog(t)

	ctx := context.WithValue(context.Background(), requestIDKey{}, "rid-123")
	l := NewLogger(ctx)
	l.LogInfo("/api/v1/tasks", "created")
	l.LogWarn("/api/v1/tasks/:id", "write conflict")
	l.LogError("/api/v1/tasks/:id", errors.New("boom"))

	out := buf.String()
	assert.Contains(t, out, "[info] request_id=rid-123 operation=/api/v1/tasks message=created")
	assert.Contains(t, out, "[warn] request_id=rid-123 operation=/api/v1/tasks/:id message=write conflict")
	assert.Contains(t, out, "[error] request_id=rid-123 operation=/api/v1/tasks/:id error=boom")
}

func TestLoggerWithoutRequestID(t *testing.T) {
	buf := captureLog(t)

	NewLogger(context.Background()).LogInfo("startup", "ready")

	assert.Contains(t, buf.String(), "request_id=unknown")
}
