package log

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bufferLogger(buf *bytes.Buffer, component string) *Logger {
	return New(Config{
		Component: component,
		Handler:   slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}),
	})
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warning": slog.LevelWarn,
		" error ": slog.LevelError,
		"":        slog.LevelInfo,
		"loud":    slog.LevelInfo,
	}
	for in, want := range cases {
		assert.Equal(t, want, ParseLevel(in), in)
	}
}

func TestLoggerTagsComponent(t *testing.T) {
	var buf bytes.Buffer
	l := bufferLogger(&buf, ComponentWorker)
	l.Info("refreshed", FieldCount, 3)

	out := buf.String()
	assert.Contains(t, out, "component=worker")
	assert.Contains(t, out, "count=3")
	assert.Equal(t, ComponentWorker, l.Component())
	assert.Equal(t, ComponentAPI, l.WithComponent(ComponentAPI).Component())
}

func TestLogFields(t *testing.T) {
	f := NewFields().
		WithTransaction("expense", 12.5, "Food", "Cash").
		WithError(errors.New("boom")).
		WithError(nil).
		WithOperation(OpCreate)

	assert.Equal(t, "Food", f[FieldLabel])
	assert.Equal(t, "boom", f[FieldError])
	assert.Equal(t, OpCreate, f[FieldOperation])
	assert.Len(t, f.ToSlice(), len(f)*2)
}

func TestNewContextCarriesLogger(t *testing.T) {
	var buf bytes.Buffer
	base := bufferLogger(&buf, ComponentApp).With(FieldRequestID, "req-1")

	ctx := NewContext(context.Background(), base)
	got := FromContext(ctx)
	require.NotNil(t, got)
	got.Info("inside")

	assert.Equal(t, ComponentApp, got.Component())
	assert.Contains(t, buf.String(), "request_id=req-1")
}

func TestLogHTTPEndLevelFollowsStatus(t *testing.T) {
	cases := []struct {
		status int
		level  string
	}{
		{200, "level=INFO"},
		{404, "level=WARN"},
		{502, "level=ERROR"},
	}
	for _, tc := range cases {
		var buf bytes.Buffer
		sl := NewStructuredLogger(bufferLogger(&buf, ComponentTrace))
		sl.LogHTTPEnd(context.Background(), tc.status, 15*time.Millisecond, "10.0.0.1")

		out := buf.String()
		assert.Contains(t, out, tc.level, "status %d", tc.status)
		assert.Contains(t, out, fmt.Sprintf("status_code=%d", tc.status))
		assert.Contains(t, out, "duration_ms=15")
		assert.Contains(t, out, "client_ip=10.0.0.1")
		assert.Contains(t, out, fmt.Sprintf("success=%t", tc.status < 400))
	}
}

func TestLogHTTPStartIsDebug(t *testing.T) {
	var buf bytes.Buffer
	sl := NewStructuredLogger(bufferLogger(&buf, ComponentTrace))
	r := httptest.NewRequest(http.MethodGet, "/api/summary?month=1", nil)
	r.Header.Set("User-Agent", "curl/8")

	sl.LogHTTPStart(context.Background(), r, "10.0.0.1")

	out := buf.String()
	assert.Contains(t, out, "level=DEBUG")
	assert.Contains(t, out, `query="month=1"`)
	assert.Contains(t, out, "user_agent=curl/8")
}

func TestLogErrorAndTransactionCreated(t *testing.T) {
	var buf bytes.Buffer
	sl := NewStructuredLogger(bufferLogger(&buf, ComponentHTTP))

	sl.LogError(context.Background(), "Snapshot unavailable", errors.New("backend down"), OpFetch, nil)
	sl.LogTransactionCreated(context.Background(), "expense", 12.5, "Food", "Cash", "abc-123")

	out := buf.String()
	assert.Contains(t, out, "level=ERROR")
	assert.Contains(t, out, `error="backend down"`)
	assert.Contains(t, out, "operation=fetch")
	assert.Contains(t, out, "reference=abc-123")
	assert.Contains(t, out, "operation=create")
	assert.Equal(t, strings.Count(out, "\n"), strings.Count(out, "component=http"), "component once per line")
}

func TestFromContextFallsBack(t *testing.T) {
	l := FromContext(context.Background())
	require.NotNil(t, l)
	assert.Equal(t, "unknown", l.Component())
}
