package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"graphql-preload/internal/logging"
)

func newTestLogger(buf *bytes.Buffer) *logging.Logger {
	return logging.NewLogger(logging.Config{Level: "debug", Format: "json", Output: buf})
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var lines []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		lines = append(lines, entry)
	}
	return lines
}

func TestLoggingMiddleware_PropagatesRequestID(t *testing.T) {
	var buf bytes.Buffer
	var seenID string
	var seenLogger bool

	handler := LoggingMiddleware(newTestLogger(&buf))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenID = logging.GetRequestID(r.Context())
		_, seenLogger = logging.Lookup(r.Context())
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte("missing"))
	}))

	req := httptest.NewRequest(http.MethodPost, "/graphql", nil)
	req.Header.Set(RequestIDHeader, "req-123")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, "req-123", seenID)
	assert.True(t, seenLogger)
	assert.Equal(t, "req-123", rec.Header().Get(RequestIDHeader))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 2)
	assert.Equal(t, "request started", lines[0]["msg"])
	completed := lines[1]
	assert.Equal(t, "request completed", completed["msg"])
	assert.Equal(t, "WARN", completed["level"])
	assert.Equal(t, "req-123", completed["request_id"])
	assert.Equal(t, float64(404), completed["status"])
	assert.Equal(t, float64(len("missing")), completed["bytes"])
}

func TestLoggingMiddleware_GeneratesRequestID(t *testing.T) {
	var buf bytes.Buffer
	handler := LoggingMiddleware(newTestLogger(&buf))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))

	tests := []struct {
		name   string
		header string
	}{
		{name: "missing", header: ""},
		{name: "too long", header: strings.Repeat("a", maxRequestIDLength+1)},
		{name: "control characters", header: "bad\x01id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/graphql", nil)
			if tt.header != "" {
				req.Header.Set(RequestIDHeader, tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			_, err := uuid.Parse(rec.Header().Get(RequestIDHeader))
			assert.NoError(t, err)
			assert.Equal(t, http.StatusOK, rec.Code)
		})
	}
}

func TestLoggingMiddleware_ServerErrorLevel(t *testing.T) {
	var buf bytes.Buffer
	handler := LoggingMiddleware(newTestLogger(&buf))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/graphql", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	lines := decodeLines(t, &buf)
	require.NotEmpty(t, lines)
	assert.Equal(t, "ERROR", lines[len(lines)-1]["level"])
}
