package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("WARN"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("info"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}

func TestNewLoggerJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(Config{Level: "info", Format: "json", Output: &buf})

	logger.Debug("hidden")
	logger.WithRequestID("req-1").Info("visible", "model", "Customer")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "visible", entry["msg"])
	assert.Equal(t, "req-1", entry["request_id"])
	assert.Equal(t, "Customer", entry["model"])
}

func TestNewLoggerText(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(Config{Level: "debug", Output: &buf})

	logger.Debug("planning", "plan", "[product]")
	assert.Contains(t, buf.String(), "msg=planning")
	assert.Contains(t, buf.String(), "plan=[product]")
}

func TestMultiHandlerWritesToAll(t *testing.T) {
	var first, second bytes.Buffer
	handler := newMultiHandler(
		slog.NewTextHandler(&first, &slog.HandlerOptions{Level: slog.LevelInfo}),
		slog.NewTextHandler(&second, &slog.HandlerOptions{Level: slog.LevelWarn}),
	)
	logger := slog.New(handler).With("component", "test")

	logger.Info("info message")
	logger.Warn("warn message")

	assert.Contains(t, first.String(), "info message")
	assert.Contains(t, first.String(), "warn message")
	assert.NotContains(t, second.String(), "info message")
	assert.Contains(t, second.String(), "component=test")
}

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	assert.NotNil(t, FromContext(ctx))
	_, ok := Lookup(ctx)
	assert.False(t, ok)
	assert.Equal(t, "", GetRequestID(ctx))

	logger := NewLogger(Config{Output: &bytes.Buffer{}})
	ctx = WithLogger(ctx, logger)
	ctx = WithRequestIDContext(ctx, "abc")

	assert.Same(t, logger, FromContext(ctx))
	found, ok := Lookup(ctx)
	assert.True(t, ok)
	assert.Same(t, logger, found)
	assert.Equal(t, "abc", GetRequestID(ctx))
}
