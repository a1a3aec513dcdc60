package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoggerFromContext_AddsRequestID(t *testing.T) {
	var buf bytes.Buffer
	prev := Logger()
	SetLogger(slog.New(slog.NewJSONHandler(&buf, nil)))
	t.Cleanup(func() { SetLogger(prev) })

	ctx := WithRequestID(context.Background(), "req-42")
	LoggerFromContext(ctx).Info("hello")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	require.Equal(t, "req-42", line["request_id"])
	require.Equal(t, "hello", line["msg"])
}

func TestLoggerFromContext_NoRequestID(t *testing.T) {
	require.Same(t, Logger(), LoggerFromContext(context.Background()))
	require.Empty(t, RequestID(context.Background()))
}

func TestSetLogger_IgnoresNil(t *testing.T) {
	prev := Logger()
	SetLogger(nil)
	require.Same(t, prev, Logger())
}
