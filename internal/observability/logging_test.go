package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger_AddsContextValues(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "production")

	ctx := context.WithValue(context.Background(), RequestIDKey, "req-1")
	ctx = WithUserID(ctx, "user-1")
	ctx = context.WithValue(ctx, TraceIDKey, "trace-1")

	logger.With("component", "test").InfoContext(ctx, "hello")

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "hello", record["msg"])
	assert.Equal(t, "req-1", record["request_id"])
	assert.Equal(t, "user-1", record["user_id"])
	assert.Equal(t, "trace-1", record["trace_id"])
	assert.Equal(t, "test", record["component"])
}

func TestNewLogger_TextOutsideProduction(t *testing.T) {
	var buf bytes.Buffer
	NewLogger(&buf, "development").Info("plain")
	assert.Contains(t, buf.String(), "msg=plain")
}

func TestInitTracing_Disabled(t *testing.T) {
	shutdown, err := InitTracing(TracingConfig{ServiceName: "gabble-test"})
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))

	span, ctx := NewSpan(context.Background(), "noop")
	assert.NotNil(t, ctx)
	span.End(nil)
}
