package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestFromContext(t *testing.T) {
	assert.NotNil(t, FromContext(context.Background()))

	log := zap.NewExample()
	assert.Same(t, log, FromContext(WithContext(context.Background(), log)))
}

func TestCorrelationIDs(t *testing.T) {
	core, recorded := observer.New(zapcore.InfoLevel)
	base := zap.New(core)

	ctx := context.Background()
	ctx, _ = WithRequestID(ctx, base, "req-1")
	ctx, _ = WithBatchID(ctx, FromContext(ctx), "batch-1")
	ctx, enriched := WithSourceID(ctx, FromContext(ctx), "gid://shopify/Product/9")

	assert.Equal(t, "req-1", getString(ctx, RequestIDKey))
	assert.Equal(t, "batch-1", getString(ctx, BatchIDKey))
	assert.Equal(t, "gid://shopify/Product/9", getString(ctx, SourceIDKey))
	assert.Same(t, enriched, FromContext(ctx))

	FromContext(ctx).Info("item processed")

	logs := recorded.All()
	require.Len(t, logs, 1)
	fields := logs[0].ContextMap()
	assert.Equal(t, "req-1", fields["request_id"])
	assert.Equal(t, "batch-1", fields["batch_id"])
	assert.Equal(t, "gid://shopify/Product/9", fields["source_id"])
}

func TestCorrelated(t *testing.T) {
	core, recorded := observer.New(zapcore.DebugLevel)
	ctx := context.WithValue(context.Background(), BatchIDKey, "batch-2")
	ctx = context.WithValue(ctx, SourceIDKey, "p7")

	Correlated(ctx, zap.New(core)).Debug("page fetched", zap.Int("page", 3))

	logs := recorded.All()
	require.Len(t, logs, 1)
	fields := logs[0].ContextMap()
	assert.Equal(t, "batch-2", fields["batch_id"])
	assert.Equal(t, "p7", fields["source_id"])
	assert.EqualValues(t, 3, fields["page"])
	assert.NotContains(t, fields, "request_id")

	t.Run("nothing on the context", func(t *testing.T) {
		plain := zap.NewNop()
		assert.Same(t, plain, Correlated(context.Background(), plain))
		assert.NotNil(t, Correlated(context.Background(), nil))
	})
}

func TestTraceContext(t *testing.T) {
	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	spanCtx := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	})
	ctx := trace.ContextWithSpanContext(context.Background(), spanCtx)

	core, recorded := observer.New(zapcore.InfoLevel)
	WithTraceContext(ctx, zap.New(core)).Info("traced")
	fields := recorded.All()[0].ContextMap()
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", fields["trace_id"])
	assert.Equal(t, "00f067aa0ba902b7", fields["span_id"])

	plain := zap.NewNop()
	assert.Same(t, plain, WithTraceContext(context.Background(), plain))
}
