package observability

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLoggerReturnsLogger(t *testing.T) {
	logger := NewLogger("router")
	require.NotNil(t, logger)
}

func TestNewTracerStartRouterHopProducesASpan(t *testing.T) {
	tracer := NewTracer("test")
	ctx, span := tracer.StartRouterHop(context.Background(), "worker", 2, true)
	require.NotNil(t, ctx)
	require.NotNil(t, span)
	span.End()
}

func TestRecordErrorIsNilSafe(t *testing.T) {
	assert.NotPanics(t, func() {
		RecordError(nil, errors.New("boom"))
	})
	tracer := NewTracer("test")
	_, span := tracer.StartRouterHop(context.Background(), "worker", 0, false)
	assert.NotPanics(t, func() {
		RecordError(span, nil)
		RecordError(span, errors.New("boom"))
	})
	span.End()
}
