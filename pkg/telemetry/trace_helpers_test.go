package telemetry

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func withRecordedSpans(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	previous := otel.GetTracerProvider()
	otel.SetTracerProvider(provider)
	t.Cleanup(func() { otel.SetTracerProvider(previous) })
	return recorder
}

func TestSetAttributes(t *testing.T) {
	recorder := withRecordedSpans(t)

	err := WithSpan(context.Background(), "test.operation", func(ctx context.Context) error {
		SetAttributes(ctx,
			attribute.String("outcome", "completed"),
			attribute.Int("steps", 3),
		)
		return nil
	})
	require.NoError(t, err)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Contains(t, spans[0].Attributes(), attribute.String("outcome", "completed"))
	assert.Contains(t, spans[0].Attributes(), attribute.Int("steps", 3))
}

func TestSetAttributesWithoutSpan(t *testing.T) {
	// No span in context: must be a silent no-op.
	SetAttributes(context.Background(), attribute.String("k", "v"))
}

func TestWithSpanPropagatesError(t *testing.T) {
	recorder := withRecordedSpans(t)

	wantErr := errors.New("boom")
	err := WithSpan(context.Background(), "test.failing", func(ctx context.Context) error {
		return wantErr
	})
	assert.Equal(t, wantErr, err)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
}
