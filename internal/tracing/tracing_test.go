package tracing

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/joaquindlz/wp-bot/internal/models"
)

func TestForwardID(t *testing.T) {
	id := NewForwardID()
	_, err := uuid.Parse(id)
	require.NoError(t, err)
	assert.NotEqual(t, id, NewForwardID())

	ctx := WithForwardID(context.Background(), id)
	assert.Equal(t, id, ForwardID(ctx))
	assert.Empty(t, ForwardID(context.Background()))
}

func TestTracingManager_Disabled(t *testing.T) {
	logger, _ := logtest.NewNullLogger()
	tm := NewTracingManager(models.TracingConfig{Enabled: false}, "wpbot", "test", logger)

	require.NoError(t, tm.Initialize(context.Background()))
	assert.Nil(t, tm.tracerProvider)
	assert.NoError(t, tm.Shutdown(context.Background()))
}

func TestTracingManager_StdoutExporter(t *testing.T) {
	previous := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(previous) })

	logger, _ := logtest.NewNullLogger()
	var out bytes.Buffer
	tm := NewTracingManager(models.TracingConfig{
		Enabled:     true,
		UseStdout:   true,
		SampleRate:  1.0,
		Environment: "test",
	}, "wpbot", "test", logger).WithStdoutWriter(&out)

	require.NoError(t, tm.Initialize(context.Background()))
	require.NotNil(t, tm.tracerProvider)

	_, span := StartSpan(context.Background(), "forward")
	span.End()

	require.NoError(t, tm.Shutdown(context.Background()))
	assert.Contains(t, out.String(), "forward")
}

func TestSpanHelpers(t *testing.T) {
	previous := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(previous) })

	recorder := tracetest.NewSpanRecorder()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder)))

	ctx, span := StartSpan(context.Background(), "forward", attribute.String("outcome", "pending"))
	assert.NotEmpty(t, TraceID(ctx))
	RecordError(ctx, errors.New("connection refused"))
	span.End()

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "forward", spans[0].Name())
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Len(t, spans[0].Events(), 1)
}

func TestSpanHelpers_NoSpan(t *testing.T) {
	ctx := context.Background()

	assert.Empty(t, TraceID(ctx))
	RecordError(ctx, errors.New("ignored"))
	SetSpanStatus(ctx, codes.Ok, "")
}
