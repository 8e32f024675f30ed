package observability

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
)

func TestLoadOtelConfigDefaults(t *testing.T) {
	t.Setenv("OTEL_ENABLED", "")
	t.Setenv("OTEL_TRACES_EXPORTER", "")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	t.Setenv("OTEL_SAMPLER_RATIO", "")

	cfg := LoadOtelConfig("", "dev", "v1")
	assert.False(t, cfg.Enabled)
	assert.Equal(t, ExporterStdout, cfg.Exporter)
	assert.Equal(t, 0.1, cfg.SampleRatio)
	assert.Equal(t, "stupid-neko-progression", cfg.ServiceName)
}

func TestLoadOtelConfigOTLP(t *testing.T) {
	t.Setenv("OTEL_ENABLED", "true")
	t.Setenv("OTEL_TRACES_EXPORTER", "")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "collector:4318")
	t.Setenv("OTEL_EXPORTER_OTLP_HEADERS", "x-api-key=abc")
	t.Setenv("OTEL_SAMPLER_RATIO", "7")

	cfg := LoadOtelConfig("svc", "prod", "v2")
	assert.True(t, cfg.Enabled)
	assert.Equal(t, ExporterOTLP, cfg.Exporter)
	assert.Equal(t, map[string]string{"x-api-key": "abc"}, cfg.Headers)
	assert.Equal(t, 1.0, cfg.SampleRatio)
}

func TestInitOTelDisabledIsNoop(t *testing.T) {
	shutdown := InitOTel(context.Background(), nil, OtelConfig{})
	require.NotNil(t, shutdown)
	assert.NoError(t, shutdown(context.Background()))
}

func TestInitOTelRecordsSpans(t *testing.T) {
	prev := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	shutdown := InitOTel(context.Background(), nil, OtelConfig{
		ServiceName: "test",
		Enabled:     true,
		Exporter:    ExporterNone,
		SampleRatio: 1,
	})
	ctx, span := StartSpan(context.Background(), "ledger.tx")
	assert.True(t, span.SpanContext().HasTraceID())
	assert.True(t, span.IsRecording())
	EndSpan(span, errors.New("rolled back"))
	assert.NotNil(t, ctx)
	assert.NoError(t, shutdown(context.Background()))
}
