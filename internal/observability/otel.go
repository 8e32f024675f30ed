package observability

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.27.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/Joshykins/stupid-neko-sub001/internal/platform/envutil"
	"github.com/Joshykins/stupid-neko-sub001/internal/platform/logger"
)

const (
	ExporterOTLP   = "otlp"
	ExporterStdout = "stdout"
	ExporterNone   = "none"
)

type OtelConfig struct {
	ServiceName string
	Environment string
	Version     string

	Enabled     bool
	Exporter    string
	Endpoint    string
	Headers     map[string]string
	Insecure    bool
	SampleRatio float64
}

// LoadOtelConfig reads the OTEL_* environment. The exporter defaults to OTLP
// when an endpoint is set and to stdout otherwise.
func LoadOtelConfig(serviceName, environment, version string) OtelConfig {
	cfg := OtelConfig{
		ServiceName: serviceName,
		Environment: environment,
		Version:     version,
		Enabled:     envutil.Bool("OTEL_ENABLED", false),
		Exporter:    strings.ToLower(envutil.String("OTEL_TRACES_EXPORTER", "")),
		Endpoint:    envutil.String("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		Headers:     envutil.Map("OTEL_EXPORTER_OTLP_HEADERS"),
		Insecure:    envutil.Bool("OTEL_EXPORTER_OTLP_INSECURE", false),
		SampleRatio: envutil.Float("OTEL_SAMPLER_RATIO", 0.1),
	}
	if cfg.Exporter == "" {
		cfg.Exporter = ExporterStdout
		if cfg.Endpoint != "" {
			cfg.Exporter = ExporterOTLP
		}
	}
	if cfg.SampleRatio < 0 {
		cfg.SampleRatio = 0
	} else if cfg.SampleRatio > 1 {
		cfg.SampleRatio = 1
	}
	if strings.TrimSpace(cfg.ServiceName) == "" {
		cfg.ServiceName = "stupid-neko-progression"
	}
	return cfg
}

// InitOTel installs the global tracer provider and propagator. It returns the
// provider's shutdown, or a no-op when tracing is disabled. Exporter failures
// are logged and tracing continues without export.
func InitOTel(ctx context.Context, log *logger.Logger, cfg OtelConfig) func(context.Context) error {
	noop := func(context.Context) error { return nil }
	if !cfg.Enabled {
		return noop
	}
	if log == nil {
		log = logger.Nop()
	}

	res, err := resource.New(ctx, resource.WithAttributes(
		semconv.ServiceNameKey.String(cfg.ServiceName),
		semconv.ServiceVersionKey.String(cfg.Version),
		attribute.String("deployment.environment", cfg.Environment),
	))
	if err != nil {
		log.Warn("otel resource init failed (continuing)", "error", err)
	}

	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SampleRatio))),
		sdktrace.WithResource(res),
	}
	exporter, err := buildTraceExporter(ctx, cfg)
	if err != nil {
		log.Warn("otel exporter init failed (continuing)", "exporter", cfg.Exporter, "error", err)
	}
	if exporter != nil {
		opts = append(opts, sdktrace.WithBatcher(exporter, sdktrace.WithBatchTimeout(5*time.Second)))
	}

	tp := sdktrace.NewTracerProvider(opts...)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	log.Info("otel tracing initialized", "service", cfg.ServiceName, "exporter", cfg.Exporter, "sample_ratio", cfg.SampleRatio)
	return tp.Shutdown
}

func buildTraceExporter(ctx context.Context, cfg OtelConfig) (sdktrace.SpanExporter, error) {
	switch cfg.Exporter {
	case ExporterNone:
		return nil, nil
	case ExporterOTLP:
		var opts []otlptracehttp.Option
		if cfg.Endpoint != "" {
			opts = append(opts, otlptracehttp.WithEndpoint(cfg.Endpoint))
		}
		if cfg.Insecure {
			opts = append(opts, otlptracehttp.WithInsecure())
		}
		if len(cfg.Headers) > 0 {
			opts = append(opts, otlptracehttp.WithHeaders(cfg.Headers))
		}
		return otlptracehttp.New(ctx, opts...)
	default:
		return stdouttrace.New(stdouttrace.WithPrettyPrint())
	}
}

const tracerName = "github.com/Joshykins/stupid-neko-sub001/progression"

// StartSpan opens a span on the global provider. When tracing is disabled the
// provider is the otel no-op and this costs nothing.
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, name, trace.WithAttributes(attrs...))
}

// EndSpan records err on the span (if any) and ends it.
func EndSpan(span trace.Span, err error) {
	if span == nil {
		return
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
