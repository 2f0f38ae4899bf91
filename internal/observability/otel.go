package observability

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

type Config struct {
	Enabled     bool
	Exporter    string // "otlp" or "stdout"
	ServiceName string
	InstanceID  string
}

// InitTracing installs a global tracer provider. When tracing is disabled the
// otel no-op provider stays in place and the returned shutdown does nothing.
// Exporter failures are logged and tracing continues without export.
func InitTracing(ctx context.Context, cfg Config) func(context.Context) error {
	if !cfg.Enabled {
		return func(context.Context) error { return nil }
	}

	res := resource.NewSchemaless(
		attribute.String("service.name", cfg.ServiceName),
		attribute.String("service.instance.id", cfg.InstanceID),
	)
	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.AlwaysSample())),
		sdktrace.WithResource(res),
	}
	exp, err := buildExporter(ctx, cfg.Exporter)
	if err != nil {
		log.Warn().Err(err).Str("exporter", cfg.Exporter).Msg("otel exporter init failed (continuing)")
	} else {
		opts = append(opts, sdktrace.WithBatcher(exp, sdktrace.WithBatchTimeout(5*time.Second)))
	}

	tp := sdktrace.NewTracerProvider(opts...)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	log.Info().Str("exporter", cfg.Exporter).Msg("otel tracing initialized")
	return tp.Shutdown
}

// buildExporter uses the standard OTEL_EXPORTER_OTLP_* variables for otlp.
func buildExporter(ctx context.Context, kind string) (sdktrace.SpanExporter, error) {
	if kind == "otlp" {
		return otlptracehttp.New(ctx)
	}
	return stdouttrace.New(stdouttrace.WithPrettyPrint())
}
