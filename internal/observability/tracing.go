// Package observability provides OpenTelemetry tracing, metrics and audit
// logging for Phoenix.
package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
)

// TracerName identifies spans emitted by Phoenix.
const TracerName = "github.com/efebarandurmaz/phoenix"

// TracingConfig configures span export. An empty OTLPEndpoint keeps the
// global no-op provider.
type TracingConfig struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	OTLPEndpoint   string  // host:port of an OTLP/gRPC collector
	SampleRate     float64 // 0 never, >= 1 always
}

// DefaultTracingConfig returns the configuration used for a nil config.
func DefaultTracingConfig() *TracingConfig {
	return &TracingConfig{
		ServiceName:    "phoenix",
		ServiceVersion: "0.1.0",
		Environment:    "development",
		SampleRate:     1.0,
	}
}

// TracerProvider owns the SDK provider when export is enabled.
type TracerProvider struct {
	provider *sdktrace.TracerProvider
	tracer   trace.Tracer
}

// InitTracing installs a global OTLP tracer provider and W3C propagators.
func InitTracing(ctx context.Context, cfg *TracingConfig) (*TracerProvider, error) {
	if cfg == nil {
		cfg = DefaultTracingConfig()
	}
	if cfg.OTLPEndpoint == "" {
		return &TracerProvider{tracer: otel.Tracer(TracerName)}, nil
	}

	exporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("create OTLP exporter: %w", err)
	}
	res, err := serviceResource(cfg)
	if err != nil {
		return nil, err
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(samplerFor(cfg.SampleRate))),
	)
	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	return &TracerProvider{provider: provider, tracer: provider.Tracer(TracerName)}, nil
}

func serviceResource(cfg *TracingConfig) (*resource.Resource, error) {
	name := cfg.ServiceName
	if name == "" {
		name = "phoenix"
	}
	res, err := resource.Merge(resource.Default(), resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(name),
		semconv.ServiceVersion(cfg.ServiceVersion),
		semconv.DeploymentEnvironment(cfg.Environment),
	))
	if err != nil {
		return nil, fmt.Errorf("create resource: %w", err)
	}
	return res, nil
}

func samplerFor(rate float64) sdktrace.Sampler {
	switch {
	case rate >= 1:
		return sdktrace.AlwaysSample()
	case rate <= 0:
		return sdktrace.NeverSample()
	default:
		return sdktrace.TraceIDRatioBased(rate)
	}
}

// Shutdown flushes pending spans.
func (tp *TracerProvider) Shutdown(ctx context.Context) error {
	if tp == nil || tp.provider == nil {
		return nil
	}
	return tp.provider.Shutdown(ctx)
}

func (tp *TracerProvider) Tracer() trace.Tracer { return tp.tracer }

// Span kinds, recorded as the phoenix.span.kind attribute.
const (
	SpanKindTransform = "transform"
	SpanKindAnalysis  = "analysis"
	SpanKindLLM       = "llm"
	SpanKindBatch     = "batch"
	SpanKindUpload    = "upload"
)

// startSpan starts a span on the current global provider.
func startSpan(ctx context.Context, name, kind string, sk trace.SpanKind, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append(attrs, attribute.String("phoenix.span.kind", kind))
	return otel.Tracer(TracerName).Start(ctx, name, trace.WithSpanKind(sk), trace.WithAttributes(attrs...))
}

// StartTransformSpan starts a span for a single dispatch resolution.
func StartTransformSpan(ctx context.Context, filename, target string) (context.Context, trace.Span) {
	return startSpan(ctx, "transform.resolve", SpanKindTransform, trace.SpanKindInternal,
		attribute.String("transform.filename", filename),
		attribute.String("transform.target", target),
	)
}

// RecordTransformResult records the dispatch outcome on a span.
func RecordTransformResult(span trace.Span, source, fixture, strategy string, fallbackFixture bool, reduction int) {
	span.SetAttributes(
		attribute.String("transform.source", source),
		attribute.String("transform.fixture", fixture),
		attribute.String("transform.strategy", strategy),
		attribute.Bool("transform.fallback_fixture", fallbackFixture),
		attribute.Int("transform.code_reduction", reduction),
	)
}

// StartAnalysisSpan starts a span for analysing one file.
func StartAnalysisSpan(ctx context.Context, filename, language string) (context.Context, trace.Span) {
	return startSpan(ctx, "analysis.analyze", SpanKindAnalysis, trace.SpanKindInternal,
		attribute.String("analysis.filename", filename),
		attribute.String("analysis.language", language),
	)
}

// RecordAnalysisMode records whether the record came from the model or a fixture.
func RecordAnalysisMode(span trace.Span, mode string) {
	span.SetAttributes(attribute.String("analysis.mode", mode))
}

// StartLLMSpan starts a span for an LLM call.
func StartLLMSpan(ctx context.Context, provider, model string) (context.Context, trace.Span) {
	return startSpan(ctx, "llm.complete", SpanKindLLM, trace.SpanKindClient,
		attribute.String("llm.provider", provider),
		attribute.String("llm.model", model),
	)
}

// RecordLLMMetrics records LLM call metrics on a span.
func RecordLLMMetrics(span trace.Span, inputTokens, outputTokens int, duration time.Duration) {
	span.SetAttributes(
		attribute.Int("llm.input_tokens", inputTokens),
		attribute.Int("llm.output_tokens", outputTokens),
		attribute.Int("llm.total_tokens", inputTokens+outputTokens),
		attribute.Int64("llm.duration_ms", duration.Milliseconds()),
	)
}

// StartBatchSpan starts a span for a batch transformation.
func StartBatchSpan(ctx context.Context, sessionID, target string, fileCount int) (context.Context, trace.Span) {
	return startSpan(ctx, "batch.transform", SpanKindBatch, trace.SpanKindInternal,
		attribute.String("batch.session_id", sessionID),
		attribute.String("batch.target", target),
		attribute.Int("batch.file_count", fileCount),
	)
}

// StartUploadSpan starts a span for storing an upload.
func StartUploadSpan(ctx context.Context, fileCount int) (context.Context, trace.Span) {
	return startSpan(ctx, "upload.store", SpanKindUpload, trace.SpanKindServer,
		attribute.Int("upload.file_count", fileCount),
	)
}

// RecordError records an error on a span.
func RecordError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}
