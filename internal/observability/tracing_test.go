package observability

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestDefaultTracingConfig(t *testing.T) {
	cfg := DefaultTracingConfig()
	if cfg == nil {
		t.Fatal("expected non-nil config")
	}
	if cfg.ServiceName != "phoenix" {
		t.Fatalf("expected service name 'phoenix', got %s", cfg.ServiceName)
	}
	if cfg.SampleRate != 1.0 {
		t.Fatalf("expected sample rate 1.0, got %f", cfg.SampleRate)
	}
}

func TestInitTracing_NoEndpoint(t *testing.T) {
	ctx := context.Background()
	tp, err := InitTracing(ctx, &TracingConfig{
		ServiceName: "test",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tp == nil || tp.Tracer() == nil {
		t.Fatal("expected non-nil tracer provider")
	}
	if err := tp.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown error: %v", err)
	}
}

func TestInitTracing_NilConfig(t *testing.T) {
	tp, err := InitTracing(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tp == nil {
		t.Fatal("expected non-nil tracer provider")
	}
}

// recordSpans installs an in-memory span recorder for the duration of a test.
func recordSpans(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	rec := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	otel.SetTracerProvider(provider)
	t.Cleanup(func() {
		_ = provider.Shutdown(context.Background())
	})
	return rec
}

func attrValue(attrs []attribute.KeyValue, key string) (attribute.Value, bool) {
	for _, kv := range attrs {
		if string(kv.Key) == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestTransformSpan_Attributes(t *testing.T) {
	rec := recordSpans(t)

	_, span := StartTransformSpan(context.Background(), "legacy.cbl", "Go")
	RecordTransformResult(span, "COBOL", "cobol", "renderer", false, -42)
	span.End()

	ended := rec.Ended()
	if len(ended) != 1 {
		t.Fatalf("expected 1 span, got %d", len(ended))
	}
	s := ended[0]
	if s.Name() != "transform.resolve" {
		t.Errorf("span name = %s", s.Name())
	}
	if v, ok := attrValue(s.Attributes(), "transform.strategy"); !ok || v.AsString() != "renderer" {
		t.Errorf("strategy attribute = %v", v)
	}
	if v, ok := attrValue(s.Attributes(), "transform.code_reduction"); !ok || v.AsInt64() != -42 {
		t.Errorf("reduction attribute = %v", v)
	}
}

func TestNestedSpans(t *testing.T) {
	rec := recordSpans(t)

	ctx, batch := StartBatchSpan(context.Background(), "sess", "React", 2)
	ctx, analysis := StartAnalysisSpan(ctx, "calc.vb", "Visual Basic 6")
	_, llm := StartLLMSpan(ctx, "openai", "gpt-4-turbo-preview")
	RecordLLMMetrics(llm, 50, 100, 200*time.Millisecond)
	llm.End()
	RecordAnalysisMode(analysis, "ai")
	analysis.End()
	batch.End()

	ended := rec.Ended()
	if len(ended) != 3 {
		t.Fatalf("expected 3 spans, got %d", len(ended))
	}
	llmSpan, batchSpan := ended[0], ended[2]
	if llmSpan.Parent().TraceID() != batchSpan.SpanContext().TraceID() {
		t.Error("nested spans should share a trace")
	}
}

func TestRecordError(t *testing.T) {
	rec := recordSpans(t)

	_, span := StartUploadSpan(context.Background(), 1)
	RecordError(span, nil)
	RecordError(span, errors.New("test error"))
	span.End()

	s := rec.Ended()[0]
	if s.Status().Code != codes.Error {
		t.Errorf("status = %v, want error", s.Status().Code)
	}
}

func TestTracerProvider_ShutdownWithoutExport(t *testing.T) {
	var nilTP *TracerProvider
	for _, tp := range []*TracerProvider{{}, nilTP} {
		if err := tp.Shutdown(context.Background()); err != nil {
			t.Fatalf("Shutdown: %v", err)
		}
	}
}

func TestSamplerFor(t *testing.T) {
	tests := []struct {
		rate float64
		want string
	}{
		{1, "AlwaysOnSampler"},
		{2, "AlwaysOnSampler"},
		{0, "AlwaysOffSampler"},
		{-1, "AlwaysOffSampler"},
		{0.25, "TraceIDRatioBased{0.25}"},
	}
	for _, tt := range tests {
		if got := samplerFor(tt.rate).Description(); got != tt.want {
			t.Errorf("samplerFor(%v) = %q, want %q", tt.rate, got, tt.want)
		}
	}
}

func TestSpanKindAttribute(t *testing.T) {
	rec := recordSpans(t)

	_, span := StartUploadSpan(context.Background(), 3)
	span.End()

	s := rec.Ended()[0]
	if v, ok := attrValue(s.Attributes(), "phoenix.span.kind"); !ok || v.AsString() != SpanKindUpload {
		t.Errorf("span kind attribute = %v", v)
	}
	if v, ok := attrValue(s.Attributes(), "upload.file_count"); !ok || v.AsInt64() != 3 {
		t.Errorf("file count attribute = %v", v)
	}
}
