package instrumentation

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestSpanAttributeBuilder(t *testing.T) {
	attrs := NewSpanAttributeBuilder().
		WithBookID(42).
		WithUser("jane@example.com").
		Build()

	if len(attrs) != 2 {
		t.Fatalf("expected 2 attributes, got %d", len(attrs))
	}

	attrMap := make(map[string]interface{})
	for _, attr := range attrs {
		attrMap[string(attr.Key)] = attr.Value.AsInterface()
	}

	if attrMap[SpanAttrBookID] != "42" {
		t.Errorf("expected book id '42', got %v", attrMap[SpanAttrBookID])
	}
	if attrMap[SpanAttrUserDomain] != "example.com" {
		t.Errorf("expected user domain 'example.com', got %v", attrMap[SpanAttrUserDomain])
	}
}

func TestSpanAttributeBuilder_EmptyValues(t *testing.T) {
	attrs := NewSpanAttributeBuilder().
		WithBookID(0).
		WithUser("").
		Build()

	if len(attrs) != 0 {
		t.Errorf("expected no attributes for empty values, got %d", len(attrs))
	}
}

// recordSpans installs an in-memory span recorder as the global tracer
// provider for the duration of the test.
func recordSpans(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		_ = tp.Shutdown(context.Background())
	})
	return recorder
}

func TestStartSpan(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	recorder := recordSpans(t)

	spanCtx, span := StartSpan(ctx, "test-span")
	if GetTraceID(spanCtx) == "" {
		t.Error("expected a trace id inside the span context")
	}
	if GetSpanID(spanCtx) == "" {
		t.Error("expected a span id inside the span context")
	}
	span.End()

	ended := recorder.Ended()
	if len(ended) != 1 || ended[0].Name() != "test-span" {
		t.Fatalf("expected one ended span named test-span, got %d", len(ended))
	}
}

func TestStartStorageSpan(t *testing.T) {
	recorder := recordSpans(t)

	_, span := StartStorageSpan(context.Background(), TableBooks, OperationGet,
		NewSpanAttributeBuilder().WithBookID(7).Build()...)
	span.End()

	ended := recorder.Ended()
	if len(ended) != 1 {
		t.Fatalf("expected 1 span, got %d", len(ended))
	}
	if ended[0].Name() != "storage.books.get" {
		t.Errorf("unexpected span name %q", ended[0].Name())
	}

	attrMap := make(map[string]interface{})
	for _, attr := range ended[0].Attributes() {
		attrMap[string(attr.Key)] = attr.Value.AsInterface()
	}
	if attrMap[SpanAttrTable] != TableBooks {
		t.Errorf("expected table attribute 'books', got %v", attrMap[SpanAttrTable])
	}
	if attrMap[SpanAttrBookID] != "7" {
		t.Errorf("expected book id attribute '7', got %v", attrMap[SpanAttrBookID])
	}
}

func TestStartOAuthSpan(t *testing.T) {
	recorder := recordSpans(t)

	_, span := StartOAuthSpan(context.Background(), OAuthStepExchange)
	SetSpanError(span, errors.New("invalid_grant"))
	span.End()

	ended := recorder.Ended()
	if len(ended) != 1 {
		t.Fatalf("expected 1 span, got %d", len(ended))
	}
	if ended[0].Name() != "oauth.exchange" {
		t.Errorf("unexpected span name %q", ended[0].Name())
	}
	if ended[0].Status().Description != "invalid_grant" {
		t.Errorf("expected error status, got %+v", ended[0].Status())
	}
}

func TestSetSpanError_Nil(t *testing.T) {
	recorder := recordSpans(t)

	_, span := StartSpan(context.Background(), "test-span")
	SetSpanError(span, nil) // nil error should be safe
	SetSpanSuccess(span)
	span.End()

	if got := len(recorder.Ended()[0].Events()); got != 0 {
		t.Errorf("expected no error events, got %d", got)
	}
}

func TestGetTraceID_NoSpan(t *testing.T) {
	ctx := context.Background()
	if traceID := GetTraceID(ctx); traceID != "" {
		t.Errorf("expected empty trace ID for context without span, got %q", traceID)
	}
	if spanID := GetSpanID(ctx); spanID != "" {
		t.Errorf("expected empty span ID for context without span, got %q", spanID)
	}
}
