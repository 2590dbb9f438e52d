package instrumentation

import (
	"context"
	"strconv"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the default tracer name for the bookshelf packages.
const TracerName = "github.com/teemow/bookshelf"

// Span attribute keys for operations.
const (
	// SpanAttrDBSystem is the database engine attribute.
	SpanAttrDBSystem = "db.system"

	// SpanAttrTable is the table touched by a storage call.
	SpanAttrTable = "db.table"

	// SpanAttrOperation is the operation type attribute.
	SpanAttrOperation = "bookshelf.operation"

	// SpanAttrBookID is the book identifier attribute.
	SpanAttrBookID = "bookshelf.book_id"

	// SpanAttrOAuthStep is the step of the sign-in flow (discover, exchange, userinfo).
	SpanAttrOAuthStep = "oauth.step"

	// SpanAttrUserDomain is the domain of the signed-in user.
	SpanAttrUserDomain = "bookshelf.user_domain"
)

// SpanAttributeBuilder helps construct OpenTelemetry span attributes
// with consistent naming.
type SpanAttributeBuilder struct {
	attrs []attribute.KeyValue
}

// NewSpanAttributeBuilder creates a new SpanAttributeBuilder.
func NewSpanAttributeBuilder() *SpanAttributeBuilder {
	return &SpanAttributeBuilder{
		attrs: make([]attribute.KeyValue, 0, 6),
	}
}

// WithBookID adds the book id attribute. Zero ids are skipped.
func (b *SpanAttributeBuilder) WithBookID(id int64) *SpanAttributeBuilder {
	if id != 0 {
		b.attrs = append(b.attrs, attribute.String(SpanAttrBookID, strconv.FormatInt(id, 10)))
	}
	return b
}

// WithUser adds the user's email domain.
func (b *SpanAttributeBuilder) WithUser(email string) *SpanAttributeBuilder {
	if email != "" {
		b.attrs = append(b.attrs, attribute.String(SpanAttrUserDomain, ExtractUserDomain(email)))
	}
	return b
}

// Build returns the constructed attributes.
func (b *SpanAttributeBuilder) Build() []attribute.KeyValue {
	return b.attrs
}

// StartSpan starts a new span with the given name and attributes.
// Returns the context with the span and the span itself.
// The caller is responsible for ending the span with defer span.End().
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	tracer := otel.GetTracerProvider().Tracer(TracerName)
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// StartStorageSpan starts a client span for a single storage statement,
// named storage.<table>.<operation>.
func StartStorageSpan(ctx context.Context, table, operation string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := make([]attribute.KeyValue, 0, len(attrs)+3)
	allAttrs = append(allAttrs,
		attribute.String(SpanAttrDBSystem, "sqlite"),
		attribute.String(SpanAttrTable, table),
		attribute.String(SpanAttrOperation, operation),
	)
	allAttrs = append(allAttrs, attrs...)

	tracer := otel.GetTracerProvider().Tracer(TracerName)
	return tracer.Start(ctx, "storage."+table+"."+operation,
		trace.WithAttributes(allAttrs...),
		trace.WithSpanKind(trace.SpanKindClient),
	)
}

// StartOAuthSpan starts a client span for one call to the identity provider.
func StartOAuthSpan(ctx context.Context, step string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := make([]attribute.KeyValue, 0, len(attrs)+1)
	allAttrs = append(allAttrs, attribute.String(SpanAttrOAuthStep, step))
	allAttrs = append(allAttrs, attrs...)

	tracer := otel.GetTracerProvider().Tracer(TracerName)
	return tracer.Start(ctx, "oauth."+step,
		trace.WithAttributes(allAttrs...),
		trace.WithSpanKind(trace.SpanKindClient),
	)
}

// SetSpanError records an error on the span and sets the status to error.
func SetSpanError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

// SetSpanSuccess sets the span status to OK.
func SetSpanSuccess(span trace.Span) {
	span.SetStatus(codes.Ok, "")
}

// GetTraceID returns the trace ID from the current span in context.
// Returns empty string if no valid span is present.
func GetTraceID(ctx context.Context) string {
	span := trace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		return span.SpanContext().TraceID().String()
	}
	return ""
}

// GetSpanID returns the span ID from the current span in context.
// Returns empty string if no valid span is present.
func GetSpanID(ctx context.Context) string {
	span := trace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		return span.SpanContext().SpanID().String()
	}
	return ""
}
