package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the instrumentation scope for storefront spans
const TracerName = "github.com/knwn/storefront"

// StartSpan starts a span named "{component}.{operation}", e.g.
// "woocommerce.add_item". The caller must End it, usually through Finish.
//
//	ctx, span := telemetry.StartSpan(ctx, "woocommerce", "add_item",
//	    attribute.Int64("product_id", id))
//	defer func() { telemetry.Finish(span, err) }()
func StartSpan(ctx context.Context, component, operation string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	tracer := otel.GetTracerProvider().Tracer(TracerName)
	return tracer.Start(ctx, fmt.Sprintf("%s.%s", component, operation),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attrs...),
	)
}

// Finish records err on span, if any, and ends it
func Finish(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
