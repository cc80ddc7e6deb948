package otelhelper

import (
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const errorTypeKey = "error.type"

// SetError marks the span as failed by an infrastructure fault.
func SetError(span trace.Span, err error, attrs ...attribute.KeyValue) {
	attrs = append(attrs, attribute.String(errorTypeKey, fmt.Sprintf("%T", err)))

	span.RecordError(err, trace.WithAttributes(attrs...))
	span.SetStatus(codes.Error, err.Error())
}

// SetRefused records a business rule refusal. The span status stays unset: a refused
// transition is an expected outcome, not a failure of the service.
func SetRefused(span trace.Span, kind, reason string) {
	span.SetAttributes(attribute.String(RuleKindKey, kind))
	span.AddEvent("rule_refused", trace.WithAttributes(
		attribute.String(RuleKindKey, kind),
		attribute.String("catalog.rule.reason", reason),
	))
}
