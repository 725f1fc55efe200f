package tracing

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys. Gateway-specific keys use the "kone." namespace.
const (
	AttrProvider  = "kone.provider"
	AttrModel     = "kone.model"
	AttrRequestID = "kone.request_id"
	AttrStream    = "kone.stream"

	AttrTokensPrompt     = "kone.tokens.prompt"
	AttrTokensCompletion = "kone.tokens.completion"
	AttrTokensTotal      = "kone.tokens.total"

	AttrErrorKind    = "kone.error.kind"
	AttrErrorMessage = "error.message"

	AttrRetryCount = "kone.retry_count"
)

var (
	attrError        = attribute.Key("error")
	attrErrorMessage = attribute.Key(AttrErrorMessage)
)

// SetProviderAttributes sets the provider and model a span is attempting.
func SetProviderAttributes(span trace.Span, provider, model string) {
	span.SetAttributes(
		attribute.String(AttrProvider, provider),
		attribute.String(AttrModel, model),
	)
}

// SetRequestAttributes sets the request id and whether the call streams.
func SetRequestAttributes(span trace.Span, requestID string, stream bool) {
	attrs := []attribute.KeyValue{attribute.Bool(AttrStream, stream)}
	if requestID != "" {
		attrs = append(attrs, attribute.String(AttrRequestID, requestID))
	}
	span.SetAttributes(attrs...)
}

// SetTokenAttributes sets token count attributes on a span.
func SetTokenAttributes(span trace.Span, promptTokens, completionTokens int) {
	span.SetAttributes(
		attribute.Int(AttrTokensPrompt, promptTokens),
		attribute.Int(AttrTokensCompletion, completionTokens),
		attribute.Int(AttrTokensTotal, promptTokens+completionTokens),
	)
}

// SetErrorKind records the classified kind of a failure.
func SetErrorKind(span trace.Span, kind string) {
	if kind != "" {
		span.SetAttributes(attribute.String(AttrErrorKind, kind))
	}
}

// SetRetryAttribute sets the retry count attribute on a span.
func SetRetryAttribute(span trace.Span, retryCount int) {
	span.SetAttributes(attribute.Int(AttrRetryCount, retryCount))
}

// AddEvent adds a named event to the span with optional attributes.
func AddEvent(span trace.Span, name string, attrs ...attribute.KeyValue) {
	span.AddEvent(name, trace.WithAttributes(attrs...))
}
