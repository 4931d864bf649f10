package instrumentation

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Common span and metric attribute keys.
//
// Never set attribute values to credential material (access tokens,
// refresh tokens, authorization codes, the client secret). Use
// metadata only: principal ids, scope names, outcomes.
const (
	AttrPrincipal = "helix.principal"
	AttrChannel   = "helix.channel"
	AttrScope     = "helix.scope"
	AttrKind      = "helix.relation.kind"
	AttrOutcome   = "helix.outcome"
	AttrAction    = "helix.action"
	AttrExpiresIn = "helix.token.expires_in"

	AttrStorageOperation = "storage.operation"
	AttrStorageType      = "storage.type"

	AttrHTTPMethod     = "http.method"
	AttrHTTPEndpoint   = "http.endpoint"
	AttrHTTPStatusCode = "http.status_code"
)

// RecordError records an error on a span with an error status (nil-safe).
func RecordError(span trace.Span, err error) {
	if span != nil && err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

// SetSpanSuccess marks a span as successful (nil-safe).
func SetSpanSuccess(span trace.Span) {
	if span != nil {
		span.SetStatus(codes.Ok, "")
	}
}

// SetSpanAttributes sets attributes on a span (nil-safe).
func SetSpanAttributes(span trace.Span, attrs ...attribute.KeyValue) {
	if span != nil {
		span.SetAttributes(attrs...)
	}
}

// AddTokenAttributes adds token lifecycle attributes to a span (nil-safe).
func AddTokenAttributes(span trace.Span, principal int64, expiresIn int) {
	SetSpanAttributes(span,
		attribute.Int64(AttrPrincipal, principal),
		attribute.Int(AttrExpiresIn, expiresIn),
	)
}

// AddRelationAttributes adds role relation attributes to a span (nil-safe).
func AddRelationAttributes(span trace.Span, channel int64, kind string) {
	SetSpanAttributes(span,
		attribute.Int64(AttrChannel, channel),
		attribute.String(AttrKind, kind),
	)
}

// AddStorageAttributes adds token store operation attributes to a span (nil-safe).
func AddStorageAttributes(span trace.Span, operation, storageType string) {
	SetSpanAttributes(span,
		attribute.String(AttrStorageOperation, operation),
		attribute.String(AttrStorageType, storageType),
	)
}

// AddHTTPAttributes adds HTTP request attributes to a span (nil-safe).
func AddHTTPAttributes(span trace.Span, method, endpoint string, statusCode int) {
	SetSpanAttributes(span,
		attribute.String(AttrHTTPMethod, method),
		attribute.String(AttrHTTPEndpoint, endpoint),
		attribute.Int(AttrHTTPStatusCode, statusCode),
	)
}
