package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "annapurna"

// StartChatSpan starts a span for one chat request.
func StartChatSpan(ctx context.Context, sessionID string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "chat",
		trace.WithAttributes(
			attribute.String("chat.session_id", sessionID),
		),
	)
}

// StartMatchSpan starts a span for knowledge-base matching.
func StartMatchSpan(ctx context.Context, query string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "match",
		trace.WithAttributes(
			attribute.String("match.query", query),
		),
	)
}

// StartEnrichSpan starts a span for an upstream enrichment call.
func StartEnrichSpan(ctx context.Context, backend string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "enrich",
		trace.WithAttributes(
			attribute.String("enrich.backend", backend),
		),
	)
}
