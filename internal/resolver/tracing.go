package resolver

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"graphql-preload/internal/store"
)

const tracerName = "graphql-preload/resolver"

// Resolution outcomes recorded on spans and metrics.
const (
	outcomeSuccess  = "success"
	outcomeFallback = "fallback"
	outcomeNotFound = "not_found"
	outcomeError    = "error"
)

func startResolverSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, name)
	if len(attrs) > 0 {
		span.SetAttributes(attrs...)
	}
	return ctx, span
}

func finishResolverSpan(span trace.Span, err error, outcome string) {
	if span == nil {
		return
	}
	if outcome == "" {
		if err != nil {
			outcome = outcomeError
		} else {
			outcome = outcomeSuccess
		}
	}
	span.SetAttributes(attribute.String("graphql.resolver.outcome", outcome))
	if err != nil && !errors.Is(err, store.ErrRecordNotFound) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
