package observability

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "graphql-preload"

// ResolverMetrics holds the instruments recorded by the field resolver.
// A nil *ResolverMetrics records nothing.
type ResolverMetrics struct {
	resolutions metric.Int64Counter
	fallbacks   metric.Int64Counter
	planSize    metric.Int64Histogram
}

// InitResolverMetrics creates the resolver instruments on the global meter
// provider.
func InitResolverMetrics() (*ResolverMetrics, error) {
	meter := otel.Meter(meterName)

	resolutions, err := meter.Int64Counter(
		"graphql.resolver.resolutions",
		metric.WithDescription("Number of root record resolutions by outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resolutions counter: %w", err)
	}

	fallbacks, err := meter.Int64Counter(
		"graphql.resolver.fallbacks",
		metric.WithDescription("Number of resolutions that fell back to an unplanned lookup"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create fallbacks counter: %w", err)
	}

	planSize, err := meter.Int64Histogram(
		"graphql.resolver.plan_size",
		metric.WithDescription("Number of relations in the include plan"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create plan size histogram: %w", err)
	}

	return &ResolverMetrics{
		resolutions: resolutions,
		fallbacks:   fallbacks,
		planSize:    planSize,
	}, nil
}

// InitMetrics initializes the resolver metrics and logs once they are ready.
func InitMetrics(logger *slog.Logger) (*ResolverMetrics, error) {
	metrics, err := InitResolverMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize resolver metrics: %w", err)
	}

	logger.Info("resolver metrics initialized")
	return metrics, nil
}

// RecordResolution counts one resolution of model with the given outcome.
func (m *ResolverMetrics) RecordResolution(ctx context.Context, model, outcome string) {
	if m == nil {
		return
	}
	m.resolutions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("model", model),
		attribute.String("outcome", outcome),
	))
}

// RecordFallback counts a rejected plan for model.
func (m *ResolverMetrics) RecordFallback(ctx context.Context, model string) {
	if m == nil {
		return
	}
	m.fallbacks.Add(ctx, 1, metric.WithAttributes(attribute.String("model", model)))
}

// RecordPlanSize records the number of relations in a computed plan.
func (m *ResolverMetrics) RecordPlanSize(ctx context.Context, model string, size int) {
	if m == nil {
		return
	}
	m.planSize.Record(ctx, int64(size), metric.WithAttributes(attribute.String("model", model)))
}
