package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/ecoroute/ecoroute/internal/telemetry"

// ProviderMetrics holds metrics for external provider calls.
// A nil *ProviderMetrics is valid and records nothing.
type ProviderMetrics struct {
	requestDuration metric.Float64Histogram
	requestTotal    metric.Int64Counter
	cacheHit        metric.Int64Counter
	cacheMiss       metric.Int64Counter
	staleServed     metric.Int64Counter
}

// NewProviderMetrics creates metrics for monitoring external provider calls.
func NewProviderMetrics() (*ProviderMetrics, error) {
	meter := otel.Meter(meterName)

	requestDuration, err := meter.Float64Histogram(
		"provider.request.duration",
		metric.WithDescription("Duration of provider requests in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	requestTotal, err := meter.Int64Counter(
		"provider.request.total",
		metric.WithDescription("Total number of provider requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	cacheHit, err := meter.Int64Counter(
		"provider.cache.hit",
		metric.WithDescription("Number of cache hits"),
		metric.WithUnit("{hit}"),
	)
	if err != nil {
		return nil, err
	}

	cacheMiss, err := meter.Int64Counter(
		"provider.cache.miss",
		metric.WithDescription("Number of cache misses"),
		metric.WithUnit("{miss}"),
	)
	if err != nil {
		return nil, err
	}

	staleServed, err := meter.Int64Counter(
		"provider.cache.stale_served",
		metric.WithDescription("Number of stale cache entries served after a provider error"),
		metric.WithUnit("{response}"),
	)
	if err != nil {
		return nil, err
	}

	return &ProviderMetrics{
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		cacheHit:        cacheHit,
		cacheMiss:       cacheMiss,
		staleServed:     staleServed,
	}, nil
}

func providerAttrs(provider, operation string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("provider.name", provider),
		attribute.String("provider.operation", operation),
	}
}

// RecordRequest records metrics for a provider request.
func (m *ProviderMetrics) RecordRequest(provider, operation string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	attrs := providerAttrs(provider, operation)
	if err != nil {
		attrs = append(attrs, attribute.Bool("error", true))
	}

	// Background context so a cancelled request still gets recorded.
	ctx := context.Background()
	m.requestDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
	m.requestTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordCacheHit records a cache hit for a provider.
func (m *ProviderMetrics) RecordCacheHit(provider, operation string) {
	if m == nil {
		return
	}
	m.cacheHit.Add(context.Background(), 1, metric.WithAttributes(providerAttrs(provider, operation)...))
}

// RecordCacheMiss records a cache miss for a provider.
func (m *ProviderMetrics) RecordCacheMiss(provider, operation string) {
	if m == nil {
		return
	}
	m.cacheMiss.Add(context.Background(), 1, metric.WithAttributes(providerAttrs(provider, operation)...))
}

// RecordStaleServed records a stale-if-error response.
func (m *ProviderMetrics) RecordStaleServed(provider, operation string) {
	if m == nil {
		return
	}
	m.staleServed.Add(context.Background(), 1, metric.WithAttributes(providerAttrs(provider, operation)...))
}

// PlannerMetrics holds metrics for eco route planning.
// A nil *PlannerMetrics is valid and records nothing.
type PlannerMetrics struct {
	planTotal    metric.Int64Counter
	planDuration metric.Float64Histogram
	modeFailures metric.Int64Counter
	ecoScore     metric.Float64Histogram
}

// NewPlannerMetrics creates the planner instruments.
func NewPlannerMetrics() (*PlannerMetrics, error) {
	meter := otel.Meter(meterName)

	planTotal, err := meter.Int64Counter(
		"planner.plan.total",
		metric.WithDescription("Total number of eco route plans"),
		metric.WithUnit("{plan}"),
	)
	if err != nil {
		return nil, err
	}

	planDuration, err := meter.Float64Histogram(
		"planner.plan.duration",
		metric.WithDescription("Duration of eco route planning in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	modeFailures, err := meter.Int64Counter(
		"planner.mode.failures",
		metric.WithDescription("Number of travel modes dropped from a plan because the route fetch failed"),
		metric.WithUnit("{mode}"),
	)
	if err != nil {
		return nil, err
	}

	ecoScore, err := meter.Float64Histogram(
		"planner.eco_score",
		metric.WithDescription("Eco scores computed per travel mode"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, err
	}

	return &PlannerMetrics{
		planTotal:    planTotal,
		planDuration: planDuration,
		modeFailures: modeFailures,
		ecoScore:     ecoScore,
	}, nil
}

// RecordPlan records the outcome of one plan.
func (m *PlannerMetrics) RecordPlan(ctx context.Context, duration time.Duration, options int, err error) {
	if m == nil {
		return
	}
	attrs := []attribute.KeyValue{attribute.Int("planner.options", options)}
	if err != nil {
		attrs = append(attrs, attribute.Bool("error", true))
	}
	m.planTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.planDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordModeFailure records a mode whose route could not be fetched.
func (m *PlannerMetrics) RecordModeFailure(ctx context.Context, mode string) {
	if m == nil {
		return
	}
	m.modeFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("planner.mode", mode)))
}

// RecordScore records the eco score computed for a mode.
func (m *PlannerMetrics) RecordScore(ctx context.Context, mode string, score float64) {
	if m == nil {
		return
	}
	m.ecoScore.Record(ctx, score, metric.WithAttributes(attribute.String("planner.mode", mode)))
}
