package planner

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/ecoroute/ecoroute/internal/airquality"
	"github.com/ecoroute/ecoroute/internal/ecoscore"
	"github.com/ecoroute/ecoroute/internal/routing"
	"github.com/ecoroute/ecoroute/internal/telemetry"
	"github.com/ecoroute/ecoroute/internal/weather"
)

const tracerName = "github.com/ecoroute/ecoroute/internal/planner"

// DefaultConcurrency bounds concurrent route fetches per plan.
const DefaultConcurrency = 4

// RouteSource fetches a route for one mode.
type RouteSource interface {
	GetRoute(ctx context.Context, req routing.RouteRequest) (*routing.RouteData, error)
}

// ConditionsSource supplies destination weather, substituting defaults on failure.
type ConditionsSource interface {
	ConditionsOrDefault(ctx context.Context, lat, lon float64) weather.Conditions
}

// PollutionSource supplies destination air quality, substituting defaults on failure.
type PollutionSource interface {
	PollutionOrDefault(ctx context.Context, lat, lon float64) airquality.Pollution
}

// Config holds planner dependencies.
type Config struct {
	Routes     RouteSource
	Conditions ConditionsSource
	Pollution  PollutionSource
	Logger     zerolog.Logger

	// Metrics records plan outcomes (optional).
	Metrics *telemetry.PlannerMetrics

	// Concurrency bounds concurrent route fetches (default: 4).
	Concurrency int

	// Now is the clock used for CreatedAt (default: time.Now).
	Now func() time.Time
}

// Planner builds ranked eco route plans.
type Planner struct {
	routes      RouteSource
	conditions  ConditionsSource
	pollution   PollutionSource
	logger      zerolog.Logger
	metrics     *telemetry.PlannerMetrics
	concurrency int
	now         func() time.Time
	tracer      trace.Tracer
}

// New creates a planner.
func New(cfg Config) *Planner {
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Planner{
		routes:      cfg.Routes,
		conditions:  cfg.Conditions,
		pollution:   cfg.Pollution,
		logger:      cfg.Logger,
		metrics:     cfg.Metrics,
		concurrency: concurrency,
		now:         now,
		tracer:      telemetry.Tracer(tracerName),
	}
}

// Plan fetches destination conditions once, fetches and scores a route per
// mode, and ranks the survivors by eco score. A failed mode is recorded in
// Result.Failures; only when every mode fails is ErrNoViableRoute returned.
func (p *Planner) Plan(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()

	ctx, span := p.tracer.Start(ctx, "planner.Plan",
		trace.WithAttributes(
			attribute.Int("planner.modes", len(req.Modes)),
		),
	)
	defer span.End()

	result, err := p.plan(ctx, req)

	options := 0
	if result != nil {
		options = len(result.Options)
	}
	p.metrics.RecordPlan(ctx, time.Since(start), options, err)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Int("planner.options", options))
	return result, nil
}

func (p *Planner) plan(ctx context.Context, req Request) (*Result, error) {
	if len(req.Modes) == 0 {
		return nil, ErrNoModes
	}
	if err := req.Start.Validate(); err != nil {
		return nil, fmt.Errorf("start: %w", err)
	}
	if err := req.End.Validate(); err != nil {
		return nil, fmt.Errorf("end: %w", err)
	}

	conditions := p.destinationConditions(ctx, req.End)

	slots := make([]*RouteOption, len(req.Modes))
	errs := make([]error, len(req.Modes))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)
	for i, mode := range req.Modes {
		g.Go(func() error {
			opt, err := p.evaluate(gctx, req, mode, conditions)
			if err != nil {
				errs[i] = err
				return nil
			}
			slots[i] = opt
			return nil
		})
	}
	_ = g.Wait() //nolint:errcheck // tasks record failures in errs

	result := &Result{
		ID:         uuid.New().String(),
		Start:      req.Start,
		End:        req.End,
		Conditions: conditions,
		CreatedAt:  p.now().UTC(),
	}

	var causes []error
	for i, mode := range req.Modes {
		if errs[i] != nil {
			p.logger.Warn().Err(errs[i]).
				Str("mode", string(mode)).
				Msg("route fetch failed, skipping mode")
			p.metrics.RecordModeFailure(ctx, string(mode))
			result.Failures = append(result.Failures, ModeFailure{Mode: mode, Error: errs[i].Error()})
			causes = append(causes, errs[i])
			continue
		}
		result.Options = append(result.Options, *slots[i])
	}

	if len(result.Options) == 0 {
		return nil, &NoViableRouteError{Failures: result.Failures, causes: causes}
	}

	sort.SliceStable(result.Options, func(a, b int) bool {
		return result.Options[a].EcoAnalysis.EcoScore > result.Options[b].EcoAnalysis.EcoScore
	})

	result.RecommendedRoute = &result.Options[0]
	result.Summary = Summary{
		BestEcoScore:         result.Options[0].EcoAnalysis.EcoScore,
		TotalOptionsAnalyzed: len(result.Options),
		EnvironmentalStatus:  EnvironmentalStatus(conditions.Weather, conditions.AirQuality),
	}

	p.logger.Info().
		Str("plan_id", result.ID).
		Int("options", len(result.Options)).
		Int("failed_modes", len(result.Failures)).
		Str("recommended", string(result.RecommendedRoute.Mode)).
		Float64("best_eco_score", result.Summary.BestEcoScore).
		Msg("eco route plan complete")

	return result, nil
}

// destinationConditions fetches weather and air quality for the destination concurrently.
func (p *Planner) destinationConditions(ctx context.Context, end routing.Coordinate) Conditions {
	var c Conditions
	var g errgroup.Group
	g.Go(func() error {
		c.Weather = p.conditions.ConditionsOrDefault(ctx, end.Lat, end.Lon)
		return nil
	})
	g.Go(func() error {
		c.AirQuality = p.pollution.PollutionOrDefault(ctx, end.Lat, end.Lon)
		return nil
	})
	_ = g.Wait() //nolint:errcheck // sources never fail
	return c
}

func (p *Planner) evaluate(ctx context.Context, req Request, mode routing.Profile, c Conditions) (*RouteOption, error) {
	ctx, span := p.tracer.Start(ctx, "planner.evaluate",
		trace.WithAttributes(attribute.String("planner.mode", string(mode))),
	)
	defer span.End()

	route, err := p.routes.GetRoute(ctx, routing.RouteRequest{
		Start:   req.Start,
		End:     req.End,
		Profile: mode,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	analysis := ecoscore.Compute(*route, c.Weather, c.AirQuality, mode)
	p.metrics.RecordScore(ctx, string(mode), analysis.EcoScore)
	span.SetAttributes(attribute.Float64("planner.eco_score", analysis.EcoScore))

	return &RouteOption{
		Mode:               mode,
		RouteDetails:       *route,
		EcoAnalysis:        analysis,
		EstimatedEmissions: ecoscore.EstimateEmissions(route.DistanceKm, mode),
	}, nil
}

// Compare plans the default modes and projects each option onto a comparison entry.
func (p *Planner) Compare(ctx context.Context, start, end routing.Coordinate) (*Comparison, error) {
	result, err := p.Plan(ctx, Request{
		Start: start,
		End:   end,
		Modes: routing.DefaultProfiles,
	})
	if err != nil {
		return nil, err
	}
	return NewComparison(result), nil
}

// NewComparison projects a plan result onto its comparison view.
func NewComparison(result *Result) *Comparison {
	entries := make([]ComparisonEntry, len(result.Options))
	for i, o := range result.Options {
		top := ""
		if len(o.EcoAnalysis.Recommendations) > 0 {
			top = o.EcoAnalysis.Recommendations[0]
		}
		entries[i] = ComparisonEntry{
			Mode:              o.Mode,
			EcoScore:          o.EcoAnalysis.EcoScore,
			Rating:            o.EcoAnalysis.Rating,
			DistanceKm:        o.RouteDetails.DistanceKm,
			DurationMin:       o.RouteDetails.DurationMin,
			CO2Emissions:      o.EstimatedEmissions.TotalCO2Grams,
			TopRecommendation: top,
		}
	}

	c := &Comparison{
		Entries:              entries,
		EnvironmentalSummary: result.Summary.EnvironmentalStatus,
		Result:               result,
	}
	if len(entries) > 0 {
		c.BestOption = &c.Entries[0]
	}
	return c
}
