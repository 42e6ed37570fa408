package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/ecoroute/ecoroute/internal/airquality"
	"github.com/ecoroute/ecoroute/internal/api/models"
	"github.com/ecoroute/ecoroute/internal/app"
	"github.com/ecoroute/ecoroute/internal/auth"
	"github.com/ecoroute/ecoroute/internal/config"
	"github.com/ecoroute/ecoroute/internal/database"
	"github.com/ecoroute/ecoroute/internal/ecoscore"
	"github.com/ecoroute/ecoroute/internal/planner"
	"github.com/ecoroute/ecoroute/internal/routing"
	"github.com/ecoroute/ecoroute/internal/weather"
)

type scoreInput struct {
	mode        string
	distanceKm  float64
	durationMin float64
	condition   string
	aqi         int
}

type scoreOutput struct {
	Mode               string             `json:"mode"`
	EcoAnalysis        models.EcoAnalysis `json:"eco_analysis"`
	EstimatedEmissions models.Emissions   `json:"estimated_emissions"`
}

func runScore(w io.Writer, in scoreInput) error {
	if in.distanceKm < 0 {
		return fmt.Errorf("distance must not be negative, got %g", in.distanceKm)
	}
	if in.aqi < 0 || in.aqi > 5 {
		return fmt.Errorf("aqi must be between 0 and 5, got %d", in.aqi)
	}

	mode := routing.Profile(in.mode)
	route := routing.RouteData{DistanceKm: in.distanceKm, DurationMin: in.durationMin}
	analysis := ecoscore.Compute(route,
		weather.Conditions{Condition: in.condition},
		airquality.Pollution{AirQualityIndex: in.aqi},
		mode,
	)

	return writeJSON(w, scoreOutput{
		Mode:               in.mode,
		EcoAnalysis:        models.NewEcoAnalysis(analysis),
		EstimatedEmissions: models.NewEmissions(ecoscore.EstimateEmissions(in.distanceKm, mode)),
	})
}

func runPlan(ctx context.Context, w io.Writer, start, end, modes string) error {
	p, from, to, err := livePlanner(ctx, start, end)
	if err != nil {
		return err
	}

	result, err := p.Plan(ctx, planner.Request{Start: from, End: to, Modes: routing.ParseProfiles(modes)})
	if err != nil {
		return err
	}
	return writeJSON(w, models.NewPlanResponse(result))
}

func runCompare(ctx context.Context, w io.Writer, start, end string) error {
	p, from, to, err := livePlanner(ctx, start, end)
	if err != nil {
		return err
	}

	cmp, err := p.Compare(ctx, from, to)
	if err != nil {
		return err
	}
	return writeJSON(w, models.NewCompareResponse(cmp))
}

// livePlanner parses both points and builds a planner against the configured providers.
func livePlanner(ctx context.Context, start, end string) (*planner.Planner, routing.Coordinate, routing.Coordinate, error) {
	from, err := routing.ParseCoordinate(start)
	if err != nil {
		return nil, routing.Coordinate{}, routing.Coordinate{}, fmt.Errorf("start: %w", err)
	}
	to, err := routing.ParseCoordinate(end)
	if err != nil {
		return nil, routing.Coordinate{}, routing.Coordinate{}, fmt.Errorf("end: %w", err)
	}

	cfg := config.Load()
	if err := cfg.RequireProviderKeys(); err != nil {
		return nil, routing.Coordinate{}, routing.Coordinate{}, err
	}

	services, err := app.Build(ctx, cfg, app.Options{}, cliLogger())
	if err != nil {
		return nil, routing.Coordinate{}, routing.Coordinate{}, err
	}
	return services.Planner, from, to, nil
}

func runToken(w io.Writer, operator, signingKey, ttl string) error {
	if signingKey == "" {
		signingKey = config.Load().OpsSigningKey
	}
	if signingKey == "" {
		return auth.ErrSigningKeyNotSet
	}

	lifetime, err := time.ParseDuration(ttl)
	if err != nil {
		return fmt.Errorf("invalid ttl %q: %w", ttl, err)
	}

	tokens := auth.NewTokenService(auth.TokenConfig{SigningKey: signingKey})
	token, expiresAt, err := tokens.Issue(operator, lifetime)
	if err != nil {
		return err
	}

	return writeJSON(w, map[string]string{
		"operator":   operator,
		"token":      token,
		"expires_at": expiresAt.UTC().Format(time.RFC3339),
	})
}

func runMigrate(ctx context.Context, action string) error {
	cfg := config.Load()
	if !cfg.Database.Enabled() {
		return fmt.Errorf("%w: set DATABASE_URL or DB_HOST", database.ErrNotConfigured)
	}

	db, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	if action == "status" {
		return database.MigrationStatus(ctx, db)
	}
	return database.RunMigrations(ctx, db)
}

func cliLogger() zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(zerolog.WarnLevel).
		With().
		Timestamp().
		Logger()
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
