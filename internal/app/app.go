// Package app assembles EcoRoute's providers, planner and history from configuration.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/ecoroute/ecoroute/internal/airquality"
	aqowm "github.com/ecoroute/ecoroute/internal/airquality/openweathermap"
	"github.com/ecoroute/ecoroute/internal/api"
	"github.com/ecoroute/ecoroute/internal/auth"
	"github.com/ecoroute/ecoroute/internal/config"
	"github.com/ecoroute/ecoroute/internal/database"
	"github.com/ecoroute/ecoroute/internal/events"
	"github.com/ecoroute/ecoroute/internal/history"
	"github.com/ecoroute/ecoroute/internal/planner"
	"github.com/ecoroute/ecoroute/internal/provider/resilience"
	"github.com/ecoroute/ecoroute/internal/routing"
	"github.com/ecoroute/ecoroute/internal/routing/openrouteservice"
	"github.com/ecoroute/ecoroute/internal/telemetry"
	"github.com/ecoroute/ecoroute/internal/weather"
	weatherowm "github.com/ecoroute/ecoroute/internal/weather/openweathermap"
)

// Options selects the optional parts of the assembly.
type Options struct {
	// ConnectDatabase opens the history database when one is configured.
	ConnectDatabase bool

	// PublishEvents routes plan history through Pub/Sub when a project is configured.
	PublishEvents bool
}

// Services is the assembled dependency graph.
// Provider-backed fields are nil when their API key is not configured.
type Services struct {
	Registry   *resilience.Registry
	Routes     *routing.Service
	Weather    *weather.Service
	AirQuality *airquality.Service
	Planner    *planner.Planner

	DB        *sql.DB
	History   history.Repository
	Publisher *events.Publisher
	Recorder  *history.Recorder
	Tokens    *auth.TokenService

	logger zerolog.Logger
}

// Build wires services from cfg. Missing provider keys are logged, not fatal,
// so the server can still answer health checks.
func Build(ctx context.Context, cfg config.Config, opts Options, logger zerolog.Logger) (*Services, error) {
	s := &Services{
		Registry: resilience.NewRegistry(),
		logger:   logger,
	}

	providerMetrics, err := telemetry.NewProviderMetrics()
	if err != nil {
		logger.Warn().Err(err).Msg("provider metrics unavailable")
	}
	plannerMetrics, err := telemetry.NewPlannerMetrics()
	if err != nil {
		logger.Warn().Err(err).Msg("planner metrics unavailable")
	}

	if cfg.OpenWeatherAPIKey != "" {
		s.Weather = weather.NewService(weather.ServiceConfig{
			Provider: weatherowm.NewClient(weatherowm.ClientConfig{
				APIKey:   cfg.OpenWeatherAPIKey,
				BaseURL:  cfg.OpenWeatherURL,
				Timeout:  cfg.WeatherTimeout,
				Registry: s.Registry,
				Logger:   logger,
			}),
			Logger:  logger,
			Metrics: providerMetrics,
		})
		s.AirQuality = airquality.NewService(airquality.ServiceConfig{
			Provider: aqowm.NewClient(aqowm.ClientConfig{
				APIKey:   cfg.OpenWeatherAPIKey,
				BaseURL:  cfg.OpenWeatherURL,
				Timeout:  cfg.WeatherTimeout,
				Registry: s.Registry,
				Logger:   logger,
			}),
			Logger:  logger,
			Metrics: providerMetrics,
		})
	}

	if cfg.ORSAPIKey != "" {
		s.Routes = routing.NewService(routing.ServiceConfig{
			Provider: openrouteservice.NewClient(openrouteservice.ClientConfig{
				APIKey:   cfg.ORSAPIKey,
				BaseURL:  cfg.ORSBaseURL,
				Timeout:  cfg.RouteTimeout,
				Registry: s.Registry,
				Logger:   logger,
			}),
			Logger:  logger,
			Metrics: providerMetrics,
		})
	}

	if err := cfg.RequireProviderKeys(); err != nil {
		logger.Warn().Err(err).Msg("provider keys missing, eco planning disabled")
	} else {
		s.Planner = planner.New(planner.Config{
			Routes:      s.Routes,
			Conditions:  s.Weather,
			Pollution:   s.AirQuality,
			Logger:      logger,
			Metrics:     plannerMetrics,
			Concurrency: cfg.PlannerConcurrency,
		})
	}

	if opts.ConnectDatabase && cfg.Database.Enabled() {
		db, err := database.Connect(ctx, cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("connecting history database: %w", err)
		}
		s.DB = db
		s.History = history.NewPostgresRepository(db)
		logger.Info().
			Str("host", cfg.Database.Host).
			Str("database", cfg.Database.Database).
			Msg("database connected")
	} else {
		s.History = history.NewInMemoryRepository(0)
	}

	recorderCfg := history.RecorderConfig{Repository: s.History, Logger: logger}
	if opts.PublishEvents && cfg.PubSubEnabled() {
		pub, err := events.NewPublisher(ctx, events.PublisherConfig{
			ProjectID: cfg.PubSubProjectID,
			TopicName: cfg.PubSubTopic,
			Logger:    logger,
		})
		if err != nil {
			_ = s.Close() //nolint:errcheck // already failing
			return nil, fmt.Errorf("creating event publisher: %w", err)
		}
		s.Publisher = pub
		recorderCfg.Publisher = pub
		// Without a shared database the worker's writes are invisible here,
		// so keep a local copy for /v1/eco/history.
		recorderCfg.SaveLocally = s.DB == nil
		logger.Info().Str("topic", cfg.PubSubTopic).Msg("plan history published to pubsub")
	}
	s.Recorder = history.NewRecorder(recorderCfg)

	if cfg.OpsSigningKey != "" {
		s.Tokens = auth.NewTokenService(auth.TokenConfig{SigningKey: cfg.OpsSigningKey})
	} else {
		logger.Warn().Msg("OPS_JWT_SIGNING_KEY not set, operator endpoints are closed")
	}

	return s, nil
}

// RouterConfig converts the services to router dependencies, leaving absent
// ones as untyped nil so handlers can detect them.
func (s *Services) RouterConfig() api.RouterConfig {
	rc := api.RouterConfig{
		Providers: s.Registry,
		Recorder:  s.Recorder,
		History:   s.Recorder,
	}
	if s.Tokens != nil {
		rc.Tokens = s.Tokens
	}
	if s.DB != nil {
		rc.DB = s.DB
	}
	if s.Weather != nil {
		rc.Weather = s.Weather
	}
	if s.AirQuality != nil {
		rc.Pollution = s.AirQuality
	}
	if s.Routes != nil {
		rc.Routes = s.Routes
	}
	if s.Planner != nil {
		rc.Planner = s.Planner
	}
	return rc
}

// Close releases the publisher and database.
func (s *Services) Close() error {
	var errs []error
	if s.Publisher != nil {
		errs = append(errs, s.Publisher.Close())
	}
	if s.DB != nil {
		errs = append(errs, s.DB.Close())
	}
	return errors.Join(errs...)
}
