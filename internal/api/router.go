// Package api provides the HTTP API for EcoRoute.
package api

import (
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/ecoroute/ecoroute/internal/api/handler"
	"github.com/ecoroute/ecoroute/internal/api/middleware"
	"github.com/ecoroute/ecoroute/internal/provider/resilience"
)

// RouterConfig holds configuration for the router.
// Interface fields must be left nil, not set to a typed nil pointer, when a dependency is absent.
type RouterConfig struct {
	Version     string
	BuildTime   string
	Logger      zerolog.Logger
	ServiceName string
	Metrics     *middleware.Metrics

	// RequireTLS rejects forwarded plain-HTTP requests.
	RequireTLS bool

	// Tokens validates operator tokens. Nil closes the operator endpoints.
	Tokens middleware.TokenValidator

	Providers *resilience.Registry
	DB        handler.Pinger

	// Provider-backed dependencies. Nil means the provider API key is not configured.
	Weather   handler.CityWeatherSource
	Pollution handler.PollutionLookup
	Routes    handler.RouteLookup
	Planner   handler.EcoPlanner

	Recorder handler.PlanRecorder
	History  handler.HistoryLister
}

// NewRouter creates a new chi router with all API routes configured.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// Set default service name if not provided
	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "ecoroute-api"
	}

	// Global middleware - order matters
	r.Use(middleware.RequestID)            // Generate/propagate request ID first
	r.Use(middleware.Tracing(serviceName)) // Distributed tracing
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware()) // HTTP metrics
	}
	r.Use(middleware.Logger(cfg.Logger))         // Structured logging
	r.Use(middleware.Recovery(cfg.Logger))       // Panic recovery
	r.Use(chimiddleware.RealIP)                  // Real IP extraction
	r.Use(middleware.SecurityHeaders)            // Security headers (HSTS, CSP, etc.)
	r.Use(middleware.RequireTLS(cfg.RequireTLS)) // TLS enforcement behind the load balancer
	r.Use(middleware.ContentTypeJSON)            // JSON content type

	// Initialize handlers
	opsHandler := handler.NewOpsHandler(handler.OpsConfig{
		Version:   cfg.Version,
		BuildTime: cfg.BuildTime,
		Providers: cfg.Providers,
		DB:        cfg.DB,
	})
	lookupHandler := handler.NewLookupHandler(handler.LookupConfig{
		Weather:   cfg.Weather,
		Pollution: cfg.Pollution,
		Routes:    cfg.Routes,
		Logger:    cfg.Logger,
	})
	ecoHandler := handler.NewEcoHandler(handler.EcoConfig{
		Planner:  cfg.Planner,
		Recorder: cfg.Recorder,
		History:  cfg.History,
		Logger:   cfg.Logger,
	})

	operatorAuth := middleware.OperatorAuth(cfg.Tokens)

	expensiveRateLimit := middleware.RateLimitByIP(middleware.ExpensiveRateLimit) // 30 req/min
	standardRateLimit := middleware.RateLimitByIP(middleware.StandardRateLimit)   // 100 req/min

	r.Get("/healthz", opsHandler.Liveness)

	// API v1 routes
	r.Route("/v1", func(r chi.Router) {
		// Ops endpoints (public)
		r.Route("/ops", func(r chi.Router) {
			r.Get("/health", opsHandler.HealthCheck)
			r.Get("/ready", opsHandler.ReadinessCheck)
			// Status endpoint requires an operator token
			r.With(operatorAuth).Get("/status", opsHandler.SystemStatus)
		})

		// Single-provider lookups - standard rate limiting
		r.Group(func(r chi.Router) {
			r.Use(standardRateLimit)
			r.Get("/weather", lookupHandler.Weather)
			r.Get("/pollution", lookupHandler.Pollution)
			r.Get("/route", lookupHandler.Route)
		})

		r.Route("/eco", func(r chi.Router) {
			// Plans fan out to several providers - strict rate limiting
			r.With(expensiveRateLimit).Get("/plan", ecoHandler.Plan)
			r.With(expensiveRateLimit).Get("/compare", ecoHandler.Compare)

			r.With(
				operatorAuth,
				middleware.RateLimitByOperator(middleware.StandardRateLimit),
			).Get("/history", ecoHandler.History)
		})
	})

	return r
}
