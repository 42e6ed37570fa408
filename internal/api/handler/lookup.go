package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/ecoroute/ecoroute/internal/airquality"
	"github.com/ecoroute/ecoroute/internal/api/middleware"
	"github.com/ecoroute/ecoroute/internal/api/models"
	"github.com/ecoroute/ecoroute/internal/api/response"
	"github.com/ecoroute/ecoroute/internal/config"
	"github.com/ecoroute/ecoroute/internal/routing"
	"github.com/ecoroute/ecoroute/internal/weather"
)

// CityWeatherSource looks up current conditions by city name.
type CityWeatherSource interface {
	GetCityConditions(ctx context.Context, city string) (*weather.Conditions, error)
}

// PollutionLookup looks up air pollution at a point.
type PollutionLookup interface {
	GetPollution(ctx context.Context, lat, lon float64) (*airquality.Pollution, error)
}

// RouteLookup computes a single route.
type RouteLookup interface {
	GetRoute(ctx context.Context, req routing.RouteRequest) (*routing.RouteData, error)
}

// LookupHandler serves the single-provider lookups. A nil source means its API key is not configured.
type LookupHandler struct {
	weather   CityWeatherSource
	pollution PollutionLookup
	routes    RouteLookup
	logger    zerolog.Logger
}

// LookupConfig holds LookupHandler dependencies.
type LookupConfig struct {
	Weather   CityWeatherSource
	Pollution PollutionLookup
	Routes    RouteLookup
	Logger    zerolog.Logger
}

// NewLookupHandler creates a new LookupHandler.
func NewLookupHandler(cfg LookupConfig) *LookupHandler {
	return &LookupHandler{
		weather:   cfg.Weather,
		pollution: cfg.Pollution,
		routes:    cfg.Routes,
		logger:    cfg.Logger,
	}
}

// Weather handles GET /v1/weather?city=.
func (h *LookupHandler) Weather(w http.ResponseWriter, r *http.Request) {
	if h.weather == nil {
		response.ConfigurationMissing(w, r, config.ErrMissingAPIKey.Error())
		return
	}

	city := strings.TrimSpace(r.URL.Query().Get("city"))
	if city == "" {
		response.BadRequest(w, r, "City parameter is required", []models.FieldError{
			{Field: "city", Message: "is required", Code: "required"},
		})
		return
	}

	c, err := h.weather.GetCityConditions(r.Context(), city)
	if err != nil {
		switch {
		case errors.Is(err, weather.ErrInvalidCity):
			response.BadRequest(w, r, "City parameter is required", nil)
		case errors.Is(err, weather.ErrCityNotFound):
			response.NotFound(w, r, "City not found")
		case errors.Is(err, weather.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
			response.GatewayTimeout(w, r, "Weather service timeout")
		default:
			h.log(r).Error().Err(err).Msg("city weather lookup failed")
			response.BadGateway(w, r, "Weather service unavailable", nil)
		}
		return
	}

	response.JSON(w, r, http.StatusOK, models.NewCityWeatherResponse(*c))
}

// Pollution handles GET /v1/pollution?lat=&lon=.
func (h *LookupHandler) Pollution(w http.ResponseWriter, r *http.Request) {
	if h.pollution == nil {
		response.ConfigurationMissing(w, r, config.ErrMissingAPIKey.Error())
		return
	}

	q, errs := parsePointQuery(r)
	if len(errs) > 0 {
		response.BadRequest(w, r, "Invalid coordinates", errs)
		return
	}

	p, err := h.pollution.GetPollution(r.Context(), q.Lat, q.Lon)
	if err != nil {
		switch {
		case errors.Is(err, airquality.ErrInvalidCoordinates):
			response.BadRequest(w, r, "Invalid coordinates", nil)
		case errors.Is(err, context.DeadlineExceeded):
			response.GatewayTimeout(w, r, "Air quality service timeout")
		default:
			h.log(r).Error().Err(err).Msg("pollution lookup failed")
			response.BadGateway(w, r, "Air quality service unavailable", nil)
		}
		return
	}

	response.JSON(w, r, http.StatusOK, models.NewPollutionResponse(q.Lat, q.Lon, *p))
}

// Route handles GET /v1/route?start=&end=&mode=.
func (h *LookupHandler) Route(w http.ResponseWriter, r *http.Request) {
	if h.routes == nil {
		response.ConfigurationMissing(w, r, config.ErrMissingAPIKey.Error())
		return
	}

	q, errs := parseRouteQuery(r)
	if len(errs) > 0 {
		response.BadRequest(w, r, "Invalid route parameters", errs)
		return
	}
	start, _ := routing.ParseCoordinate(q.Start) //nolint:errcheck // validated by parseRouteQuery
	end, _ := routing.ParseCoordinate(q.End)     //nolint:errcheck // validated by parseRouteQuery

	route, err := h.routes.GetRoute(r.Context(), routing.RouteRequest{
		Start:   start,
		End:     end,
		Profile: routing.Profile(q.Mode),
	})
	if err != nil {
		switch {
		case errors.Is(err, routing.ErrInvalidCoordinates):
			response.BadRequest(w, r, "Invalid coordinates", nil)
		case errors.Is(err, routing.ErrNoRouteFound):
			response.NotFound(w, r, "No route found between the given points")
		case errors.Is(err, context.DeadlineExceeded):
			response.GatewayTimeout(w, r, "Routing service timeout")
		default:
			h.log(r).Error().Err(err).Str("mode", q.Mode).Msg("route lookup failed")
			response.BadGateway(w, r, "Failed to get route data", []models.FieldError{
				{Field: q.Mode, Message: err.Error(), Code: "route_failed"},
			})
		}
		return
	}

	response.JSON(w, r, http.StatusOK, models.NewRouteDetails(*route))
}

func (h *LookupHandler) log(r *http.Request) *zerolog.Logger {
	return middleware.RequestLogger(r.Context(), h.logger)
}
