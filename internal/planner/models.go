// Package planner scores every requested travel mode between two points and
// ranks the results by eco score.
package planner

import (
	"errors"
	"strings"
	"time"

	"github.com/ecoroute/ecoroute/internal/airquality"
	"github.com/ecoroute/ecoroute/internal/ecoscore"
	"github.com/ecoroute/ecoroute/internal/routing"
	"github.com/ecoroute/ecoroute/internal/weather"
)

// Planner errors.
var (
	ErrNoModes       = errors.New("at least one travel mode is required")
	ErrNoViableRoute = errors.New("no valid routes found")
)

// NoViableRouteError is returned when every requested mode failed.
// It matches ErrNoViableRoute and unwraps to the per-mode causes.
type NoViableRouteError struct {
	Failures []ModeFailure
	causes   []error
}

func (e *NoViableRouteError) Error() string {
	parts := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		parts[i] = string(f.Mode) + ": " + f.Error
	}
	return ErrNoViableRoute.Error() + ": " + strings.Join(parts, "; ")
}

func (e *NoViableRouteError) Is(target error) bool {
	return target == ErrNoViableRoute
}

func (e *NoViableRouteError) Unwrap() []error {
	return e.causes
}

// Environmental status messages.
const (
	StatusExcellent = "Excellent conditions for eco-friendly travel"
	StatusGood      = "Good conditions for outdoor activities"
	StatusPoorAir   = "Poor air quality - consider minimizing outdoor exposure"
	StatusWeather   = "Weather may impact outdoor travel comfort"
	StatusModerate  = "Moderate conditions for travel"
)

// Request is a plan request between two points.
type Request struct {
	Start routing.Coordinate
	End   routing.Coordinate
	// Modes in caller order; ties in the ranking keep this order.
	Modes []routing.Profile
}

// RouteOption is one scored travel mode.
type RouteOption struct {
	Mode               routing.Profile
	RouteDetails       routing.RouteData
	EcoAnalysis        ecoscore.Analysis
	EstimatedEmissions ecoscore.Emissions
}

// Conditions are the destination conditions shared by every mode of a plan.
type Conditions struct {
	Weather    weather.Conditions
	AirQuality airquality.Pollution
}

// Summary aggregates a plan.
type Summary struct {
	BestEcoScore         float64
	TotalOptionsAnalyzed int
	EnvironmentalStatus  string
}

// ModeFailure records a mode dropped from a plan.
type ModeFailure struct {
	Mode  routing.Profile
	Error string
}

// Result is a ranked plan. It is built once per request and never cached.
type Result struct {
	ID               string
	Start            routing.Coordinate
	End              routing.Coordinate
	Conditions       Conditions
	Options          []RouteOption
	RecommendedRoute *RouteOption
	Summary          Summary
	Failures         []ModeFailure
	CreatedAt        time.Time
}

// Modes returns the modes of the surviving options in ranked order.
func (r *Result) Modes() []routing.Profile {
	modes := make([]routing.Profile, len(r.Options))
	for i, o := range r.Options {
		modes[i] = o.Mode
	}
	return modes
}

// ComparisonEntry is the reduced projection of a RouteOption.
type ComparisonEntry struct {
	Mode              routing.Profile
	EcoScore          float64
	Rating            ecoscore.Rating
	DistanceKm        float64
	DurationMin       float64
	CO2Emissions      float64
	TopRecommendation string
}

// Comparison is the quick side-by-side view of the default modes.
type Comparison struct {
	Entries              []ComparisonEntry
	BestOption           *ComparisonEntry
	EnvironmentalSummary string
	Result               *Result
}

// EnvironmentalStatus summarises destination conditions. The first matching rule wins.
func EnvironmentalStatus(c weather.Conditions, p airquality.Pollution) string {
	aqi := p.Index()
	condition := c.Condition

	switch {
	case aqi <= 2 && !ecoscore.IsSevereWeather(condition):
		return StatusExcellent
	case aqi <= 3 && ecoscore.IsClearWeather(condition):
		return StatusGood
	case aqi >= 4:
		return StatusPoorAir
	case ecoscore.IsWetWeather(condition):
		return StatusWeather
	default:
		return StatusModerate
	}
}
