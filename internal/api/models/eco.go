package models

import (
	"github.com/paulmach/orb/geojson"

	"github.com/ecoroute/ecoroute/internal/airquality"
	"github.com/ecoroute/ecoroute/internal/ecoscore"
	"github.com/ecoroute/ecoroute/internal/planner"
	"github.com/ecoroute/ecoroute/internal/routing"
	"github.com/ecoroute/ecoroute/internal/weather"
)

// WeatherConditions is the weather block of a plan.
type WeatherConditions struct {
	Temperature *string  `json:"temperature,omitempty"`
	Condition   string   `json:"condition"`
	Humidity    *float64 `json:"humidity,omitempty"`
	WindSpeed   *float64 `json:"wind_speed,omitempty"`
}

// AirQuality is the pollution block of a plan.
type AirQuality struct {
	AirQualityIndex int                `json:"air_quality_index"`
	Components      map[string]float64 `json:"components"`
}

// EnvironmentalConditions are the destination conditions shared by all options.
type EnvironmentalConditions struct {
	Weather    WeatherConditions `json:"weather"`
	AirQuality AirQuality        `json:"air_quality"`
}

// RouteDetails is a provider route.
type RouteDetails struct {
	DistanceKm       float64           `json:"distance_km"`
	DurationMin      float64           `json:"duration_min"`
	Geometry         *geojson.Geometry `json:"geometry,omitempty"`
	GeometryPolyline string            `json:"geometry_polyline,omitempty"`
}

// ScoreBreakdown mirrors ecoscore.Breakdown.
type ScoreBreakdown struct {
	TransportationMode float64 `json:"transportation_mode"`
	AirQualityImpact   float64 `json:"air_quality_impact"`
	DistanceEfficiency float64 `json:"distance_efficiency"`
	WeatherConditions  float64 `json:"weather_conditions"`
}

// ScoreFactors echoes the inputs of a score.
type ScoreFactors struct {
	Mode             string  `json:"mode"`
	DistanceKm       float64 `json:"distance_km"`
	AirQualityIndex  int     `json:"air_quality_index"`
	WeatherCondition string  `json:"weather_condition"`
}

// EcoAnalysis is the scored view of one mode.
type EcoAnalysis struct {
	EcoScore        float64        `json:"eco_score"`
	Breakdown       ScoreBreakdown `json:"score_breakdown"`
	Rating          string         `json:"rating"`
	Recommendations []string       `json:"recommendations"`
	Factors         ScoreFactors   `json:"factors"`
}

// Emissions is the CO2 estimate of a route option.
type Emissions struct {
	TotalCO2Grams         float64 `json:"total_co2_grams"`
	CO2PerKm              float64 `json:"co2_per_km"`
	EquivalentTreesNeeded float64 `json:"equivalent_trees_needed"`
}

// RouteOption is one ranked travel mode.
type RouteOption struct {
	Mode               string       `json:"mode"`
	RouteDetails       RouteDetails `json:"route_details"`
	EcoAnalysis        EcoAnalysis  `json:"eco_analysis"`
	EstimatedEmissions Emissions    `json:"estimated_emissions"`
}

// PlanSummary aggregates a plan.
type PlanSummary struct {
	BestEcoScore         float64 `json:"best_eco_score"`
	TotalOptionsAnalyzed int     `json:"total_options_analyzed"`
	EnvironmentalStatus  string  `json:"environmental_status"`
}

// FailedMode reports a mode dropped from a plan.
type FailedMode struct {
	Mode  string `json:"mode"`
	Error string `json:"error"`
}

// PlanResponse is the response of GET /v1/eco/plan.
type PlanResponse struct {
	PlanID                  string                  `json:"plan_id"`
	StartLocation           Location                `json:"start_location"`
	EndLocation             Location                `json:"end_location"`
	EnvironmentalConditions EnvironmentalConditions `json:"environmental_conditions"`
	RouteOptions            []RouteOption           `json:"route_options"`
	RecommendedRoute        *RouteOption            `json:"recommended_route"`
	Summary                 PlanSummary             `json:"summary"`
	FailedModes             []FailedMode            `json:"failed_modes,omitempty"`
	GeneratedAt             Timestamp               `json:"generated_at"`
}

// ComparisonEntry is one row of a comparison.
type ComparisonEntry struct {
	Mode              string  `json:"mode"`
	EcoScore          float64 `json:"eco_score"`
	Rating            string  `json:"rating"`
	DistanceKm        float64 `json:"distance_km"`
	DurationMin       float64 `json:"duration_min"`
	CO2Emissions      float64 `json:"co2_emissions"`
	TopRecommendation *string `json:"top_recommendation"`
}

// CompareResponse is the response of GET /v1/eco/compare.
type CompareResponse struct {
	RouteComparison      []ComparisonEntry `json:"route_comparison"`
	BestOption           *ComparisonEntry  `json:"best_option"`
	EnvironmentalSummary string            `json:"environmental_summary"`
}

// NewLocation converts a routing coordinate.
func NewLocation(c routing.Coordinate) Location {
	return Location{Lon: c.Lon, Lat: c.Lat}
}

// NewWeatherConditions converts weather conditions.
func NewWeatherConditions(c weather.Conditions) WeatherConditions {
	return WeatherConditions{
		Temperature: c.Temperature,
		Condition:   c.Condition,
		Humidity:    c.Humidity,
		WindSpeed:   c.WindSpeed,
	}
}

// NewAirQuality converts pollution data. Components is never null.
func NewAirQuality(p airquality.Pollution) AirQuality {
	components := p.Components
	if components == nil {
		components = map[string]float64{}
	}
	return AirQuality{AirQualityIndex: p.Index(), Components: components}
}

// NewRouteDetails converts a provider route.
func NewRouteDetails(r routing.RouteData) RouteDetails {
	d := RouteDetails{
		DistanceKm:       r.DistanceKm,
		DurationMin:      r.DurationMin,
		GeometryPolyline: r.Polyline,
	}
	if r.Geometry != nil {
		d.Geometry = geojson.NewGeometry(r.Geometry)
	}
	return d
}

// NewEcoAnalysis converts a score analysis.
func NewEcoAnalysis(a ecoscore.Analysis) EcoAnalysis {
	recs := a.Recommendations
	if recs == nil {
		recs = []string{}
	}
	return EcoAnalysis{
		EcoScore: a.EcoScore,
		Breakdown: ScoreBreakdown{
			TransportationMode: a.Breakdown.TransportationMode,
			AirQualityImpact:   a.Breakdown.AirQualityImpact,
			DistanceEfficiency: a.Breakdown.DistanceEfficiency,
			WeatherConditions:  a.Breakdown.WeatherConditions,
		},
		Rating:          string(a.Rating),
		Recommendations: recs,
		Factors: ScoreFactors{
			Mode:             string(a.Factors.Mode),
			DistanceKm:       a.Factors.DistanceKm,
			AirQualityIndex:  a.Factors.AirQualityIndex,
			WeatherCondition: a.Factors.WeatherCondition,
		},
	}
}

// NewEmissions converts an emissions estimate.
func NewEmissions(e ecoscore.Emissions) Emissions {
	return Emissions{
		TotalCO2Grams:         e.TotalCO2Grams,
		CO2PerKm:              e.CO2PerKm,
		EquivalentTreesNeeded: e.EquivalentTreesNeeded,
	}
}

// NewRouteOption converts a ranked option.
func NewRouteOption(o planner.RouteOption) RouteOption {
	return RouteOption{
		Mode:               string(o.Mode),
		RouteDetails:       NewRouteDetails(o.RouteDetails),
		EcoAnalysis:        NewEcoAnalysis(o.EcoAnalysis),
		EstimatedEmissions: NewEmissions(o.EstimatedEmissions),
	}
}

// NewPlanResponse converts a plan result.
func NewPlanResponse(r *planner.Result) PlanResponse {
	resp := PlanResponse{
		PlanID:        r.ID,
		StartLocation: NewLocation(r.Start),
		EndLocation:   NewLocation(r.End),
		EnvironmentalConditions: EnvironmentalConditions{
			Weather:    NewWeatherConditions(r.Conditions.Weather),
			AirQuality: NewAirQuality(r.Conditions.AirQuality),
		},
		RouteOptions: make([]RouteOption, len(r.Options)),
		Summary: PlanSummary{
			BestEcoScore:         r.Summary.BestEcoScore,
			TotalOptionsAnalyzed: r.Summary.TotalOptionsAnalyzed,
			EnvironmentalStatus:  r.Summary.EnvironmentalStatus,
		},
		GeneratedAt: Timestamp(r.CreatedAt),
	}

	for i, o := range r.Options {
		resp.RouteOptions[i] = NewRouteOption(o)
	}
	if len(resp.RouteOptions) > 0 {
		resp.RecommendedRoute = &resp.RouteOptions[0]
	}
	for _, f := range r.Failures {
		resp.FailedModes = append(resp.FailedModes, FailedMode{Mode: string(f.Mode), Error: f.Error})
	}
	return resp
}

// NewCompareResponse converts a comparison.
func NewCompareResponse(c *planner.Comparison) CompareResponse {
	resp := CompareResponse{
		RouteComparison:      make([]ComparisonEntry, len(c.Entries)),
		EnvironmentalSummary: c.EnvironmentalSummary,
	}
	for i, e := range c.Entries {
		entry := ComparisonEntry{
			Mode:         string(e.Mode),
			EcoScore:     e.EcoScore,
			Rating:       string(e.Rating),
			DistanceKm:   e.DistanceKm,
			DurationMin:  e.DurationMin,
			CO2Emissions: e.CO2Emissions,
		}
		if e.TopRecommendation != "" {
			top := e.TopRecommendation
			entry.TopRecommendation = &top
		}
		resp.RouteComparison[i] = entry
	}
	if len(resp.RouteComparison) > 0 {
		resp.BestOption = &resp.RouteComparison[0]
	}
	return resp
}
