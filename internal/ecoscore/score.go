// Package ecoscore turns one mode's route, weather and pollution data into a
// bounded eco-friendliness score, a rating and a list of recommendations.
//
// Everything in this package is pure: no I/O, no clock, no shared mutable state.
package ecoscore

import (
	"math"
	"strings"

	"github.com/ecoroute/ecoroute/internal/airquality"
	"github.com/ecoroute/ecoroute/internal/routing"
	"github.com/ecoroute/ecoroute/internal/weather"
)

// Score bounds.
const (
	MinScore = 0.0
	MaxScore = 100.0
)

const (
	defaultModeScore = 50.0

	distancePenaltyPerKm = 0.5
	maxDistancePenalty   = 20.0
)

// Rating is the qualitative band of an eco score.
type Rating string

const (
	RatingExcellent Rating = "Excellent"
	RatingGood      Rating = "Good"
	RatingFair      Rating = "Fair"
	RatingPoor      Rating = "Poor"
	RatingVeryPoor  Rating = "Very Poor"
)

var modeScores = map[routing.Profile]float64{
	routing.ProfileWalk:       100,
	routing.ProfileBike:       95,
	routing.ProfileWheelchair: 100,
	routing.ProfileCar:        30,
	routing.ProfileHGV:        15,
}

var aqiImpacts = map[int]float64{
	1: 20,
	2: 10,
	3: 0,
	4: -15,
	5: -30,
}

// ratingBands are checked top-down; lower bounds are inclusive.
var ratingBands = []struct {
	min    float64
	rating Rating
}{
	{80, RatingExcellent},
	{60, RatingGood},
	{40, RatingFair},
	{20, RatingPoor},
}

// Keyword sets, already lower-cased.
var (
	fairKeywords   = []string{"clear", "sunny"}
	severeKeywords = []string{"rain", "storm", "snow"}
	wetKeywords    = []string{"rain", "storm"}
	cloudKeywords  = []string{"cloud"}
)

// Breakdown holds the four additive terms before clamping.
type Breakdown struct {
	TransportationMode float64
	AirQualityImpact   float64
	// DistanceEfficiency is the negated distance penalty, always <= 0.
	DistanceEfficiency float64
	WeatherConditions  float64
}

// Sum returns the unclamped total of the breakdown.
func (b Breakdown) Sum() float64 {
	return b.TransportationMode + b.AirQualityImpact + b.DistanceEfficiency + b.WeatherConditions
}

// Factors echoes the inputs an analysis was derived from.
type Factors struct {
	Mode             routing.Profile
	DistanceKm       float64
	AirQualityIndex  int
	WeatherCondition string
}

// Analysis is the eco analysis of a single route option.
type Analysis struct {
	// EcoScore is clamped to [0, 100] and rounded to one decimal.
	EcoScore        float64
	Breakdown       Breakdown
	Rating          Rating
	Recommendations []string
	Factors         Factors
}

// Compute scores a route for the given mode. It never fails: unknown modes
// score 50, unknown indices have no impact and a missing index counts as 3.
func Compute(route routing.RouteData, conditions weather.Conditions, pollution airquality.Pollution, mode routing.Profile) Analysis {
	aqi := pollution.Index()
	condition := strings.ToLower(conditions.Condition)

	breakdown := Breakdown{
		TransportationMode: ModeScore(mode),
		AirQualityImpact:   AirQualityImpact(aqi),
		DistanceEfficiency: -DistancePenalty(route.DistanceKm),
		WeatherConditions:  WeatherImpact(condition, mode),
	}

	score := clamp(breakdown.Sum())

	weatherCondition := conditions.Condition
	if weatherCondition == "" {
		weatherCondition = weather.UnknownCondition
	}

	return Analysis{
		EcoScore:  round(score, 1),
		Breakdown: breakdown,
		Rating:    RatingFor(score),
		Recommendations: recommend(recommendationInput{
			mode:       mode,
			aqi:        aqi,
			condition:  condition,
			distanceKm: route.DistanceKm,
			score:      score,
		}),
		Factors: Factors{
			Mode:             mode,
			DistanceKm:       route.DistanceKm,
			AirQualityIndex:  aqi,
			WeatherCondition: weatherCondition,
		},
	}
}

// ModeScore returns the base score for a mode, 50 when the mode is unknown.
func ModeScore(mode routing.Profile) float64 {
	if s, ok := modeScores[mode]; ok {
		return s
	}
	return defaultModeScore
}

// AirQualityImpact returns the score adjustment for an AQI value, 0 outside 1-5.
func AirQualityImpact(aqi int) float64 {
	return aqiImpacts[aqi]
}

// DistancePenalty is linear in distance and capped at 20 points.
func DistancePenalty(distanceKm float64) float64 {
	if distanceKm <= 0 {
		return 0
	}
	return math.Min(distanceKm*distancePenaltyPerKm, maxDistancePenalty)
}

// WeatherImpact returns the score adjustment for a lower-cased condition.
// For outdoor modes the first matching keyword set wins: clear/sunny, then
// rain/storm/snow, then cloud.
func WeatherImpact(condition string, mode routing.Profile) float64 {
	if mode.IsOutdoor() {
		switch {
		case containsAny(condition, fairKeywords):
			return 10
		case containsAny(condition, severeKeywords):
			return -15
		case containsAny(condition, cloudKeywords):
			return 5
		}
		return 0
	}
	if containsAny(condition, severeKeywords) {
		return -5
	}
	return 0
}

// RatingFor maps a score onto its rating band.
func RatingFor(score float64) Rating {
	for _, band := range ratingBands {
		if score >= band.min {
			return band.rating
		}
	}
	return RatingVeryPoor
}

// IsSevereWeather reports whether a condition mentions rain, storm or snow.
func IsSevereWeather(condition string) bool {
	return containsAny(strings.ToLower(condition), severeKeywords)
}

// IsWetWeather reports whether a condition mentions rain or storm.
func IsWetWeather(condition string) bool {
	return containsAny(strings.ToLower(condition), wetKeywords)
}

// IsClearWeather reports whether a condition mentions a clear sky.
func IsClearWeather(condition string) bool {
	return strings.Contains(strings.ToLower(condition), "clear")
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}

func clamp(v float64) float64 {
	return math.Max(MinScore, math.Min(MaxScore, v))
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
