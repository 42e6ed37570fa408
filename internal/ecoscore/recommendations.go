package ecoscore

import (
	"github.com/ecoroute/ecoroute/internal/routing"
)

// Recommendation messages.
const (
	MsgShortDrive       = "Consider cycling or walking for this short distance to reduce emissions"
	MsgPoorDrive        = "This route has poor eco-friendliness. Consider public transport if available"
	MsgPoorAirOutdoor   = "Poor air quality detected. Consider indoor exercise or postponing outdoor activities"
	MsgPoorAir          = "Avoid unnecessary travel due to poor air quality"
	MsgExcellentAir     = "Excellent air quality! Perfect time for outdoor activities"
	MsgBadWeather       = "Weather conditions may not be ideal for outdoor travel. Consider alternative transport"
	MsgPerfectWeather   = "Perfect weather for outdoor activities!"
	MsgLongOutdoor      = "This is a long distance for walking/cycling. Consider breaking the journey or using mixed transport"
	MsgGreatChoice      = "Great choice! This route is highly eco-friendly"
	MsgConsiderOthers   = "Consider alternative routes or transportation modes for better environmental impact"
	MsgAnalysisComplete = "Route analysis complete. Safe travels!"
)

type recommendationInput struct {
	mode       routing.Profile
	aqi        int
	condition  string // lower-cased
	distanceKm float64
	score      float64 // clamped, unrounded
}

type rule struct {
	when    func(in recommendationInput) bool
	message string
}

// ruleGroups are evaluated in order. Within a group only the first matching
// rule fires; every group is evaluated independently.
var ruleGroups = [][]rule{
	{
		{func(in recommendationInput) bool { return in.mode == routing.ProfileCar && in.distanceKm < 5 }, MsgShortDrive},
		{func(in recommendationInput) bool { return in.mode == routing.ProfileCar && in.score < 40 }, MsgPoorDrive},
	},
	{
		{func(in recommendationInput) bool { return in.aqi >= 4 && in.mode.IsOutdoor() }, MsgPoorAirOutdoor},
	},
	{
		{func(in recommendationInput) bool { return in.aqi >= 4 }, MsgPoorAir},
		{func(in recommendationInput) bool { return in.aqi == 1 }, MsgExcellentAir},
	},
	{
		{func(in recommendationInput) bool {
			return in.mode.IsOutdoor() && containsAny(in.condition, wetKeywords)
		}, MsgBadWeather},
		{func(in recommendationInput) bool {
			return in.mode.IsOutdoor() && containsAny(in.condition, fairKeywords)
		}, MsgPerfectWeather},
	},
	{
		{func(in recommendationInput) bool { return in.distanceKm > 20 && in.mode.IsOutdoor() }, MsgLongOutdoor},
	},
	{
		{func(in recommendationInput) bool { return in.score >= 80 }, MsgGreatChoice},
		{func(in recommendationInput) bool { return in.score < 30 }, MsgConsiderOthers},
	},
}

func recommend(in recommendationInput) []string {
	var out []string
	for _, group := range ruleGroups {
		for _, r := range group {
			if r.when(in) {
				out = append(out, r.message)
				break
			}
		}
	}
	if len(out) == 0 {
		return []string{MsgAnalysisComplete}
	}
	return out
}
