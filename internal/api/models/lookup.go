package models

import (
	"github.com/ecoroute/ecoroute/internal/airquality"
	"github.com/ecoroute/ecoroute/internal/weather"
)

// CityWeatherResponse is the response of GET /v1/weather.
type CityWeatherResponse struct {
	City        string  `json:"city"`
	Temperature *string `json:"temperature"`
	Condition   *string `json:"condition"`
}

// PollutionResponse is the response of GET /v1/pollution.
type PollutionResponse struct {
	Location        Location           `json:"location"`
	AirQualityIndex int                `json:"air_quality_index"`
	Components      map[string]float64 `json:"components"`
}

// NewCityWeatherResponse converts city conditions. An unreported condition is null.
func NewCityWeatherResponse(c weather.Conditions) CityWeatherResponse {
	resp := CityWeatherResponse{City: c.City, Temperature: c.Temperature}
	if c.Condition != "" && c.Condition != weather.UnknownCondition {
		cond := c.Condition
		resp.Condition = &cond
	}
	return resp
}

// NewPollutionResponse converts pollution data at a point.
func NewPollutionResponse(lat, lon float64, p airquality.Pollution) PollutionResponse {
	aq := NewAirQuality(p)
	return PollutionResponse{
		Location:        Location{Lon: lon, Lat: lat},
		AirQualityIndex: aq.AirQualityIndex,
		Components:      aq.Components,
	}
}
