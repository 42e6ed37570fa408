// Package airquality provides air pollution data for a point, with caching.
package airquality

import (
	"errors"
)

// Provider errors.
var (
	ErrProviderUnavailable = errors.New("air quality provider unavailable")
	ErrNoMeasurements      = errors.New("no measurements available")
	ErrInvalidCoordinates  = errors.New("invalid coordinates")
)

// DefaultIndex is the air quality index assumed when none is known.
const DefaultIndex = 3

// Pollution is the current air quality at a point.
type Pollution struct {
	// AirQualityIndex is the 1 (good) to 5 (very poor) index. Zero means unknown.
	AirQualityIndex int

	// Components holds pollutant concentrations in μg/m³ keyed by name ("co", "no2", "pm2_5", ...).
	Components map[string]float64
}

// Default returns the pollution substituted when the provider fails.
func Default() Pollution {
	return Pollution{
		AirQualityIndex: DefaultIndex,
		Components:      map[string]float64{},
	}
}

// Index returns the air quality index, treating a missing value as DefaultIndex.
func (p Pollution) Index() int {
	if p.AirQualityIndex == 0 {
		return DefaultIndex
	}
	return p.AirQualityIndex
}

func validateCoordinates(lat, lon float64) error {
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return ErrInvalidCoordinates
	}
	return nil
}
