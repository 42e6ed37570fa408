// Package weather provides current weather conditions at a destination.
package weather

import (
	"errors"
	"strconv"
	"strings"
	"unicode"
)

// Weather errors.
var (
	ErrProviderUnavailable = errors.New("weather provider unavailable")
	ErrCityNotFound        = errors.New("city not found")
	ErrTimeout             = errors.New("weather service timeout")
	ErrInvalidCoordinates  = errors.New("invalid coordinates")
	ErrInvalidCity         = errors.New("city parameter is required")
)

// Fallback values used when no conditions could be fetched.
const (
	UnknownCondition   = "Unknown"
	UnknownTemperature = "N/A"
)

// Conditions is the current weather at a point or city.
// Optional fields are nil when the provider did not report them.
type Conditions struct {
	// City is the provider's name for the location, when known.
	City string

	// Condition is the human-readable description, first letter capitalised ("Light rain").
	Condition string

	// Temperature is formatted as "<value> °C".
	Temperature *string

	// Humidity percentage (0-100).
	Humidity *float64

	// WindSpeed in m/s.
	WindSpeed *float64
}

// DefaultConditions returns the conditions substituted when the provider fails.
func DefaultConditions() Conditions {
	temp := UnknownTemperature
	return Conditions{
		Condition:   UnknownCondition,
		Temperature: &temp,
	}
}

// FormatTemperature renders a Celsius value the way it is reported to clients.
func FormatTemperature(celsius float64) string {
	return strconv.FormatFloat(celsius, 'f', -1, 64) + " °C"
}

// Capitalize upper-cases the first character and lower-cases the rest.
func Capitalize(s string) string {
	if s == "" {
		return s
	}
	runes := []rune(strings.ToLower(s))
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

// NormalizeCity trims the name and title-cases each word ("new york" -> "New York").
func NormalizeCity(city string) string {
	city = strings.TrimSpace(city)
	runes := []rune(strings.ToLower(city))
	prevLetter := false
	for i, r := range runes {
		if unicode.IsLetter(r) {
			if !prevLetter {
				runes[i] = unicode.ToUpper(r)
			}
			prevLetter = true
		} else {
			prevLetter = false
		}
	}
	return string(runes)
}

func validateCoordinates(lat, lon float64) error {
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return ErrInvalidCoordinates
	}
	return nil
}
