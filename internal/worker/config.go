// Package worker provides background job processing for EcoRoute.
package worker

import (
	"time"
)

// WarmTarget is a destination area whose provider caches are kept warm.
type WarmTarget struct {
	// Name is the human-readable name of the target.
	Name string

	// Points are the lat/lon coordinates to warm, usually popular destinations.
	Points []Point

	// Priority determines warm-up order (lower = higher priority).
	Priority int
}

// Point represents a geographic coordinate.
type Point struct {
	Lat float64
	Lon float64
}

// WarmConfig holds configuration for the cache warm-up job.
type WarmConfig struct {
	// Targets are the destinations to warm. If empty, uses DefaultWarmTargets.
	Targets []WarmTarget

	// Concurrency is the number of concurrent warm-up operations.
	// Default: 3
	Concurrency int

	// Timeout bounds the provider calls for one point.
	// Default: 30 seconds
	Timeout time.Duration

	// WarmAirQuality enables air quality warm-up.
	WarmAirQuality bool

	// WarmWeather enables weather warm-up.
	WarmWeather bool
}

// DefaultWarmConfig returns the default warm-up configuration.
func DefaultWarmConfig() WarmConfig {
	return WarmConfig{
		Targets:        DefaultWarmTargets(),
		Concurrency:    3,
		Timeout:        30 * time.Second,
		WarmAirQuality: true,
		WarmWeather:    true,
	}
}

// DefaultWarmTargets returns frequently planned destinations.
func DefaultWarmTargets() []WarmTarget {
	return []WarmTarget{
		{
			Name:     "Chennai",
			Priority: 1,
			Points: []Point{
				{Lat: 13.0827, Lon: 80.2707}, // Chennai Central
				{Lat: 13.0674, Lon: 80.2430}, // Nungambakkam
				{Lat: 12.9941, Lon: 80.2532}, // Adyar
			},
		},
		{
			Name:     "Bengaluru",
			Priority: 1,
			Points: []Point{
				{Lat: 12.9716, Lon: 77.5946}, // MG Road
				{Lat: 12.9352, Lon: 77.6245}, // Koramangala
			},
		},
		{
			Name:     "Mumbai",
			Priority: 2,
			Points: []Point{
				{Lat: 18.9402, Lon: 72.8353}, // CST
				{Lat: 19.0596, Lon: 72.8295}, // Bandra
			},
		},
		{
			Name:     "Delhi",
			Priority: 2,
			Points: []Point{
				{Lat: 28.6315, Lon: 77.2167}, // Connaught Place
			},
		},
		{
			Name:     "Amsterdam",
			Priority: 3,
			Points: []Point{
				{Lat: 52.3676, Lon: 4.9041}, // Amsterdam Centraal
			},
		},
	}
}

// AllPoints returns all points from all targets in target order.
func (c WarmConfig) AllPoints() []Point {
	var points []Point
	for _, target := range c.Targets {
		points = append(points, target.Points...)
	}
	return points
}

// TotalPoints returns the total number of points to warm.
func (c WarmConfig) TotalPoints() int {
	total := 0
	for _, target := range c.Targets {
		total += len(target.Points)
	}
	return total
}
