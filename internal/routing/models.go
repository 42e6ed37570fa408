// Package routing provides route computation between two points for a travel mode.
package routing

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
)

// Sentinel errors for routing operations.
var (
	// ErrProviderUnavailable indicates the routing provider is down or the circuit breaker is open.
	ErrProviderUnavailable = errors.New("routing provider unavailable")
	// ErrNoRouteFound indicates no valid route exists between the given points.
	ErrNoRouteFound = errors.New("no route found between the given points")
	// ErrRateLimitExceeded indicates the API quota has been exceeded.
	ErrRateLimitExceeded = errors.New("rate limit exceeded")
	// ErrInvalidCoordinates indicates the provided coordinates are invalid or out of range.
	ErrInvalidCoordinates = errors.New("invalid coordinates")
)

// Provider defines the interface for routing providers.
type Provider interface {
	// GetRoute retrieves the primary route between two points for the given profile.
	GetRoute(ctx context.Context, req RouteRequest) (*RouteData, error)
	// Name returns the provider identifier for logging and metrics.
	Name() string
}

// Profile is a travel mode identifier as understood by the routing provider.
// Unknown profiles are passed through unchanged.
type Profile string

const (
	ProfileWalk       Profile = "foot-walking"
	ProfileBike       Profile = "cycling-regular"
	ProfileWheelchair Profile = "wheelchair"
	ProfileCar        Profile = "driving-car"
	ProfileHGV        Profile = "driving-hgv"
)

// DefaultProfiles is the mode list compared when the caller does not pick one.
var DefaultProfiles = []Profile{ProfileCar, ProfileBike, ProfileWalk}

// IsOutdoor reports whether the traveller is exposed to weather and air quality.
func (p Profile) IsOutdoor() bool {
	return p == ProfileWalk || p == ProfileBike
}

// ParseProfiles splits a comma-separated mode list, trimming whitespace.
// Empty items are dropped.
func ParseProfiles(s string) []Profile {
	parts := strings.Split(s, ",")
	out := make([]Profile, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, Profile(p))
	}
	return out
}

// Coordinate represents a geographic point.
type Coordinate struct {
	Lat float64
	Lon float64
}

// ParseCoordinate parses a "lon,lat" pair.
func ParseCoordinate(s string) (Coordinate, error) {
	parts := strings.Split(strings.TrimSpace(s), ",")
	if len(parts) != 2 {
		return Coordinate{}, fmt.Errorf("%w: expected 'lon,lat', got %q", ErrInvalidCoordinates, s)
	}

	lon, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return Coordinate{}, fmt.Errorf("%w: longitude %q", ErrInvalidCoordinates, parts[0])
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return Coordinate{}, fmt.Errorf("%w: latitude %q", ErrInvalidCoordinates, parts[1])
	}

	c := Coordinate{Lat: lat, Lon: lon}
	if err := c.Validate(); err != nil {
		return Coordinate{}, err
	}
	return c, nil
}

// Validate checks that the coordinate is finite and within valid ranges.
func (c Coordinate) Validate() error {
	if !finite(c.Lat) || !finite(c.Lon) {
		return fmt.Errorf("%w: coordinates must be finite numbers", ErrInvalidCoordinates)
	}
	if c.Lat < -90 || c.Lat > 90 {
		return fmt.Errorf("%w: latitude %f out of range [-90, 90]", ErrInvalidCoordinates, c.Lat)
	}
	if c.Lon < -180 || c.Lon > 180 {
		return fmt.Errorf("%w: longitude %f out of range [-180, 180]", ErrInvalidCoordinates, c.Lon)
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// String formats the coordinate as "lon,lat", the order the routing provider expects.
func (c Coordinate) String() string {
	return strconv.FormatFloat(c.Lon, 'f', -1, 64) + "," + strconv.FormatFloat(c.Lat, 'f', -1, 64)
}

// Point returns the coordinate as an orb point.
func (c Coordinate) Point() orb.Point {
	return orb.Point{c.Lon, c.Lat}
}

// RouteRequest is the request for computing a route.
type RouteRequest struct {
	Start   Coordinate
	End     Coordinate
	Profile Profile
}

// RouteData is the provider-computed route for one mode.
type RouteData struct {
	DistanceKm  float64
	DurationMin float64
	Geometry    orb.Geometry // Provider geometry, usually a LineString
	Polyline    string       // Encoded polyline (precision 5) of Geometry
}

// Error provides detailed error information from the routing provider.
type Error struct {
	Provider string // Provider that generated the error
	Code     string // Error code from the provider
	Message  string // Human-readable error message
	Err      error  // Underlying error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsRetryable returns true if the error is transient and the request can be retried.
func (e *Error) IsRetryable() bool {
	return errors.Is(e.Err, ErrProviderUnavailable) || errors.Is(e.Err, ErrRateLimitExceeded)
}
