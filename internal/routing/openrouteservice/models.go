package openrouteservice

import (
	"encoding/json"

	"github.com/paulmach/orb/geojson"
)

// orsFeatureCollection is the GeoJSON body returned by GET /v2/directions/{profile}.
type orsFeatureCollection struct {
	Type     string       `json:"type"`
	Features []orsFeature `json:"features"`
	BBox     []float64    `json:"bbox,omitempty"`
}

// orsFeature is one route; the first feature is the primary route.
type orsFeature struct {
	Type       string            `json:"type"`
	Geometry   *geojson.Geometry `json:"geometry"`
	Properties orsProperties     `json:"properties"`
	BBox       []float64         `json:"bbox,omitempty"`
}

type orsProperties struct {
	Segments  []orsSegment `json:"segments"`
	Summary   orsSummary   `json:"summary"`
	WayPoints []int        `json:"way_points,omitempty"`
}

// orsSummary holds route totals in meters and seconds.
type orsSummary struct {
	Distance float64 `json:"distance"`
	Duration float64 `json:"duration"`
}

// orsSegment is the leg between two waypoints, in meters and seconds.
type orsSegment struct {
	Distance float64 `json:"distance"`
	Duration float64 `json:"duration"`
}

// orsErrorResponse represents an error response from ORS.
// The error field is either an object with code and message or a bare string.
type orsErrorResponse struct {
	Error json.RawMessage `json:"error"`
	Info  json.RawMessage `json:"info,omitempty"`
}

type orsErrorDetail struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// detail decodes the error field in either of its shapes.
func (r *orsErrorResponse) detail() orsErrorDetail {
	var d orsErrorDetail
	if len(r.Error) == 0 {
		return d
	}
	if err := json.Unmarshal(r.Error, &d); err == nil {
		return d
	}
	var msg string
	if err := json.Unmarshal(r.Error, &msg); err == nil {
		d.Message = msg
	}
	return d
}

// ORS error codes for error mapping.
const (
	orsErrorCodeInvalidParam  = 2003 // Invalid parameter value
	orsErrorCodeDistanceLimit = 2004 // Request exceeds the server distance limit
	orsErrorCodeNotFound      = 2009 // Route not found
	orsErrorCodePointNotFound = 2010 // Point not found near a routable road
)
