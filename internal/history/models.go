// Package history keeps a summary of every completed eco route plan.
package history

import (
	"errors"
	"time"

	"github.com/ecoroute/ecoroute/internal/planner"
)

// Repository errors.
var ErrRecordNotFound = errors.New("plan record not found")

const (
	// DefaultListLimit is used when no limit is requested.
	DefaultListLimit = 20
	// MaxListLimit bounds a single listing.
	MaxListLimit = 100
)

// Record is the stored summary of one plan.
type Record struct {
	ID                  string    `json:"id"`
	StartLon            float64   `json:"start_lon"`
	StartLat            float64   `json:"start_lat"`
	EndLon              float64   `json:"end_lon"`
	EndLat              float64   `json:"end_lat"`
	Modes               []string  `json:"modes"`
	FailedModes         []string  `json:"failed_modes"`
	BestMode            string    `json:"best_mode"`
	BestEcoScore        float64   `json:"best_eco_score"`
	OptionsAnalyzed     int       `json:"options_analyzed"`
	EnvironmentalStatus string    `json:"environmental_status"`
	CreatedAt           time.Time `json:"created_at"`
}

// FromResult summarises a plan result.
func FromResult(r *planner.Result) Record {
	rec := Record{
		ID:                  r.ID,
		StartLon:            r.Start.Lon,
		StartLat:            r.Start.Lat,
		EndLon:              r.End.Lon,
		EndLat:              r.End.Lat,
		Modes:               make([]string, 0, len(r.Options)),
		FailedModes:         make([]string, 0, len(r.Failures)),
		BestEcoScore:        r.Summary.BestEcoScore,
		OptionsAnalyzed:     r.Summary.TotalOptionsAnalyzed,
		EnvironmentalStatus: r.Summary.EnvironmentalStatus,
		CreatedAt:           r.CreatedAt,
	}
	for _, o := range r.Options {
		rec.Modes = append(rec.Modes, string(o.Mode))
	}
	for _, f := range r.Failures {
		rec.FailedModes = append(rec.FailedModes, string(f.Mode))
	}
	if r.RecommendedRoute != nil {
		rec.BestMode = string(r.RecommendedRoute.Mode)
	}
	return rec
}

// ClampLimit normalises a requested listing size.
func ClampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultListLimit
	case limit > MaxListLimit:
		return MaxListLimit
	default:
		return limit
	}
}
