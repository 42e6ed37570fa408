package ecoscore

import (
	"github.com/ecoroute/ecoroute/internal/routing"
)

// treeAbsorptionGramsPerYear is roughly what one tree absorbs in a year.
const treeAbsorptionGramsPerYear = 22000.0

var emissionFactors = map[routing.Profile]float64{
	routing.ProfileCar: 120,
	routing.ProfileHGV: 300,
}

// Emissions is the estimated CO2 output of a route option.
type Emissions struct {
	TotalCO2Grams         float64
	CO2PerKm              float64
	EquivalentTreesNeeded float64
}

// EmissionFactor returns grams of CO2 per km for a mode, 0 for non-motorised or unknown modes.
func EmissionFactor(mode routing.Profile) float64 {
	return emissionFactors[mode]
}

// EstimateEmissions estimates the CO2 output of travelling distanceKm by mode.
func EstimateEmissions(distanceKm float64, mode routing.Profile) Emissions {
	factor := EmissionFactor(mode)
	total := distanceKm * factor

	e := Emissions{
		TotalCO2Grams: round(total, 2),
		CO2PerKm:      factor,
	}
	if total > 0 {
		e.EquivalentTreesNeeded = round(total/treeAbsorptionGramsPerYear, 3)
	}
	return e
}
