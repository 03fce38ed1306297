package fincast

import (
	"errors"
	"fmt"
	"math"
)

// BaseScenario is the name of the unadjusted entry every scenario set carries.
const BaseScenario = "base"

var (
	ErrNoBaseForecast    = errors.New("no base forecast to derive scenarios from")
	ErrInvalidMultiplier = errors.New("scenario multiplier must be a positive finite number")
)

// ScenarioSet maps a scenario name to its adjusted forecast. The "base" entry
// always holds the unadjusted input forecast.
type ScenarioSet map[string]*Forecast

// Scenarios derives named alternate trajectories from a base forecast by
// scaling point estimates and both bounds uniformly by each adjustment
// multiplier. A positive multiplier preserves the bound ordering; anything
// else fails before any scenario is produced.
func Scenarios(base *Forecast, adjustments map[string]float64) (ScenarioSet, error) {
	if base == nil {
		return nil, ErrNoBaseForecast
	}
	for name, multiplier := range adjustments {
		if multiplier <= 0 || math.IsNaN(multiplier) || math.IsInf(multiplier, 0) {
			return nil, fmt.Errorf("scenario %q has multiplier %f, %w", name, multiplier, ErrInvalidMultiplier)
		}
	}

	set := make(ScenarioSet, len(adjustments)+1)
	set[BaseScenario] = base.Copy()

	for name, multiplier := range adjustments {
		fc := base.Copy()
		for i := 0; i < fc.Len(); i++ {
			fc.Point[i] *= multiplier
			fc.Lower[i] *= multiplier
			fc.Upper[i] *= multiplier
		}
		set[name] = fc
	}
	return set, nil
}
