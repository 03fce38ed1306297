package fincast

import (
	"errors"
	"fmt"
	"math"

	"github.com/addisanalytics/fincast/timedataset"
)

var (
	ErrNoModels            = errors.New("no models provided to ensemble")
	ErrWeightCountMismatch = errors.New("number of weights does not match number of models")
	ErrInvalidWeight       = errors.New("weight is not a finite number")
	ErrMisalignedForecast  = errors.New("ensemble member forecasts do not share future periods")
)

// Ensemble combines forecasts from multiple fitted models. Point estimates are
// the weighted sum of per-model estimates at each future period. Bounds take
// the widest interval across members: elementwise minimum of lower bounds and
// maximum of upper bounds. This deliberately widens uncertainty instead of
// averaging it away, reflecting model-selection risk.
//
// weights may be nil, defaulting to equal weights summing to 1. When provided
// it must have one entry per model; weights are not required to sum to 1.
func Ensemble(ms []Model, horizon int, freq timedataset.Frequency, weights []float64, future Regressors) (*Forecast, error) {
	if len(ms) == 0 {
		return nil, ErrNoModels
	}
	if weights == nil {
		weights = make([]float64, len(ms))
		for i := range weights {
			weights[i] = 1.0 / float64(len(ms))
		}
	}
	if len(weights) != len(ms) {
		return nil, fmt.Errorf("got %d weights for %d models, %w", len(weights), len(ms), ErrWeightCountMismatch)
	}
	for i, w := range weights {
		if math.IsNaN(w) || math.IsInf(w, 0) {
			return nil, fmt.Errorf("weight %d is %f, %w", i, w, ErrInvalidWeight)
		}
	}

	forecasts := make([]*Forecast, 0, len(ms))
	for i, m := range ms {
		fc, err := m.Forecast(horizon, freq, future)
		if err != nil {
			return nil, fmt.Errorf("unable to forecast ensemble member %d (%s), %w", i, m.Kind(), err)
		}
		forecasts = append(forecasts, fc)
	}

	first := forecasts[0]
	for i, fc := range forecasts[1:] {
		if fc.Len() != first.Len() {
			return nil, fmt.Errorf("member %d produced %d periods, expected %d, %w", i+1, fc.Len(), first.Len(), ErrMisalignedForecast)
		}
		for j := range fc.T {
			if !fc.T[j].Equal(first.T[j]) {
				return nil, fmt.Errorf(
					"member %d period %d is %s, expected %s, %w",
					i+1, j, fc.T[j], first.T[j], ErrMisalignedForecast,
				)
			}
		}
	}

	combined := first.Copy()
	for j := 0; j < combined.Len(); j++ {
		var point float64
		lower := math.Inf(1)
		upper := math.Inf(-1)
		for i, fc := range forecasts {
			point += weights[i] * fc.Point[j]
			lower = math.Min(lower, fc.Lower[j])
			upper = math.Max(upper, fc.Upper[j])
		}
		combined.Point[j] = point
		combined.Lower[j] = lower
		combined.Upper[j] = upper
	}
	return combined, nil
}
