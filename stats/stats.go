// Package stats holds small statistical helpers shared by the model and
// ensemble layers.
package stats

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

var (
	ErrNoForecasts        = errors.New("no forecast realizations provided")
	ErrRealizationLen     = errors.New("forecast realizations have different lengths")
	ErrInvalidLevel       = errors.New("confidence level must be between 0 and 1 exclusive")
	ErrEmptySample        = errors.New("empty sample")
	ErrInvalidProbability = errors.New("probability must be within [0, 1]")
)

// Quantile returns the p-th quantile of x using linear interpolation between
// the two nearest order statistics. This is the convention the interval
// combination semantics are defined against, which differs from the empirical
// cumulant kinds in gonum's stat package.
func Quantile(x []float64, p float64) (float64, error) {
	if len(x) == 0 {
		return 0, ErrEmptySample
	}
	if p < 0 || p > 1 {
		return 0, fmt.Errorf("got %f, %w", p, ErrInvalidProbability)
	}

	sorted := make([]float64, len(x))
	copy(sorted, x)
	sort.Float64s(sorted)

	pos := p * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo], nil
	}
	frac := pos - float64(lo)
	return sorted[lo] + frac*(sorted[hi]-sorted[lo]), nil
}

// ConfidenceIntervals computes per-period lower and upper bounds across
// multiple forecast realizations. Each realization must have the same length.
// At level 0.95 the bounds are the 2.5 and 97.5 percentiles of the
// realizations at every period index.
func ConfidenceIntervals(forecasts [][]float64, level float64) ([]float64, []float64, error) {
	if len(forecasts) == 0 {
		return nil, nil, ErrNoForecasts
	}
	if level <= 0 || level >= 1 {
		return nil, nil, fmt.Errorf("got %f, %w", level, ErrInvalidLevel)
	}

	n := len(forecasts[0])
	for i, f := range forecasts {
		if len(f) != n {
			return nil, nil, fmt.Errorf(
				"realization %d has %d periods, expected %d, %w",
				i, len(f), n, ErrRealizationLen,
			)
		}
	}

	alpha := 1 - level
	lower := make([]float64, n)
	upper := make([]float64, n)
	column := make([]float64, len(forecasts))
	for j := 0; j < n; j++ {
		for i, f := range forecasts {
			column[i] = f[j]
		}
		lo, err := Quantile(column, alpha/2)
		if err != nil {
			return nil, nil, err
		}
		hi, err := Quantile(column, 1-alpha/2)
		if err != nil {
			return nil, nil, err
		}
		lower[j] = lo
		upper[j] = hi
	}
	return lower, upper, nil
}

// DetectOutliers returns the indexes of values falling outside the Tukey
// fences built from the lower and upper percentiles of y.
func DetectOutliers(y []float64, lowerPerc, upperPerc, tukeyFactor float64) []int {
	lowerPerc = math.Max(lowerPerc, 0.0)
	upperPerc = math.Min(upperPerc, 1.0)
	tukeyFactor = math.Max(tukeyFactor, 0.0)

	lower, err := Quantile(y, lowerPerc)
	if err != nil {
		return nil
	}
	upper, _ := Quantile(y, upperPerc)

	innerRange := upper - lower
	lower -= innerRange * tukeyFactor
	upper += innerRange * tukeyFactor

	var outlierIdx []int
	for i := 0; i < len(y); i++ {
		if y[i] >= upper || y[i] <= lower {
			outlierIdx = append(outlierIdx, i)
		}
	}
	return outlierIdx
}
