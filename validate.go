package fincast

import (
	"errors"
	"fmt"
	"math"
)

var ErrLengthMismatch = errors.New("actual and predicted have different lengths")

// Metrics holds forecast accuracy scores comparing predictions to realized
// values. MAPE is NaN when any actual value is exactly zero.
type Metrics struct {
	MAE  float64 `json:"MAE"`
	RMSE float64 `json:"RMSE"`
	MAPE float64 `json:"MAPE"`
}

// Validate computes accuracy metrics over position-aligned actual and
// predicted sequences. A zero actual value degrades MAPE to NaN while MAE and
// RMSE still compute; zero rows are not filtered since that would change the
// reported accuracy semantics.
func Validate(actual, predicted []float64) (Metrics, error) {
	if len(actual) != len(predicted) {
		return Metrics{}, fmt.Errorf("actual has %d values and predicted has %d, %w", len(actual), len(predicted), ErrLengthMismatch)
	}
	if len(actual) == 0 {
		return Metrics{}, fmt.Errorf("empty sequences, %w", ErrLengthMismatch)
	}

	var absSum, sqSum, pctSum float64
	zeroActual := false
	for i := range actual {
		err := actual[i] - predicted[i]
		absSum += math.Abs(err)
		sqSum += err * err
		if actual[i] == 0 {
			zeroActual = true
			continue
		}
		pctSum += math.Abs(err / actual[i])
	}

	n := float64(len(actual))
	m := Metrics{
		MAE:  absSum / n,
		RMSE: math.Sqrt(sqSum / n),
		MAPE: pctSum / n * 100,
	}
	if zeroActual {
		m.MAPE = math.NaN()
	}
	return m, nil
}
